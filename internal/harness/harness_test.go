package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bedquilt/internal/ir"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)

			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: ordered
description: "key order is kept"
query:
  z: 1
  a: {$gt: 2}
  m: {n: 3}
residual:
  z: 1
  m: {n: 3}
fragments:
  - "and bq_jdoc #> '{a}' > '2'::jsonb"
`))
	require.NoError(t, err)
	assert.Equal(t, "ordered", s.Name)
	assert.Equal(t, []string{"z", "a", "m"}, s.Query.Keys())
	assert.Equal(t, ir.D("z", 1, "m", ir.D("n", 3)), s.Residual)
	assert.Len(t, s.Fragments, 1)
	assert.Empty(t, s.Error)
}

func TestParseScenario_OperatorKeysInDocuments(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: operators
description: "operator and field keys inside query and residual are data"
query:
  a:
    b: {$eq: 22}
    fragment: 1
  tags: {$in: [x, y]}
residual:
  a: {fragment: 1}
fragments:
  - "and bq_jdoc #> '{a,b}' = '22'::jsonb"
  - "and bq_jdoc #> '{tags}' <@ '[\"x\", \"y\"]'::jsonb"
`))
	require.NoError(t, err)
	assert.Equal(t, ir.D("a", ir.D("b", ir.D("$eq", 22), "fragment", 1), "tags", ir.D("$in", ir.A("x", "y"))), s.Query)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestLoadScenarios_Shipped(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Len(t, scenarios, 12)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "description: d\nquery: {a: 1}\nresidual: {a: 1}\n", "name is required"},
		{"missing description", "name: n\nquery: {a: 1}\nresidual: {a: 1}\n", "description is required"},
		{"missing query", "name: n\ndescription: d\nresidual: {}\n", "query is required"},
		{"query not mapping", "name: n\ndescription: d\nquery: [1]\nresidual: {}\n", "query must be a mapping"},
		{"missing residual", "name: n\ndescription: d\nquery: {a: 1}\n", "residual is required"},
		{"unknown field", "name: n\ndescription: d\nquery: {a: 1}\nresidual: {}\nfragment: []\n", "field fragment not found"},
		{"empty file", "", "scenario must be a mapping"},
		{"not a mapping", "- name: n\n", "scenario must be a mapping"},
		{"bad yaml", "name: [n\n", "failed to parse YAML"},
		{"unknown error code", "name: n\ndescription: d\nquery: {a: 1}\nerror: NOPE\n", "unknown error code"},
		{"error with residual", "name: n\ndescription: d\nquery: {a: 1}\nresidual: {}\nerror: DEPTH_EXCEEDED\n", "must not specify residual"},
		{"negative depth", "name: n\ndescription: d\nquery: {a: 1}\nresidual: {}\nmax_depth: -1\n", "max_depth"},
		{"duplicate key", "name: n\ndescription: d\nquery: {a: 1, a: 2}\nresidual: {}\n", `"a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarios_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	body := []byte("name: same\ndescription: d\nquery: {a: 1}\nresidual: {a: 1}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yaml"), body, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.yml"), body, 0644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate scenario name")
}

func TestLoadScenarios_EmptyDir(t *testing.T) {
	_, err := LoadScenarios(t.TempDir())
	assert.Error(t, err)
}

func TestRun_ReportsMismatches(t *testing.T) {
	s := &Scenario{
		Name:      "wrong",
		Query:     ir.D("a", ir.D("b", ir.D("$eq", 22), "c", 44)),
		Residual:  ir.D("a", ir.D("c", 45)),
		Fragments: []string{"and bq_jdoc #> '{a,b}' = '23'::jsonb", "extra"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "residual")
	assert.Contains(t, result.Errors[1], "got 1 fragments, expected 2")
	assert.Contains(t, result.Errors[2], "fragment[0]")
}

func TestRun_UnexpectedError(t *testing.T) {
	result, err := Run(&Scenario{
		Name:      "boom",
		Query:     ir.D("a", ir.D("$foo", 1)),
		Residual:  ir.Document{},
		Fragments: []string{},
	})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "UNSUPPORTED_OPERATOR", result.ErrorCode)
	assert.Contains(t, result.Errors[0], "unexpected error")
}

func TestRun_WrongErrorCode(t *testing.T) {
	result, err := Run(&Scenario{
		Name:  "code",
		Query: ir.D("a", ir.D("$in", 1)),
		Error: "UNSUPPORTED_OPERATOR",
	})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "INVALID_OPERAND", result.ErrorCode)
}

func TestRun_ExpectedErrorButSucceeded(t *testing.T) {
	result, err := Run(&Scenario{
		Name:  "fine",
		Query: ir.D("a", 1),
		Error: "DEPTH_EXCEEDED",
	})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "split succeeded")
}

func TestRun_NilScenario(t *testing.T) {
	_, err := Run(nil)
	assert.Error(t, err)
}

func TestHarness_WithColumn(t *testing.T) {
	h := New(WithColumn("doc"))
	result, err := h.Run(&Scenario{
		Name:      "column",
		Query:     ir.D("a", ir.D("$lt", 1)),
		Residual:  ir.Document{},
		Fragments: []string{"and doc #> '{a}' < '1'::jsonb"},
	})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	_, err = New(WithColumn("bad column")).Run(&Scenario{Name: "x", Query: ir.Document{}})
	assert.Error(t, err)
}

func TestRunAll(t *testing.T) {
	h := New()
	results, err := h.RunAll([]*Scenario{
		{Name: "one", Query: ir.D("a", 1), Residual: ir.D("a", 1), Fragments: []string{}},
		{Name: "two", Query: ir.D("a", ir.D("$foo", 1)), Error: "UNSUPPORTED_OPERATOR"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Pass)
	assert.True(t, results[1].Pass)
}

func TestSnapshot(t *testing.T) {
	result := NewResult("snap")
	result.Residual = ir.D("a", ir.D("c", 44))
	result.Fragments = []string{"and bq_jdoc #> '{a,b}' = '22'::jsonb"}

	data, err := Snapshot(result)
	require.NoError(t, err)
	assert.Equal(t, `{
  "name": "snap",
  "residual": {
    "a": {
      "c": 44
    }
  },
  "fragments": [
    "and bq_jdoc #> '{a,b}' = '22'::jsonb"
  ]
}
`, string(data))
}
