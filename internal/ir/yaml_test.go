package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parseYAML(t *testing.T, src string) Value {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))
	v, err := FromYAML(&node)
	require.NoError(t, err)
	return v
}

func TestFromYAMLKeepsOrder(t *testing.T) {
	v := parseYAML(t, `
z: 1
a:
  $in: [22, 42]
m:
  y: true
  b: ~
`)
	assert.Equal(t, D("z", 1, "a", D("$in", A(22, 42)), "m", D("y", true, "b", nil)), v)
}

func TestFromYAMLScalars(t *testing.T) {
	tests := []struct {
		src      string
		expected Value
	}{
		{`x: "22"`, D("x", "22")},
		{`x: 22`, D("x", 22)},
		{`x: 2.5`, D("x", Number("2.5"))},
		{`x: no`, D("x", "no")}, // YAML 1.2: only true/false are booleans
		{`x: false`, D("x", false)},
		{`x: null`, D("x", nil)},
		{`x: 2001-12-14`, D("x", "2001-12-14")},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseYAML(t, tt.src))
		})
	}
}

func TestFromYAMLAliases(t *testing.T) {
	v := parseYAML(t, `
base: &b {k: 1}
copy: *b
`)
	assert.Equal(t, D("base", D("k", 1), "copy", D("k", 1)), v)
}

func TestFromYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"duplicate key", "a: 1\na: 2\n"},
		{"non-scalar key", "? [1]\n: x\n"},
		{"nan", "x: .nan\n"},
		{"inf", "x: .inf\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var node yaml.Node
			if err := yaml.Unmarshal([]byte(tt.src), &node); err != nil {
				// yaml.v3 may reject the input itself; that is also a failure path
				return
			}
			_, err := FromYAML(&node)
			assert.Error(t, err)
		})
	}

	_, err := FromYAML(nil)
	assert.Error(t, err)
}
