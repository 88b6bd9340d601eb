package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bedquilt/internal/ir"
)

// Snapshot renders a result as indented JSON with a fixed member order:
// name, residual, fragments, then error_code when the split failed.
func Snapshot(result *Result) ([]byte, error) {
	fragments := make(ir.Array, len(result.Fragments))
	for i, f := range result.Fragments {
		fragments[i] = ir.String(f)
	}

	residual := result.Residual
	if residual == nil {
		residual = ir.Document{}
	}
	doc := ir.D(
		"name", result.Name,
		"residual", residual,
		"fragments", fragments,
	)
	if result.ErrorCode != "" {
		doc = doc.With("error_code", ir.String(result.ErrorCode))
	}

	compact, err := ir.MarshalCompact(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its output against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie) occurs
// if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
