package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bedquilt/internal/ir"
	"github.com/roach88/bedquilt/internal/queryir"
)

// Scenario defines one split conformance case.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string

	// Description explains what this scenario validates.
	Description string

	// Query is the document to split.
	Query ir.Document

	// Residual is the expected residual document. Nil when Error is set.
	Residual ir.Document

	// Fragments are the expected fragments, in order.
	Fragments []string

	// Error is the expected SplitError code. Empty means the split must
	// succeed.
	Error string

	// MaxDepth overrides the splitter's nesting limit when positive.
	MaxDepth int
}

// scenarioFile is the on-disk form. Documents are kept as nodes so key order
// survives decoding.
type scenarioFile struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Query       *yaml.Node `yaml:"query"`
	Residual    *yaml.Node `yaml:"residual,omitempty"`
	Fragments   []string   `yaml:"fragments,omitempty"`
	Error       string     `yaml:"error,omitempty"`
	MaxDepth    int        `yaml:"max_depth,omitempty"`
}

// knownErrorCodes lists the codes a scenario may expect.
var knownErrorCodes = map[string]bool{
	string(queryir.ErrCodeUnsupportedOperator):         true,
	string(queryir.ErrCodeInvalidOperand):              true,
	string(queryir.ErrCodeDepthExceeded):               true,
	string(queryir.ErrCodeMalformedOperatorExpression): true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Decode to a node first: KnownFields would also apply to the query and
	// residual payloads, whose keys are data.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	// Catches typos like "fragment:" vs "fragments:"
	if err := checkScenarioFields(&root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var file scenarioFile
	if err := root.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario, err := file.toScenario()
	if err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// scenarioFields are the top-level keys scenarioFile accepts.
var scenarioFields = map[string]bool{
	"name":        true,
	"description": true,
	"query":       true,
	"residual":    true,
	"fragments":   true,
	"error":       true,
	"max_depth":   true,
}

func checkScenarioFields(root *yaml.Node) error {
	node := root
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("scenario must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !scenarioFields[key.Value] {
			return fmt.Errorf("line %d: field %s not found in scenario", key.Line, key.Value)
		}
	}
	return nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob scenarios: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", s.Name, prev, path)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// toScenario converts and validates the on-disk form.
func (f *scenarioFile) toScenario() (*Scenario, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if f.Description == "" {
		return nil, fmt.Errorf("description is required")
	}
	if f.MaxDepth < 0 {
		return nil, fmt.Errorf("max_depth must not be negative")
	}

	query, err := documentNode("query", f.Query)
	if err != nil {
		return nil, err
	}

	s := &Scenario{
		Name:        f.Name,
		Description: f.Description,
		Query:       query,
		Fragments:   f.Fragments,
		Error:       f.Error,
		MaxDepth:    f.MaxDepth,
	}

	if f.Error != "" {
		if !knownErrorCodes[f.Error] {
			return nil, fmt.Errorf("unknown error code %q", f.Error)
		}
		if f.Residual != nil || len(f.Fragments) > 0 {
			return nil, fmt.Errorf("error scenarios must not specify residual or fragments")
		}
		return s, nil
	}

	residual, err := documentNode("residual", f.Residual)
	if err != nil {
		return nil, err
	}
	s.Residual = residual
	if s.Fragments == nil {
		s.Fragments = []string{}
	}
	return s, nil
}

func documentNode(field string, node *yaml.Node) (ir.Document, error) {
	if node == nil {
		return nil, fmt.Errorf("%s is required", field)
	}
	val, err := ir.FromYAML(node)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	doc, ok := val.(ir.Document)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping, got %s", field, ir.Kind(val))
	}
	return doc, nil
}
