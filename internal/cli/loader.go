package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bedquilt/internal/ir"
)

// LoadError is an input loading failure with a CLI error code.
type LoadError struct {
	Code    string
	Message string
	Path    string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// DocumentLoader reads query and document arguments. An argument is a file
// path (.json, .yaml, .yml or .cue), "-" for stdin, or inline JSON when it
// starts with "{".
type DocumentLoader struct {
	Stdin io.Reader
}

// Load reads one document argument. Member order is preserved for every
// format.
func (l *DocumentLoader) Load(arg string) (ir.Document, error) {
	switch {
	case arg == "-":
		if l.Stdin == nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: "no stdin available"}
		}
		data, err := io.ReadAll(l.Stdin)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading stdin: %v", err)}
		}
		return parseSniffed(data, "stdin")
	case strings.HasPrefix(strings.TrimSpace(arg), "{"):
		return parseJSON([]byte(arg), "")
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: "file not found", Path: arg}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Path: arg}
	}

	switch strings.ToLower(filepath.Ext(arg)) {
	case ".json":
		return parseJSON(data, arg)
	case ".yaml", ".yml":
		return parseYAML(data, arg)
	case ".cue":
		return parseCUE(data, arg)
	default:
		return parseSniffed(data, arg)
	}
}

// parseSniffed treats input starting with "{" as JSON and anything else as
// YAML.
func parseSniffed(data []byte, path string) (ir.Document, error) {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return parseJSON(data, path)
	}
	return parseYAML(data, path)
}

func parseJSON(data []byte, path string) (ir.Document, error) {
	v, err := ir.Decode(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("invalid JSON: %v", err), Path: path}
	}
	return asDocument(v, path)
}

func parseYAML(data []byte, path string) (ir.Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("invalid YAML: %v", err), Path: path}
	}
	if node.Kind == 0 {
		return nil, &LoadError{Code: ErrCodeParse, Message: "empty input", Path: path}
	}
	v, err := ir.FromYAML(&node)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: err.Error(), Path: path}
	}
	return asDocument(v, path)
}

// parseCUE evaluates a CUE file and decodes its concrete JSON export.
// CUE exports fields in declaration order.
func parseCUE(data []byte, path string) (ir.Document, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeCUE, Message: fmt.Sprintf("compiling CUE: %v", err), Path: path}
	}
	if err := value.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeCUE, Message: fmt.Sprintf("validating CUE: %v", err), Path: path}
	}
	out, err := value.MarshalJSON()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeCUE, Message: fmt.Sprintf("exporting CUE: %v", err), Path: path}
	}
	return parseJSON(out, path)
}

func asDocument(v ir.Value, path string) (ir.Document, error) {
	doc, ok := v.(ir.Document)
	if !ok {
		return nil, &LoadError{
			Code:    ErrCodeNotDocument,
			Message: fmt.Sprintf("expected an object, got %s", ir.Kind(v)),
			Path:    path,
		}
	}
	return doc, nil
}

// loadErrorCode returns the CLI code for a loader error.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
