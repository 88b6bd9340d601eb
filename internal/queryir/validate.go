package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/bedquilt/internal/ir"
)

// ValidateOperand checks operand against the shape spec requires.
// path and spec.Token are used only to build the error.
//
// Rules:
//  1. List operators take a JSON array
//  2. Scalar operators take null, string, number, or boolean
//  3. No string anywhere in the operand may contain U+0000, which jsonb rejects
//  4. Every number in the operand is JSON number text
func ValidateOperand(path Path, spec OperatorSpec, operand ir.Value) error {
	token := string(spec.Token)

	switch spec.Shape {
	case ShapeList:
		if _, ok := operand.(ir.Array); !ok {
			return NewInvalidOperandError(path, token,
				fmt.Sprintf("operator %s requires a list operand, got %s", token, ir.Kind(operand)))
		}
	case ShapeScalar:
		if !ir.IsScalar(operand) {
			return NewInvalidOperandError(path, token,
				fmt.Sprintf("operator %s requires a scalar operand, got %s", token, ir.Kind(operand)))
		}
	default:
		return NewUnsupportedOperatorError(path, token)
	}

	if containsNUL(operand) {
		return NewInvalidOperandError(path, token, "operand contains a NUL character")
	}
	if num, bad := invalidNumber(operand); bad {
		return NewInvalidOperandError(path, token,
			fmt.Sprintf("operand number %q is not a JSON number", string(num)))
	}
	return nil
}

func invalidNumber(v ir.Value) (ir.Number, bool) {
	switch val := v.(type) {
	case ir.Number:
		if _, err := ir.NewNumber(string(val)); err != nil {
			return val, true
		}
	case ir.Array:
		for _, elem := range val {
			if num, bad := invalidNumber(elem); bad {
				return num, true
			}
		}
	case ir.Document:
		for _, f := range val {
			if num, bad := invalidNumber(f.Value); bad {
				return num, true
			}
		}
	}
	return "", false
}

func containsNUL(v ir.Value) bool {
	switch val := v.(type) {
	case ir.String:
		return strings.ContainsRune(string(val), 0)
	case ir.Array:
		for _, elem := range val {
			if containsNUL(elem) {
				return true
			}
		}
	case ir.Document:
		for _, f := range val {
			if strings.ContainsRune(f.Key, 0) || containsNUL(f.Value) {
				return true
			}
		}
	}
	return false
}

// Validate checks a predicate tree built outside the splitter.
//
// Rules:
//  1. Comparisons name a supported operator and a non-empty path
//  2. Comparison operands satisfy ValidateOperand
//  3. Contains documents hold no operator keys at any depth
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case And:
		return validateAnd(pred)
	case *And:
		return validateAnd(*pred)
	case Comparison:
		return validateComparison(pred)
	case *Comparison:
		return validateComparison(*pred)
	case Contains:
		return validateContains(nil, pred.Document)
	case *Contains:
		return validateContains(nil, pred.Document)
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func validateAnd(and And) error {
	for _, child := range and.Predicates {
		if err := Validate(child); err != nil {
			return err
		}
	}
	return nil
}

func validateComparison(c Comparison) error {
	spec, ok := Operators[c.Op]
	if !ok {
		return NewUnsupportedOperatorError(c.Path, string(c.Op))
	}
	if len(c.Path) == 0 {
		return NewMalformedOperatorError(c.Path, string(c.Op), "comparison requires a field path")
	}
	return ValidateOperand(c.Path, spec, c.Operand)
}

func validateContains(path Path, doc ir.Document) error {
	for _, f := range doc {
		fieldPath := path.Append(f.Key)
		if IsOperatorToken(f.Key) {
			if _, known := LookupOperator(f.Key); !known {
				return NewUnsupportedOperatorError(path, f.Key)
			}
			return NewMalformedOperatorError(path, f.Key, "operator key inside a containment document")
		}
		if sub, ok := f.Value.(ir.Document); ok {
			if err := validateContains(fieldPath, sub); err != nil {
				return err
			}
		}
	}
	return nil
}
