package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bedquilt/internal/ir"
)

func TestValidateOperandScalarOperators(t *testing.T) {
	spec := Operators[OpGt]

	for _, v := range []ir.Value{ir.Int(42), ir.String("x"), ir.Bool(true), ir.Null{}, ir.Number("1.5")} {
		assert.NoError(t, ValidateOperand(Path{"a"}, spec, v), ir.Kind(v))
	}

	for _, v := range []ir.Value{ir.A(1, 2), ir.D("x", 1)} {
		err := ValidateOperand(Path{"a"}, spec, v)
		require.Error(t, err, ir.Kind(v))
		assert.True(t, IsInvalidOperand(err))
		assert.Contains(t, err.Error(), "requires a scalar operand")
	}
}

func TestValidateOperandList(t *testing.T) {
	spec := Operators[OpIn]

	assert.NoError(t, ValidateOperand(Path{"a"}, spec, ir.A(22, 42)))
	assert.NoError(t, ValidateOperand(Path{"a"}, spec, ir.Array{}))
	assert.NoError(t, ValidateOperand(Path{"a"}, spec, ir.A("x", ir.D("k", 1))))

	for _, v := range []ir.Value{ir.Int(22), ir.String("22"), ir.Null{}, ir.D("a", 1)} {
		err := ValidateOperand(Path{"a", "b"}, spec, v)
		require.Error(t, err, ir.Kind(v))
		assert.True(t, IsInvalidOperand(err))

		var se *SplitError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, Path{"a", "b"}, se.Path)
		assert.Equal(t, "$in", se.Operator)
	}
}

func TestValidateOperandRejectsNUL(t *testing.T) {
	err := ValidateOperand(Path{"a"}, Operators[OpEq], ir.String("a\x00b"))
	assert.True(t, IsInvalidOperand(err))

	err = ValidateOperand(Path{"a"}, Operators[OpIn], ir.A("ok", "bad\x00"))
	assert.True(t, IsInvalidOperand(err))

	err = ValidateOperand(Path{"a"}, Operators[OpIn], ir.A(ir.D("k\x00", 1)))
	assert.True(t, IsInvalidOperand(err))
}

func TestValidateOperandRejectsNonJSONNumbers(t *testing.T) {
	for _, num := range []ir.Number{"NaN", "+Inf", "-Inf", "1 + 1", ""} {
		err := ValidateOperand(Path{"a"}, Operators[OpLt], num)
		require.Error(t, err, string(num))
		assert.True(t, IsInvalidOperand(err))
	}

	err := ValidateOperand(Path{"a"}, Operators[OpIn], ir.A(1, ir.D("k", ir.Number("NaN"))))
	assert.True(t, IsInvalidOperand(err))

	assert.NoError(t, ValidateOperand(Path{"a"}, Operators[OpLt], ir.Number("-1.5e300")))
	assert.NoError(t, ValidateOperand(Path{"a"}, Operators[OpLt], ir.Number("1e400")))
}

func TestValidatePredicates(t *testing.T) {
	valid := And{Predicates: []Predicate{
		Contains{Document: ir.D("a", ir.D("c", 44))},
		Comparison{Path: Path{"a", "b"}, Op: OpEq, Operand: ir.Int(22)},
		&Comparison{Path: Path{"x"}, Op: OpIn, Operand: ir.A(1)},
		&And{},
	}}
	assert.NoError(t, Validate(valid))
	assert.NoError(t, Validate(&valid))
	assert.NoError(t, Validate(nil))
}

func TestValidatePredicateErrors(t *testing.T) {
	tests := []struct {
		name  string
		pred  Predicate
		check func(error) bool
	}{
		{
			"unknown operator",
			Comparison{Path: Path{"a"}, Op: "$foo", Operand: ir.Int(1)},
			IsUnsupportedOperator,
		},
		{
			"empty path",
			Comparison{Op: OpEq, Operand: ir.Int(1)},
			IsMalformedOperatorExpression,
		},
		{
			"bad operand",
			&Comparison{Path: Path{"a"}, Op: OpIn, Operand: ir.Int(1)},
			IsInvalidOperand,
		},
		{
			"known operator in contains",
			Contains{Document: ir.D("a", ir.D("b", 1, "$eq", 2))},
			IsMalformedOperatorExpression,
		},
		{
			"unknown operator in contains",
			&Contains{Document: ir.D("$where", "1=1")},
			IsUnsupportedOperator,
		},
		{
			"nested in and",
			And{Predicates: []Predicate{And{Predicates: []Predicate{Comparison{Path: Path{"a"}, Op: "$x"}}}}},
			IsUnsupportedOperator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.pred)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}
