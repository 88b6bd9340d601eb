// Package queryir provides the typed intermediate representation a split
// query document is lowered into.
//
// A query document is compiled into a conjunction of two predicate kinds:
//
//	[query document] → And{ Contains{residual}, Comparison, Comparison, ... }
//
// Contains is the structural part: the stored document must contain the
// residual document (PostgreSQL `@>`). Each Comparison is one operator
// expression found in the query, tied to the path where it appeared.
//
// OPERATOR TABLE:
//
// Operators is the fixed whitelist of comparison operators. Each entry names
// the backend symbol and the operand shape:
//
//	Token     Symbol   Operand
//	-----     ------   -------
//	$eq       =        scalar
//	$noteq    !=       scalar
//	$gte      >=       scalar
//	$gt       >        scalar
//	$lte      <=       scalar
//	$lt       <        scalar
//	$in       <@       list
//
// Any other `$`-prefixed key is an unsupported operator.
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern. Only types
// in this package implement it, so backends can switch over it exhaustively.
//
// ERRORS:
//
// Failures are reported as *SplitError with a stable string code and the
// offending path and operator. Use the Is* helpers, which see through
// wrapping.
package queryir
