// Package ir provides the value model for bedquilt query documents.
//
// This package contains the document types and their encodings only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// value model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Documents are ordered: key order from the input is kept everywhere,
//     because fragment order is defined by it
//   - Numbers keep their JSON source text, never round-tripped through float64
//   - Values are immutable once built; transformations return new values
//   - MarshalJSONB is the only encoding used for SQL literals
package ir
