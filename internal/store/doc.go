// Package store provides PostgreSQL-backed document collections queried with
// split query documents.
//
// Each collection is a table holding one jsonb document per row:
//   - _id: document identity, copied from the document's "_id" member
//   - bq_jdoc: the document itself
//   - created, updated: row timestamps
//
// Collections are registered in the bq_collections catalog so they can be
// listed and dropped by name.
//
// # Queries
//
// Find, Count and Remove take a query document. It is split by
// querysql.Splitter into a residual, matched with jsonb containment (@>), and
// comparison fragments appended to the WHERE clause. Splits are cached by
// query fingerprint; a split is immutable, so cached values are shared.
//
// # Ordering
//
//   - Every select orders by created ASC, _id ASC
//   - RemoveOne removes the first document in that order
//
// The store talks to PostgreSQL through database/sql with the pgx driver.
package store
