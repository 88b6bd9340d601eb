package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/bedquilt/internal/ir"
)

// maxIDLength matches the _id column width.
const maxIDLength = 256

// marshalDocument converts a Document to JSON text for a jsonb parameter.
// Key order is kept; PostgreSQL normalizes it on storage.
func marshalDocument(doc ir.Document) (string, error) {
	data, err := ir.MarshalCompact(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses stored jsonb text into a Document.
// Numbers keep their text, so values beyond 2^53 survive.
func unmarshalDocument(data []byte) (ir.Document, error) {
	doc, err := ir.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

// withID returns the document's _id, assigning one from ids when the
// document has none. The returned document always carries _id.
func withID(doc ir.Document, ids IDGenerator) (string, ir.Document, error) {
	if doc == nil {
		doc = ir.Document{}
	}
	val, ok := doc.Get("_id")
	if !ok {
		id := ids.Generate()
		return id, doc.With("_id", ir.String(id)), nil
	}

	id, ok := val.(ir.String)
	if !ok {
		return "", nil, fmt.Errorf("%w: must be a string, got %s", ErrInvalidID, ir.Kind(val))
	}
	if id == "" || len(id) > maxIDLength {
		return "", nil, fmt.Errorf("%w: length must be 1 to %d bytes", ErrInvalidID, maxIDLength)
	}
	return string(id), doc, nil
}

// scanDocuments reads (_id, bq_jdoc) rows. Returns an empty slice, not nil,
// when there are no rows.
func scanDocuments(rows *sql.Rows) ([]ir.Document, error) {
	docs := []ir.Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := unmarshalDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}
