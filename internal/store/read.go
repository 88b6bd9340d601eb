package store

import (
	"context"
	"fmt"

	"github.com/roach88/bedquilt/internal/ir"
	"github.com/roach88/bedquilt/internal/querysql"
)

// FindOptions bounds a Find.
type FindOptions struct {
	Limit int // 0 = no limit
	Skip  int
}

// ListCollections returns collection names in ascending order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select name from bq_collections order by name asc`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// Find returns documents matching query in created order.
// A collection that does not exist yields no documents.
func (s *Store) Find(ctx context.Context, collection string, query ir.Document, opts FindOptions) ([]ir.Document, error) {
	split, err := s.split(collection, query)
	if err != nil {
		return nil, err
	}
	stmt, params, err := s.compiler.Select(collection, split, querysql.SelectOptions{
		Limit: opts.Limit,
		Skip:  opts.Skip,
	})
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return s.query(ctx, collection, stmt, params...)
}

// FindOne returns the first document matching query.
func (s *Store) FindOne(ctx context.Context, collection string, query ir.Document) (ir.Document, bool, error) {
	docs, err := s.Find(ctx, collection, query, FindOptions{Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, false, err
	}
	return docs[0], true, nil
}

// FindOneByID returns the document with the given _id.
func (s *Store) FindOneByID(ctx context.Context, collection, id string) (ir.Document, bool, error) {
	stmt, err := s.compiler.SelectByID(collection)
	if err != nil {
		return nil, false, fmt.Errorf("find: %w", err)
	}
	docs, err := s.query(ctx, collection, stmt, id)
	if err != nil || len(docs) == 0 {
		return nil, false, err
	}
	return docs[0], true, nil
}

// Count returns the number of documents matching query.
func (s *Store) Count(ctx context.Context, collection string, query ir.Document) (int64, error) {
	split, err := s.split(collection, query)
	if err != nil {
		return 0, err
	}
	stmt, params, err := s.compiler.Count(collection, split)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, stmt, params...).Scan(&n); err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, collection, stmt string, args ...any) ([]ir.Document, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return []ir.Document{}, nil
		}
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	return docs, nil
}

// split compiles query, consulting the cache first. Failures are returned as
// *QueryError.
func (s *Store) split(collection string, query ir.Document) (*querysql.Split, error) {
	if query == nil {
		query = ir.Document{}
	}

	key, err := ir.Fingerprint(query)
	if err != nil {
		return nil, &QueryError{Collection: collection, Err: err}
	}
	if s.cache != nil {
		if split, ok := s.cache.Get(key); ok {
			return split, nil
		}
	}

	split, err := s.splitter.Split(query)
	if err != nil {
		return nil, &QueryError{Collection: collection, Err: err}
	}
	s.logger.Debug("query compiled",
		"collection", collection,
		"fingerprint", key[:16],
		"fragments", len(split.Fragments))

	if s.cache != nil {
		s.cache.Add(key, split)
	}
	return split, nil
}
