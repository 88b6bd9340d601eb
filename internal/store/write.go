package store

import (
	"context"
	"fmt"

	"github.com/roach88/bedquilt/internal/ir"
	"github.com/roach88/bedquilt/internal/querysql"
)

// CreateCollection creates the table for a collection and registers it in the
// catalog. Returns false if the collection already exists.
//
// The catalog insert and the DDL run in one transaction, so a concurrent
// caller either sees the finished collection or creates it itself.
func (s *Store) CreateCollection(ctx context.Context, name string) (bool, error) {
	table, err := s.compiler.CreateTable(name)
	if err != nil {
		return false, fmt.Errorf("create collection: %w", err)
	}
	index, err := s.compiler.CreateIndex(name)
	if err != nil {
		return false, fmt.Errorf("create collection: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("create collection: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`insert into bq_collections (name) values ($1) on conflict do nothing`, name)
	if err != nil {
		return false, fmt.Errorf("create collection %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create collection %s: %w", name, err)
	}
	if n == 0 {
		s.known.Store(name, struct{}{})
		return false, nil
	}

	for _, stmt := range []string{table, index} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("create collection %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("create collection %s: commit: %w", name, err)
	}

	s.known.Store(name, struct{}{})
	s.logger.Debug("collection created", "collection", name)
	return true, nil
}

// DeleteCollection drops a collection's table and catalog entry. Returns
// false if the collection does not exist.
func (s *Store) DeleteCollection(ctx context.Context, name string) (bool, error) {
	table, err := querysql.QuoteIdentifier(name)
	if err != nil {
		return false, fmt.Errorf("delete collection: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete collection: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `delete from bq_collections where name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("delete collection %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete collection %s: %w", name, err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, "drop table if exists "+table); err != nil {
		return false, fmt.Errorf("delete collection %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete collection %s: commit: %w", name, err)
	}

	s.known.Delete(name)
	s.logger.Debug("collection deleted", "collection", name)
	return true, nil
}

// Insert stores doc in a collection, creating the collection on first use.
// A document without "_id" gets one from Config.IDs. Returns the document's _id.
//
// Inserting an _id that already exists returns ErrDuplicateID.
func (s *Store) Insert(ctx context.Context, collection string, doc ir.Document) (string, error) {
	id, doc, err := withID(doc, s.ids)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	data, err := marshalDocument(doc)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	stmt, err := s.compiler.Insert(collection)
	if err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}

	if _, ok := s.known.Load(collection); !ok {
		if _, err := s.CreateCollection(ctx, collection); err != nil {
			return "", fmt.Errorf("insert into %s: %w", collection, err)
		}
	}

	_, err = s.db.ExecContext(ctx, stmt, id, data)
	if isUndefinedTable(err) {
		// Dropped outside this Store since it was cached; recreate and retry once.
		s.known.Delete(collection)
		if err := s.restoreCollection(ctx, collection); err != nil {
			return "", fmt.Errorf("insert into %s: %w", collection, err)
		}
		_, err = s.db.ExecContext(ctx, stmt, id, data)
	}
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return "", fmt.Errorf("insert into %s: %w: %s", collection, ErrDuplicateID, id)
		}
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	return id, nil
}

// restoreCollection recreates a collection whose table is missing. The catalog
// row may have survived the drop, so the table and index DDL run regardless.
func (s *Store) restoreCollection(ctx context.Context, name string) error {
	created, err := s.CreateCollection(ctx, name)
	if err != nil || created {
		return err
	}

	table, err := s.compiler.CreateTable(name)
	if err != nil {
		return fmt.Errorf("restore collection: %w", err)
	}
	index, err := s.compiler.CreateIndex(name)
	if err != nil {
		return fmt.Errorf("restore collection: %w", err)
	}
	for _, stmt := range []string{table, index} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("restore collection %s: %w", name, err)
		}
	}
	s.logger.Debug("collection table restored", "collection", name)
	return nil
}

// Remove deletes every document matching query. Returns the number removed.
func (s *Store) Remove(ctx context.Context, collection string, query ir.Document) (int64, error) {
	return s.remove(ctx, collection, query, false)
}

// RemoveOne deletes the first document matching query, in created order.
// Returns the number removed, 0 or 1.
func (s *Store) RemoveOne(ctx context.Context, collection string, query ir.Document) (int64, error) {
	return s.remove(ctx, collection, query, true)
}

func (s *Store) remove(ctx context.Context, collection string, query ir.Document, one bool) (int64, error) {
	split, err := s.split(collection, query)
	if err != nil {
		return 0, err
	}
	stmt, params, err := s.compiler.Delete(collection, split, one)
	if err != nil {
		return 0, fmt.Errorf("remove: %w", err)
	}
	return s.exec(ctx, collection, stmt, params...)
}

// RemoveOneByID deletes the document with the given _id. Returns false if
// there was none.
func (s *Store) RemoveOneByID(ctx context.Context, collection, id string) (bool, error) {
	stmt, err := s.compiler.DeleteByID(collection)
	if err != nil {
		return false, fmt.Errorf("remove: %w", err)
	}
	n, err := s.exec(ctx, collection, stmt, id)
	return n > 0, err
}

// exec runs a delete and returns affected rows. A missing table means an
// empty collection.
func (s *Store) exec(ctx context.Context, collection, stmt string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("remove from %s: %w", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove from %s: %w", collection, err)
	}
	return n, nil
}
