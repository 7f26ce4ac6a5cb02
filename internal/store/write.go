package store

import (
	"context"
	"fmt"
)

// Insert adds one row in its own transaction and returns its id.
func (s *Store) Insert(ctx context.Context, table string, v Values) (int64, error) {
	var id int64
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.Insert(ctx, table, v)
		return err
	})
	return id, err
}

// BulkInsert adds rows in one transaction. Any failure aborts the whole
// batch and returns 0.
func (s *Store) BulkInsert(ctx context.Context, table string, rows []Values) (int, error) {
	err := s.WithTx(ctx, func(tx *Tx) error {
		for i, v := range rows {
			if _, err := tx.Insert(ctx, table, v); err != nil {
				return fmt.Errorf("bulk insert row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Update changes rows matching sel in its own transaction.
func (s *Store) Update(ctx context.Context, table string, v Values, sel Selection) (int, error) {
	var n int
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		n, err = tx.Update(ctx, table, v, sel)
		return err
	})
	return n, err
}

// Delete removes rows matching sel in its own transaction.
func (s *Store) Delete(ctx context.Context, table string, sel Selection) (int, error) {
	var n int
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		n, err = tx.Delete(ctx, table, sel)
		return err
	})
	return n, err
}

// OpKind is the kind of a batch operation.
type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
	OpDelete
)

// Op is one step of a batch.
type Op struct {
	Kind      OpKind
	Table     string
	Values    Values
	Selection Selection
}

// OpResult is the outcome of one batch step: the inserted id for
// inserts, the affected row count otherwise.
type OpResult struct {
	ID    int64
	Count int
}

// ApplyBatch runs ops in a single transaction. If any op fails none of
// them take effect.
func (s *Store) ApplyBatch(ctx context.Context, ops []Op) ([]OpResult, error) {
	results := make([]OpResult, len(ops))
	err := s.WithTx(ctx, func(tx *Tx) error {
		for i, op := range ops {
			var err error
			switch op.Kind {
			case OpInsert:
				results[i].ID, err = tx.Insert(ctx, op.Table, op.Values)
				results[i].Count = 1
			case OpUpdate:
				results[i].Count, err = tx.Update(ctx, op.Table, op.Values, op.Selection)
			case OpDelete:
				results[i].Count, err = tx.Delete(ctx, op.Table, op.Selection)
			default:
				err = fmt.Errorf("unknown op kind %d", op.Kind)
			}
			if err != nil {
				return fmt.Errorf("batch op %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
