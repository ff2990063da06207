package objectdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ObjectStore is a collection bound to a transaction.
type ObjectStore struct {
	tx   *Tx
	spec StoreSpec
}

// Entry is one object as returned by a cursor scan.
type Entry struct {
	Key   int64
	Value json.RawMessage
}

// Name returns the collection name.
func (s *ObjectStore) Name() string { return s.spec.Name }

// Add inserts v and returns its key. It fails with ErrConstraint if an
// object with the same key already exists.
func (s *ObjectStore) Add(v any) (int64, error) {
	return s.write(v, false)
}

// Put inserts or replaces v and returns its key.
func (s *ObjectStore) Put(v any) (int64, error) {
	return s.write(v, true)
}

func (s *ObjectStore) write(v any, replace bool) (int64, error) {
	if !s.tx.writable {
		return 0, ErrReadOnly
	}

	key, data, err := s.prepare(v)
	if err != nil {
		return 0, err
	}

	if !replace {
		var one int
		err := s.tx.conn.QueryRowContext(s.tx.ctx,
			"SELECT 1 FROM objects WHERE store = ? AND key = ?", s.spec.Name, key).Scan(&one)
		switch {
		case err == nil:
			return 0, fmt.Errorf("%w: %s/%d", ErrConstraint, s.spec.Name, key)
		case !errors.Is(err, sql.ErrNoRows):
			return 0, fmt.Errorf("failed to check key %d: %w", key, err)
		}
	}

	_, err = s.tx.conn.ExecContext(s.tx.ctx,
		`INSERT INTO objects (store, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(store, key) DO UPDATE SET value = excluded.value`,
		s.spec.Name, key, data)
	if err != nil {
		return 0, classify(fmt.Errorf("failed to store %s/%d: %w", s.spec.Name, key, err))
	}

	if s.spec.AutoIncrement {
		// Generated keys always move past the largest key seen, explicit or not.
		_, err := s.tx.conn.ExecContext(s.tx.ctx,
			"UPDATE object_stores SET next_key = ? WHERE name = ? AND next_key <= ?",
			key+1, s.spec.Name, key)
		if err != nil {
			return 0, fmt.Errorf("failed to advance key generator: %w", err)
		}
	}
	return key, nil
}

// prepare encodes v and resolves its key from the key path or the generator.
func (s *ObjectStore) prepare(v any) (key int64, data []byte, err error) {
	data, err = json.Marshal(v)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode object: %w", err)
	}

	if s.spec.KeyPath == "" {
		key, err = s.nextKey()
		return key, data, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return 0, nil, fmt.Errorf("%w: %s stores objects with key path %q", ErrInvalidKey, s.spec.Name, s.spec.KeyPath)
	}

	if raw, ok := obj[s.spec.KeyPath]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &key); err != nil {
			return 0, nil, fmt.Errorf("%w: %s=%s", ErrInvalidKey, s.spec.KeyPath, raw)
		}
		return key, data, nil
	}

	if !s.spec.AutoIncrement {
		return 0, nil, fmt.Errorf("%w: %s requires %q", ErrMissingKey, s.spec.Name, s.spec.KeyPath)
	}

	key, err = s.nextKey()
	if err != nil {
		return 0, nil, err
	}
	obj[s.spec.KeyPath] = json.RawMessage(fmt.Sprintf("%d", key))
	data, err = json.Marshal(obj)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode object: %w", err)
	}
	return key, data, nil
}

func (s *ObjectStore) nextKey() (int64, error) {
	var next int64
	err := s.tx.conn.QueryRowContext(s.tx.ctx,
		"SELECT next_key FROM object_stores WHERE name = ?", s.spec.Name).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to read key generator: %w", err)
	}
	return next, nil
}

// Get decodes the object stored under key into dst.
func (s *ObjectStore) Get(key int64, dst any) error {
	var data []byte
	err := s.tx.conn.QueryRowContext(s.tx.ctx,
		"SELECT value FROM objects WHERE store = ? AND key = ?", s.spec.Name, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, s.spec.Name, key)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s/%d: %w", s.spec.Name, key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s/%d: %w", s.spec.Name, key, err)
	}
	return nil
}

// Delete removes the object stored under key. Deleting a missing key is a no-op.
func (s *ObjectStore) Delete(key int64) error {
	if !s.tx.writable {
		return ErrReadOnly
	}
	_, err := s.tx.conn.ExecContext(s.tx.ctx,
		"DELETE FROM objects WHERE store = ? AND key = ?", s.spec.Name, key)
	if err != nil {
		return classify(fmt.Errorf("failed to delete %s/%d: %w", s.spec.Name, key, err))
	}
	return nil
}

// Clear removes every object of the collection. The key generator keeps counting.
func (s *ObjectStore) Clear() error {
	if !s.tx.writable {
		return ErrReadOnly
	}
	if _, err := s.tx.conn.ExecContext(s.tx.ctx, "DELETE FROM objects WHERE store = ?", s.spec.Name); err != nil {
		return classify(fmt.Errorf("failed to clear %s: %w", s.spec.Name, err))
	}
	return nil
}

// Count returns the number of objects.
func (s *ObjectStore) Count() (int, error) {
	var n int
	err := s.tx.conn.QueryRowContext(s.tx.ctx,
		"SELECT COUNT(*) FROM objects WHERE store = ?", s.spec.Name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", s.spec.Name, err)
	}
	return n, nil
}

// Each walks the collection in ascending key order. Returning an error
// from fn stops the scan and is returned as is.
func (s *ObjectStore) Each(fn func(e Entry) error) error {
	entries, err := s.scan()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// scan reads the whole cursor before handing entries out, so callbacks may
// issue further statements on the transaction's connection.
func (s *ObjectStore) scan() ([]Entry, error) {
	rows, err := s.tx.conn.QueryContext(s.tx.ctx,
		"SELECT key, value FROM objects WHERE store = ? ORDER BY key", s.spec.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor on %s: %w", s.spec.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			data []byte
		)
		if err := rows.Scan(&e.Key, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", s.spec.Name, err)
		}
		e.Value = json.RawMessage(data)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetAll decodes every object of the collection in key order.
func GetAll[T any](s *ObjectStore) ([]T, error) {
	out := make([]T, 0)
	err := s.Each(func(e Entry) error {
		var v T
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return fmt.Errorf("failed to decode %s/%d: %w", s.spec.Name, e.Key, err)
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
