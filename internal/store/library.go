package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verte-zerg/dhikr/internal/model"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Invocation returns the invocation with id. ok is false when absent.
func (s *Store) Invocation(ctx context.Context, id string) (model.Invocation, bool, error) {
	inv, err := getInvocation(ctx, s.db, id)
	if errors.Is(err, ErrNotFound) {
		return model.Invocation{}, false, nil
	}
	if err != nil {
		return model.Invocation{}, false, err
	}
	return inv, true, nil
}

// Collection returns the collection with id and its ordered members.
func (s *Store) Collection(ctx context.Context, id string) (model.Collection, bool, error) {
	col, err := getCollection(ctx, s.db, id)
	if errors.Is(err, ErrNotFound) {
		return model.Collection{}, false, nil
	}
	if err != nil {
		return model.Collection{}, false, err
	}
	return col, true, nil
}

// ListInvocations returns all invocations, built-ins first.
func (s *Store) ListInvocations(ctx context.Context) ([]model.Invocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name_json, repetitions, description_json, builtin, created_at
		 FROM invocations
		 ORDER BY builtin DESC, created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var result []model.Invocation
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListCollections returns all collections with members, built-ins first.
func (s *Store) ListCollections(ctx context.Context) ([]model.Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name_json, description_json, builtin, created_at
		 FROM collections
		 ORDER BY builtin DESC, created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	var result []model.Collection
	for rows.Next() {
		col, err := scanCollection(rows)
		if err != nil {
			closeRows(rows)
			return nil, err
		}
		result = append(result, col)
	}
	if err := rows.Err(); err != nil {
		closeRows(rows)
		return nil, err
	}
	closeRows(rows)

	for i := range result {
		members, err := listMembers(ctx, s.db, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Members = members
	}
	return result, nil
}

// SaveInvocation inserts or updates a user invocation.
func (s *Store) SaveInvocation(ctx context.Context, inv model.Invocation) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.saveInvocation(ctx, tx, inv)
	})
}

// DeleteInvocation removes a user invocation, its collection memberships
// and its favorite.
func (s *Store) DeleteInvocation(ctx context.Context, id string) error {
	return s.deleteRow(ctx, "invocations", model.RefInvocation, id)
}

// SaveCollection inserts or updates a user collection, replacing its members.
func (s *Store) SaveCollection(ctx context.Context, col model.Collection) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.saveCollection(ctx, tx, col)
	})
}

// SaveLibrary saves invocations then collections in one transaction. Nothing
// is written if any item is rejected.
func (s *Store) SaveLibrary(ctx context.Context, invs []model.Invocation, cols []model.Collection) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, inv := range invs {
			if err := s.saveInvocation(ctx, tx, inv); err != nil {
				return err
			}
		}
		for _, col := range cols {
			if err := s.saveCollection(ctx, tx, col); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) saveInvocation(ctx context.Context, q querier, inv model.Invocation) error {
	if err := validateInvocation(inv); err != nil {
		return err
	}
	existing, err := getInvocation(ctx, q, inv.ID)
	switch {
	case err == nil:
		if existing.Builtin {
			return fmt.Errorf("invocation %q: %w", inv.ID, ErrBuiltin)
		}
		inv.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrNotFound):
		inv.CreatedAt = s.now()
	default:
		return err
	}
	inv.Builtin = false
	return upsertInvocation(ctx, q, inv)
}

func (s *Store) saveCollection(ctx context.Context, q querier, col model.Collection) error {
	if err := validateCollection(col); err != nil {
		return err
	}
	existing, err := getCollection(ctx, q, col.ID)
	switch {
	case err == nil:
		if existing.Builtin {
			return fmt.Errorf("collection %q: %w", col.ID, ErrBuiltin)
		}
		col.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrNotFound):
		col.CreatedAt = s.now()
	default:
		return err
	}
	for i, m := range col.Members {
		if _, err := getInvocation(ctx, q, m.InvocationID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("collection %q member %d: invocation %q: %w", col.ID, i, m.InvocationID, ErrNotFound)
			}
			return err
		}
	}
	col.Builtin = false
	return upsertCollection(ctx, q, col)
}

// DeleteCollection removes a user collection and its favorite.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	return s.deleteRow(ctx, "collections", model.RefCollection, id)
}

func (s *Store) deleteRow(ctx context.Context, table string, kind model.RefKind, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var builtin bool
		err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT builtin FROM %s WHERE id = ?`, table), id).Scan(&builtin)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if builtin {
			return fmt.Errorf("%s %q: %w", kind, id, ErrBuiltin)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM favorites WHERE kind = ? AND id = ?`, string(kind), id)
		return err
	})
}

func validateInvocation(inv model.Invocation) error {
	if inv.ID == "" {
		return fmt.Errorf("invocation id is required")
	}
	if inv.Name.Default() == "" {
		return fmt.Errorf("invocation %q: name needs a %q entry", inv.ID, model.DefaultLang)
	}
	if inv.Repetitions <= 0 {
		return fmt.Errorf("invocation %q: %w", inv.ID, model.ErrInvalidRepetitions)
	}
	return nil
}

func validateCollection(col model.Collection) error {
	if col.ID == "" {
		return fmt.Errorf("collection id is required")
	}
	if col.Name.Default() == "" {
		return fmt.Errorf("collection %q: name needs a %q entry", col.ID, model.DefaultLang)
	}
	if len(col.Members) == 0 {
		return fmt.Errorf("collection %q: %w", col.ID, model.ErrNoSteps)
	}
	for i, m := range col.Members {
		if m.RepetitionsOverride < 0 {
			return fmt.Errorf("collection %q member %d: %w", col.ID, i, model.ErrInvalidRepetitions)
		}
	}
	return nil
}

func upsertInvocation(ctx context.Context, q querier, inv model.Invocation) error {
	name, err := encodeText(inv.Name)
	if err != nil {
		return err
	}
	desc, err := encodeText(inv.Description)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO invocations (id, name_json, repetitions, description_json, builtin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name_json = excluded.name_json,
			repetitions = excluded.repetitions,
			description_json = excluded.description_json,
			builtin = excluded.builtin`,
		inv.ID, name, inv.Repetitions, desc, inv.Builtin, formatTime(inv.CreatedAt))
	return err
}

func upsertCollection(ctx context.Context, q querier, col model.Collection) error {
	name, err := encodeText(col.Name)
	if err != nil {
		return err
	}
	desc, err := encodeText(col.Description)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO collections (id, name_json, description_json, builtin, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name_json = excluded.name_json,
			description_json = excluded.description_json,
			builtin = excluded.builtin`,
		col.ID, name, desc, col.Builtin, formatTime(col.CreatedAt)); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM collection_members WHERE collection_id = ?`, col.ID); err != nil {
		return err
	}
	for i, m := range col.Members {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO collection_members (collection_id, position, invocation_id, repetitions_override)
			 VALUES (?, ?, ?, ?)`,
			col.ID, i, m.InvocationID, m.RepetitionsOverride); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvocation(row rowScanner) (model.Invocation, error) {
	var inv model.Invocation
	var name, desc, created string
	if err := row.Scan(&inv.ID, &name, &inv.Repetitions, &desc, &inv.Builtin, &created); err != nil {
		return model.Invocation{}, err
	}
	return inv, fillInvocation(&inv, name, desc, created)
}

func fillInvocation(inv *model.Invocation, name, desc, created string) error {
	var err error
	if inv.Name, err = decodeText(name); err != nil {
		return fmt.Errorf("invocation %q name: %w", inv.ID, err)
	}
	if inv.Description, err = decodeText(desc); err != nil {
		return fmt.Errorf("invocation %q description: %w", inv.ID, err)
	}
	if inv.CreatedAt, err = parseTime(created); err != nil {
		return fmt.Errorf("invocation %q created_at: %w", inv.ID, err)
	}
	return nil
}

func scanCollection(row rowScanner) (model.Collection, error) {
	var col model.Collection
	var name, desc, created string
	if err := row.Scan(&col.ID, &name, &desc, &col.Builtin, &created); err != nil {
		return model.Collection{}, err
	}
	var err error
	if col.Name, err = decodeText(name); err != nil {
		return model.Collection{}, fmt.Errorf("collection %q name: %w", col.ID, err)
	}
	if col.Description, err = decodeText(desc); err != nil {
		return model.Collection{}, fmt.Errorf("collection %q description: %w", col.ID, err)
	}
	if col.CreatedAt, err = parseTime(created); err != nil {
		return model.Collection{}, fmt.Errorf("collection %q created_at: %w", col.ID, err)
	}
	return col, nil
}

func getInvocation(ctx context.Context, q querier, id string) (model.Invocation, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name_json, repetitions, description_json, builtin, created_at
		 FROM invocations WHERE id = ?`, id)
	inv, err := scanInvocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invocation{}, ErrNotFound
	}
	return inv, err
}

func getCollection(ctx context.Context, q querier, id string) (model.Collection, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name_json, description_json, builtin, created_at
		 FROM collections WHERE id = ?`, id)
	col, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Collection{}, ErrNotFound
	}
	if err != nil {
		return model.Collection{}, err
	}
	members, err := listMembers(ctx, q, id)
	if err != nil {
		return model.Collection{}, err
	}
	col.Members = members
	return col, nil
}

func listMembers(ctx context.Context, q querier, collectionID string) ([]model.Member, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT invocation_id, repetitions_override
		 FROM collection_members
		 WHERE collection_id = ?
		 ORDER BY position ASC`, collectionID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.InvocationID, &m.RepetitionsOverride); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}
