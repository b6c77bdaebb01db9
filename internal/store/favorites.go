package store

import (
	"context"
	"fmt"

	"github.com/verte-zerg/dhikr/internal/model"
)

// PresetLookup reports whether a built-in preset exists.
type PresetLookup interface {
	Preset(id string) (model.Sequence, bool)
}

// UsePresets sets the table preset favorites are checked against. Without
// one, preset favorites are rejected.
func (s *Store) UsePresets(presets PresetLookup) {
	s.presets = presets
}

// AddFavorite marks ref as a favorite. ref must exist. Adding twice is a
// no-op.
func (s *Store) AddFavorite(ctx context.Context, ref model.Reference) error {
	if _, err := model.ParseRefKind(string(ref.Kind)); err != nil {
		return err
	}
	if ref.ID == "" {
		return fmt.Errorf("favorite id is required")
	}
	ok, err := s.exists(ctx, ref)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("favorite %s: %w", ref, ErrNotFound)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO favorites (kind, id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(kind, id) DO NOTHING`,
		string(ref.Kind), ref.ID, formatTime(s.now()))
	return err
}

// RemoveFavorite unmarks ref.
func (s *Store) RemoveFavorite(ctx context.Context, ref model.Reference) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE kind = ? AND id = ?`, string(ref.Kind), ref.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("favorite %s: %w", ref, ErrNotFound)
	}
	return nil
}

// ListFavorites returns favorites, oldest first.
func (s *Store) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, id, created_at FROM favorites ORDER BY created_at ASC, kind ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var result []model.Favorite
	for rows.Next() {
		var fav model.Favorite
		var kind, created string
		if err := rows.Scan(&kind, &fav.Ref.ID, &created); err != nil {
			return nil, err
		}
		fav.Ref.Kind = model.RefKind(kind)
		parsed, err := parseTime(created)
		if err != nil {
			return nil, err
		}
		fav.CreatedAt = parsed
		result = append(result, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) exists(ctx context.Context, ref model.Reference) (bool, error) {
	switch ref.Kind {
	case model.RefPreset:
		if s.presets == nil {
			return false, nil
		}
		_, ok := s.presets.Preset(ref.ID)
		return ok, nil
	case model.RefInvocation:
		_, ok, err := s.Invocation(ctx, ref.ID)
		return ok, err
	case model.RefCollection:
		var n int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE id = ?`, ref.ID).Scan(&n)
		return n > 0, err
	default:
		return false, fmt.Errorf("unknown reference kind %q", ref.Kind)
	}
}
