package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/verte-zerg/dhikr/internal/model"
)

// RecordSession stores a completed session.
func (s *Store) RecordSession(ctx context.Context, rec model.SessionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}
	name, err := encodeText(rec.Name)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, ref_kind, ref_id, name_json, total_reps, taps, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		string(rec.Ref.Kind),
		rec.Ref.ID,
		name,
		rec.TotalReps,
		rec.Taps,
		formatTime(rec.StartedAt),
		formatTime(rec.EndedAt),
	)
	if err != nil {
		return err
	}
	s.logger.Info().Str("id", rec.ID).Str("ref", rec.Ref.String()).Int("reps", rec.TotalReps).Msg("session recorded")
	return nil
}

// ListSessions returns completed sessions in ascending end time.
func (s *Store) ListSessions(ctx context.Context, cfg model.HistoryConfig) ([]model.SessionRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT id, ref_kind, ref_id, name_json, total_reps, taps, started_at, ended_at
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var sessions []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var kind, name, started, ended string
		if err := rows.Scan(&rec.ID, &kind, &rec.Ref.ID, &name, &rec.TotalReps, &rec.Taps, &started, &ended); err != nil {
			return nil, err
		}
		rec.Ref.Kind = model.RefKind(kind)
		if rec.Name, err = decodeText(name); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if rec.EndedAt, err = parseTime(ended); err != nil {
			return nil, err
		}
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}
