package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/verte-zerg/dhikr/internal/model"
)

type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sql.Tx, s *Store) error
}

// Ordered by version; each runs in its own transaction and bumps
// PRAGMA user_version on commit.
var migrations = []migration{
	{version: 1, name: "create tables", apply: createTables},
	{version: 2, name: "seed built-in library", apply: seedBuiltins},
}

func latestVersion() int {
	return migrations[len(migrations)-1].version
}

func (s *Store) migrate(ctx context.Context) error {
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latestVersion() {
		return fmt.Errorf("%w: found %d, supports %d", ErrSchemaTooNew, current, latestVersion())
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}
		s.logger.Info().Int("from", current).Int("to", m.version).Str("name", m.name).Msg("schema migrated")
		current = m.version
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)
	if err := m.apply(ctx, tx, s); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return err
	}
	return tx.Commit()
}

func createTables(ctx context.Context, tx *sql.Tx, _ *Store) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS invocations (
			id TEXT PRIMARY KEY,
			name_json TEXT NOT NULL,
			repetitions INTEGER NOT NULL CHECK (repetitions > 0),
			description_json TEXT NOT NULL DEFAULT '',
			builtin INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS collections (
			id TEXT PRIMARY KEY,
			name_json TEXT NOT NULL,
			description_json TEXT NOT NULL DEFAULT '',
			builtin INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS collection_members (
			collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			invocation_id TEXT NOT NULL REFERENCES invocations(id) ON DELETE CASCADE,
			repetitions_override INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (collection_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS favorites (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (kind, id)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			ref_kind TEXT NOT NULL,
			ref_id TEXT NOT NULL,
			name_json TEXT NOT NULL,
			total_reps INTEGER NOT NULL,
			taps INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_collection_members_invocation ON collection_members(invocation_id);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var builtinInvocations = []model.Invocation{
	{ID: "subhanallah", Name: model.DisplayText{"en": "SubhanAllah", "ar": "سُبْحَانَ ٱللَّٰهِ"}, Repetitions: 33, Description: model.DisplayText{"en": "Glory be to God", "fr": "Gloire à Dieu"}},
	{ID: "alhamdulillah", Name: model.DisplayText{"en": "Alhamdulillah", "ar": "ٱلْحَمْدُ لِلَّٰهِ"}, Repetitions: 33, Description: model.DisplayText{"en": "Praise be to God", "fr": "Louange à Dieu"}},
	{ID: "allahu-akbar", Name: model.DisplayText{"en": "Allahu Akbar", "ar": "ٱللَّٰهُ أَكْبَرُ"}, Repetitions: 34, Description: model.DisplayText{"en": "God is the Greatest", "fr": "Dieu est le plus grand"}},
	{ID: "la-ilaha-illallah", Name: model.DisplayText{"en": "La ilaha illallah", "ar": "لَا إِلَٰهَ إِلَّا ٱللَّٰهُ"}, Repetitions: 100, Description: model.DisplayText{"en": "There is no god but God"}},
	{ID: "astaghfirullah", Name: model.DisplayText{"en": "Astaghfirullah", "ar": "أَسْتَغْفِرُ ٱللَّٰهَ"}, Repetitions: 100, Description: model.DisplayText{"en": "I seek forgiveness from God"}},
	{ID: "salawat", Name: model.DisplayText{"en": "Allahumma salli 'ala Muhammad", "ar": "اللَّهُمَّ صَلِّ عَلَى مُحَمَّدٍ"}, Repetitions: 10},
}

var builtinCollections = []model.Collection{
	{
		ID:          "after-salah",
		Name:        model.DisplayText{"en": "After salah", "ar": "بعد الصلاة"},
		Description: model.Text("Tasbih, tahmid and takbir after the obligatory prayer"),
		Members: []model.Member{
			{InvocationID: "subhanallah"},
			{InvocationID: "alhamdulillah"},
			{InvocationID: "allahu-akbar", RepetitionsOverride: 33},
			{InvocationID: "la-ilaha-illallah", RepetitionsOverride: 1},
		},
	},
	{
		ID:   "evening",
		Name: model.DisplayText{"en": "Evening", "ar": "أذكار المساء"},
		Members: []model.Member{
			{InvocationID: "astaghfirullah"},
			{InvocationID: "salawat"},
		},
	},
}

func seedBuiltins(ctx context.Context, tx *sql.Tx, s *Store) error {
	now := s.now()
	for _, inv := range builtinInvocations {
		inv.Builtin = true
		inv.CreatedAt = now
		if err := upsertInvocation(ctx, tx, inv); err != nil {
			return err
		}
	}
	for _, col := range builtinCollections {
		col.Builtin = true
		col.CreatedAt = now
		if err := upsertCollection(ctx, tx, col); err != nil {
			return err
		}
	}
	return nil
}
