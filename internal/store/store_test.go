package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/dhikr/internal/model"
	"github.com/verte-zerg/dhikr/internal/preset"
	"github.com/verte-zerg/dhikr/internal/session"
)

var _ session.Library = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "dhikr.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestOpenMigratesAndSeeds(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	v, err := st.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != latestVersion() {
		t.Fatalf("expected schema version %d, got %d", latestVersion(), v)
	}
	col, ok, err := st.Collection(ctx, "after-salah")
	if err != nil || !ok {
		t.Fatalf("expected seeded collection: ok=%v err=%v", ok, err)
	}
	if !col.Builtin || len(col.Members) != 4 {
		t.Fatalf("unexpected seeded collection %+v", col)
	}
	if col.Members[2].InvocationID != "allahu-akbar" || col.Members[2].RepetitionsOverride != 33 {
		t.Fatalf("members out of order: %+v", col.Members)
	}
}

func TestReopenDoesNotReseed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhikr.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := st.SaveInvocation(ctx, model.Invocation{ID: "mine", Name: model.Text("Mine"), Repetitions: 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, err := st.ListInvocations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	_ = st.Close()

	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st.Close() }()
	after, err := st.ListInvocations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("expected %d invocations after reopen, got %d", len(before), len(after))
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhikr.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set version: %v", err)
	}
	_ = db.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaTooNew) {
		t.Fatalf("expected ErrSchemaTooNew, got %v", err)
	}
}

func TestInvocationCRUD(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	inv := model.Invocation{
		ID:          "hasbunallah",
		Name:        model.DisplayText{"en": "Hasbunallah", "ar": "حسبنا الله"},
		Repetitions: 7,
		Description: model.Text("God is sufficient for us"),
	}
	if err := st.SaveInvocation(ctx, inv); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := st.Invocation(ctx, "hasbunallah")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(inv.Name, got.Name); diff != "" {
		t.Fatalf("name mismatch (-want +got):\n%s", diff)
	}
	if got.Repetitions != 7 || got.Builtin {
		t.Fatalf("unexpected invocation %+v", got)
	}

	inv.Repetitions = 11
	if err := st.SaveInvocation(ctx, inv); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _, _ = st.Invocation(ctx, "hasbunallah")
	if got.Repetitions != 11 {
		t.Fatalf("expected update to apply, got %d", got.Repetitions)
	}

	if err := st.DeleteInvocation(ctx, "hasbunallah"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := st.Invocation(ctx, "hasbunallah"); ok {
		t.Fatalf("expected invocation to be gone")
	}
	if err := st.DeleteInvocation(ctx, "hasbunallah"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvocationValidation(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	bad := []model.Invocation{
		{Name: model.Text("x"), Repetitions: 1},
		{ID: "x", Repetitions: 1},
		{ID: "x", Name: model.Text("x"), Repetitions: 0},
	}
	for _, inv := range bad {
		if err := st.SaveInvocation(ctx, inv); err == nil {
			t.Fatalf("expected validation error for %+v", inv)
		}
	}
}

func TestBuiltinsAreProtected(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.DeleteInvocation(ctx, "subhanallah"); !errors.Is(err, ErrBuiltin) {
		t.Fatalf("expected ErrBuiltin, got %v", err)
	}
	if err := st.DeleteCollection(ctx, "after-salah"); !errors.Is(err, ErrBuiltin) {
		t.Fatalf("expected ErrBuiltin, got %v", err)
	}
	err := st.SaveInvocation(ctx, model.Invocation{ID: "subhanallah", Name: model.Text("x"), Repetitions: 1})
	if !errors.Is(err, ErrBuiltin) {
		t.Fatalf("expected ErrBuiltin, got %v", err)
	}
}

func TestCollectionMembersAndCascade(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.SaveInvocation(ctx, model.Invocation{ID: "mine", Name: model.Text("Mine"), Repetitions: 5}); err != nil {
		t.Fatalf("save invocation: %v", err)
	}
	col := model.Collection{
		ID:   "custom",
		Name: model.Text("Custom"),
		Members: []model.Member{
			{InvocationID: "mine", RepetitionsOverride: 2},
			{InvocationID: "subhanallah"},
		},
	}
	if err := st.SaveCollection(ctx, col); err != nil {
		t.Fatalf("save collection: %v", err)
	}
	got, ok, err := st.Collection(ctx, "custom")
	if err != nil || !ok {
		t.Fatalf("get collection: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(col.Members, got.Members); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}

	if err := st.DeleteInvocation(ctx, "mine"); err != nil {
		t.Fatalf("delete invocation: %v", err)
	}
	got, _, _ = st.Collection(ctx, "custom")
	if len(got.Members) != 1 || got.Members[0].InvocationID != "subhanallah" {
		t.Fatalf("expected membership to cascade, got %+v", got.Members)
	}

	all, err := st.ListCollections(ctx)
	if err != nil {
		t.Fatalf("list collections: %v", err)
	}
	if len(all) != len(builtinCollections)+1 {
		t.Fatalf("expected %d collections, got %d", len(builtinCollections)+1, len(all))
	}
}

func TestSaveCollectionRejectsUnknownInvocation(t *testing.T) {
	st := openTestStore(t)
	err := st.SaveCollection(context.Background(), model.Collection{
		ID:      "broken",
		Name:    model.Text("Broken"),
		Members: []model.Member{{InvocationID: "nope"}},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok, _ := st.Collection(context.Background(), "broken"); ok {
		t.Fatalf("rejected collection must not be stored")
	}
}

func TestFavorites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	ref := model.Reference{Kind: model.RefCollection, ID: "after-salah"}
	if err := st.AddFavorite(ctx, ref); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := st.AddFavorite(ctx, ref); err != nil {
		t.Fatalf("add twice: %v", err)
	}
	favs, err := st.ListFavorites(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(favs) != 1 || favs[0].Ref != ref {
		t.Fatalf("unexpected favorites %+v", favs)
	}
	if err := st.AddFavorite(ctx, model.Reference{Kind: "bogus", ID: "x"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if err := st.RemoveFavorite(ctx, ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := st.RemoveFavorite(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddFavoriteRequiresExistingTarget(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	missing := []model.Reference{
		{Kind: model.RefCollection, ID: "does-not-exist"},
		{Kind: model.RefInvocation, ID: "does-not-exist"},
		{Kind: model.RefPreset, ID: "tasbih-33"},
	}
	for _, ref := range missing {
		if err := st.AddFavorite(ctx, ref); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", ref, err)
		}
	}

	table, err := preset.Builtin()
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	st.UsePresets(table)
	if err := st.AddFavorite(ctx, model.Reference{Kind: model.RefPreset, ID: "tasbih-33"}); err != nil {
		t.Fatalf("add preset favorite: %v", err)
	}
	if err := st.AddFavorite(ctx, model.Reference{Kind: model.RefPreset, ID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown preset, got %v", err)
	}
	favs, err := st.ListFavorites(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(favs) != 1 {
		t.Fatalf("expected only the preset favorite, got %+v", favs)
	}
}

func TestDeleteRemovesFavorites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.SaveInvocation(ctx, model.Invocation{ID: "u1", Name: model.Text("One"), Repetitions: 3}); err != nil {
		t.Fatalf("save invocation: %v", err)
	}
	col := model.Collection{ID: "c1", Name: model.Text("Mine"), Members: []model.Member{{InvocationID: "subhanallah"}}}
	if err := st.SaveCollection(ctx, col); err != nil {
		t.Fatalf("save collection: %v", err)
	}
	keep := model.Reference{Kind: model.RefCollection, ID: "after-salah"}
	for _, ref := range []model.Reference{
		{Kind: model.RefInvocation, ID: "u1"},
		{Kind: model.RefCollection, ID: "c1"},
		keep,
	} {
		if err := st.AddFavorite(ctx, ref); err != nil {
			t.Fatalf("add %s: %v", ref, err)
		}
	}

	if err := st.DeleteInvocation(ctx, "u1"); err != nil {
		t.Fatalf("delete invocation: %v", err)
	}
	if err := st.DeleteCollection(ctx, "c1"); err != nil {
		t.Fatalf("delete collection: %v", err)
	}
	favs, err := st.ListFavorites(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(favs) != 1 || favs[0].Ref != keep {
		t.Fatalf("expected only %s to remain, got %+v", keep, favs)
	}
}

func TestSaveLibraryIsAtomic(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	tests := []struct {
		name string
		invs []model.Invocation
		cols []model.Collection
		want error
	}{
		{
			name: "built-in clash",
			invs: []model.Invocation{
				{ID: "user-one", Name: model.Text("One"), Repetitions: 3},
				{ID: "subhanallah", Name: model.Text("Mine"), Repetitions: 3},
			},
			want: ErrBuiltin,
		},
		{
			name: "empty collection",
			invs: []model.Invocation{{ID: "user-one", Name: model.Text("One"), Repetitions: 3}},
			cols: []model.Collection{{ID: "user-col", Name: model.Text("Col")}},
			want: model.ErrNoSteps,
		},
	}
	for _, tt := range tests {
		err := st.SaveLibrary(ctx, tt.invs, tt.cols)
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
		if _, ok, err := st.Invocation(ctx, "user-one"); err != nil || ok {
			t.Fatalf("%s: earlier item must not be saved: ok=%v err=%v", tt.name, ok, err)
		}
	}

	err := st.SaveLibrary(ctx,
		[]model.Invocation{{ID: "user-one", Name: model.Text("One"), Repetitions: 3}},
		[]model.Collection{{ID: "user-col", Name: model.Text("Col"), Members: []model.Member{{InvocationID: "user-one"}}}})
	if err != nil {
		t.Fatalf("save library: %v", err)
	}
	if _, ok, err := st.Collection(ctx, "user-col"); err != nil || !ok {
		t.Fatalf("expected saved collection: ok=%v err=%v", ok, err)
	}
}

func TestRecordAndListSessions(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * 24 * time.Hour)
		rec := model.SessionRecord{
			ID:        string(rune('a' + i)),
			Ref:       model.Reference{Kind: model.RefPreset, ID: "tasbih-33"},
			Name:      model.Text("Tasbih 33"),
			TotalReps: 33,
			Taps:      33,
			StartedAt: start,
			EndedAt:   start.Add(2 * time.Minute),
		}
		if err := st.RecordSession(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	all, err := st.ListSessions(ctx, model.HistoryConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Fatalf("unexpected sessions %+v", all)
	}
	if !all[0].EndedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("unexpected end time %v", all[0].EndedAt)
	}

	since := base.Add(24 * time.Hour)
	filtered, err := st.ListSessions(ctx, model.HistoryConfig{Since: &since, Last: 1})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "c" {
		t.Fatalf("unexpected filtered sessions %+v", filtered)
	}
}

func TestStoreBacksSessionResolution(t *testing.T) {
	st := openTestStore(t)
	s := session.New(session.NewResolver(st, nil))
	ref := model.Reference{Kind: model.RefCollection, ID: "after-salah"}
	if _, err := s.Open(context.Background(), ref); err != nil {
		t.Fatalf("open: %v", err)
	}
	snap := s.Snapshot()
	if snap.View.TotalSteps != 4 || snap.TapsToComplete != 33+33+33+1+3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
