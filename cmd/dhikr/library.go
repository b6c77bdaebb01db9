package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/dhikr/internal/config"
	"github.com/verte-zerg/dhikr/internal/library"
	"github.com/verte-zerg/dhikr/internal/model"
	"github.com/verte-zerg/dhikr/internal/preset"
	"github.com/verte-zerg/dhikr/internal/progress"
	"github.com/verte-zerg/dhikr/internal/store"
)

var (
	itemID          string
	itemName        string
	itemDescription string
	itemReps        int
)

// displayLang returns the configured display language for listings.
func displayLang() string {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil || fileCfg.Session.Lang == nil || *fileCfg.Session.Lang == "" {
		return defaultLang
	}
	return *fileCfg.Session.Lang
}

func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	return fn(context.Background(), st)
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List built-in presets",
		Args:  cobra.NoArgs,
		RunE:  runPresetsCmd,
	}
}

func runPresetsCmd(cmd *cobra.Command, _ []string) error {
	table, err := preset.Builtin()
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}
	lang := displayLang()
	out := cmd.OutOrStdout()
	for _, seq := range table.All() {
		if _, err := fmt.Fprintf(out, "%-16s %-28s %d steps, %d reps, %d taps\n",
			seq.ID(), seq.Name().Resolve(lang), seq.Len(), seq.TotalReps(), progress.TotalTapsToComplete(seq)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newInvocationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invocations",
		Short: "Manage invocations",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List invocations",
		Args:  cobra.NoArgs,
		RunE:  runInvocationsListCmd,
	}
	add := &cobra.Command{
		Use:   "add",
		Short: "Add or update an invocation",
		Args:  cobra.NoArgs,
		RunE:  runInvocationsAddCmd,
	}
	add.Flags().StringVar(&itemID, "id", "", "invocation id (default: generated)")
	add.Flags().StringVar(&itemName, "name", "", "display name")
	add.Flags().StringVar(&itemDescription, "description", "", "description shown under the name")
	add.Flags().IntVar(&itemReps, "reps", 0, "repetitions")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("reps")
	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Remove an invocation",
		Args:  cobra.ExactArgs(1),
		RunE:  runInvocationsRmCmd,
	}
	cmd.AddCommand(list, add, rm)
	return cmd
}

func runInvocationsListCmd(cmd *cobra.Command, _ []string) error {
	lang := displayLang()
	return withStore(func(ctx context.Context, st *store.Store) error {
		invs, err := st.ListInvocations(ctx)
		if err != nil {
			return fmt.Errorf("failed to list invocations: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, inv := range invs {
			if _, err := fmt.Fprintf(out, "%-36s %-28s %5d%s\n",
				inv.ID, inv.Name.Resolve(lang), inv.Repetitions, builtinMark(inv.Builtin)); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	})
}

func runInvocationsAddCmd(cmd *cobra.Command, _ []string) error {
	inv := model.Invocation{
		ID:          strings.TrimSpace(itemID),
		Name:        model.Text(strings.TrimSpace(itemName)),
		Repetitions: itemReps,
		Description: model.Text(strings.TrimSpace(itemDescription)),
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		if err := st.SaveInvocation(ctx, inv); err != nil {
			return fmt.Errorf("failed to save invocation: %w", err)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), inv.ID)
		return err
	})
}

func runInvocationsRmCmd(_ *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		if err := st.DeleteInvocation(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to remove invocation: %w", err)
		}
		return nil
	})
}

func newCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage collections",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE:  runCollectionsListCmd,
	}
	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show collection members",
		Args:  cobra.ExactArgs(1),
		RunE:  runCollectionsShowCmd,
	}
	add := &cobra.Command{
		Use:   "add INVOCATION[:REPS]...",
		Short: "Add or update a collection",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCollectionsAddCmd,
	}
	add.Flags().StringVar(&itemID, "id", "", "collection id (default: generated)")
	add.Flags().StringVar(&itemName, "name", "", "display name")
	add.Flags().StringVar(&itemDescription, "description", "", "description")
	_ = add.MarkFlagRequired("name")
	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Remove a collection",
		Args:  cobra.ExactArgs(1),
		RunE:  runCollectionsRmCmd,
	}
	cmd.AddCommand(list, show, add, rm)
	return cmd
}

func runCollectionsListCmd(cmd *cobra.Command, _ []string) error {
	lang := displayLang()
	return withStore(func(ctx context.Context, st *store.Store) error {
		cols, err := st.ListCollections(ctx)
		if err != nil {
			return fmt.Errorf("failed to list collections: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, col := range cols {
			if _, err := fmt.Fprintf(out, "%-36s %-28s %2d members%s\n",
				col.ID, col.Name.Resolve(lang), len(col.Members), builtinMark(col.Builtin)); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	})
}

func runCollectionsShowCmd(cmd *cobra.Command, args []string) error {
	lang := displayLang()
	return withStore(func(ctx context.Context, st *store.Store) error {
		col, ok, err := st.Collection(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load collection: %w", err)
		}
		if !ok {
			return fmt.Errorf("collection %q: %w", args[0], store.ErrNotFound)
		}
		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintln(out, col.Name.Resolve(lang)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if desc := col.Description.Resolve(lang); desc != "" {
			if _, err := fmt.Fprintln(out, desc); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		for i, m := range col.Members {
			name := "(missing)"
			reps := m.RepetitionsOverride
			inv, found, err := st.Invocation(ctx, m.InvocationID)
			if err != nil {
				return fmt.Errorf("failed to load invocation: %w", err)
			}
			if found {
				name = inv.Name.Resolve(lang)
				if reps <= 0 {
					reps = inv.Repetitions
				}
			}
			if _, err := fmt.Fprintf(out, "%2d. %-28s %5d  (%s)\n", i+1, name, reps, m.InvocationID); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	})
}

func runCollectionsAddCmd(cmd *cobra.Command, args []string) error {
	members := make([]model.Member, 0, len(args))
	for _, arg := range args {
		m, err := parseMember(arg)
		if err != nil {
			return err
		}
		members = append(members, m)
	}
	col := model.Collection{
		ID:          strings.TrimSpace(itemID),
		Name:        model.Text(strings.TrimSpace(itemName)),
		Description: model.Text(strings.TrimSpace(itemDescription)),
		Members:     members,
	}
	if col.ID == "" {
		col.ID = uuid.NewString()
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		if err := st.SaveCollection(ctx, col); err != nil {
			return fmt.Errorf("failed to save collection: %w", err)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), col.ID)
		return err
	})
}

// parseMember accepts "invocation" or "invocation:reps".
func parseMember(arg string) (model.Member, error) {
	id, repsStr, hasReps := strings.Cut(strings.TrimSpace(arg), ":")
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Member{}, fmt.Errorf("member %q has no invocation id", arg)
	}
	m := model.Member{InvocationID: id}
	if !hasReps {
		return m, nil
	}
	reps, err := strconv.Atoi(strings.TrimSpace(repsStr))
	if err != nil || reps <= 0 {
		return model.Member{}, fmt.Errorf("member %q: repetitions must be a positive integer", arg)
	}
	m.RepetitionsOverride = reps
	return m, nil
}

func runCollectionsRmCmd(_ *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		if err := st.DeleteCollection(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to remove collection: %w", err)
		}
		return nil
	})
}

func newFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage favorites",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List favorites",
		Args:  cobra.NoArgs,
		RunE:  runFavoritesListCmd,
	}
	add := &cobra.Command{
		Use:   "add KIND ID",
		Short: "Add a favorite (kind: preset, collection, invocation)",
		Args:  cobra.ExactArgs(2),
		RunE:  runFavoritesAddCmd,
	}
	rm := &cobra.Command{
		Use:   "rm KIND ID",
		Short: "Remove a favorite",
		Args:  cobra.ExactArgs(2),
		RunE:  runFavoritesRmCmd,
	}
	cmd.AddCommand(list, add, rm)
	return cmd
}

func runFavoritesListCmd(cmd *cobra.Command, _ []string) error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		favs, err := st.ListFavorites(ctx)
		if err != nil {
			return fmt.Errorf("failed to list favorites: %w", err)
		}
		if len(favs) == 0 {
			logErrln("No favorites yet. Add one with: dhikr favorites add KIND ID")
			return nil
		}
		for _, f := range favs {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), f.Ref.String()); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	})
}

func favoriteRef(args []string) (model.Reference, error) {
	kind, err := model.ParseRefKind(args[0])
	if err != nil {
		return model.Reference{}, err
	}
	return model.Reference{Kind: kind, ID: args[1]}, nil
}

func runFavoritesAddCmd(_ *cobra.Command, args []string) error {
	ref, err := favoriteRef(args)
	if err != nil {
		return err
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		if err := st.AddFavorite(ctx, ref); err != nil {
			return fmt.Errorf("failed to add favorite: %w", err)
		}
		return nil
	})
}

func runFavoritesRmCmd(_ *cobra.Command, args []string) error {
	ref, err := favoriteRef(args)
	if err != nil {
		return err
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		if err := st.RemoveFavorite(ctx, ref); err != nil {
			return fmt.Errorf("failed to remove favorite: %w", err)
		}
		return nil
	})
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Export user invocations and collections as YAML (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		var w io.Writer = cmd.OutOrStdout()
		if args[0] != "-" {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			defer func() {
				if cerr := f.Close(); cerr != nil {
					logErrf("failed to close %s: %v\n", args[0], cerr)
				}
			}()
			w = f
		}
		sum, err := library.Export(ctx, st, w)
		if err != nil {
			return err
		}
		logErrf("Exported %d invocations and %d collections\n", sum.Invocations, sum.Collections)
		return nil
	})
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import invocations and collections from YAML (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logErrf("failed to close %s: %v\n", args[0], cerr)
			}
		}()
		r = f
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		sum, err := library.Import(ctx, st, r)
		if err != nil {
			return err
		}
		logErrf("Imported %d invocations and %d collections\n", sum.Invocations, sum.Collections)
		return nil
	})
}

func builtinMark(builtin bool) string {
	if builtin {
		return "  (built-in)"
	}
	return ""
}
