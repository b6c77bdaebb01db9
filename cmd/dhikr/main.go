// Package main provides the CLI entrypoint for dhikr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/verte-zerg/dhikr/internal/config"
	"github.com/verte-zerg/dhikr/internal/log"
	"github.com/verte-zerg/dhikr/internal/model"
	"github.com/verte-zerg/dhikr/internal/preset"
	"github.com/verte-zerg/dhikr/internal/session"
	"github.com/verte-zerg/dhikr/internal/store"
	"github.com/verte-zerg/dhikr/internal/tui"
)

const (
	defaultLang     = model.DefaultLang
	defaultPreset   = "after-prayer"
	defaultBarWidth = 40
	minBarWidth     = 10
	maxBarWidth     = 200
)

var (
	sessionLang       string
	sessionBarWidth   int
	sessionPreset     string
	sessionCollection string
	sessionInvocation string

	logFile *os.File
)

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "dhikr",
		Short:             "Dhikr bead counter",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: setupLogging,
		RunE:              runSessionCmd,
	}

	rootCmd.Flags().StringVar(&sessionLang, "lang", defaultLang, "display language (BCP 47 tag)")
	rootCmd.Flags().IntVar(&sessionBarWidth, "bar-width", defaultBarWidth, "progress bar width in cells")
	rootCmd.Flags().StringVar(&sessionPreset, "preset", "", "built-in preset id")
	rootCmd.Flags().StringVar(&sessionCollection, "collection", "", "collection id")
	rootCmd.Flags().StringVar(&sessionInvocation, "invocation", "", "invocation id")
	rootCmd.MarkFlagsMutuallyExclusive("preset", "collection", "invocation")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newPresetsCmd())
	rootCmd.AddCommand(newInvocationsCmd())
	rootCmd.AddCommand(newCollectionsCmd())
	rootCmd.AddCommand(newFavoritesCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	path := config.DefaultLogPath()
	if fileCfg.Log.Path != nil && *fileCfg.Log.Path != "" {
		path = *fileCfg.Log.Path
	}
	level := ""
	if fileCfg.Log.Level != nil {
		level = *fileCfg.Log.Level
	}
	f, err := log.OpenFile(path)
	if err != nil {
		logErrf("failed to open log file %s: %v\n", path, err)
		log.Configure(log.Config{Level: level})
		return nil
	}
	logFile = f
	log.Configure(log.Config{Level: level, Output: f})
	return nil
}

func closeLog() {
	if logFile == nil {
		return
	}
	if err := logFile.Close(); err != nil {
		logErrf("failed to close log file: %v\n", err)
	}
}

func runSessionCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "lang", &sessionLang, fileCfg.Session.Lang)
	applyIntConfig(cmd, "bar-width", &sessionBarWidth, fileCfg.Session.BarWidth)

	ref, err := selectReference(sessionPreset, sessionCollection, sessionInvocation, fileCfg.Session.Preset)
	if err != nil {
		return err
	}
	cfg := model.Config{
		Lang:     sessionLang,
		BarWidth: sessionBarWidth,
		Ref:      ref,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	presets, err := preset.Builtin()
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	sess := session.New(session.NewResolver(st, presets))
	if _, err := sess.Open(context.Background(), cfg.Ref); err != nil {
		return fmt.Errorf("failed to open %s: %w", cfg.Ref, err)
	}

	program := tea.NewProgram(tui.NewModel(cfg, sess, st), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// selectReference picks the reference named by flags, then the configured
// default, then the built-in default preset.
func selectReference(presetID, collectionID, invocationID string, configured *string) (model.Reference, error) {
	switch {
	case presetID != "":
		return model.Reference{Kind: model.RefPreset, ID: presetID}, nil
	case collectionID != "":
		return model.Reference{Kind: model.RefCollection, ID: collectionID}, nil
	case invocationID != "":
		return model.Reference{Kind: model.RefInvocation, ID: invocationID}, nil
	}
	if configured != nil && strings.TrimSpace(*configured) != "" {
		ref, err := parseReference(*configured)
		if err != nil {
			return model.Reference{}, fmt.Errorf("invalid config preset: %w", err)
		}
		return ref, nil
	}
	return model.Reference{Kind: model.RefPreset, ID: defaultPreset}, nil
}

// parseReference accepts "id" (a preset) or "kind:id".
func parseReference(s string) (model.Reference, error) {
	s = strings.TrimSpace(s)
	kind, id, found := strings.Cut(s, ":")
	if !found {
		if s == "" {
			return model.Reference{}, fmt.Errorf("reference is empty")
		}
		return model.Reference{Kind: model.RefPreset, ID: s}, nil
	}
	parsed, err := model.ParseRefKind(strings.TrimSpace(kind))
	if err != nil {
		return model.Reference{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Reference{}, fmt.Errorf("reference %q has no id", s)
	}
	return model.Reference{Kind: parsed, ID: id}, nil
}

func openStore() (*store.Store, error) {
	presets, err := preset.Builtin()
	if err != nil {
		return nil, fmt.Errorf("failed to load presets: %w", err)
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	st.UsePresets(presets)
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# dhikr configuration
# Uncomment a value to enable it. CLI flags override config values.

[session]
# lang = %q               # Display language (BCP 47 tag)
# preset = %q   # Default sequence: preset id or kind:id (collection:after-salah)
# bar-width = %d           # Progress bar width in cells (%d-%d)

[log]
# level = "info"           # debug, info, warn, error
# path = ""                # Log file (default $XDG_STATE_HOME/dhikr/dhikr.log)
`,
		defaultLang,
		defaultPreset,
		defaultBarWidth,
		minBarWidth,
		maxBarWidth,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.BarWidth < minBarWidth || cfg.BarWidth > maxBarWidth {
		return fmt.Errorf("--bar-width must be between %d and %d", minBarWidth, maxBarWidth)
	}
	if _, err := language.Parse(cfg.Lang); err != nil {
		return fmt.Errorf("--lang %q is not a valid language tag: %w", cfg.Lang, err)
	}
	if cfg.Ref.ID == "" {
		return fmt.Errorf("no sequence selected")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
