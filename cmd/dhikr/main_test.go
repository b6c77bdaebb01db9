package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/dhikr/internal/config"
	"github.com/verte-zerg/dhikr/internal/model"
)

func TestSelectReference(t *testing.T) {
	configured := "collection:after-salah"
	blank := "  "
	tests := []struct {
		name       string
		preset     string
		collection string
		invocation string
		configured *string
		want       model.Reference
	}{
		{name: "default", want: model.Reference{Kind: model.RefPreset, ID: defaultPreset}},
		{name: "blank config", configured: &blank, want: model.Reference{Kind: model.RefPreset, ID: defaultPreset}},
		{name: "config", configured: &configured, want: model.Reference{Kind: model.RefCollection, ID: "after-salah"}},
		{name: "preset flag wins", preset: "tasbih-33", configured: &configured, want: model.Reference{Kind: model.RefPreset, ID: "tasbih-33"}},
		{name: "collection flag", collection: "evening", want: model.Reference{Kind: model.RefCollection, ID: "evening"}},
		{name: "invocation flag", invocation: "salawat", want: model.Reference{Kind: model.RefInvocation, ID: "salawat"}},
	}
	for _, tt := range tests {
		got, err := selectReference(tt.preset, tt.collection, tt.invocation, tt.configured)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("%s: reference mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestParseReference(t *testing.T) {
	got, err := parseReference("tasbih-99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (model.Reference{Kind: model.RefPreset, ID: "tasbih-99"}) {
		t.Fatalf("unexpected reference %v", got)
	}
	got, err = parseReference(" invocation : salawat ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (model.Reference{Kind: model.RefInvocation, ID: "salawat"}) {
		t.Fatalf("unexpected reference %v", got)
	}
	for _, bad := range []string{"", "album:x", "collection:"} {
		if _, err := parseReference(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	ok := model.Config{Lang: "en", BarWidth: defaultBarWidth, Ref: model.Reference{Kind: model.RefPreset, ID: "x"}}
	if err := validateConfig(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*model.Config)
		want   string
	}{
		{name: "narrow bar", mutate: func(c *model.Config) { c.BarWidth = minBarWidth - 1 }, want: "--bar-width"},
		{name: "wide bar", mutate: func(c *model.Config) { c.BarWidth = maxBarWidth + 1 }, want: "--bar-width"},
		{name: "bad lang", mutate: func(c *model.Config) { c.Lang = "not a tag" }, want: "--lang"},
		{name: "no ref", mutate: func(c *model.Config) { c.Ref = model.Reference{} }, want: "no sequence"},
	}
	for _, tt := range tests {
		cfg := ok
		tt.mutate(&cfg)
		err := validateConfig(cfg)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tt.name, tt.want, err)
		}
	}
}

func TestParseMember(t *testing.T) {
	m, err := parseMember("subhanallah")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != (model.Member{InvocationID: "subhanallah"}) {
		t.Fatalf("unexpected member %+v", m)
	}
	m, err = parseMember("allahu-akbar:33")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != (model.Member{InvocationID: "allahu-akbar", RepetitionsOverride: 33}) {
		t.Fatalf("unexpected member %+v", m)
	}
	for _, bad := range []string{":3", "x:0", "x:abc"} {
		if _, err := parseMember(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestHistoryConfig(t *testing.T) {
	cfg, err := historyConfig("2026-01-02", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Last != 5 || cfg.Since == nil || cfg.Since.Day() != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := historyConfig("yesterday", 0); err == nil {
		t.Fatalf("expected error for bad date")
	}
	if _, err := historyConfig("", -1); err == nil {
		t.Fatalf("expected error for negative --last")
	}
}

func TestDefaultConfigTemplateLoads(t *testing.T) {
	tmpl := defaultConfigTemplate()
	for _, want := range []string{"[session]", "[log]", "bar-width", defaultPreset} {
		if !strings.Contains(tmpl, want) {
			t.Fatalf("template missing %q", want)
		}
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(tmpl), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Session.Lang != nil || cfg.Session.BarWidth != nil || cfg.Log.Level != nil {
		t.Fatalf("expected commented template to set nothing, got %+v", cfg)
	}
}
