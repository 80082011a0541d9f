// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points the home directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"CREWCHAT_AGENT", "CREWCHAT_BASE_URL", "CREWCHAT_USE_KB",
		"CREWCHAT_STALL_TIMEOUT", "CREWCHAT_LOG_LEVEL", "CREWCHAT_DATA_DIR",
	} {
		t.Setenv(k, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %q, want %q", cfg.Version, CurrentVersion)
	}
	if got := cfg.ActiveProfile().ID; got != "freeda" {
		t.Errorf("ActiveProfile().ID = %q, want freeda", got)
	}
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Stream.StallTimeout.Duration != 90*time.Second {
		t.Errorf("StallTimeout = %v, want 90s", cfg.Stream.StallTimeout)
	}

	freeda, ok := cfg.Profile("freeda")
	if !ok {
		t.Fatal("freeda profile missing")
	}
	if freeda.AgentName != "Freeda 2.0" || freeda.StoragePrefix != "freeda_" {
		t.Errorf("freeda = %q/%q", freeda.AgentName, freeda.StoragePrefix)
	}
	if !freeda.Features.HasKnowledgeBase || !freeda.Features.KBToggleable {
		t.Errorf("freeda features = %+v, want knowledge base on and toggleable", freeda.Features)
	}

	aspect, ok := cfg.Profile("Aspect")
	if !ok {
		t.Fatal("aspect profile missing")
	}
	if aspect.Features.HasKnowledgeBase {
		t.Error("aspect should not have a knowledge base")
	}
	if len(aspect.ThinkingSteps) != 4 || len(aspect.QuickQuestions) != 12 {
		t.Errorf("aspect has %d phrase sets and %d questions", len(aspect.ThinkingSteps), len(aspect.QuickQuestions))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"valid default config", func(c *Config) {}, ""},
		{"invalid theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"negative stall timeout", func(c *Config) { c.Stream.StallTimeout = D(-time.Second) }, "stream.stall_timeout"},
		{"stall timeout disabled", func(c *Config) { c.Stream.StallTimeout = D(0) }, ""},
		{"zero request timeout", func(c *Config) { c.Stream.RequestTimeout = D(0) }, "stream.request_timeout"},
		{"fallback too fast", func(c *Config) { c.Stream.FallbackInterval = D(time.Millisecond) }, "stream.fallback_interval"},
		{"tiny payload limit", func(c *Config) { c.Stream.MaxPayloadBytes = 10 }, "stream.max_payload_bytes"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad base url", func(c *Config) { c.BaseURL = "ftp://example.com" }, "base_url"},
		{"unknown default agent", func(c *Config) { c.DefaultAgent = "nobody" }, "default_agent"},
		{"no agents", func(c *Config) { c.Agents = nil }, "agents"},
		{"duplicate prefix", func(c *Config) { c.Agents[1].StoragePrefix = "freeda_" }, "agents[1].storage_prefix"},
		{"duplicate id", func(c *Config) { c.Agents[1].ID = "FREEDA" }, "agents[1].id"},
		{"empty phrase set", func(c *Config) { c.Agents[0].ThinkingSteps = [][]string{{}} }, "agents[0].thinking_steps[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var errs ValidateErrors
			if !errors.As(err, &errs) {
				t.Fatalf("Validate() = %v, want ValidateErrors", err)
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want error on %s", err, tt.field)
			}
		})
	}
}

func TestLoadFromPath_TOML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
default_agent = "acme"

[stream]
stall_timeout = "45s"
fallback_interval = 0

[ui]
theme = "default"

[[agents]]
id = "acme"
agent_name = "Acme Helper"
thinking_steps = [["Looking", "Thinking"]]

[[agents]]
id = "aspect"
agent_name = "Aspect"
header_title = "Custom Aspect"
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() = %v", err)
	}
	if cfg.Stream.StallTimeout.Duration != 45*time.Second {
		t.Errorf("StallTimeout = %v, want 45s", cfg.Stream.StallTimeout)
	}
	if cfg.Stream.FallbackInterval.Duration != 0 {
		t.Errorf("FallbackInterval = %v, want 0 (bare integer seconds)", cfg.Stream.FallbackInterval)
	}
	if cfg.Stream.RequestTimeout.Duration != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want default 30s", cfg.Stream.RequestTimeout)
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("Theme = %q, want migrated to auto", cfg.UI.Theme)
	}

	acme := cfg.ActiveProfile()
	if acme.ID != "acme" || acme.StoragePrefix != "acme_" || acme.DisplayName != "Acme Helper" {
		t.Errorf("acme profile = %+v", acme)
	}

	aspect, _ := cfg.Profile("aspect")
	if aspect.HeaderTitle != "Custom Aspect" {
		t.Errorf("aspect HeaderTitle = %q, want file value", aspect.HeaderTitle)
	}
	if len(aspect.QuickQuestions) != 0 {
		t.Errorf("redefined aspect kept %d built-in questions", len(aspect.QuickQuestions))
	}

	if _, ok := cfg.Profile("freeda"); !ok {
		t.Error("built-in freeda profile should be restored")
	}
	if got := len(cfg.Agents); got != 3 {
		t.Errorf("len(Agents) = %d, want 3", got)
	}
}

func TestLoadFromPath_Invalid(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[ui]\ntheme = \"neon\"\n")

	_, err := LoadFromPath(path)
	if err == nil || !strings.Contains(err.Error(), "ui.theme") {
		t.Errorf("LoadFromPath() = %v, want ui.theme validation error", err)
	}
}

func TestLoad_JSONFallbackAndDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() without files = %v", err)
	}
	if cfg.DefaultAgent != "freeda" {
		t.Errorf("DefaultAgent = %q", cfg.DefaultAgent)
	}

	writeFile(t, filepath.Join(home, ".crewchat", "config.json"), `{"default_agent": "aspect", "ui": {"theme": "light"}}`)
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() with JSON = %v", err)
	}
	if cfg.ActiveProfile().ID != "aspect" || cfg.UI.Theme != "light" {
		t.Errorf("JSON config not applied: agent %q theme %q", cfg.ActiveProfile().ID, cfg.UI.Theme)
	}

	writeFile(t, filepath.Join(home, ".crewchat", "config.toml"), "not = [valid toml")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() with broken TOML should fall back to JSON: %v", err)
	}
	if cfg.ActiveProfile().ID != "aspect" {
		t.Errorf("fallback agent = %q, want aspect", cfg.ActiveProfile().ID)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CREWCHAT_AGENT", "aspect")
	t.Setenv("CREWCHAT_BASE_URL", "http://localhost:3000")
	t.Setenv("CREWCHAT_USE_KB", "false")
	t.Setenv("CREWCHAT_STALL_TIMEOUT", "15")
	t.Setenv("CREWCHAT_LOG_LEVEL", "debug")
	t.Setenv("CREWCHAT_DATA_DIR", "/tmp/crewchat-data")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.DefaultAgent != "aspect" {
		t.Errorf("DefaultAgent = %q, want aspect", cfg.DefaultAgent)
	}
	if got := cfg.ResolveBaseURL(cfg.ActiveProfile()); got != "http://localhost:3000" {
		t.Errorf("ResolveBaseURL = %q", got)
	}
	if cfg.UseKnowledgeBase == nil || *cfg.UseKnowledgeBase {
		t.Errorf("UseKnowledgeBase = %v, want forced false", cfg.UseKnowledgeBase)
	}
	if cfg.Stream.StallTimeout.Duration != 15*time.Second {
		t.Errorf("StallTimeout = %v, want 15s", cfg.Stream.StallTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if p, _ := cfg.StatePath(); p != "/tmp/crewchat-data/state.db" {
		t.Errorf("StatePath = %q", p)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.DefaultAgent = "aspect"
	cfg.Stream.StallTimeout = D(2 * time.Minute)
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %o, want 0600", perm)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# crewchat configuration file") {
		t.Errorf("missing header comment:\n%s", data)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() = %v", err)
	}
	if loaded.DefaultAgent != "aspect" || loaded.Stream.StallTimeout.Duration != 2*time.Minute {
		t.Errorf("round trip = %q %v", loaded.DefaultAgent, loaded.Stream.StallTimeout)
	}
	freeda, _ := loaded.Profile("freeda")
	if len(freeda.ThinkingSteps) != 4 {
		t.Errorf("freeda phrase sets = %d, want 4", len(freeda.ThinkingSteps))
	}
}

func TestLoadForEdit_SkipsEnvOverrides(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "default_agent = \"aspect\"\n")
	t.Setenv("CREWCHAT_BASE_URL", "http://env.example")

	cfg, err := LoadForEdit(path)
	if err != nil {
		t.Fatalf("LoadForEdit() = %v", err)
	}
	if cfg.BaseURL != "" {
		t.Errorf("BaseURL = %q, want env override left out", cfg.BaseURL)
	}
	if cfg.DefaultAgent != "aspect" {
		t.Errorf("DefaultAgent = %q, want aspect", cfg.DefaultAgent)
	}
	if err := cfg.Set("ui.theme", "light"); err != nil {
		t.Fatal(err)
	}
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo() = %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "env.example") {
		t.Errorf("env override written to file:\n%s", data)
	}

	missing, err := LoadForEdit(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("LoadForEdit(missing) = %v", err)
	}
	if missing.DefaultAgent != "freeda" {
		t.Errorf("missing file DefaultAgent = %q, want freeda", missing.DefaultAgent)
	}
}

func TestSaveTo_JSON(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.UI.WordWrap = 72
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo() = %v", err)
	}
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() = %v", err)
	}
	if loaded.UI.WordWrap != 72 {
		t.Errorf("WordWrap = %d, want 72", loaded.UI.WordWrap)
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"90s", 90 * time.Second, true},
		{"1m30s", 90 * time.Second, true},
		{"5", 5 * time.Second, true},
		{" 250ms ", 250 * time.Millisecond, true},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		var d Duration
		err := d.UnmarshalText([]byte(tt.in))
		if (err == nil) != tt.ok {
			t.Errorf("UnmarshalText(%q) error = %v", tt.in, err)
			continue
		}
		if tt.ok && d.Duration != tt.want {
			t.Errorf("UnmarshalText(%q) = %v, want %v", tt.in, d.Duration, tt.want)
		}
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("ui.theme")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "auto" {
		t.Errorf("Get('ui.theme') = %v, want 'auto'", val)
	}

	if err := cfg.Set("stream.stall_timeout", "30s"); err != nil {
		t.Fatalf("Set(stall_timeout) = %v", err)
	}
	if cfg.Stream.StallTimeout.Duration != 30*time.Second {
		t.Errorf("StallTimeout = %v, want 30s", cfg.Stream.StallTimeout)
	}
	if err := cfg.Set("ui.word_wrap", "80"); err != nil || cfg.UI.WordWrap != 80 {
		t.Errorf("Set(word_wrap) = %v, WordWrap = %d", err, cfg.UI.WordWrap)
	}
	if err := cfg.Set("use_knowledge_base", "yes"); err != nil || cfg.UseKnowledgeBase == nil || !*cfg.UseKnowledgeBase {
		t.Errorf("Set(use_knowledge_base) = %v, value = %v", err, cfg.UseKnowledgeBase)
	}

	if _, err := cfg.Get("invalid.key"); err == nil {
		t.Error("Get() with invalid key should return error")
	}
	if _, err := cfg.Get("stream.stall_timeout.seconds"); err == nil {
		t.Error("Get() into a duration should return error")
	}
	if err := cfg.Set("ui.word_wrap", "wide"); err == nil {
		t.Error("Set() with a non-integer should return error")
	}

	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) = %v", key, err)
		}
	}
}

func TestConfig_Clone(t *testing.T) {
	original := Default()
	clone := original.Clone()

	clone.Agents[0].ThinkingSteps[0][0] = "changed"
	clone.Agents[0].QuickQuestions[0].Text = "changed"
	clone.UI.Theme = "dark"

	if original.Agents[0].ThinkingSteps[0][0] == "changed" {
		t.Error("Clone shares thinking step slices")
	}
	if original.Agents[0].QuickQuestions[0].Text == "changed" {
		t.Error("Clone shares quick questions")
	}
	if original.UI.Theme != "auto" {
		t.Error("Clone shares UI section")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "default_agent = \"freeda\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	w, err := Watch(ctx, path, 30*time.Millisecond, func(cfg *Config, err error) {
		if err == nil {
			changes <- cfg
		}
	})
	if err != nil {
		t.Fatalf("Watch() = %v", err)
	}

	writeFile(t, path, "default_agent = \"aspect\"\n")

	select {
	case cfg := <-changes:
		if cfg.DefaultAgent != "aspect" {
			t.Errorf("reloaded DefaultAgent = %q, want aspect", cfg.DefaultAgent)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	cancel()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
