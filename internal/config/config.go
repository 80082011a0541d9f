// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/crewchat/internal/api"
	"github.com/jeranaias/crewchat/internal/logging"
	"github.com/jeranaias/crewchat/internal/util"
)

// CurrentVersion is the config format version written by SaveTOML.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete crewchat configuration.
type Config struct {
	Version      string `toml:"version" json:"version"`
	DefaultAgent string `toml:"default_agent" json:"default_agent"`
	LogLevel     string `toml:"log_level" json:"log_level"`

	// BaseURL, when set, replaces every profile's base_url.
	BaseURL string `toml:"base_url,omitempty" json:"base_url,omitempty"`

	// UseKnowledgeBase, when set, forces the knowledge-base toggle for the
	// session without changing the stored preference.
	UseKnowledgeBase *bool `toml:"use_knowledge_base,omitempty" json:"use_knowledge_base,omitempty"`

	Stream  StreamConfig   `toml:"stream" json:"stream"`
	UI      UIConfig       `toml:"ui" json:"ui"`
	Storage StorageConfig  `toml:"storage" json:"storage"`
	Agents  []AgentProfile `toml:"agents" json:"agents"`
}

// StreamConfig controls turn streaming and history refresh.
type StreamConfig struct {
	// StallTimeout fails a turn whose stream sends nothing for this long.
	// Zero disables the watchdog.
	StallTimeout Duration `toml:"stall_timeout" json:"stall_timeout"`
	// RequestTimeout bounds non-streaming API calls.
	RequestTimeout Duration `toml:"request_timeout" json:"request_timeout"`
	// FallbackInterval is how often canned thinking phrases rotate.
	// Zero disables the fallback.
	FallbackInterval Duration `toml:"fallback_interval" json:"fallback_interval"`
	// RefreshMinInterval throttles automatic history refreshes after turns.
	RefreshMinInterval Duration `toml:"refresh_min_interval" json:"refresh_min_interval"`
	// MaxPayloadBytes bounds one stream line.
	MaxPayloadBytes int `toml:"max_payload_bytes" json:"max_payload_bytes"`
	// MaxRetries applies to idempotent API calls only.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// UIConfig contains display preferences.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme        string `toml:"theme" json:"theme"`
	Markdown     bool   `toml:"markdown" json:"markdown"`
	WordWrap     int    `toml:"word_wrap" json:"word_wrap"`
	ShowThinking bool   `toml:"show_thinking" json:"show_thinking"`
}

// StorageConfig locates local state.
type StorageConfig struct {
	// DataDir holds the state database, log file and REPL history.
	// Empty means the config directory.
	DataDir string `toml:"data_dir" json:"data_dir"`
}

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration written as "90s" in config files.
type Duration struct {
	time.Duration
}

// D wraps a time.Duration.
func D(d time.Duration) Duration { return Duration{d} }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Bare integers are seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if n, err := strconv.Atoi(s); err == nil {
		d.Duration = time.Duration(n) * time.Second
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version:      CurrentVersion,
		DefaultAgent: "freeda",
		LogLevel:     "info",
		Stream: StreamConfig{
			StallTimeout:       D(90 * time.Second),
			RequestTimeout:     D(30 * time.Second),
			FallbackInterval:   D(2 * time.Second),
			RefreshMinInterval: D(2 * time.Second),
			MaxPayloadBytes:    1024 * 1024,
			MaxRetries:         3,
		},
		UI: UIConfig{
			Theme:        "auto",
			Markdown:     true,
			WordWrap:     100,
			ShowThinking: true,
		},
		Agents: BuiltinProfiles(),
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the crewchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".crewchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataDir returns the resolved data directory.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return expandHome(c.Storage.DataDir)
	}
	return ConfigDir()
}

// StatePath returns the local state database path.
func (c *Config) StatePath() (string, error) {
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.db"), nil
}

// LogPath returns the log file used while the TUI owns the terminal.
func (c *Config) LogPath() (string, error) {
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "crewchat.log"), nil
}

// HistoryPath returns the REPL line history file.
func (c *Config) HistoryPath() (string, error) {
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "repl_history"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults. A file that fails
// to decode is reported alongside the defaults rather than aborting.
func Load() (*Config, error) {
	var loadErr error

	for _, locate := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := locate()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		if loadErr == nil {
			loadErr = err
		}
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	// Decoders reuse slice elements in place; built-ins come back in SetDefaults.
	cfg.Agents = nil

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// finish runs the post-decode pipeline shared by every load path.
func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	if err := c.Migrate(); err != nil {
		return fmt.Errorf("config migration failed: %w", err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ensureSecurePermissions narrows config files to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with mode 0600.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# crewchat configuration file\n")
	b.WriteString("# Generated by crewchat - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as indented JSON, atomically with mode 0600.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveTo writes cfg in the format implied by the path's extension.
func SaveTo(cfg *Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// LoadForEdit reads path for modification and saving. Environment
// overrides are not applied, so they never leak into the file, and the
// result is not validated. A missing file yields defaults.
func LoadForEdit(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		cfg.Agents = nil
		load := LoadTOML
		if strings.HasSuffix(path, ".json") {
			load = LoadJSON
		}
		if err := load(cfg, path); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// ==========================================================================
	// Stream
	// ==========================================================================

	if c.Stream.StallTimeout.Duration < 0 {
		add("stream.stall_timeout", "must not be negative")
	}
	if c.Stream.RequestTimeout.Duration <= 0 {
		add("stream.request_timeout", "must be positive")
	}
	if c.Stream.FallbackInterval.Duration < 0 {
		add("stream.fallback_interval", "must not be negative")
	} else if d := c.Stream.FallbackInterval.Duration; d > 0 && d < 100*time.Millisecond {
		add("stream.fallback_interval", "%s is too short, minimum is 100ms", d)
	}
	if c.Stream.RefreshMinInterval.Duration < 0 {
		add("stream.refresh_min_interval", "must not be negative")
	}
	if c.Stream.MaxPayloadBytes < 1024 {
		add("stream.max_payload_bytes", "%d is too small, minimum is 1024", c.Stream.MaxPayloadBytes)
	}
	if c.Stream.MaxRetries < 0 || c.Stream.MaxRetries > 10 {
		add("stream.max_retries", "%d out of range 0-10", c.Stream.MaxRetries)
	}

	// ==========================================================================
	// UI and logging
	// ==========================================================================

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}
	if c.UI.WordWrap < 0 {
		add("ui.word_wrap", "must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "error", "warn", "warning", "info", "debug":
	default:
		add("log_level", "invalid level '%s', must be one of: error, warn, info, debug", c.LogLevel)
	}
	if c.BaseURL != "" {
		if err := validateURL(c.BaseURL); err != nil {
			add("base_url", "%v", err)
		}
	}

	// ==========================================================================
	// Agent profiles
	// ==========================================================================

	if len(c.Agents) == 0 {
		add("agents", "at least one agent profile is required")
	}
	ids := make(map[string]bool)
	prefixes := make(map[string]string)
	for i, p := range c.Agents {
		field := fmt.Sprintf("agents[%d]", i)
		id := strings.ToLower(p.ID)
		if id == "" {
			add(field+".id", "must not be empty")
		} else if ids[id] {
			add(field+".id", "duplicate profile id '%s'", p.ID)
		}
		ids[id] = true

		if strings.TrimSpace(p.AgentName) == "" {
			add(field+".agent_name", "must not be empty")
		}
		if p.StoragePrefix == "" {
			add(field+".storage_prefix", "must not be empty")
		} else if other, ok := prefixes[p.StoragePrefix]; ok {
			add(field+".storage_prefix", "prefix '%s' already used by '%s'", p.StoragePrefix, other)
		} else {
			prefixes[p.StoragePrefix] = p.ID
		}
		if p.BaseURL != "" {
			if err := validateURL(p.BaseURL); err != nil {
				add(field+".base_url", "%v", err)
			}
		}
		for j, set := range p.ThinkingSteps {
			if len(set) == 0 {
				add(fmt.Sprintf("%s.thinking_steps[%d]", field, j), "phrase set is empty")
			}
		}
	}
	if _, ok := c.Profile(c.DefaultAgent); !ok {
		add("default_agent", "no agent profile named '%s'", c.DefaultAgent)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL '%s' must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL '%s' has no host", raw)
	}
	return nil
}

// SetDefaults fills zero values and restores any built-in profile the file
// did not redefine.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.DefaultAgent == "" {
		c.DefaultAgent = d.DefaultAgent
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}

	if c.Stream.RequestTimeout.Duration == 0 {
		c.Stream.RequestTimeout = d.Stream.RequestTimeout
	}
	if c.Stream.MaxPayloadBytes == 0 {
		c.Stream.MaxPayloadBytes = d.Stream.MaxPayloadBytes
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}

	for _, builtin := range BuiltinProfiles() {
		if _, ok := c.Profile(builtin.ID); !ok {
			c.Agents = append(c.Agents, builtin)
		}
	}
	for i := range c.Agents {
		p := &c.Agents[i]
		if p.ID == "" {
			p.ID = slug(p.AgentName)
		}
		if p.DisplayName == "" {
			p.DisplayName = p.AgentName
		}
		if p.StoragePrefix == "" && p.ID != "" {
			p.StoragePrefix = strings.ToLower(p.ID) + "_"
		}
		if p.HeaderTitle == "" {
			p.HeaderTitle = p.DisplayName
		}
		if p.InputPlaceholder == "" {
			p.InputPlaceholder = "Type a message..."
		}
	}
}

// Migrate normalizes values written by older versions.
func (c *Config) Migrate() error {
	switch strings.ToLower(c.UI.Theme) {
	case "default", "system":
		c.UI.Theme = "auto"
	default:
		c.UI.Theme = strings.ToLower(c.UI.Theme)
	}
	c.DefaultAgent = strings.TrimSpace(c.DefaultAgent)
	if c.Version == "" || c.Version == "0" {
		c.Version = CurrentVersion
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CREWCHAT_AGENT: overrides default_agent
//   - CREWCHAT_BASE_URL: overrides every profile's base_url
//   - CREWCHAT_USE_KB: "1"/"true" or "0"/"false" forces the knowledge-base toggle
//   - CREWCHAT_STALL_TIMEOUT: overrides stream.stall_timeout ("45s" or seconds)
//   - CREWCHAT_LOG_LEVEL: overrides log_level
//   - CREWCHAT_DATA_DIR: overrides storage.data_dir
func (c *Config) ApplyEnvOverrides() {
	if agent := os.Getenv("CREWCHAT_AGENT"); agent != "" {
		c.DefaultAgent = agent
	}
	if base := os.Getenv("CREWCHAT_BASE_URL"); base != "" {
		c.BaseURL = base
	}
	if kb := os.Getenv("CREWCHAT_USE_KB"); kb != "" {
		v := parseBool(kb)
		c.UseKnowledgeBase = &v
	}
	if stall := os.Getenv("CREWCHAT_STALL_TIMEOUT"); stall != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(stall)); err == nil {
			c.Stream.StallTimeout = d
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring CREWCHAT_STALL_TIMEOUT: %v\n", err)
		}
	}
	if level := os.Getenv("CREWCHAT_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if dir := os.Getenv("CREWCHAT_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Level returns the configured logging level.
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "stream.stall_timeout").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
// The result is not validated; call Validate before saving.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct || field.Type() == durationType {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

var durationType = reflect.TypeOf(Duration{})

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		if field.Type() == durationType {
			var d Duration
			if err := d.UnmarshalText([]byte(strVal)); err != nil {
				return err
			}
			field.Set(reflect.ValueOf(d))
			return nil
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		case reflect.Ptr:
			if field.Type().Elem().Kind() == reflect.Bool {
				b := parseBool(strVal)
				field.Set(reflect.ValueOf(&b))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all scalar configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"default_agent",
		"log_level",
		"base_url",
		"use_knowledge_base",
		"stream.stall_timeout",
		"stream.request_timeout",
		"stream.fallback_interval",
		"stream.refresh_min_interval",
		"stream.max_payload_bytes",
		"stream.max_retries",
		"ui.theme",
		"ui.markdown",
		"ui.word_wrap",
		"ui.show_thinking",
		"storage.data_dir",
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.UseKnowledgeBase != nil {
		v := *c.UseKnowledgeBase
		clone.UseKnowledgeBase = &v
	}
	if c.Agents != nil {
		clone.Agents = make([]AgentProfile, len(c.Agents))
		for i, p := range c.Agents {
			clone.Agents[i] = p.Clone()
		}
	}
	return &clone
}

// String returns an indented JSON rendering for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// APIConfig builds the client configuration for a profile.
func (c *Config) APIConfig(p AgentProfile, log *logging.Logger) *api.ClientConfig {
	cfg := api.DefaultConfig()
	cfg.BaseURL = c.ResolveBaseURL(p)
	cfg.Timeout = c.Stream.RequestTimeout.Duration
	cfg.MaxRetries = c.Stream.MaxRetries
	cfg.Logger = log
	return cfg
}

// ResolveBaseURL applies the global override and the default to a profile.
func (c *Config) ResolveBaseURL(p AgentProfile) string {
	switch {
	case c.BaseURL != "":
		return c.BaseURL
	case p.BaseURL != "":
		return p.BaseURL
	default:
		return api.DefaultBaseURL
	}
}
