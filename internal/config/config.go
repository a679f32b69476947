package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	nerrors "github.com/Aman-CERP/notedex/internal/errors"
)

// ProjectConfigNames are the per-directory config files, in lookup order.
var ProjectConfigNames = []string{".notedex.yaml", ".notedex.yml"}

// DefaultNotesSubdir is the notes directory under $HOME used when nothing
// else names one.
const DefaultNotesSubdir = ".data"

// Config represents the complete notedex configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Notes       NotesConfig       `yaml:"notes" json:"notes"`
	Index       IndexConfig       `yaml:"index" json:"index"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Watch       WatchConfig       `yaml:"watch" json:"watch"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// NotesConfig selects the notes to index.
type NotesConfig struct {
	// Dir is the notes directory. Empty means $HOME/.data.
	Dir string `yaml:"dir" json:"dir"`

	// Extension of note files (default ".md").
	Extension string `yaml:"extension" json:"extension"`

	// Recursive indexes notes in subdirectories too (default: false).
	Recursive bool `yaml:"recursive" json:"recursive"`

	// Exclude lists gitignore-style patterns of notes to skip.
	Exclude []string `yaml:"exclude" json:"exclude"`

	// RespectIgnoreFiles honors .gitignore and .notedexignore (default: true).
	RespectIgnoreFiles bool `yaml:"respect_ignore_files" json:"respect_ignore_files"`

	// RemoveGenerated deletes pages left by a previous run before
	// indexing (default: true).
	RemoveGenerated bool `yaml:"remove_generated" json:"remove_generated"`

	// MaxFileSize skips larger notes, in bytes.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// IndexConfig configures the generated pages.
type IndexConfig struct {
	// OutputDir receives the generated pages. Empty means the notes
	// directory; relative paths are resolved against it.
	OutputDir string        `yaml:"output_dir" json:"output_dir"`
	Tags      ColumnsConfig `yaml:"tags" json:"tags"`
	Dates     ColumnsConfig `yaml:"dates" json:"dates"`
}

// ColumnsConfig is the column layout of one master index section.
type ColumnsConfig struct {
	Columns int `yaml:"columns" json:"columns"`
	Padding int `yaml:"padding" json:"padding"`
}

// PerformanceConfig configures performance tuning options.
type PerformanceConfig struct {
	// Workers bounds the notes read in parallel (default: NumCPU).
	Workers int `yaml:"workers" json:"workers"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is how long to wait for changes to settle, e.g. "500ms".
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LoggingConfig configures the file log.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// SchemaVersion is the config file version this build writes and reads.
const SchemaVersion = 1

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Notes: NotesConfig{
			Extension:          ".md",
			Recursive:          false,
			Exclude:            []string{},
			RespectIgnoreFiles: true,
			RemoveGenerated:    true,
			MaxFileSize:        10 * 1024 * 1024,
		},
		Index: IndexConfig{
			Tags:  ColumnsConfig{Columns: 5, Padding: 2},
			Dates: ColumnsConfig{Columns: 7, Padding: 2},
		},
		Performance: PerformanceConfig{
			Workers: runtime.NumCPU(),
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/notedex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/notedex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "notedex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "notedex", "config.yaml")
	}
	return filepath.Join(home, ".config", "notedex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user config.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user config file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ProjectConfigPath returns the project config file in dir, if any.
func ProjectConfigPath(dir string) (string, bool) {
	for _, name := range ProjectConfigNames {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path, true
		}
	}
	return "", false
}

// Load builds the configuration for the notes directory dir.
//
// Precedence, lowest to highest: defaults, user config, project config
// (dir/.notedex.yaml), NOTEDEX_* environment variables. The result is
// validated. Notes.Dir is set to dir when dir is not empty.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	// Step 1: user config
	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	// Step 2: project config
	if dir != "" {
		if path, ok := ProjectConfigPath(dir); ok {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
		}
	}

	// Step 3: environment
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if dir != "" {
		cfg.Notes.Dir = dir
	}

	// Step 4: validate
	if err := cfg.Validate(); err != nil {
		return nil, nerrors.New(nerrors.ErrCodeConfigInvalid, "invalid configuration", err).
			WithSuggestion("run 'notedex config show' to inspect the effective configuration")
	}
	return cfg, nil
}

// LoadUserConfig loads only the user configuration file on top of the
// defaults. A missing file yields the defaults.
func LoadUserConfig() (*Config, error) {
	cfg := NewConfig()
	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadYAML decodes path on top of the current values, so keys absent from
// the file keep their earlier value.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nerrors.New(nerrors.ErrCodeConfigNotFound, "cannot read config file", err).WithPath(path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nerrors.New(nerrors.ErrCodeConfigInvalid, "cannot parse config file", err).
			WithPath(path).
			WithSuggestion("check the YAML syntax")
	}
	return nil
}

// applyEnvOverrides applies NOTEDEX_* variables. Malformed numbers and
// booleans are reported rather than ignored.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("NOTEDEX_DIR"); v != "" {
		c.Notes.Dir = v
	}
	if v := os.Getenv("NOTEDEX_OUTPUT_DIR"); v != "" {
		c.Index.OutputDir = v
	}
	if v := os.Getenv("NOTEDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NOTEDEX_WATCH_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := os.Getenv("NOTEDEX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("NOTEDEX_WORKERS", v, err)
		}
		c.Performance.Workers = n
	}
	if v := os.Getenv("NOTEDEX_RECURSIVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("NOTEDEX_RECURSIVE", v, err)
		}
		c.Notes.Recursive = b
	}
	if v := os.Getenv("NOTEDEX_REMOVE_GENERATED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("NOTEDEX_REMOVE_GENERATED", v, err)
		}
		c.Notes.RemoveGenerated = b
	}
	return nil
}

func envError(name, value string, err error) error {
	return nerrors.New(nerrors.ErrCodeConfigInvalid,
		fmt.Sprintf("invalid value for %s", name), err).
		WithDetail("value", value)
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Notes.Extension, ".") || len(c.Notes.Extension) < 2 {
		return fmt.Errorf("notes.extension must start with '.', got %q", c.Notes.Extension)
	}
	if c.Notes.MaxFileSize <= 0 {
		return fmt.Errorf("notes.max_file_size must be positive, got %d", c.Notes.MaxFileSize)
	}
	if c.Index.Tags.Columns < 1 {
		return fmt.Errorf("index.tags.columns must be at least 1, got %d", c.Index.Tags.Columns)
	}
	if c.Index.Dates.Columns < 1 {
		return fmt.Errorf("index.dates.columns must be at least 1, got %d", c.Index.Dates.Columns)
	}
	if c.Index.Tags.Padding < 0 || c.Index.Dates.Padding < 0 {
		return fmt.Errorf("index padding must be non-negative")
	}
	if c.Performance.Workers < 1 {
		return fmt.Errorf("performance.workers must be at least 1, got %d", c.Performance.Workers)
	}
	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d < 0 {
		return fmt.Errorf("watch.debounce must be a non-negative duration, got %q", c.Watch.Debounce)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// WatchDebounce returns the parsed watch.debounce value.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// OutputDir returns the directory that receives generated pages.
func (c *Config) OutputDir() string {
	out := c.Index.OutputDir
	switch {
	case out == "":
		return c.Notes.Dir
	case filepath.IsAbs(out):
		return out
	default:
		return filepath.Join(c.Notes.Dir, out)
	}
}

// ResolveNotesDir picks the notes directory: the argument, then
// NOTEDEX_DIR, then notes.dir from the user config, then $HOME/.data.
// A leading "~/" is expanded. The directory must exist.
func ResolveNotesDir(arg string) (string, error) {
	dir := arg
	if dir == "" {
		dir = os.Getenv("NOTEDEX_DIR")
	}
	if dir == "" {
		userCfg, err := LoadUserConfig()
		if err != nil {
			return "", err
		}
		dir = userCfg.Notes.Dir
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", nerrors.New(nerrors.ErrCodeConfigNotFound, "cannot determine home directory", err).
				WithSuggestion("pass the notes directory as an argument or set NOTEDEX_DIR")
		}
		dir = filepath.Join(home, DefaultNotesSubdir)
	}

	dir, err := expandHome(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", nerrors.New(nerrors.ErrCodeInvalidInput, "invalid notes directory", err).WithPath(dir)
	}

	info, err := os.Stat(abs)
	if err != nil {
		code := nerrors.ErrCodeFileNotFound
		if os.IsPermission(err) {
			code = nerrors.ErrCodeFilePermission
		}
		return "", nerrors.New(code, "notes directory is not accessible", err).
			WithPath(abs).
			WithSuggestion("create the directory or pass another one as an argument")
	}
	if !info.IsDir() {
		return "", nerrors.New(nerrors.ErrCodeNotADirectory, "notes path is not a directory", nil).WithPath(abs)
	}
	return abs, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nerrors.New(nerrors.ErrCodeConfigNotFound, "cannot expand ~", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
