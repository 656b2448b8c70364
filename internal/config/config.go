// Package config loads settings with the precedence
// defaults < user config file < environment < overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dori/mindmap/internal/model"
)

const (
	KeyDatabasePath  = "database.path"
	KeyProjectID     = "project.id"
	KeyProjectName   = "project.name"
	KeyTheme         = "theme"
	KeyFocusDelay    = "focus.delay"
	KeyFocusAttempts = "focus.attempts"
	KeyStoreTimeout  = "store.timeout"
	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
	KeyNotify        = "notify.enabled"
	KeyTaskTitle     = "titles.task"
	KeyGroupTitle    = "titles.group"
)

const envPrefix = "MINDMAP"

type initSettings struct {
	userConfigPath string
}

// Option configures Load. Useful for tests to override paths.
type Option func(*initSettings)

// WithUserConfig overrides the default user config path.
func WithUserConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.userConfigPath = path
	}
}

// Config is a loaded configuration
type Config struct {
	v    *viper.Viper
	path string
}

// Load reads configuration from defaults, the user config file and MINDMAP_* variables
func Load(opts ...Option) (*Config, error) {
	settings := initSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	path := strings.TrimSpace(settings.userConfigPath)
	if path == "" {
		p, err := DefaultUserConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := mergeConfigFile(v, path); err != nil {
		return nil, fmt.Errorf("load user config: %w", err)
	}
	return &Config{v: v, path: path}, nil
}

// ApplyOverrides injects values typically coming from CLI flags.
func (c *Config) ApplyOverrides(overrides map[string]any) {
	for k, v := range overrides {
		c.v.Set(k, v)
	}
}

// Path returns the user config file location, which may not exist
func (c *Config) Path() string { return c.path }

func (c *Config) GetString(key string) string          { return c.v.GetString(key) }
func (c *Config) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *Config) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *Config) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }

// DatabasePath returns the configured database file, or "" for the default
func (c *Config) DatabasePath() string { return c.GetString(KeyDatabasePath) }

// ProjectID returns the project the TUI opens
func (c *Config) ProjectID() string {
	if id := strings.TrimSpace(c.GetString(KeyProjectID)); id != "" {
		return id
	}
	return model.DefaultProjectID
}

// FocusAttempts returns the bounded retry count, at least 1
func (c *Config) FocusAttempts() int {
	if n := c.GetInt(KeyFocusAttempts); n > 0 {
		return n
	}
	return 1
}

// AllSettings returns the merged settings, for `mindmap config`
func (c *Config) AllSettings() map[string]any {
	return c.v.AllSettings()
}

// Save writes one key to the user config file, keeping the other settings
func (c *Config) Save(key string, value any) error {
	v := viper.New()
	v.SetConfigType("yaml")
	// a missing or empty file starts fresh; a broken one is left alone
	if err := mergeConfigFile(v, c.path); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	c.v.Set(key, value)
	return nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// DefaultUserConfigPath returns ~/.config/mindmap/config.yaml
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, ".config", "mindmap", "config.yaml"), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, "")
	v.SetDefault(KeyProjectID, model.DefaultProjectID)
	v.SetDefault(KeyProjectName, "My map")
	v.SetDefault(KeyTheme, "nord")
	v.SetDefault(KeyFocusDelay, 30*time.Millisecond)
	v.SetDefault(KeyFocusAttempts, 10)
	v.SetDefault(KeyStoreTimeout, 10*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyNotify, true)
	v.SetDefault(KeyTaskTitle, "New task")
	v.SetDefault(KeyGroupTitle, "New group")
}
