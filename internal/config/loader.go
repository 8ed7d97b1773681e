package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:default} patterns in a string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		varName := submatch[1]
		defaultVal := ""
		if len(submatch) >= 3 {
			defaultVal = submatch[2]
		}
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return defaultVal
	})
}

// LoadFile reads a YAML file, expands env vars, and unmarshals into dest.
func LoadFile(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), dest); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Loader reads the process configuration once at startup. The main config
// file is optional; defaults plus environment variables are enough to run.
// Only the prompt overrides file participates in hot-reload.
type Loader struct {
	configPath string
	mu         sync.RWMutex
	cfg        *Config
	overrides  *Overrides
	watchers   []func()
	logger     *slog.Logger
}

func NewLoader(configPath string, logger *slog.Logger) *Loader {
	return &Loader{
		configPath: configPath,
		logger:     logger,
	}
}

func (l *Loader) Load() error {
	cfg := DefaultConfig()
	if _, err := os.Stat(l.configPath); err == nil {
		if err := LoadFile(l.configPath, cfg); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	applyEnv(cfg)

	overrides := &Overrides{}
	if cfg.Prompts.OverridesPath != "" {
		if _, err := os.Stat(cfg.Prompts.OverridesPath); err == nil {
			if err := LoadFile(cfg.Prompts.OverridesPath, overrides); err != nil {
				return fmt.Errorf("load prompt overrides: %w", err)
			}
		}
	}

	l.mu.Lock()
	l.cfg = cfg
	l.overrides = overrides
	l.mu.Unlock()
	return nil
}

// applyEnv layers the original environment surface over the file config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Server.Environment = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Upstream.APIKey = v
	}
	if v := os.Getenv("SITE_URL"); v != "" {
		cfg.Upstream.SiteURL = v
	}
}

func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

func (l *Loader) Overrides() *Overrides {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.overrides
}

// OnReload registers a callback that fires after the overrides are reloaded.
func (l *Loader) OnReload(fn func()) {
	l.watchers = append(l.watchers, fn)
}

// Watch starts watching the prompt overrides file and reloads on change.
func (l *Loader) Watch() error {
	cfg := l.Config()
	if cfg.Prompts.OverridesPath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	// Watch the directory: editors replace files rather than write in place.
	dir := filepath.Dir(cfg.Prompts.OverridesPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch overrides dir %s: %w", dir, err)
	}

	target := filepath.Clean(cfg.Prompts.OverridesPath)
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					l.logger.Info("prompt overrides changed, reloading", "file", event.Name)
					if err := l.Load(); err != nil {
						l.logger.Error("failed to reload prompt overrides", "error", err)
						continue
					}
					for _, fn := range l.watchers {
						fn()
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Error("fsnotify error", "error", err)
			}
		}
	}()

	return nil
}
