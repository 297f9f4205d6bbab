package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

// sections are the top-level keys environment variables may target.
var sections = map[string]bool{
	"server": true, "store": true, "secrets": true, "pii": true, "pin": true,
	"events": true, "observability": true, "logging": true,
}

// Load reads configuration with this precedence, highest first:
//  1. Environment variables (SERVER_HTTP_PORT, PIN_SALT, STORE_PATH, ...)
//  2. The YAML file at configPath (default ~/.config/redactd/config.yaml)
//  3. Defaults
//
// The file is optional. When present it must live under ~/.config/redactd/
// or /etc/redactd/, have 0600 or 0400 permissions and be at most 1MB.
//
// Environment variables split on the first underscore into section and
// field: SECRETS_GITLEAKS_ENABLED becomes secrets.gitleaks_enabled.
// Variables whose first segment is not a known section are ignored.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	if cfg.Store.Path, err = expandHome(cfg.Store.Path); err != nil {
		return nil, err
	}
	if cfg.Secrets.AllowListFile, err = expandHome(cfg.Secrets.AllowListFile); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps SERVER_HTTP_PORT to server.http_port. It returns "" for
// variables outside the known sections, which koanf skips.
func envKey(s string) string {
	parts := strings.SplitN(strings.ToLower(s), "_", 2)
	if len(parts) != 2 || !sections[parts[0]] || parts[1] == "" {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile returns nil content when the file does not exist. The file
// is opened once and checked through the open descriptor.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large (max %d bytes)", maxConfigFileSize)
	}
	return content, nil
}

// DefaultDir returns ~/.config/redactd.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "redactd"), nil
}

// EnsureConfigDir creates ~/.config/redactd with 0700 permissions.
func EnsureConfigDir() error {
	dir, err := DefaultDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

func allowedDirs() ([]string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return []string{dir, "/etc/redactd"}, nil
}

// validateConfigPath rejects paths outside the allowed directories after
// resolving symlinks. It runs whether or not the file exists.
func validateConfigPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		resolved = abs
	}

	dirs, err := allowedDirs()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if within(dir, resolved) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/redactd/ or /etc/redactd/")
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// validateConfigFileProperties checks permissions (0600 or 0400, except on
// Windows) and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
