// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/erpdesk/erpdesk/internal/hostutil"
)

// EnvPrefix prefixes every environment variable the client reads.
const EnvPrefix = "ERPDESK_"

// DefaultPageLimit is the list page size the backend's list endpoints expect.
const DefaultPageLimit = 20

// Config holds the resolved configuration.
type Config struct {
	// Backend settings. These are authority keys: they decide where the
	// bearer token and database credentials are sent.
	BaseURL string `json:"base_url"`
	WSURL   string `json:"ws_url"`
	DSN     string `json:"dsn"`

	// Profile settings (named backend bundles, e.g. "staging")
	Profiles       map[string]*ProfileConfig `json:"profiles,omitempty"`
	DefaultProfile string                    `json:"default_profile,omitempty"`
	ActiveProfile  string                    `json:"-"`

	// Local state
	CacheDir       string `json:"cache_dir"`
	LogFile        string `json:"log_file"`
	CatalogFile    string `json:"catalog_file"`
	SessionRestore bool   `json:"session_restore"`

	// Behavior
	Format     string `json:"format"`
	PageLimit  int    `json:"page_limit"`
	ListenAddr string `json:"listen_addr"`
	Verbose    *int   `json:"verbose,omitempty"`

	// Sources tracks where each value came from (for `config show`).
	Sources map[string]string `json:"-"`
}

// ProfileConfig holds configuration for a named profile.
type ProfileConfig struct {
	BaseURL string `json:"base_url"`
	WSURL   string `json:"ws_url,omitempty"`
	DSN     string `json:"dsn,omitempty"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceSystem  Source = "system"
	SourceGlobal  Source = "global"
	SourceRepo    Source = "repo"
	SourceLocal   Source = "local"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
	SourceProfile Source = "profile"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	BaseURL  string
	DSN      string
	Profile  string
	CacheDir string
	Format   string
}

// Default returns the default configuration.
func Default() *Config {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	cacheDir = filepath.Join(cacheDir, "erpdesk")

	return &Config{
		BaseURL:        "http://localhost:4000/api",
		CacheDir:       cacheDir,
		LogFile:        filepath.Join(cacheDir, "erpdesk.log"),
		SessionRestore: true,
		Format:         "auto",
		PageLimit:      DefaultPageLimit,
		ListenAddr:     "127.0.0.1:4700",
		Sources:        make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env (including .env) > local > repo > global > system > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, systemConfigPath(), SourceSystem)
	loadFromFile(cfg, globalConfigPath(), SourceGlobal)

	repoPath := repoConfigPath()
	if repoPath != "" {
		loadFromFile(cfg, repoPath, SourceRepo)
	}
	for _, path := range localConfigPaths(repoPath) {
		loadFromFile(cfg, path, SourceLocal)
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	profile := overrides.Profile
	if profile == "" {
		profile = os.Getenv(EnvPrefix + "PROFILE")
	}
	if profile == "" {
		profile = cfg.DefaultProfile
	}
	if profile != "" {
		if err := cfg.ApplyProfile(profile); err != nil {
			return nil, err
		}
		LoadFromEnv(cfg)
		ApplyOverrides(cfg, overrides)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the .env file in the global config
// directory (or ERPDESK_ENV_FILE) into the process environment. Variables
// already set in the environment win. A missing file is not an error.
func LoadDotEnv() error {
	path := os.Getenv(EnvPrefix + "ENV_FILE")
	if path == "" {
		path = filepath.Join(GlobalConfigDir(), ".env")
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is from trusted config locations
	if err != nil {
		return
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	// A config checked into a project directory must not redirect the
	// token or database credentials somewhere else.
	untrusted := source == SourceLocal || source == SourceRepo
	authority := func(key string, dst *string) {
		v, ok := fileCfg[key].(string)
		if !ok || v == "" {
			return
		}
		if untrusted {
			fmt.Fprintf(os.Stderr, "warning: ignoring %s from %s config at %s (authority keys are not trusted from local/repo config)\n", key, source, path)
			return
		}
		*dst = v
		cfg.Sources[key] = string(source)
	}
	str := func(key string, dst *string) {
		if v, ok := fileCfg[key].(string); ok && v != "" {
			*dst = v
			cfg.Sources[key] = string(source)
		}
	}

	authority("base_url", &cfg.BaseURL)
	authority("ws_url", &cfg.WSURL)
	authority("dsn", &cfg.DSN)
	authority("default_profile", &cfg.DefaultProfile)

	str("cache_dir", &cfg.CacheDir)
	str("log_file", &cfg.LogFile)
	str("catalog_file", &cfg.CatalogFile)
	str("format", &cfg.Format)
	str("listen_addr", &cfg.ListenAddr)

	if v, ok := fileCfg["session_restore"].(bool); ok {
		cfg.SessionRestore = v
		cfg.Sources["session_restore"] = string(source)
	}
	if v := getStringOrNumber(fileCfg, "page_limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageLimit = n
			cfg.Sources["page_limit"] = string(source)
		}
	}
	if fv, ok := fileCfg["verbose"].(float64); ok {
		if iv := int(fv); iv >= 0 && iv <= 2 && fv == float64(iv) {
			cfg.Verbose = &iv
			cfg.Sources["verbose"] = string(source)
		}
	}

	if v, ok := fileCfg["profiles"].(map[string]any); ok {
		if untrusted {
			fmt.Fprintf(os.Stderr, "warning: ignoring profiles from %s config at %s (authority keys are not trusted from local/repo config)\n", source, path)
			return
		}
		if cfg.Profiles == nil {
			cfg.Profiles = make(map[string]*ProfileConfig)
		}
		for name, raw := range v {
			pm, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			p := &ProfileConfig{}
			if p.BaseURL, _ = pm["base_url"].(string); p.BaseURL == "" {
				continue
			}
			p.WSURL, _ = pm["ws_url"].(string)
			p.DSN, _ = pm["dsn"].(string)
			cfg.Profiles[name] = p
		}
		cfg.Sources["profiles"] = string(source)
	}
}

// LoadFromEnv loads configuration from ERPDESK_* environment variables.
func LoadFromEnv(cfg *Config) {
	env := func(name, key string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
			cfg.Sources[key] = string(SourceEnv)
		}
	}
	env("BASE_URL", "base_url", &cfg.BaseURL)
	env("WS_URL", "ws_url", &cfg.WSURL)
	env("DSN", "dsn", &cfg.DSN)
	env("CACHE_DIR", "cache_dir", &cfg.CacheDir)
	env("LOG_FILE", "log_file", &cfg.LogFile)
	env("CATALOG", "catalog_file", &cfg.CatalogFile)
	env("LISTEN_ADDR", "listen_addr", &cfg.ListenAddr)

	if v := os.Getenv(EnvPrefix + "PAGE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageLimit = n
			cfg.Sources["page_limit"] = string(SourceEnv)
		}
	}
	if v := os.Getenv(EnvPrefix + "SESSION_RESTORE"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.SessionRestore = b
			cfg.Sources["session_restore"] = string(SourceEnv)
		}
	}
}

// parseEnvBool parses a boolean environment variable strictly.
// Unrecognized values report ok=false and are ignored by callers.
func parseEnvBool(v string) (value, ok bool) {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}

// getStringOrNumber extracts a value that may be either a string or number in JSON.
func getStringOrNumber(m map[string]any, key string) string {
	switch val := m[key].(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.BaseURL != "" {
		cfg.BaseURL = hostutil.Normalize(o.BaseURL)
		cfg.Sources["base_url"] = string(SourceFlag)
	}
	if o.DSN != "" {
		cfg.DSN = o.DSN
		cfg.Sources["dsn"] = string(SourceFlag)
	}
	if o.CacheDir != "" {
		cfg.CacheDir = o.CacheDir
		cfg.Sources["cache_dir"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
}

// ApplyProfile overlays profile values onto the config. Callers re-apply
// env and flags afterwards so those keep precedence over the profile.
func (cfg *Config) ApplyProfile(name string) error {
	p, ok := cfg.Profiles[name]
	if !ok {
		return fmt.Errorf("profile %q not found", name)
	}

	cfg.ActiveProfile = name
	cfg.BaseURL = p.BaseURL
	cfg.Sources["base_url"] = string(SourceProfile)
	if p.WSURL != "" {
		cfg.WSURL = p.WSURL
		cfg.Sources["ws_url"] = string(SourceProfile)
	}
	if p.DSN != "" {
		cfg.DSN = p.DSN
		cfg.Sources["dsn"] = string(SourceProfile)
	}
	return nil
}

// Path helpers

func systemConfigPath() string {
	return "/etc/erpdesk/config.json"
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// repoConfigPath walks up from the working directory to the enclosing git
// repository and returns its .erpdesk/config.json, if any. The walk never
// leaves $HOME so a stray .git in /tmp cannot anchor a repo config.
func repoConfigPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	if dir, err = filepath.EvalSymlinks(dir); err != nil {
		return ""
	}
	home, _ := os.UserHomeDir()
	if resolved, err := filepath.EvalSymlinks(home); err == nil {
		home = resolved
	}
	if home != "" && !isInsideDir(dir, home) {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			cfgPath := filepath.Join(dir, ".erpdesk", "config.json")
			if _, err := os.Stat(cfgPath); err == nil {
				return cfgPath
			}
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && dir == home) {
			return ""
		}
		dir = parent
	}
}

// isInsideDir reports whether child is the same as or a subdirectory of parent.
func isInsideDir(child, parent string) bool {
	if child == parent {
		return true
	}
	prefix := parent
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(child, prefix)
}

// localConfigPaths returns .erpdesk/config.json paths from the trust
// boundary (repo root, or the working directory outside a repo) down to the
// working directory, so closer files override.
func localConfigPaths(repoConfigPath string) []string {
	dir, err := os.Getwd()
	if err != nil {
		return nil
	}
	if dir, err = filepath.EvalSymlinks(dir); err != nil {
		return nil
	}

	boundary := dir
	if repoConfigPath != "" {
		boundary = filepath.Dir(filepath.Dir(repoConfigPath))
	}
	if resolved, err := filepath.EvalSymlinks(boundary); err == nil {
		boundary = resolved
	}

	var paths []string
	for {
		cfgPath := filepath.Join(dir, ".erpdesk", "config.json")
		if _, err := os.Stat(cfgPath); err == nil && cfgPath != repoConfigPath {
			paths = append(paths, cfgPath)
		}
		parent := filepath.Dir(dir)
		if parent == dir || dir == boundary {
			break
		}
		dir = parent
	}

	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}
	return paths
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "erpdesk")
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
