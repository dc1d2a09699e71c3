package cli

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/akhdanfadh/urlkeep/internal/extstore"
)

const appName = "urlkeep"

// Config holds the settings shared by every command.
type Config struct {
	RawDir            string `yaml:"raw_dir"`
	ProcessedDir      string `yaml:"processed_dir"`
	DiagnosticsDir    string `yaml:"diagnostics_dir"`
	DBPath            string `yaml:"db_path"`
	Timezone          string `yaml:"timezone"`
	ChromeOneTabDir   string `yaml:"chrome_onetab_dir"`
	FirefoxOneTabFile string `yaml:"firefox_onetab_file"`
	ListenAddr        string `yaml:"listen_addr"`

	Verbose bool `yaml:"-"`
}

// setting binds one string Config field to its flag and environment variable.
type setting struct {
	flag  string
	env   string
	usage string
	field func(*Config) *string
}

// NOTE: Precedence is defaults < config file < environment (.env included) < flags.

var settings = []setting{
	{"raw-dir", "URLKEEP_RAW_DIR", "Directory of raw exports", func(c *Config) *string { return &c.RawDir }},
	{"processed-dir", "URLKEEP_PROCESSED_DIR", "Directory of canonical trees", func(c *Config) *string { return &c.ProcessedDir }},
	{"diagnostics-dir", "URLKEEP_DIAGNOSTICS_DIR", "Directory for recovery diagnostics", func(c *Config) *string { return &c.DiagnosticsDir }},
	{"db", "URLKEEP_DB_PATH", "SQLite database path", func(c *Config) *string { return &c.DBPath }},
	{"timezone", "URLKEEP_TIMEZONE", "IANA zone for date_added values (default local)", func(c *Config) *string { return &c.Timezone }},
	{"chrome-dir", "URLKEEP_CHROME_ONETAB_DIR", "OneTab LevelDB directory in the Chrome profile", func(c *Config) *string { return &c.ChromeOneTabDir }},
	{"firefox-file", "URLKEEP_FIREFOX_ONETAB_FILE", "OneTab storage JSON file from the Firefox profile", func(c *Config) *string { return &c.FirefoxOneTabFile }},
	{"addr", "URLKEEP_LISTEN_ADDR", "HTTP listen address", func(c *Config) *string { return &c.ListenAddr }},
}

// defaultConfig returns the built-in settings.
func defaultConfig() *Config {
	data := getDefaultDataDir()
	return &Config{
		RawDir:          filepath.Join(data, "raw"),
		ProcessedDir:    filepath.Join(data, "processed"),
		DiagnosticsDir:  filepath.Join(data, "diagnostics"),
		DBPath:          filepath.Join(data, appName+".db"),
		ChromeOneTabDir: getDefaultChromeOneTabDir(),
		ListenAddr:      "127.0.0.1:8080",
	}
}

// getDefaultDataDir returns the default data directory following platform conventions.
// Falls back to the working directory if home directory cannot be determined.
func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appName)
	}
	return appName
}

// getDefaultConfigPath returns the default config file path.
// Returns empty string if home directory cannot be determined.
func getDefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", appName, "config.yaml")
	}
	return ""
}

// getDefaultChromeOneTabDir returns the OneTab extension storage of the
// default Chrome profile. Returns empty string if home directory cannot be
// determined.
func getDefaultChromeOneTabDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	var profile string
	switch runtime.GOOS {
	case "darwin":
		profile = filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default")
	case "windows":
		profile = filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data", "Default")
	default:
		profile = filepath.Join(home, ".config", "google-chrome", "Default")
	}
	return filepath.Join(profile, "Local Extension Settings", extstore.OneTabExtensionID)
}

// LoadConfigFile reads a YAML config file over cfg. Keys absent from the file
// keep their current values and unknown keys are rejected.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg with every non-empty URLKEEP_* variable.
func (c *Config) applyEnv(getenv func(string) string) {
	for _, s := range settings {
		if v := getenv(s.env); v != "" {
			*s.field(c) = v
		}
	}
}

// Location resolves the configured timezone. Empty or "Local" means the
// system zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// configFlags registers the shared flags on fs. Call resolve after fs.Parse
// to build the final Config.
type configFlags struct {
	fs         *flag.FlagSet
	configPath *string
	verbose    *bool
	values     map[string]*string
}

func newConfigFlags(fs *flag.FlagSet) *configFlags {
	cf := &configFlags{fs: fs, values: map[string]*string{}}

	// NOTE: go flag package does not support alias natively.
	// - https://github.com/golang/go/issues/35761
	cf.configPath = fs.String("config", "", "Config file path (default $XDG_CONFIG_HOME/urlkeep/config.yaml)")
	cf.verbose = fs.Bool("verbose", false, "Enable verbose logging")
	fs.BoolVar(cf.verbose, "v", false, "alias for -verbose")

	defaults := defaultConfig()
	for _, s := range settings {
		cf.values[s.flag] = fs.String(s.flag, *s.field(defaults), s.usage+" (env "+s.env+")")
	}
	return cf
}

// resolve layers defaults, the config file, the environment and the flags
// that were set explicitly.
func (cf *configFlags) resolve(getenv func(string) string) (*Config, error) {
	// .env only fills variables that are not already set
	_ = godotenv.Load()

	cfg := defaultConfig()

	path, explicit := *cf.configPath, *cf.configPath != ""
	if !explicit {
		if path = getenv("URLKEEP_CONFIG"); path != "" {
			explicit = true
		} else {
			path = getDefaultConfigPath()
		}
	}
	if path != "" {
		if err := LoadConfigFile(path, cfg); err != nil {
			// the default file is optional, an explicit one is not
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("loading config: %w", err)
			}
		}
	}

	cfg.applyEnv(getenv)

	cf.fs.Visit(func(f *flag.Flag) {
		for _, s := range settings {
			if s.flag == f.Name {
				*s.field(cfg) = *cf.values[s.flag]
			}
		}
	})
	cfg.Verbose = *cf.verbose

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}
