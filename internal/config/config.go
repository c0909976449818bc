// Package config resolves runtime settings from, in increasing precedence:
// built-in defaults, a YAML config file, a .env file and the process
// environment, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/jshclinic/aichart/internal/chart"
	"github.com/jshclinic/aichart/internal/platform"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix       = "AICHART"
	defaultProvider = "gemini"
	logFileName     = "charts.csv"
	journalFileName = "encounters.jsonl"
)

// providerKeyEnv is consulted when no AICHART_API_KEY is set, so keys issued
// for a provider's own tooling work unchanged.
var providerKeyEnv = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"provider":     "provider",
	"model":        "model",
	"template":     "template",
	"api-key":      "api_key",
	"log-file":     "log_file",
	"journal-file": "journal_file",
	"staging-dir":  "staging_dir",
	"timeout":      "timeout",
}

type Config struct {
	Provider    string
	Model       string
	Template    string
	APIKey      string
	LogFile     string
	JournalFile string
	StagingDir  string
	Timeout     time.Duration
	// ConfigFile is the file that was read, if any.
	ConfigFile string
}

type LoadOptions struct {
	// ConfigFile is an explicit config path; it must exist when set.
	ConfigFile string
	// EnvFile is an optional dotenv file. Empty means ".env".
	EnvFile string
	Flags   *pflag.FlagSet
	// DataDir overrides the platform data directory for default paths.
	DataDir string
}

func Load(opts LoadOptions) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("provider", defaultProvider)
	v.SetDefault("model", "")
	v.SetDefault("template", chart.DefaultTemplateName)
	v.SetDefault("api_key", "")
	v.SetDefault("log_file", "")
	v.SetDefault("journal_file", "")
	v.SetDefault("staging_dir", "")
	v.SetDefault("timeout", time.Duration(0))

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return Config{}, err
	}

	if opts.Flags != nil {
		for flagName, key := range flagKeys {
			flag := opts.Flags.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", flagName, err)
			}
		}
	}

	cfg := Config{
		Provider:    strings.ToLower(strings.TrimSpace(v.GetString("provider"))),
		Model:       strings.TrimSpace(v.GetString("model")),
		Template:    strings.ToLower(strings.TrimSpace(v.GetString("template"))),
		APIKey:      strings.TrimSpace(v.GetString("api_key")),
		LogFile:     strings.TrimSpace(v.GetString("log_file")),
		JournalFile: strings.TrimSpace(v.GetString("journal_file")),
		StagingDir:  strings.TrimSpace(v.GetString("staging_dir")),
		Timeout:     v.GetDuration("timeout"),
		ConfigFile:  v.ConfigFileUsed(),
	}

	if cfg.APIKey == "" {
		if name, ok := providerKeyEnv[cfg.Provider]; ok {
			cfg.APIKey = strings.TrimSpace(os.Getenv(name))
		}
	}

	if err := cfg.applyDefaultPaths(opts.DataDir); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late, mid-encounter.
// A missing API key is not an error here; it is reported per submission.
func (c Config) Validate() error {
	if _, ok := providerKeyEnv[c.Provider]; !ok {
		return fmt.Errorf("unknown provider %q (available: gemini, openai)", c.Provider)
	}
	if _, err := chart.LookupTemplate(c.Template); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

func (c *Config) applyDefaultPaths(dataDir string) error {
	if c.LogFile != "" && c.JournalFile != "" {
		return nil
	}

	if dataDir == "" {
		resolved, err := platform.ResolveDataDir()
		if err != nil {
			return err
		}
		dataDir = resolved
	}

	if c.LogFile == "" {
		c.LogFile = filepath.Join(dataDir, logFileName)
	}
	if c.JournalFile == "" {
		c.JournalFile = filepath.Join(dataDir, journalFileName)
	}
	return nil
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

func readConfigFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", explicit, err)
		}
		return nil
	}

	dir, err := platform.ResolveConfigDir()
	if err != nil {
		// Without a home directory there is nothing to search.
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
