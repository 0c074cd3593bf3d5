package config

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.trai.ch/zerr"
)

// ConfigName is the base name of the configuration file looked up in the working directory
const ConfigName = "codai-impact-config"

// Config represents the structure of the configuration file
type Config struct {
	Version          string   `mapstructure:"version"`
	Theme            string   `mapstructure:"theme"`
	EnableCache      bool     `mapstructure:"enable_cache"`
	CacheDir         string   `mapstructure:"cache_dir"`
	MaxChangedFiles  int      `mapstructure:"max_changed_files"`
	SourceRoots      []string `mapstructure:"source_roots"`
	ScanWorkers      int      `mapstructure:"scan_workers"`
	ResumePointLimit int      `mapstructure:"resume_point_limit"`
	LogLevel         string   `mapstructure:"log_level"`
	LogFormat        string   `mapstructure:"log_format"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:          "1.0.0",
	Theme:            "dracula",
	EnableCache:      true,
	CacheDir:         ".cache/dependency_cache",
	MaxChangedFiles:  50,
	SourceRoots:      []string{"."},
	ScanWorkers:      0,
	ResumePointLimit: 25,
	LogLevel:         "warn",
	LogFormat:        "text",
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	v := viper.New()

	// Set default values using Viper
	setDefaults(v)

	// Environment variables use the IMPACT_ prefix, e.g. IMPACT_ENABLE_CACHE
	v.SetEnvPrefix("IMPACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "error reading config file"), "path", cfgFile)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(cwd)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, zerr.Wrap(err, "error reading config file")
			}
			// No configuration file, continue with defaults
		}
	}

	// Bind CLI flags to override config values
	if rootCmd != nil {
		bindFlags(v, rootCmd)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, zerr.Wrap(err, "unable to decode into struct")
	}

	if config.CacheDir != "" && !filepath.IsAbs(config.CacheDir) {
		config.CacheDir = filepath.Join(cwd, config.CacheDir)
	}

	return &config, nil
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", DefaultConfig.Version)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("enable_cache", DefaultConfig.EnableCache)
	v.SetDefault("cache_dir", DefaultConfig.CacheDir)
	v.SetDefault("max_changed_files", DefaultConfig.MaxChangedFiles)
	v.SetDefault("source_roots", DefaultConfig.SourceRoots)
	v.SetDefault("scan_workers", DefaultConfig.ScanWorkers)
	v.SetDefault("resume_point_limit", DefaultConfig.ResumePointLimit)
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("log_format", DefaultConfig.LogFormat)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("theme", "IMPACT_THEME")
	_ = v.BindEnv("enable_cache", "IMPACT_ENABLE_CACHE")
	_ = v.BindEnv("cache_dir", "IMPACT_CACHE_DIR")
	_ = v.BindEnv("max_changed_files", "IMPACT_MAX_CHANGED_FILES")
	_ = v.BindEnv("scan_workers", "IMPACT_SCAN_WORKERS")
	_ = v.BindEnv("log_level", "IMPACT_LOG_LEVEL")
	_ = v.BindEnv("log_format", "IMPACT_LOG_FORMAT")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	for key, flag := range map[string]string{
		"theme":             "theme",
		"enable_cache":      "enable_cache",
		"cache_dir":         "cache_dir",
		"max_changed_files": "max_changed_files",
		"source_roots":      "source_roots",
		"scan_workers":      "scan_workers",
		"log_level":         "log_level",
		"log_format":        "log_format",
	} {
		if f := flags.Lookup(flag); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set the chroma theme used to highlight markdown reports (e.g., 'dracula', 'monokai', 'github').")
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Enable or disable the dependency analysis cache")
	rootCmd.PersistentFlags().String("cache_dir", DefaultConfig.CacheDir, "Directory holding cached dependency analysis results")
	rootCmd.PersistentFlags().Int("max_changed_files", DefaultConfig.MaxChangedFiles, "Skip analysis when more source files than this have changed")
	rootCmd.PersistentFlags().StringSlice("source_roots", DefaultConfig.SourceRoots, "Project-relative directories imports are resolved against (e.g., '.,src')")
	rootCmd.PersistentFlags().Int("scan_workers", DefaultConfig.ScanWorkers, "Number of modules parsed concurrently during the reverse import scan (0 = number of CPUs)")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Log level: 'debug', 'info', 'warn' or 'error'")
	rootCmd.PersistentFlags().String("log_format", DefaultConfig.LogFormat, "Log format: 'text' or 'json'")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}
