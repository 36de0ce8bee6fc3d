package config

import (
	"clipwatch/logger"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CLIPWATCH_PROXY_PORT.
const EnvPrefix = "CLIPWATCH"

type DefaultPaths struct {
	ConfigDir    string
	LogPathApp   string
	LogPathProxy string
	CACertPath   string
	CAKeyPath    string
	DBPath       string
	LogLevel     string
}

type Configuration struct {
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Server struct {
		Port    string `mapstructure:"port"`
		LogPath string `mapstructure:"log_path"`
	} `mapstructure:"server"`
	Proxy struct {
		Port         string `mapstructure:"port"`
		CACertPath   string `mapstructure:"ca_cert_path"`
		CAKeyPath    string `mapstructure:"ca_key_path"`
		LogPath      string `mapstructure:"log_path"`
		MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
		TabHeader    string `mapstructure:"tab_header"`
	} `mapstructure:"proxy"`
	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
	Dispatch struct {
		Workers int `mapstructure:"workers"`
	} `mapstructure:"dispatch"`
	Clipboard struct {
		EnableHelper    bool `mapstructure:"enable_helper"`
		EnableSystem    bool `mapstructure:"enable_system"`
		EnablePageRelay bool `mapstructure:"enable_page_relay"`
	} `mapstructure:"clipboard"`
	Notify struct {
		Retries    uint          `mapstructure:"retries"`
		RetryDelay time.Duration `mapstructure:"retry_delay"`
	} `mapstructure:"notify"`
	Matching struct {
		RegexTimeout time.Duration `mapstructure:"regex_timeout"`
	} `mapstructure:"matching"`
}

var AppConfig Configuration

func expandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// ExpandTilde resolves a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	expanded, err := expandTilde(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in '%s': %v. Using original path.\n", path, err)
		return path
	}
	return expanded
}

func GetDefaultConfigPaths() DefaultPaths {
	var paths DefaultPaths
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not get user config dir: %v. Using current directory.\n", err)
		userConfigDir = "."
	}

	paths.ConfigDir = filepath.Join(userConfigDir, "clipwatch")
	logDir := filepath.Join(paths.ConfigDir, "logs")

	paths.LogPathApp = filepath.Join(logDir, "app.log")
	paths.LogPathProxy = filepath.Join(logDir, "proxy.log")
	paths.CACertPath = filepath.Join(paths.ConfigDir, "clipwatch-ca.crt")
	paths.CAKeyPath = filepath.Join(paths.ConfigDir, "clipwatch-ca.key")
	paths.DBPath = filepath.Join(paths.ConfigDir, "clipwatch.db")
	paths.LogLevel = "INFO"
	return paths
}

func setDefaults(v *viper.Viper, defaults DefaultPaths) {
	v.SetDefault("database.path", defaults.DBPath)
	v.SetDefault("server.port", "8778")
	v.SetDefault("server.log_path", defaults.LogPathApp)
	v.SetDefault("proxy.port", "8777")
	v.SetDefault("proxy.ca_cert_path", defaults.CACertPath)
	v.SetDefault("proxy.ca_key_path", defaults.CAKeyPath)
	v.SetDefault("proxy.log_path", defaults.LogPathProxy)
	v.SetDefault("proxy.max_body_bytes", 1<<20)
	v.SetDefault("proxy.tab_header", "X-Clipwatch-Tab")
	v.SetDefault("logging.level", defaults.LogLevel)
	v.SetDefault("dispatch.workers", 8)
	v.SetDefault("clipboard.enable_helper", true)
	v.SetDefault("clipboard.enable_system", true)
	v.SetDefault("clipboard.enable_page_relay", true)
	v.SetDefault("notify.retries", 3)
	v.SetDefault("notify.retry_delay", time.Second)
	v.SetDefault("matching.regex_timeout", 250*time.Millisecond)
}

// Load reads configuration from defaults, the config file and the environment
// into a Configuration without touching global state.
func Load(cfgFile string) (Configuration, string, error) {
	var cfg Configuration

	// A missing .env is the normal case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	v := viper.New()
	defaults := GetDefaultConfigPaths()
	setDefaults(v, defaults)

	if cfgFile != "" {
		v.SetConfigFile(ExpandTilde(cfgFile))
		v.SetConfigType("yaml")
	} else {
		v.AddConfigPath(defaults.ConfigDir)
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configUsedMsg := "Using default/environment configuration."
	if err := v.ReadInConfig(); err == nil {
		configUsedMsg = fmt.Sprintf("Using config file: %s", v.ConfigFileUsed())
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			if cfgFile != "" {
				return cfg, "", fmt.Errorf("reading config file %s: %w", cfgFile, err)
			}
			fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, "", fmt.Errorf("unable to decode config into struct: %w", err)
	}

	cfg.Database.Path = ExpandTilde(cfg.Database.Path)
	cfg.Server.LogPath = ExpandTilde(cfg.Server.LogPath)
	cfg.Proxy.LogPath = ExpandTilde(cfg.Proxy.LogPath)
	cfg.Proxy.CACertPath = ExpandTilde(cfg.Proxy.CACertPath)
	cfg.Proxy.CAKeyPath = ExpandTilde(cfg.Proxy.CAKeyPath)
	return cfg, configUsedMsg, nil
}

// Init loads the configuration into AppConfig, applies flag overrides and
// (re)initializes the loggers.
func Init(cfgFile string, flagAppLogPath, flagProxyLogPath, flagLogLevel string) error {
	cfg, configUsedMsg, err := Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: %v\n", err)
		return err
	}
	AppConfig = cfg

	if flagAppLogPath != "" {
		AppConfig.Server.LogPath = ExpandTilde(flagAppLogPath)
	}
	if flagProxyLogPath != "" {
		AppConfig.Proxy.LogPath = ExpandTilde(flagProxyLogPath)
	}
	if flagLogLevel != "" {
		AppConfig.Logging.Level = strings.ToUpper(flagLogLevel)
	}

	if err := os.MkdirAll(GetDefaultConfigPaths().ConfigDir, 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not create main config directory: %v\n", err)
	}

	if err := logger.InitGlobalLoggers(AppConfig.Server.LogPath, AppConfig.Proxy.LogPath, AppConfig.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to initialize global loggers with final config: %v\n", err)
		return fmt.Errorf("failed to initialize global loggers with final config: %w", err)
	}

	logger.Info(configUsedMsg)
	if flagAppLogPath != "" || flagProxyLogPath != "" || flagLogLevel != "" {
		logger.Info("Log path/level flags may have overridden config file/defaults.")
	}
	if !AppConfig.Clipboard.EnableHelper && !AppConfig.Clipboard.EnableSystem && !AppConfig.Clipboard.EnablePageRelay {
		logger.Warn("All clipboard tiers are disabled; auto-copy will always fail.")
	}
	logger.Debug("Final AppConfig Initialized: %+v", AppConfig)
	return nil
}
