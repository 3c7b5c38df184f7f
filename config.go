package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	platform "github.com/ducbang/OpenNIC-Wizard/dns/platform"
)

const defaultConfigPath = "/etc/opennic/resolver.yaml"

// Config holds all configuration options for the resolver switcher
type Config struct {
	// Resolver files
	ResolvConf string `yaml:"resolvConf"`
	BackupPath string `yaml:"backupPath"`

	// Bootstrap overrides
	T1Bootstrap      string `yaml:"t1Bootstrap"`
	DomainsBootstrap string `yaml:"domainsBootstrap"`

	// Logging
	LogLevel string `yaml:"logLevel"`

	// API server
	EnableAPI  bool   `yaml:"enableApi"`
	HTTPAddr   string `yaml:"httpAddr"`
	SocketPath string `yaml:"socketPath"`

	// Simulate keeps every file in memory
	Simulate bool `yaml:"simulate"`

	// Servers is applied when the service starts
	Servers []string `yaml:"servers"`

	// Source tracking (not in YAML)
	sources    map[string]string
	configPath string
}

// ConfigSource tracks where each config value came from
type ConfigSource string

const (
	SourceDefault ConfigSource = "default"
	SourceFile    ConfigSource = "file"
	SourceEnv     ConfigSource = "environment"
	SourceCLI     ConfigSource = "cli"
)

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	config := &Config{
		ResolvConf: "/etc/resolv.conf",
		BackupPath: "/var/resolv.conf.bak",
		LogLevel:   "INFO",
		SocketPath: "/var/run/opennic-resolver.sock",
		sources:    make(map[string]string),
		configPath: defaultConfigPath,
	}

	for _, key := range []string{"resolvConf", "backupPath", "logLevel", "enableApi", "socketPath", "simulate"} {
		config.sources[key] = string(SourceDefault)
	}

	return config
}

// BindFlags registers the configuration flags on flags. Defaults shown in the
// help text are the built-in ones; only flags that were set override the
// file and environment.
func BindFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()

	flags.String("config", "", "Path to the YAML config file (default "+defaultConfigPath+")")
	flags.String("resolv-conf", defaults.ResolvConf, "Resolver configuration file to manage")
	flags.String("backup", defaults.BackupPath, "Where the resolver configuration is saved at startup")
	flags.String("t1-bootstrap", "", "Path to the T1 bootstrap file")
	flags.String("domains-bootstrap", "", "Path to the domains bootstrap file")
	flags.String("log-level", defaults.LogLevel, "Log level (DEBUG, INFO, WARN, ERROR, FATAL)")
	flags.Bool("enable-api", false, "Enable the control API")
	flags.String("http-addr", "", "Serve the control API on this TCP address instead of the socket")
	flags.String("socket", defaults.SocketPath, "Unix socket or named pipe for the control API")
	flags.Bool("simulate", false, "Keep all resolver files in memory instead of touching the system")
	flags.StringSlice("server", nil, "Resolver to apply at startup, may be repeated")
}

// LoadConfig loads configuration from file, env vars, and flags
// Priority: flags > Env vars > Config file > Defaults
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	config := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		config.configPath = path
	}
	if flags != nil && flags.Changed("config") {
		path, err := flags.GetString("config")
		if err != nil {
			return nil, err
		}
		config.configPath = path
	}

	fileConfig, err := loadConfigFromFile(config.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if fileConfig != nil {
		mergeConfigs(config, fileConfig)
	}

	if err := loadConfigFromEnv(config); err != nil {
		return nil, err
	}

	if flags != nil {
		if err := loadConfigFromFlags(config, flags); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// loadConfigFromFile loads configuration from the YAML config file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // File doesn't exist, not an error
		}
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// loadConfigFromEnv loads configuration from environment variables
func loadConfigFromEnv(config *Config) error {
	setString := func(env, key string, dst *string) {
		if val := os.Getenv(env); val != "" {
			*dst = val
			config.sources[key] = string(SourceEnv)
		}
	}

	setString(platform.T1BootstrapVariable, "t1Bootstrap", &config.T1Bootstrap)
	setString(platform.DomainsBootstrapVariable, "domainsBootstrap", &config.DomainsBootstrap)
	setString("OPENNIC_RESOLV_CONF", "resolvConf", &config.ResolvConf)
	setString("OPENNIC_BACKUP", "backupPath", &config.BackupPath)
	setString("OPENNIC_LOG_LEVEL", "logLevel", &config.LogLevel)
	setString("OPENNIC_HTTP_ADDR", "httpAddr", &config.HTTPAddr)
	setString("OPENNIC_SOCKET", "socketPath", &config.SocketPath)

	if val := os.Getenv("OPENNIC_ENABLE_API"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid OPENNIC_ENABLE_API value %q: %w", val, err)
		}
		config.EnableAPI = enabled
		config.sources["enableApi"] = string(SourceEnv)
	}

	return nil
}

// loadConfigFromFlags applies every flag the user set explicitly
func loadConfigFromFlags(config *Config, flags *pflag.FlagSet) error {
	stringFlags := map[string]struct {
		key string
		dst *string
	}{
		"resolv-conf":       {"resolvConf", &config.ResolvConf},
		"backup":            {"backupPath", &config.BackupPath},
		"t1-bootstrap":      {"t1Bootstrap", &config.T1Bootstrap},
		"domains-bootstrap": {"domainsBootstrap", &config.DomainsBootstrap},
		"log-level":         {"logLevel", &config.LogLevel},
		"http-addr":         {"httpAddr", &config.HTTPAddr},
		"socket":            {"socketPath", &config.SocketPath},
	}
	for name, target := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		val, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*target.dst = val
		config.sources[target.key] = string(SourceCLI)
	}

	boolFlags := map[string]struct {
		key string
		dst *bool
	}{
		"enable-api": {"enableApi", &config.EnableAPI},
		"simulate":   {"simulate", &config.Simulate},
	}
	for name, target := range boolFlags {
		if !flags.Changed(name) {
			continue
		}
		val, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*target.dst = val
		config.sources[target.key] = string(SourceCLI)
	}

	if flags.Changed("server") {
		servers, err := flags.GetStringSlice("server")
		if err != nil {
			return err
		}
		config.Servers = servers
		config.sources["servers"] = string(SourceCLI)
	}

	return nil
}

// mergeConfigs merges source config into destination (only non-empty values)
// Also tracks that these values came from a file
func mergeConfigs(dest, src *Config) {
	mergeString := func(key, val string, dst *string) {
		if val != "" {
			*dst = val
			dest.sources[key] = string(SourceFile)
		}
	}

	mergeString("resolvConf", src.ResolvConf, &dest.ResolvConf)
	mergeString("backupPath", src.BackupPath, &dest.BackupPath)
	mergeString("t1Bootstrap", src.T1Bootstrap, &dest.T1Bootstrap)
	mergeString("domainsBootstrap", src.DomainsBootstrap, &dest.DomainsBootstrap)
	mergeString("logLevel", src.LogLevel, &dest.LogLevel)
	mergeString("httpAddr", src.HTTPAddr, &dest.HTTPAddr)
	mergeString("socketPath", src.SocketPath, &dest.SocketPath)

	// For booleans, we always take the source value if explicitly set
	if src.EnableAPI {
		dest.EnableAPI = true
		dest.sources["enableApi"] = string(SourceFile)
	}
	if src.Simulate {
		dest.Simulate = true
		dest.sources["simulate"] = string(SourceFile)
	}
	if len(src.Servers) > 0 {
		dest.Servers = append([]string(nil), src.Servers...)
		dest.sources["servers"] = string(SourceFile)
	}
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.ResolvConf == "" {
		result = multierror.Append(result, errors.New("resolv-conf must not be empty"))
	}
	if c.BackupPath == "" {
		result = multierror.Append(result, errors.New("backup must not be empty"))
	}
	if c.ResolvConf != "" && c.ResolvConf == c.BackupPath {
		result = multierror.Append(result, fmt.Errorf("backup must differ from resolv-conf (%s)", c.ResolvConf))
	}

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "FATAL":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown log level %q", c.LogLevel))
	}

	if c.EnableAPI && c.HTTPAddr == "" && c.SocketPath == "" {
		result = multierror.Append(result, errors.New("enable-api requires http-addr or socket"))
	}

	for i, server := range c.Servers {
		if strings.TrimSpace(server) == "" {
			result = multierror.Append(result, fmt.Errorf("server %d is empty", i+1))
			continue
		}
		if _, err := platform.ParseAddress(server); err != nil {
			result = multierror.Append(result, fmt.Errorf("server %d: %w", i+1, err))
		}
	}

	return result.ErrorOrNil()
}

// BootstrapOverrides returns the bootstrap paths keyed by their environment variable
func (c *Config) BootstrapOverrides() map[string]string {
	overrides := make(map[string]string)
	if c.T1Bootstrap != "" {
		overrides[platform.T1BootstrapVariable] = c.T1Bootstrap
	}
	if c.DomainsBootstrap != "" {
		overrides[platform.DomainsBootstrapVariable] = c.DomainsBootstrap
	}
	return overrides
}

// Source returns where the value for key came from
func (c *Config) Source(key string) ConfigSource {
	if source, ok := c.sources[key]; ok {
		return ConfigSource(source)
	}
	return SourceDefault
}

// ShowConfig prints the configuration and the source of each value
func (c *Config) ShowConfig(w io.Writer) {
	fmt.Fprintln(w, "\n=== Resolver Switcher Configuration ===")
	fmt.Fprintf(w, "Config File: %s\n", c.configPath)

	if _, err := os.Stat(c.configPath); err == nil {
		fmt.Fprintln(w, "Config File Status: exists")
	} else {
		fmt.Fprintln(w, "Config File Status: not found")
	}

	formatValue := func(value string) string {
		if value == "" {
			return "(not set)"
		}
		return value
	}

	fmt.Fprintln(w, "\n--- Configuration Values ---")
	fmt.Fprintln(w, "(Format: Setting = Value [source])")

	fmt.Fprintln(w, "\nResolver files:")
	fmt.Fprintf(w, "  resolv-conf       = %s [%s]\n", formatValue(c.ResolvConf), c.Source("resolvConf"))
	fmt.Fprintf(w, "  backup            = %s [%s]\n", formatValue(c.BackupPath), c.Source("backupPath"))
	fmt.Fprintf(w, "  simulate          = %v [%s]\n", c.Simulate, c.Source("simulate"))

	fmt.Fprintln(w, "\nBootstrap:")
	fmt.Fprintf(w, "  t1-bootstrap      = %s [%s]\n", formatValue(c.T1Bootstrap), c.Source("t1Bootstrap"))
	fmt.Fprintf(w, "  domains-bootstrap = %s [%s]\n", formatValue(c.DomainsBootstrap), c.Source("domainsBootstrap"))

	fmt.Fprintln(w, "\nLogging:")
	fmt.Fprintf(w, "  log-level         = %s [%s]\n", c.LogLevel, c.Source("logLevel"))

	fmt.Fprintln(w, "\nAPI:")
	fmt.Fprintf(w, "  enable-api        = %v [%s]\n", c.EnableAPI, c.Source("enableApi"))
	fmt.Fprintf(w, "  http-addr         = %s [%s]\n", formatValue(c.HTTPAddr), c.Source("httpAddr"))
	fmt.Fprintf(w, "  socket            = %s [%s]\n", formatValue(c.SocketPath), c.Source("socketPath"))

	fmt.Fprintln(w, "\nStartup resolvers:")
	fmt.Fprintf(w, "  server            = %s [%s]\n", formatValue(strings.Join(c.Servers, ", ")), c.Source("servers"))

	fmt.Fprintln(w, "\n--- Source Legend ---")
	fmt.Fprintln(w, "  default     = Built-in default value")
	fmt.Fprintln(w, "  file        = Loaded from config file")
	fmt.Fprintln(w, "  environment = Set via environment variable")
	fmt.Fprintln(w, "  cli         = Provided as command-line argument")
	fmt.Fprintln(w, "\nPriority: cli > environment > file > default")
	fmt.Fprintln(w)
}
