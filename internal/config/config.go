// Package config provides configuration management for ucsm-ops.
//
// Configuration is loaded from, highest precedence first:
// 1. command-line flags
// 2. environment variables (UCSM_HOST, UCSM_USERNAME, UCSM_PASSWORD and
//    UCSM_<SECTION>_<KEY> for everything else)
// 3. the config file (ucsm-ops.yaml in . or /etc/ucsm-ops, or --config)
// 4. default values
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nanoncore/nano-ucsm/types"
)

// EnvPrefix is prepended to every environment variable
const EnvPrefix = "UCSM"

// Config is the root configuration structure
type Config struct {
	Controller ControllerConfig `mapstructure:"controller"`
	Faults     FaultsConfig     `mapstructure:"faults"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	// Profile is an optional provisioning profile YAML file
	Profile string `mapstructure:"profile"`
}

// ControllerConfig contains the UCS Manager endpoint and credentials
type ControllerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Protocol           string        `mapstructure:"protocol"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	TLS                bool          `mapstructure:"tls"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// FaultsConfig selects where fault severities are read from
type FaultsConfig struct {
	// Source is xmlapi, snmp or cli
	Source        string `mapstructure:"source"`
	SNMPVersion   string `mapstructure:"snmp_version"`
	SNMPCommunity string `mapstructure:"snmp_community"`
	SNMPPort      int    `mapstructure:"snmp_port"`
	CLIPort       int    `mapstructure:"cli_port"`
	CLIPrompt     string `mapstructure:"cli_prompt"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	// Textfile is written after each run when set
	Textfile string `mapstructure:"textfile"`
}

// flagKeys maps command-line flag names to configuration keys
var flagKeys = map[string]string{
	"host":             "controller.host",
	"port":             "controller.port",
	"protocol":         "controller.protocol",
	"username":         "controller.username",
	"password":         "controller.password",
	"tls":              "controller.tls",
	"insecure":         "controller.insecure_skip_verify",
	"timeout":          "controller.timeout",
	"fault-source":     "faults.source",
	"snmp-version":     "faults.snmp_version",
	"snmp-community":   "faults.snmp_community",
	"log-level":        "log.level",
	"log-development":  "log.development",
	"metrics-textfile": "metrics.textfile",
	"profile":          "profile",
}

// Load reads configuration. configFile may be empty to search the
// default locations; flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Short names for the values every deployment sets
	_ = v.BindEnv("controller.host", "UCSM_HOST", "UCSMHOST")
	_ = v.BindEnv("controller.username", "UCSM_USERNAME")
	_ = v.BindEnv("controller.password", "UCSM_PASSWORD")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("ucsm-ops")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ucsm-ops")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			// Config file is optional
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Controller
	v.SetDefault("controller.protocol", string(types.ProtocolXMLAPI))
	v.SetDefault("controller.port", 0)
	v.SetDefault("controller.tls", true)
	v.SetDefault("controller.insecure_skip_verify", false)
	v.SetDefault("controller.timeout", "30s")

	// Faults
	v.SetDefault("faults.source", string(types.ProtocolXMLAPI))
	v.SetDefault("faults.snmp_version", "2c")
	v.SetDefault("faults.snmp_community", "public")
	v.SetDefault("faults.snmp_port", 161)
	v.SetDefault("faults.cli_port", 22)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	switch types.Protocol(c.Controller.Protocol) {
	case types.ProtocolXMLAPI:
		if c.Controller.Host == "" {
			return fmt.Errorf("controller host is required (set UCSM_HOST or --host)")
		}
	case types.ProtocolMock:
	default:
		return fmt.Errorf("unsupported controller protocol %q", c.Controller.Protocol)
	}

	if c.Controller.Port < 0 || c.Controller.Port > 65535 {
		return fmt.Errorf("invalid controller port %d", c.Controller.Port)
	}
	if c.Controller.Timeout <= 0 {
		return fmt.Errorf("controller timeout must be positive, got %s", c.Controller.Timeout)
	}

	switch types.Protocol(c.Faults.Source) {
	case types.ProtocolXMLAPI, types.ProtocolSNMP, types.ProtocolCLI:
	default:
		return fmt.Errorf("unsupported fault source %q", c.Faults.Source)
	}
	return nil
}

// ControllerConfig returns the driver configuration for the controller
func (c *Config) ControllerConfig() *types.ControllerConfig {
	return &types.ControllerConfig{
		Name:          c.Controller.Host,
		Address:       c.Controller.Host,
		Port:          c.Controller.Port,
		Protocol:      types.Protocol(c.Controller.Protocol),
		Username:      c.Controller.Username,
		Password:      c.Controller.Password,
		TLSEnabled:    c.Controller.TLS,
		TLSSkipVerify: c.Controller.InsecureSkipVerify,
		Timeout:       c.Controller.Timeout,
	}
}

// FaultSourceConfig returns the driver configuration for the SNMP or CLI
// fault source
func (c *Config) FaultSourceConfig() *types.ControllerConfig {
	cfg := c.ControllerConfig()
	cfg.Protocol = types.Protocol(c.Faults.Source)
	cfg.Metadata = map[string]string{}

	switch cfg.Protocol {
	case types.ProtocolSNMP:
		cfg.Port = c.Faults.SNMPPort
		cfg.Metadata["snmp_version"] = c.Faults.SNMPVersion
		cfg.Metadata["snmp_community"] = c.Faults.SNMPCommunity
	case types.ProtocolCLI:
		cfg.Port = c.Faults.CLIPort
		if c.Faults.CLIPrompt != "" {
			cfg.Metadata["cli_prompt"] = c.Faults.CLIPrompt
		}
	}
	return cfg
}
