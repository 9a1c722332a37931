package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/solatis/pickerkt/internal/picker"
)

// ErrSecretInConfig rejects signing secrets found in a config file.
var ErrSecretInConfig = errors.New("signing secrets not allowed in config files (use PICKERKT_SIGNING_SECRET environment variable)")

var validate = validator.New()

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"host":      "server.host",
	"port":      "server.port",
	"http-port": "server.http_port",
}

// LoadConfig loads configuration using viper with
// CLI flags > environment > config file > defaults precedence.
// flags may be nil; only flags named in flagKeys are bound.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*ServiceConfig, error) {
	v := viper.New()

	def := DefaultServiceConfig()
	v.SetDefault("server.host", def.Host)
	v.SetDefault("server.port", def.Port)
	v.SetDefault("server.http_port", def.HTTPPort)
	v.SetDefault("server.request_timeout", def.RequestTimeout.String())
	v.SetDefault("server.shutdown_timeout", def.ShutdownTimeout.String())
	v.SetDefault("server.max_page_size", def.MaxPageSize)
	v.SetDefault("server.require_signed_tokens", def.RequireSignedTokens)

	// PICKERKT_SERVER_PORT overrides server.port.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &ServiceConfig{
		Host:                v.GetString("server.host"),
		Port:                v.GetInt("server.port"),
		HTTPPort:            v.GetInt("server.http_port"),
		RequestTimeout:      v.GetDuration("server.request_timeout"),
		ShutdownTimeout:     v.GetDuration("server.shutdown_timeout"),
		MaxPageSize:         v.GetInt("server.max_page_size"),
		RequireSignedTokens: v.GetBool("server.require_signed_tokens"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("signing_secret") || v.InConfig("server.signing_secret") {
		return ErrSecretInConfig
	}
	return nil
}

// LoadPickerSpec reads a picker file (YAML, JSON or TOML by extension) into
// a picker.Spec. Unknown keys are rejected.
func LoadPickerSpec(path string) (picker.Spec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return picker.Spec{}, fmt.Errorf("failed to read picker file: %w", err)
	}
	return picker.DecodeSpec(v.AllSettings())
}
