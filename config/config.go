package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// MinSigningSecretLen is the minimum accepted length, in bytes, for the JWT
// signing secret. Anything shorter is a startup failure.
const MinSigningSecretLen = 32

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
		RoutePrefix string        `mapstructure:"routePrefix"`
	} `mapstructure:"server"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Auth AuthConfig `mapstructure:"auth"`
}

type AuthConfig struct {
	SigningSecret  string        `mapstructure:"signingSecret"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	TokenTTL       time.Duration `mapstructure:"tokenTTL"`
	PasswordSecret string        `mapstructure:"passwordSecret"`
	PasswordScheme string        `mapstructure:"passwordScheme"`
	Bootstrap      struct {
		Username string `mapstructure:"username"`
		Email    string `mapstructure:"email"`
		Password string `mapstructure:"password"`
	} `mapstructure:"bootstrap"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets come from the environment in deployed setups, e.g.
	// USERMGMT_AUTH_SIGNINGSECRET overrides auth.signingSecret.
	v.SetEnvPrefix("USERMGMT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err = config.Auth.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate enforces the startup-time secret requirements. A short signing
// secret or a missing password secret is a configuration fault, not a
// per-request condition.
func (c AuthConfig) Validate() error {
	if len(c.SigningSecret) < MinSigningSecretLen {
		return fmt.Errorf("auth.signingSecret must be at least %d bytes, got %d", MinSigningSecretLen, len(c.SigningSecret))
	}
	if c.PasswordSecret == "" {
		return fmt.Errorf("auth.passwordSecret must not be empty")
	}
	switch c.PasswordScheme {
	case "", "hmac", "bcrypt":
	default:
		return fmt.Errorf("auth.passwordScheme must be hmac or bcrypt, got %q", c.PasswordScheme)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.tokenTTL must be positive, got %s", c.TokenTTL)
	}
	return nil
}
