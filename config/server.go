package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrNoPackage is returned when the preview server has no package to serve.
var ErrNoPackage = errors.New("no asset package configured (set ARS_SERVER_ASSET_PACKAGE)")

// ServerEnvPrefix prefixes every preview server environment variable.
const ServerEnvPrefix = "ARS_SERVER"

// DefaultServerPort is the preview server port when none is configured.
const DefaultServerPort = 8000

// ServerConfig configures the preview server.
//
// Environment variables: ARS_SERVER_HOST, ARS_SERVER_PORT,
// ARS_SERVER_ADDRESS, ARS_SERVER_PUBLIC_URL, ARS_SERVER_ASSET_PACKAGE.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Address      string `mapstructure:"address"`
	PublicURL    string `mapstructure:"public_url"`
	AssetPackage string `mapstructure:"asset_package"`
}

// LoadServer reads the preview server configuration from the environment.
// envFiles are loaded first with godotenv; missing files are ignored and
// variables already set in the environment win.
// packagePath, when not empty, overrides ARS_SERVER_ASSET_PACKAGE.
func LoadServer(packagePath string, envFiles ...string) (*ServerConfig, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(ServerEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", DefaultServerPort)
	for _, key := range []string{"address", "public_url", "asset_package"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal server config: %w", err)
	}
	if packagePath != "" {
		cfg.AssetPackage = packagePath
	}

	if cfg.Address == "" {
		cfg.Address = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://" + cfg.Address
	}
	if cfg.AssetPackage == "" {
		return nil, ErrNoPackage
	}
	return &cfg, nil
}
