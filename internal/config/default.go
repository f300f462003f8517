package config

import (
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration, matching the viper defaults.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:     "postgres",
			SQLitePath: "tips.db",
			Pool:       PoolConfig{MaxConns: 10, MinConns: 2},
		},
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
			RateRPS:     10,
			RateBurst:   20,
		},
		Site: SiteConfig{Timezone: "Europe/Lisbon"},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

// WriteDefault writes the default configuration as YAML, used by the
// `config init` command to scaffold a config.yaml.
func WriteDefault(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Default()); err != nil {
		return eris.Wrap(err, "config: encode defaults")
	}
	return eris.Wrap(enc.Close(), "config: close encoder")
}
