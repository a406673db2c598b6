package main

import (
	"os"

	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ServerConfig defines the properties of a running daemon.
type ServerConfig struct {
	// Address and Port the NETCONF SSH server listens on.
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`

	// Credentials accepted by the SSH server.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// HostKeyFile holds a PEM encoded private key; a key is generated when empty.
	HostKeyFile string `yaml:"hostKeyFile"`

	// SchemaFile is the YAML schema description the datastores are typed by.
	SchemaFile string `yaml:"schemaFile"`

	// InitialConfig, when set, names an XML file merged into the running datastore at start up.
	InitialConfig string `yaml:"initialConfig"`

	// MetricsAddress is the listen address of the prometheus /metrics endpoint; disabled when empty.
	MetricsAddress string `yaml:"metricsAddress"`

	// Diagnostics enables the diagnostic trace hooks.
	Diagnostics bool `yaml:"diagnostics"`
}

// DefaultConfig holds the values used for anything left unset.
var DefaultConfig = &ServerConfig{
	Address:  "localhost",
	Port:     830,
	Username: "admin",
}

// LoadConfig reads the YAML file name, when given, overlays the non-zero fields of overrides
// and fills the remainder from DefaultConfig.
func LoadConfig(name string, overrides *ServerConfig) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if name != "" {
		b, err := os.ReadFile(name) // nolint: gosec
		if err != nil {
			return nil, errors.Wrap(err, "reading config")
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config %s", name)
		}
	}
	if overrides != nil {
		if err := mergo.Merge(cfg, overrides, mergo.WithOverride); err != nil {
			return nil, err
		}
	}
	if err := mergo.Merge(cfg, DefaultConfig); err != nil {
		return nil, err
	}
	if cfg.SchemaFile == "" {
		return nil, errors.New("no schema file configured")
	}
	if cfg.Password == "" {
		return nil, errors.New("no password configured")
	}
	return cfg, nil
}
