package configuration

import (
	"os"

	"gopkg.in/yaml.v3"
)

// SecurityConfig curve key material in Z85 form
type SecurityConfig struct {
	ServerPrivateKey string `yaml:"serverPrivateKey,omitempty"`
	ServerPublicKey  string `yaml:"serverPublicKey,omitempty"`
	ClientPrivateKey string `yaml:"clientPrivateKey,omitempty"`
	ClientPublicKey  string `yaml:"clientPublicKey,omitempty"`
}

// PublisherConfig publisher endpoint settings
type PublisherConfig struct {
	Host      string         `yaml:"host"`
	Port      int            `yaml:"port"`
	Transport string         `yaml:"transport"` // tcp or ws
	Security  SecurityConfig `yaml:"security,omitempty"`
}

// HealthConfig health/metrics endpoint settings
type HealthConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Config service configuration
type Config struct {
	Publisher PublisherConfig `yaml:"publisher"`
	Health    HealthConfig    `yaml:"health"`
	Topics    []string        `yaml:"topics"`
}

// DefaultConfig minimum working configuration allowing a daemon to start
// without a user provided one
func DefaultConfig() *Config {
	c := Config{}
	if err := yaml.Unmarshal(defaultConfig, &c); err != nil {
		panic(err.Error())
	}

	return &c
}

// ReadConfig read service configuration from the file named by the
// --config flag or WIREBUS_CONFIG, falling back to defaults
func ReadConfig(path string) *Config {
	log := GetHumanLogger()

	c := DefaultConfig()

	if path == "" {
		path = configFile
	}

	if path == "" {
		log.Info("no config file provided, using defaults\n", string(defaultConfig))
		return c
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("couldn't read config file ", path, ": ", err.Error())
		return nil
	}

	if err = yaml.Unmarshal(data, c); err != nil {
		log.Error("couldn't parse config file ", path, ": ", err.Error())
		return nil
	}

	return c
}
