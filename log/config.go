package log

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is read from the file given by --log-config.
//
// Example:
//
//	defaultLevel: info
//	filters:
//	  - "debug:grid.*"
//	  - "debug,info:collaborator"
type Config struct {
	DefaultLevel string   `yaml:"defaultLevel"`
	Filters      []string `yaml:"filters"`
}

func LoadConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read log config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse log config: %w", err)
	}
	return &cfg, nil
}

// Rules joins the filters into a zapfilter rule string.
// An empty filter list accepts everything.
func (c *Config) Rules() string {
	if len(c.Filters) == 0 {
		return "*:*"
	}
	return strings.Join(c.Filters, " ")
}

// Apply returns l with the configured filter rules
func (c *Config) Apply(l *Logger) (*Logger, error) {
	return l.WithFilter(c.Rules())
}
