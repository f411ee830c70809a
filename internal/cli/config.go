package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfigFile is the on-disk shape of a simulation run's parameters
// (§6.2's simulate flags), loaded via --config. Flags explicitly set on
// the command line override the matching field here; an unset flag
// falls back to whatever the file specifies, or the flag's own default
// if there is no config file at all.
type RunConfigFile struct {
	Ticks   int    `yaml:"ticks"`
	Agents  int    `yaml:"agents"`
	K       int    `yaml:"k"`
	Ranking string `yaml:"ranking"`
	Seed    int64  `yaml:"seed"`
}

func loadRunConfigFile(path string) (*RunConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	var cfg RunConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return &cfg, nil
}
