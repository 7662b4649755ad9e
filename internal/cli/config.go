package cli

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config is the resolved CLI configuration.
// Precedence (highest to lowest): flags > config file > defaults.
type Config struct {
	// Paths are the dataset files and directories to load.
	Paths []string `koanf:"paths"`
	// WikiLookup enables wiki title collection.
	WikiLookup bool `koanf:"wiki_lookup"`
	// WikiField is the column resolved into the wiki lookup.
	WikiField string `koanf:"wiki_field"`
	// Precision enables significant-digit tracking.
	Precision bool `koanf:"precision"`
	// Enumerations are predefined entity names and their indices.
	Enumerations map[string]int `koanf:"enumerations"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// configFileUsed tracks which config file was loaded, for verbose output.
var configFileUsed string

// findConfigFile finds the config file to use.
// Priority: explicit path > tsvdb.yaml > tsvdb.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"tsvdb.yaml", "tsvdb.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// LoadConfig loads configuration from defaults, an optional YAML file, and
// CLI flags.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	configFileUsed = ""

	defaults := map[string]any{
		"wiki_lookup": true,
		"wiki_field":  "en.wiki",
		"precision":   true,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		configFileUsed = path
	} else if cfgFile != "" {
		return nil, fmt.Errorf("config file not found: %s", cfgFile)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// GetConfigFileUsed returns the path of the loaded config file, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}
