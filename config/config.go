package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/evroam/roaminghub/core/dispatch"
	"github.com/evroam/roaminghub/core/metrics"
	"github.com/evroam/roaminghub/infra/mqtt"
)

// Config is the full service configuration.
type Config struct {
	Dispatch dispatch.Config `json:"dispatch"`
	Metrics  metrics.Config  `json:"metrics"`
	Stores   StoresConfig    `json:"stores"`
	API      APIConfig       `json:"api"`
	MQTT     mqtt.Config     `json:"mqtt"`
}

// Load reads the configuration file (YAML or JSON) and applies environment
// overrides with the RH_ prefix (RH_API__ADDR overrides api.addr).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("RH_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "rh_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Dispatch.SetDefaults()
	cfg.Stores.SetDefaults()
	cfg.API.SetDefaults()
	cfg.MQTT.SetDefaults()
	if err := cfg.Stores.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
