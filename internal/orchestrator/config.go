package orchestrator

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v2"
)

// OriginsConfig is an ordered list of origin entries, each with a location
// prefix and a scheme-qualified list of upstream URL templates.
type OriginsConfig struct {
	Origins []OriginConfig `yaml:"origins"`
}

// OriginConfig is a single configured origin entry.
type OriginConfig struct {
	Location string     `yaml:"location"`
	Pass     PassConfig `yaml:"pass"`
}

// PassConfig is an origin entry's upstream scheme and URL template list.
type PassConfig struct {
	Scheme string   `yaml:"scheme"`
	Url    []string `yaml:"url"`
}

// ToOriginRules converts decoded configuration into the OriginRule list
// OriginMap.PrepareOriginMap expects, preserving configuration order.
func (c OriginsConfig) ToOriginRules() []OriginRule {
	rules := make([]OriginRule, 0, len(c.Origins))
	for _, o := range c.Origins {
		rules = append(rules, OriginRule{
			Location:     o.Location,
			Scheme:       o.Pass.Scheme,
			UrlTemplates: append([]string(nil), o.Pass.Url...),
		})
	}
	return rules
}

// LoadOriginsConfig reads and decodes an Origins document from path.
func LoadOriginsConfig(path string) (OriginsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OriginsConfig{}, fmt.Errorf("read origins config: %w", err)
	}

	var cfg OriginsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return OriginsConfig{}, fmt.Errorf("decode origins config: %w", err)
	}

	return cfg, nil
}

// LoadApplicationConfig reads and decodes an Application document from
// path, for callers that pre-create applications at startup rather than
// letting the pull coordinator create them on demand.
func LoadApplicationConfig(path string) (ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ApplicationConfig{}, fmt.Errorf("read application config: %w", err)
	}

	var cfg ApplicationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ApplicationConfig{}, fmt.Errorf("decode application config: %w", err)
	}

	return cfg, nil
}
