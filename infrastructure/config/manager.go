package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownKey is returned when a dotted key does not name a config field
var ErrUnknownKey = errors.New("unknown config key")

// Entry is a single config field addressed by its dotted key
type Entry struct {
	Key   string
	Value string
}

// ConfigManager reads and updates individual config entries by dotted key
// (e.g. "ffmpeg.max_concurrent") and persists changes to the config file
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// List returns every entry sorted by key
func (m *ConfigManager) List() ([]Entry, error) {
	sections, err := flatten(m.config)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(sections))
	for key, value := range sections {
		entries = append(entries, Entry{Key: key, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Get returns the value of a single entry
func (m *ConfigManager) Get(key string) (string, error) {
	sections, err := flatten(m.config)
	if err != nil {
		return "", err
	}

	key = normalizeKey(key)
	value, ok := sections[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return value, nil
}

// Set updates a single entry, validates the result and saves it. The config
// is left untouched when the value does not parse or fails validation.
func (m *ConfigManager) Set(key, value string) error {
	key = normalizeKey(key)
	if _, err := m.Get(key); err != nil {
		return err
	}

	section, field, _ := strings.Cut(key, ".")
	patch := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: section},
			{
				Kind: yaml.MappingNode,
				Content: []*yaml.Node{
					{Kind: yaml.ScalarNode, Value: field},
					{Kind: yaml.ScalarNode, Value: strings.TrimSpace(value)},
				},
			},
		},
	}

	next := *m.config
	if err := patch.Decode(&next); err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	*m.config = next
	return Save(m.config, m.configPath)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// flatten renders the config through its YAML form so keys and values match
// what a user would write in the file
func flatten(cfg *Config) (map[string]string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}

	var sections map[string]map[string]any
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	out := make(map[string]string)
	for section, fields := range sections {
		for field, value := range fields {
			out[section+"."+field] = fmt.Sprint(value)
		}
	}
	return out, nil
}
