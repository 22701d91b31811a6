package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema string

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	// parse schema
	var schema struct {
		Defs map[string]struct {
			Properties map[string]any `json:"properties"`
		} `json:"$defs"`
	}
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}
	root, ok := schema.Defs["Config"]
	if !ok {
		return fmt.Errorf("embedded schema has no Config definition")
	}

	// convert config to JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var configMap map[string]any
	if err := json.Unmarshal(configData, &configMap); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	// every config section must be known to the schema, otherwise schema.json is stale
	var unknown []string
	for k := range configMap {
		if _, ok := root.Properties[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("sections not in schema: %v", unknown)
	}

	// basic validation - check required fields match
	if err := validateRequiredFields(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// validateRequiredFields performs basic validation of required fields
func validateRequiredFields(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("sources are required")
	}
	for i, src := range cfg.Sources {
		if src.URL == "" {
			return fmt.Errorf("sources[%d].url is required", i)
		}
	}
	if cfg.Watchlist.Candidates == "" {
		return fmt.Errorf("watchlist.candidates is required")
	}
	if cfg.Scan.Interval == 0 {
		return fmt.Errorf("scan.interval is required")
	}
	if cfg.Scan.MaxWorkers == 0 {
		return fmt.Errorf("scan.max_workers is required")
	}

	// check server config if enabled
	if cfg.Server.Listen != "" && cfg.Server.Timeout == 0 {
		return fmt.Errorf("server.timeout is required when server.listen is set")
	}
	return nil
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() (*jsonschema.Schema, error) {
	return jsonschema.Reflect(&Config{}), nil
}
