package pool

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var defaultFS embed.FS

// Defaults returns the built-in pool for kind.
func Defaults(kind Kind) ([]Brief, error) {
	name := fmt.Sprintf("defaults/%s.yaml", kind)
	data, err := defaultFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("no default %s pool: %w", kind, err)
	}
	briefs, err := decodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("decode default %s pool: %w", kind, err)
	}
	return briefs, nil
}

// Load returns the pool at path, or the built-in pool when path is empty.
func Load(path string, kind Kind) ([]Brief, error) {
	if path == "" {
		return Defaults(kind)
	}
	return LoadFile(path, kind)
}

// LoadFile reads a pool file. The format follows the extension: .yaml and
// .yml are YAML sequences, anything else is a JSON array. Entries that are
// not objects, or have no name, are skipped.
func LoadFile(path string, kind Kind) ([]Brief, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s pool %s: %w", kind, path, err)
	}

	var briefs []Brief
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		briefs, err = decodeYAML(data)
	default:
		briefs, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s pool %s: %w", kind, path, err)
	}
	return briefs, nil
}

func decodeJSON(data []byte) ([]Brief, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("pool must be a JSON array: %w", err)
	}

	briefs := make([]Brief, 0, len(raw))
	for _, r := range raw {
		trimmed := strings.TrimSpace(string(r))
		if !strings.HasPrefix(trimmed, "{") {
			continue
		}
		var b Brief
		if err := json.Unmarshal(r, &b); err != nil {
			continue
		}
		if b.Name = strings.TrimSpace(b.Name); b.Name != "" {
			briefs = append(briefs, b)
		}
	}
	return briefs, nil
}

func decodeYAML(data []byte) ([]Brief, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("pool must be a YAML sequence: %w", err)
	}

	briefs := make([]Brief, 0, len(nodes))
	for i := range nodes {
		if nodes[i].Kind != yaml.MappingNode {
			continue
		}
		var b Brief
		if err := nodes[i].Decode(&b); err != nil {
			continue
		}
		if b.Name = strings.TrimSpace(b.Name); b.Name != "" {
			briefs = append(briefs, b)
		}
	}
	return briefs, nil
}
