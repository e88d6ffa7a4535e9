package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Entry is one leaf of the config tree.
type Entry struct {
	Path  string
	Value any
}

// asTree round-trips cfg through JSON so paths follow the json tags.
func asTree(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByPath retrieves a config value by dot-notation path (e.g. "router.defaultDomain").
func GetByPath(cfg *Config, path string) (any, error) {
	tree, err := asTree(cfg)
	if err != nil {
		return nil, err
	}

	var current any = tree
	for _, key := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("invalid array index: %s", key)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
	}
	return current, nil
}

// SetByPath sets a config value by dot-notation path. The top-level section
// must exist; nested maps (e.g. router.domains.travel) are created on demand.
func SetByPath(cfg *Config, path string, value any) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	tree, err := asTree(cfg)
	if err != nil {
		return err
	}

	parts := strings.Split(path, ".")
	if _, ok := tree[parts[0]]; !ok {
		return fmt.Errorf("unknown config section: %s", parts[0])
	}

	parent := tree
	for _, key := range parts[:len(parts)-1] {
		child, ok := parent[key]
		if !ok || child == nil {
			m := make(map[string]any)
			parent[key] = m
			parent = m
			continue
		}
		childMap, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot traverse into %T at %s", child, key)
		}
		parent = childMap
	}
	parent[parts[len(parts)-1]] = parseValue(value)

	data, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	var next Config
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	*cfg = next
	return nil
}

// parseValue converts CLI strings to bool, number or a comma-separated list.
func parseValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}

	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var list []any
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return list
		}
	}
	return s
}

// ListPaths returns every leaf path with its current value, sorted by path.
func ListPaths(cfg *Config) []Entry {
	tree, err := asTree(cfg)
	if err != nil {
		return nil
	}
	var out []Entry
	flatten("", tree, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func flatten(prefix string, m map[string]any, out *[]Entry) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok && len(child) > 0 {
			flatten(path, child, out)
			continue
		}
		*out = append(*out, Entry{Path: path, Value: v})
	}
}

// Sanitize returns a copy of cfg with model API keys masked.
func Sanitize(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}
	var copy Config
	if err := json.Unmarshal(data, &copy); err != nil {
		return cfg
	}
	for i := range copy.Model.Chain {
		if copy.Model.Chain[i].APIKey != "" {
			copy.Model.Chain[i].APIKey = maskString(copy.Model.Chain[i].APIKey)
		}
	}
	return &copy
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
