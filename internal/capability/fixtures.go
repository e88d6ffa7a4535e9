package capability

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"domainbot/internal/domain"
)

// Fixture is a canned payload for one capability, as stored on disk:
//
//	capability: search
//	payload:
//	  results:
//	    - name: Phone A
type Fixture struct {
	Capability domain.Capability `yaml:"capability"`
	Payload    any               `yaml:"payload"`
}

// LoadFixtures reads .yaml/.yml fixtures from dir and returns one Static
// provider per file. A missing directory yields no providers. Unreadable or
// malformed files are logged and skipped. A file without a capability field
// is named after the file.
func LoadFixtures(dir string, logger *slog.Logger) ([]*Static, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("fixtures directory does not exist, skipping", "dir", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fixtures dir: %w", err)
	}

	var out []*Static
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read fixture", "path", path, "err", err)
			continue
		}

		var fx Fixture
		if err := yaml.Unmarshal(data, &fx); err != nil {
			logger.Warn("cannot parse fixture", "path", path, "err", err)
			continue
		}
		if fx.Capability == "" {
			fx.Capability = domain.Capability(strings.TrimSuffix(name, filepath.Ext(name)))
		}

		logger.Debug("loaded fixture", "capability", fx.Capability, "path", path)
		out = append(out, NewStatic(fx.Capability, normalize(fx.Payload)))
	}
	return out, nil
}

// normalize rewrites YAML mappings with non-string keys (decoded as
// map[any]any) into map[string]any, recursively, so payloads stay
// JSON-encodable.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	}
	return v
}

// FromInline turns a capability -> payload map (from config) into providers.
func FromInline(inline map[string]any) []*Static {
	out := make([]*Static, 0, len(inline))
	for c, payload := range inline {
		out = append(out, NewStatic(domain.Capability(c), payload))
	}
	return out
}
