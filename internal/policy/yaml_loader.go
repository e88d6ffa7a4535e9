package policy

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleFile is a rule table override loaded from disk.
type RuleFile struct {
	Domain string `yaml:"domain"`
	Rules  []Rule `yaml:"rules"`
	Path   string `yaml:"-"`
}

// LoadRulesFromDirectory reads rule overrides from .yaml/.yml files in dir.
// A missing directory is not an error. When a file has no domain field the
// file name (without extension) is used.
func LoadRulesFromDirectory(dir string, logger *slog.Logger) ([]RuleFile, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("rules directory does not exist, skipping", "dir", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read rules dir: %w", err)
	}

	var files []RuleFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read rules file", "path", path, "err", err)
			continue
		}

		var rf RuleFile
		if err := yaml.Unmarshal(data, &rf); err != nil {
			logger.Warn("cannot parse rules file", "path", path, "err", err)
			continue
		}
		if rf.Domain == "" {
			rf.Domain = strings.TrimSuffix(name, filepath.Ext(name))
		}
		rf.Path = path

		logger.Info("loaded rules file", "domain", rf.Domain, "path", path)
		files = append(files, rf)
	}

	return files, nil
}
