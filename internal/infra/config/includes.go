package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxIncludeDepth = 5

// applyIncludes overlays every file named by cfg.Includes onto cfg, in order.
// Relative patterns resolve against the directory of the including file and
// may not escape it. Nested includes are followed up to maxIncludeDepth.
func applyIncludes(cfg *Config, fromFile string) error {
	seen := map[string]bool{fromFile: true}
	return overlayIncludes(cfg, filepath.Dir(fromFile), seen, 0)
}

func overlayIncludes(cfg *Config, dir string, seen map[string]bool, depth int) error {
	if depth >= maxIncludeDepth {
		return fmt.Errorf("config includes: nested deeper than %d", maxIncludeDepth)
	}
	patterns := cfg.Includes
	cfg.Includes = nil

	for _, pattern := range patterns {
		files, err := expandInclude(dir, pattern)
		if err != nil {
			return err
		}
		for _, f := range files {
			if seen[f] {
				return fmt.Errorf("config includes: %q included twice", f)
			}
			seen[f] = true

			data, err := os.ReadFile(f)
			if err != nil {
				return fmt.Errorf("config includes: read %q: %w", f, err)
			}
			if len(data) == 0 {
				continue
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("config includes: parse %q: %w", f, err)
			}
			if len(cfg.Includes) > 0 {
				if err := overlayIncludes(cfg, filepath.Dir(f), seen, depth+1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// expandInclude resolves one include pattern to absolute file paths. A glob
// with no matches expands to nothing; a literal path is returned as-is so the
// read reports it missing.
func expandInclude(dir, pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(dir, pattern)
		rel, err := filepath.Rel(dir, pattern)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("config includes: %q escapes %s", pattern, dir)
		}
	}
	pattern = filepath.Clean(pattern)

	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("config includes: glob %q: %w", pattern, err)
	}
	return matches, nil
}
