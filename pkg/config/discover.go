package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverProjects scans the configured paths for directories holding a
// .vtree/ subdirectory and returns them sorted.
func DiscoverProjects(cfg Config) []string {
	seen := make(map[string]bool)
	var result []string

	maxDepth := cfg.Discovery.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	for _, scanPath := range cfg.Discovery.ScanPaths {
		for _, f := range scanForProjects(scanPath, maxDepth) {
			if !seen[f] {
				seen[f] = true
				result = append(result, f)
			}
		}
	}
	sort.Strings(result)
	return result
}

// scanForProjects walks a directory tree up to maxDepth levels deep,
// looking for directories that contain a .vtree/ subdirectory.
func scanForProjects(root string, maxDepth int) []string {
	root = expandHome(root)
	var results []string

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
		if currentDepth > maxDepth {
			return filepath.SkipDir
		}

		// Skip hidden directories (except the root itself)
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}

		if info, err := os.Stat(filepath.Join(path, DirName)); err == nil && info.IsDir() {
			results = append(results, path)
			return filepath.SkipDir // Don't recurse into projects
		}
		return nil
	})

	return results
}

// DetectCurrentProject attempts to find the current project by walking
// up from the current directory looking for .vtree/.
func DetectCurrentProject() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return FindProjectRoot(dir)
}

// FindProjectRoot walks up from dir looking for a .vtree/ directory. It
// stops at the home directory and the filesystem root.
func FindProjectRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		if info, err := os.Stat(filepath.Join(dir, DirName)); err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

// Discover loads the configuration of the project containing dir. When no
// project is found, root is dir itself and the defaults apply.
func Discover(dir string) (root string, cfg *Config, err error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	root, ok := FindProjectRoot(abs)
	if !ok {
		def := DefaultConfig()
		return abs, &def, nil
	}
	cfg, err = LoadConfig(ConfigPath(root))
	if err != nil {
		return "", nil, err
	}
	return root, cfg, nil
}
