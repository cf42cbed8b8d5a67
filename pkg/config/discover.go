package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const fileName = "config.yaml"

// SearchPaths returns the candidate config files in priority order:
// explicit, $CLASSDESK_CONFIG, $XDG_CONFIG_HOME/classdesk, ~/.config/classdesk.
func SearchPaths(explicit string) []string {
	var paths []string
	if explicit != "" {
		paths = append(paths, expandHome(explicit))
	}
	if env := os.Getenv(EnvConfig); env != "" {
		paths = append(paths, expandHome(env))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "classdesk", fileName))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "classdesk", fileName))
	}
	return paths
}

// Find returns the first config file that exists. An explicit path must
// exist. An empty result means no file was found and defaults apply.
func Find(explicit string) (string, error) {
	if explicit != "" {
		path := expandHome(explicit)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}
	for _, path := range SearchPaths("") {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			log.Printf("warning: config path %s is a directory, skipping", path)
			continue
		}
		return path, nil
	}
	return "", nil
}

// DefaultPath is where --setup writes when no path is given.
func DefaultPath() string {
	if env := os.Getenv(EnvConfig); env != "" {
		return expandHome(env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "classdesk", fileName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return fileName
	}
	return filepath.Join(home, ".config", "classdesk", fileName)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if len(path) < 2 || path[0] != '~' || path[1] != '/' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
