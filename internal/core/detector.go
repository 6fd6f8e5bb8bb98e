package core

import (
	"os"
	"path/filepath"
	"strings"
)

// DetectDataDir picks the directory that holds .planner-data and .mcp-config.
func DetectDataDir() string {
	// 1. explicit env from the host / IDE
	envKeys := []string{"PLANNER_DATA_DIR", "WORKSPACE_FOLDER", "INIT_CWD"}
	for _, k := range envKeys {
		val := strings.TrimSpace(os.Getenv(k))
		if val != "" {
			abs, err := filepath.Abs(val)
			if err == nil && ValidateDataDir(abs) {
				return abs
			}
		}
	}

	// 2. user home
	if home, err := os.UserHomeDir(); err == nil && ValidateDataDir(home) {
		return home
	}

	// 3. CWD
	if cwd, err := os.Getwd(); err == nil {
		if abs, err := filepath.Abs(cwd); err == nil && ValidateDataDir(abs) {
			return abs
		}
	}

	return ""
}

// ValidateDataDir rejects volume roots and system directories.
func ValidateDataDir(path string) bool {
	if path == "" {
		return false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return false
	}

	if abs == filepath.VolumeName(abs)+string(filepath.Separator) {
		return false
	}

	pLow := strings.ToLower(filepath.ToSlash(abs))
	systemTraps := []string{"c:/windows", "system32", "program files", "programdata"}
	for _, trap := range systemTraps {
		if strings.Contains(pLow, trap) {
			return false
		}
	}
	for _, root := range []string{"/proc", "/sys", "/dev"} {
		if pLow == root || strings.HasPrefix(pLow, root+"/") {
			return false
		}
	}

	return true
}
