package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type keywordsFile struct {
	Keywords Keywords `json:"keywords" yaml:"keywords"`
}

func getKeywordsFileCandidates(dataDir string) []string {
	if strings.TrimSpace(dataDir) == "" {
		return nil
	}
	base := filepath.Join(dataDir, ".mcp-config")
	return []string{
		filepath.Join(base, "keywords.yaml"),
		filepath.Join(base, "keywords.yml"),
		filepath.Join(base, "keywords.json"),
	}
}

// ResolveKeywordsFile finds an override file under <dataDir>/.mcp-config.
func ResolveKeywordsFile(dataDir string) (string, bool) {
	for _, p := range getKeywordsFileCandidates(dataDir) {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// parseKeywords accepts either {keywords: {morning: [...]}} or the bare lists.
func parseKeywords(data []byte) (Keywords, error) {
	var wrapper keywordsFile
	if err := yaml.Unmarshal(data, &wrapper); err == nil && !wrapper.Keywords.isEmpty() {
		return wrapper.Keywords, nil
	}

	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return Keywords{}, err
	}
	if kw.isEmpty() {
		return Keywords{}, fmt.Errorf("keywords file is empty")
	}
	return kw, nil
}

func (k Keywords) isEmpty() bool {
	return len(k.Morning) == 0 && len(k.Afternoon) == 0 && len(k.Evening) == 0
}

// LoadKeywordsFile reads keyword overrides; lists missing from the file keep their defaults.
func LoadKeywordsFile(path string) (Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, err
	}
	kw, err := parseKeywords(data)
	if err != nil {
		return Keywords{}, fmt.Errorf("%s: %w", path, err)
	}
	return kw, nil
}

// NewCategorizerFromFile builds a categorizer from path, or the defaults when path is "".
func NewCategorizerFromFile(path string) (*Categorizer, error) {
	if path == "" {
		return NewCategorizer(Keywords{}), nil
	}
	kw, err := LoadKeywordsFile(path)
	if err != nil {
		return NewCategorizer(Keywords{}), err
	}
	return NewCategorizer(kw), nil
}
