package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FeedsFile is the YAML config listing the default feed set and the
// category-prioritized feed map:
//
//	feeds:
//	  - https://...
//	categories:
//	  space:
//	    - https://...
type FeedsFile struct {
	Feeds      []string            `yaml:"feeds"`
	Categories map[string][]string `yaml:"categories"`
}

// LoadFeeds reads the feed configuration from a YAML file.
func LoadFeeds(path string) (*FeedsFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ff FeedsFile
	if err := yaml.NewDecoder(f).Decode(&ff); err != nil {
		return nil, fmt.Errorf("parse feeds config: %w", err)
	}
	if len(ff.Feeds) == 0 {
		return nil, fmt.Errorf("feeds config %s lists no feeds", path)
	}
	return &ff, nil
}
