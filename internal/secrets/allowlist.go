package secrets

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// AllowList holds placeholder values merged into rule allow-lists.
//
// File format:
//
//	[allowlist]
//	global = ["dummy-value"]
//
//	[allowlist.rules]
//	PASSWORD = ["hunter2"]
type AllowList struct {
	Global []string            `toml:"global"`
	Rules  map[string][]string `toml:"rules"`
}

// LoadAllowList reads an allow-list TOML file. An empty path or a missing
// file yields an empty list; a malformed file is an error.
func LoadAllowList(path string) (*AllowList, error) {
	empty := &AllowList{Rules: map[string][]string{}}
	if path == "" {
		return empty, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return nil, fmt.Errorf("stat allowlist %s: %w", path, err)
	}

	var doc struct {
		AllowList AllowList `toml:"allowlist"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	list := doc.AllowList
	if list.Rules == nil {
		list.Rules = map[string][]string{}
	}
	return &list, nil
}
