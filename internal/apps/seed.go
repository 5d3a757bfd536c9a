package apps

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hotstart/hotstart/internal/preload"
)

// Seed is the on-disk description of one application. JSON files keep the
// PascalCase field names of AppStart configs; TOML files use snake_case.
type Seed struct {
	Name             string `json:"Name,omitempty" toml:"name,omitempty"`
	File             string `json:"File" toml:"executable"`
	Args             string `json:"StartWhenNoneFound_Args,omitempty" toml:"args,omitempty"`
	Enabled          *bool  `json:"Enabled,omitempty" toml:"enabled,omitempty"`
	AutoPreload      bool   `json:"StartWhenNoneFound" toml:"auto_preload"`
	HidingDurationMs int    `json:"StartWhenNoneFound_HidingDuration" toml:"hiding_duration_ms"`
	WndFilter        string `json:"WndFilter" toml:"window_pattern"`
}

// Record converts the seed into a live record. configName identifies the
// file the seed came from and doubles as the default display name.
func (s Seed) Record(configName string) (*preload.Record, error) {
	if s.File == "" {
		return nil, errors.Errorf("%s: executable is required", configName)
	}
	if s.HidingDurationMs < 0 {
		return nil, errors.Errorf("%s: negative hiding duration", configName)
	}

	matcher, err := preload.NewRegexMatcher(s.WndFilter)
	if err != nil {
		return nil, errors.Wrap(err, configName)
	}

	name := s.Name
	if name == "" {
		name = configName
	}

	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}

	return &preload.Record{
		Name:           name,
		ConfigName:     configName,
		ExecutablePath: s.File,
		LaunchArgs:     SplitArgs(s.Args),
		Enabled:        enabled,
		Matcher:        matcher,
		AutoPreload:    s.AutoPreload,
		HidingDuration: time.Duration(s.HidingDurationMs) * time.Millisecond,
	}, nil
}

// SplitArgs splits a command line on whitespace. Double quotes group words
// and are removed.
func SplitArgs(line string) []string {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		inWord  bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n'):
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		args = append(args, current.String())
	}
	return args
}
