package sites

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

type profileFile struct {
	Sites []Profile `yaml:"sites"`
}

// LoadProfiles reads site profiles from a YAML file of the form
//
//	sites:
//	  - id: example
//	    base_url: https://shop.example
//	    ...
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes and validates YAML profile data. Unknown keys are
// rejected so typos do not silently disable a ladder.
func ParseProfiles(data []byte) ([]Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f profileFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}

	for i := range f.Sites {
		f.Sites[i].ID = normalizeID(f.Sites[i].ID)
		if err := f.Sites[i].Validate(); err != nil {
			return nil, err
		}
	}
	return f.Sites, nil
}

// WithOverrides returns the builtin profiles with the ones in overrides
// replacing builtins of the same identifier and new ones appended.
func WithOverrides(overrides []Profile) []Profile {
	profiles := Builtin()
	index := make(map[string]int, len(profiles))
	for i, p := range profiles {
		index[p.ID] = i
	}

	for _, o := range overrides {
		if i, ok := index[normalizeID(o.ID)]; ok {
			profiles[i] = o
			continue
		}
		index[normalizeID(o.ID)] = len(profiles)
		profiles = append(profiles, o)
	}
	return profiles
}

// LoadRegistry builds a registry from the builtin profiles, overlaid with
// the profiles in path when path is set.
func LoadRegistry(logger *slog.Logger, path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(logger, Builtin()...)
	}

	overrides, err := LoadProfiles(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(logger, WithOverrides(overrides)...)
}
