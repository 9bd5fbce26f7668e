package config

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/tsubakihara/ringi/internal/domain/profile"
	"github.com/tsubakihara/ringi/internal/domain/sequence"
)

// LoadProfile reads a raw enforcement profile from a YAML file.
// Unknown fields are rejected so typos surface instead of silently
// falling back to defaults. The result still needs profile.Validate.
func LoadProfile(fs afero.Fs, path string) (profile.Raw, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return profile.Raw{}, fmt.Errorf("read profile %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw profile.Raw
	if err := dec.Decode(&raw); err != nil {
		return profile.Raw{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return raw, nil
}

// sequenceFile is the YAML shape of a sequence table definition
type sequenceFile struct {
	Steps []string `yaml:"steps"`
}

// LoadSequence reads and validates a sequence table from a YAML file
func LoadSequence(fs afero.Fs, path string) (sequence.Table, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return sequence.Table{}, fmt.Errorf("read sequence %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file sequenceFile
	if err := dec.Decode(&file); err != nil {
		return sequence.Table{}, fmt.Errorf("parse sequence %s: %w", path, err)
	}

	table, err := sequence.Parse(file.Steps)
	if err != nil {
		return sequence.Table{}, fmt.Errorf("invalid sequence %s: %w", path, err)
	}
	return table, nil
}
