package concept

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/errors"
)

// Registry is a fixed in-memory set of concept types.
type Registry struct {
	byKey map[string]*ConceptType
}

// registryFile is the layout of a concept type YAML file.
type registryFile struct {
	ConceptTypes []ConceptType `yaml:"concept_types"`
}

// NewRegistry builds a registry. IDs and keys must be non-empty and unique.
func NewRegistry(types []ConceptType) (*Registry, error) {
	r := &Registry{byKey: make(map[string]*ConceptType, len(types))}
	ids := make(map[string]string, len(types))

	for i := range types {
		ct := types[i]
		ct.Key = strings.TrimSpace(ct.Key)
		ct.ID = strings.TrimSpace(ct.ID)
		if ct.Key == "" || ct.ID == "" {
			return nil, errors.Newf("concept type %d: id and key are required", i).
				Component(componentConcept).
				Category(errors.CategoryValidation).
				Build()
		}
		if _, dup := r.byKey[ct.Key]; dup {
			return nil, errors.Newf("duplicate concept type key %q", ct.Key).
				Component(componentConcept).
				Category(errors.CategoryValidation).
				Build()
		}
		if other, dup := ids[ct.ID]; dup {
			return nil, errors.Newf("concept type id %q used by both %q and %q", ct.ID, other, ct.Key).
				Component(componentConcept).
				Category(errors.CategoryValidation).
				Build()
		}
		ids[ct.ID] = ct.Key
		r.byKey[ct.Key] = &ct
	}
	return r, nil
}

// LoadFile reads concept types from a YAML file with a top-level
// concept_types list.
func LoadFile(path string) ([]ConceptType, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, errors.New(err).
			Component(componentConcept).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.New(fmt.Errorf("parse concept file: %w", err)).
			Component(componentConcept).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}
	return file.ConceptTypes, nil
}

// NewRegistryFromSettings combines the inline concept types with the
// optional concept file. Keys must be unique across both sources.
func NewRegistryFromSettings(settings *conf.ConceptSettings) (*Registry, error) {
	types := make([]ConceptType, 0, len(settings.Types))
	for _, t := range settings.Types {
		types = append(types, ConceptType{ID: t.ID, Key: t.Key, Label: t.Label, Code: t.Code})
	}

	if settings.File != "" {
		fromFile, err := LoadFile(settings.File)
		if err != nil {
			return nil, err
		}
		types = append(types, fromFile...)
	}

	return NewRegistry(types)
}

// Resolve looks up key; surrounding whitespace is ignored.
func (r *Registry) Resolve(_ context.Context, key string) (*ConceptType, error) {
	ct, ok := r.byKey[strings.TrimSpace(key)]
	if !ok {
		return nil, notFound(key, "registry")
	}
	clone := *ct
	return &clone, nil
}

// Len returns the number of registered concept types.
func (r *Registry) Len() int {
	return len(r.byKey)
}
