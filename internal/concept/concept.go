// Package concept resolves concept type keys (vocabulary terms such as
// "stratigraphic-unit") to the stable identity used to scope counters.
package concept

import (
	"context"

	"github.com/fieldarchive/unitlabel/internal/errors"
)

const componentConcept = "concept"

// ErrConceptNotFound is returned when a key does not resolve.
var ErrConceptNotFound = errors.NewStd("concept type not found")

// ConceptType is the resolved identity of a concept type.
type ConceptType struct {
	ID    string `json:"id" yaml:"id"`
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Code  string `json:"code,omitempty" yaml:"code,omitempty"` // short label prefix, e.g. "US"
}

// Resolver resolves a concept type key. Implementations return an error
// matching ErrConceptNotFound for unknown keys.
type Resolver interface {
	Resolve(ctx context.Context, key string) (*ConceptType, error)
}

func notFound(key, source string) error {
	return errors.New(ErrConceptNotFound).
		Component(componentConcept).
		Category(errors.CategoryNotFound).
		Priority(errors.PriorityLow).
		Context("key", key).
		Context("source", source).
		Build()
}
