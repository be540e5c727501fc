package concept

import (
	"context"

	"github.com/fieldarchive/unitlabel/internal/errors"
)

// Chain tries resolvers in order. A not-found answer falls through to the
// next resolver; any other error stops the chain.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, key string) (*ConceptType, error) {
	for _, r := range c {
		ct, err := r.Resolve(ctx, key)
		if err == nil {
			return ct, nil
		}
		if !errors.Is(err, ErrConceptNotFound) {
			return nil, err
		}
	}
	return nil, notFound(key, "chain")
}
