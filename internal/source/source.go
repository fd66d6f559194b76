// Package source provides marketplace query adapters that normalize
// heterogeneous provider responses into canonical items.
package source

import (
	"context"

	domain "github.com/scanworth/scanworth/pkg/types"
)

// Result holds the normalized outcome of one adapter query.
type Result struct {
	Items []domain.Item
	Note  string
}

// Adapter is the capability every marketplace source implements: one HTTP
// query for one (marketplace, listing-state) pair, normalized into canonical
// items.
type Adapter interface {
	// ID returns the source tag stamped onto every emitted item.
	ID() string
	Search(ctx context.Context, term string) (*Result, error)
}

// TokenProvider supplies bearer tokens per authorization scope.
type TokenProvider interface {
	Token(ctx context.Context, scope string) (string, error)
}
