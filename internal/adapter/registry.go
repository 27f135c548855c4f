// Package adapter implements the per-platform message sources.
package adapter

import (
	"fmt"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
)

// Registry maps each platform to its adapter
type Registry struct {
	adapters map[domain.Platform]repo.Adapter
}

// NewRegistry creates a registry. A later adapter for the same platform wins.
func NewRegistry(adapters ...repo.Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.Platform]repo.Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its platform
func (r *Registry) Register(a repo.Adapter) {
	r.adapters[a.Platform()] = a
}

// Get returns the adapter for p
func (r *Registry) Get(p domain.Platform) (repo.Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, domain.ErrUnsupportedPlatform)
	}
	return a, nil
}

// Platforms lists registered platforms in display order
func (r *Registry) Platforms() []domain.Platform {
	var out []domain.Platform
	for _, p := range domain.Platforms {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func accountName(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}
