// Package deps bundles the shared resources a long-running capture
// process needs beyond its core components — the segment catalog's
// database handle today, the live-view hub if one is wired in later —
// so cmd entrypoints construct them once and pass a single value down,
// rather than threading each resource through separately.
package deps

import (
	"github.com/fenwicklabs/peripherycapture/catalog"
)

// Deps holds resources shared across a long-running capture process
// (cmd/sink opens one).
type Deps struct {
	Catalog *catalog.Writer
}

// Open builds Deps, opening the segment catalog at catalogDBPath.
func Open(catalogDBPath string) (*Deps, error) {
	cat, err := catalog.Open(catalogDBPath)
	if err != nil {
		return nil, err
	}
	return &Deps{Catalog: cat}, nil
}

// Close releases every resource Deps owns.
func (d *Deps) Close() error {
	if d.Catalog != nil {
		return d.Catalog.Close()
	}
	return nil
}
