// Package builtin assembles the registry of every kind kindview ships with.
package builtin

import (
	"time"

	"github.com/matzehuels/kindview/pkg/cache"
	"github.com/matzehuels/kindview/pkg/render"
	"github.com/matzehuels/kindview/pkg/render/asset"
	"github.com/matzehuels/kindview/pkg/render/chart"
	"github.com/matzehuels/kindview/pkg/render/composite"
	"github.com/matzehuels/kindview/pkg/render/deferred"
	"github.com/matzehuels/kindview/pkg/render/graphviz"
	"github.com/matzehuels/kindview/pkg/render/image"
	"github.com/matzehuels/kindview/pkg/render/text"
)

// Config holds the settings the built-in renderers depend on.
type Config struct {
	// AssetURLs overrides library URLs of the default asset catalog.
	AssetURLs map[string]string
	// Cache stores graphviz output. Nil disables caching.
	Cache cache.Cache
	// Keyer derives cache keys. Nil uses [cache.DefaultKeyer].
	Keyer cache.Keyer
	// TTL is the lifetime of cached output. Zero uses [cache.TTLArtifact].
	TTL time.Duration
	// Generator builds chart loader scripts. Nil uses random ids.
	Generator *asset.Generator
}

// Definitions returns the built-in kind definitions. It fails only when an
// asset URL override is invalid.
func Definitions(cfg Config) ([]render.Definition, error) {
	catalog, err := asset.DefaultCatalog().WithURLs(cfg.AssetURLs)
	if err != nil {
		return nil, err
	}

	var defs []render.Definition
	defs = append(defs, text.Definitions()...)
	defs = append(defs, image.Definition())
	defs = append(defs, chart.Definitions(cfg.Generator, catalog)...)
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = cache.TTLArtifact
	}
	gv := graphviz.New(cfg.Cache, graphviz.WithKeyer(cfg.Keyer), graphviz.WithTTL(ttl))
	defs = append(defs, gv.Definition())
	defs = append(defs, composite.Definitions()...)
	defs = append(defs, deferred.Definition())
	return defs, nil
}

// Registry returns a registry holding [Definitions].
func Registry(cfg Config) (*render.Registry, error) {
	defs, err := Definitions(cfg)
	if err != nil {
		return nil, err
	}
	return render.NewRegistry(defs...), nil
}

// NewEngine returns an engine over the built-in registry. Options apply
// after the registry is set, so [render.WithRegistry] in opts replaces it.
func NewEngine(cfg Config, opts ...render.Option) (*render.Engine, error) {
	reg, err := Registry(cfg)
	if err != nil {
		return nil, err
	}
	return render.NewEngine(append([]render.Option{render.WithRegistry(reg)}, opts...)...), nil
}
