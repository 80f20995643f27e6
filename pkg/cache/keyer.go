package cache

// Keyer derives cache keys for the things kindview caches.
type Keyer interface {
	// ArtifactKey returns the key for output of kind rendered from a source
	// identified by sourceHash.
	ArtifactKey(kind, sourceHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts holds the render options that change artifact bytes.
type ArtifactKeyOpts struct {
	Format string         `json:"format,omitempty"`
	Engine string         `json:"engine,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(kind, sourceHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact:"+kind, sourceHash, opts)
}

// ScopedKeyer prefixes every key of an inner keyer, giving each
// environment its own namespace in a shared backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a keyer that prepends prefix to keys from inner.
// A nil inner uses [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ArtifactKey implements [Keyer].
func (k *ScopedKeyer) ArtifactKey(kind, sourceHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(kind, sourceHash, opts)
}
