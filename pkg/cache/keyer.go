package cache

// Keyer generates cache keys for the kinds of data stackdoc caches.
type Keyer interface {
	// HTTPKey is the key for a cached registry response.
	HTTPKey(namespace, key string) string

	// BuildKey is the key for a published build of name@version.
	BuildKey(name, version string) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// BuildKey returns "build:<name>@<version>".
func (DefaultKeyer) BuildKey(name, version string) string {
	return "build:" + name + "@" + version
}

// ScopedKeyer wraps a Keyer with a prefix. Builds published to different
// stores hash differently, so each store kind gets its own scope:
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "ipfs:")
//	k.BuildKey("serde", "1.0.197") // "ipfs:build:serde@1.0.197"
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer means the default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// BuildKey generates a prefixed key for build caching.
func (k *ScopedKeyer) BuildKey(name, version string) string {
	return k.prefix + k.inner.BuildKey(name, version)
}
