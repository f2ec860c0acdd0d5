package value

import "sync"

// HashVariant computes the tag of an open variant constructor from its
// name. The name is read up to its first NUL byte, matching the foreign
// runtime's C-string hashing, and the result is always an immediate that
// fits in 31 signed bits.
func HashVariant(name string) Raw {
	accu := int64(OfInt(0))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == 0 {
			break
		}
		accu = int64(OfInt(223*(accu>>1) + int64(c)))
	}
	accu &= int64(OfInt(0x7FFFFFFF))
	// Sign extension of bit 31 keeps 32- and 64-bit runtimes in agreement.
	return Raw(int64(int32(accu)))
}

// TagCache memoizes the hash of one variant name.
type TagCache struct {
	name string
	raw  Raw
	once sync.Once
}

// NewTagCache returns an unevaluated cache for name.
func NewTagCache(name string) *TagCache {
	return &TagCache{name: name}
}

// Name returns the hashed name.
func (c *TagCache) Name() string { return c.name }

// Raw returns the hash, computing it on first use.
func (c *TagCache) Raw() Raw {
	c.once.Do(func() {
		c.raw = HashVariant(c.name)
	})
	return c.raw
}

var polyTags sync.Map // string -> *TagCache

// PolyTag returns the process-wide memoized hash of an open variant name.
// Concurrent first calls for the same name compute the hash once.
func PolyTag(name string) Raw {
	return PolyTagCache(name).Raw()
}

// PolyTagCache returns the shared cache cell for name.
func PolyTagCache(name string) *TagCache {
	if c, ok := polyTags.Load(name); ok {
		return c.(*TagCache)
	}
	c, _ := polyTags.LoadOrStore(name, NewTagCache(name))
	return c.(*TagCache)
}
