package heap

// Config controls heap sizing and collection policy.
type Config struct {
	// InitialWords is the minimum size of a semispace in words.
	InitialWords int
	// MaxWords caps the size of a semispace. Allocations that cannot fit
	// after a collection fail.
	MaxWords int
	// CollectEvery forces a collection every N allocations (0 disables).
	CollectEvery int
	// Stress collects before every allocation.
	Stress bool
	// Debug enables field bounds checks.
	Debug bool
}

// DefaultConfig returns the default heap configuration.
func DefaultConfig() Config {
	return Config{
		InitialWords: 1 << 14,
		MaxWords:     1 << 28,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialWords <= 0 {
		c.InitialWords = d.InitialWords
	}
	if c.MaxWords <= 0 {
		c.MaxWords = d.MaxWords
	}
	if c.InitialWords > c.MaxWords {
		c.InitialWords = c.MaxWords
	}
	return c
}

// Stats reports allocation and collection counters.
type Stats struct {
	Collections    uint64
	Allocations    uint64
	AllocatedWords uint64
	MovedWords     uint64
	Finalized      uint64
	LiveWords      int
	Capacity       int
}
