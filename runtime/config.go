package runtime

import (
	"go.uber.org/zap"

	"github.com/wippyai/camlbridge/heap"
	"github.com/wippyai/camlbridge/root"
)

// Config holds configuration for runtime creation.
type Config struct {
	// Logger receives runtime events. Nil means the package logger.
	Logger *zap.Logger

	// Heap configures the foreign heap.
	Heap heap.Config

	// ChainSlots is the size of the frame root arena.
	// 0 means root.DefaultChainSlots.
	ChainSlots int

	// Debug enables field bounds checks and the arity check of generic
	// primitive entries.
	Debug bool
}

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() Config {
	return Config{
		Heap:       heap.DefaultConfig(),
		ChainSlots: root.DefaultChainSlots,
	}
}

// Option customizes a Config.
type Option func(*Config)

// WithDebug enables debug checks.
func WithDebug() Option {
	return func(c *Config) {
		c.Debug = true
		c.Heap.Debug = true
	}
}

// WithStressGC collects before every allocation.
func WithStressGC() Option {
	return func(c *Config) { c.Heap.Stress = true }
}

// WithCollectEvery forces a collection every n allocations.
func WithCollectEvery(n int) Option {
	return func(c *Config) { c.Heap.CollectEvery = n }
}

// WithHeapWords sets the initial and maximum semispace size in words.
func WithHeapWords(initial, maximum int) Option {
	return func(c *Config) {
		c.Heap.InitialWords = initial
		c.Heap.MaxWords = maximum
	}
}

// WithChainSlots sets the size of the frame root arena.
func WithChainSlots(n int) Option {
	return func(c *Config) { c.ChainSlots = n }
}

// WithLogger sets the runtime's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
