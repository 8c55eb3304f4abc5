package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/sim/naming"
)

// Builder can build caches.
type Builder struct {
	blockSize         int
	cacheByteSize     int
	wayAssociativity  int
	replacementPolicy ReplacementPolicy
	writePolicy       WritePolicy
}

// MakeBuilder creates a new builder. The default cache is an 8 KB, 4-way
// cache with 32-byte blocks, LRU replacement and write-back write-allocate.
func MakeBuilder() Builder {
	return Builder{
		blockSize:         32,
		cacheByteSize:     8 * 1024,
		wayAssociativity:  4,
		replacementPolicy: LeastRecentlyUsed,
		writePolicy:       WriteBackWriteAllocate,
	}
}

// WithBlockSize sets the number of bytes in a block.
func (b Builder) WithBlockSize(blockSize int) Builder {
	b.blockSize = blockSize
	return b
}

// WithCacheByteSize sets the total capacity of the cache in bytes.
func (b Builder) WithCacheByteSize(cacheByteSize int) Builder {
	b.cacheByteSize = cacheByteSize
	return b
}

// WithWayAssociativity sets the number of ways per set.
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithReplacementPolicy sets how victims are chosen.
func (b Builder) WithReplacementPolicy(policy ReplacementPolicy) Builder {
	b.replacementPolicy = policy
	return b
}

// WithWritePolicy sets how writes reach the next level.
func (b Builder) WithWritePolicy(policy WritePolicy) Builder {
	b.writePolicy = policy
	return b
}

// WithConfig copies every field of the configuration into the builder.
func (b Builder) WithConfig(c Config) Builder {
	b.blockSize = c.BlockSize
	b.cacheByteSize = c.CacheByteSize
	b.wayAssociativity = c.Associativity
	b.replacementPolicy = c.ReplacementPolicy
	b.writePolicy = c.WritePolicy

	return b
}

// Config returns the configuration the builder would build.
func (b Builder) Config() Config {
	return Config{
		BlockSize:         b.blockSize,
		CacheByteSize:     b.cacheByteSize,
		Associativity:     b.wayAssociativity,
		ReplacementPolicy: b.replacementPolicy,
		WritePolicy:       b.writePolicy,
	}
}

// Build builds a cache. It returns a *ConfigurationError if the name is not
// a valid hierarchical name or if the sizes do not describe a decodable
// cache.
func (b Builder) Build(name string) (*Engine, error) {
	if err := naming.Validate(name); err != nil {
		return nil, &ConfigurationError{
			Field:  "Name",
			Value:  name,
			Reason: err.Error(),
		}
	}

	config := b.Config()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		NamedBase: naming.MakeNamedBase(name),
		config:    config,
		codec:     newAddressCodec(config),
		tags: tagging.NewTags(
			config.NumSets(),
			config.Associativity,
			b.createVictimFinder(),
		),
	}
	e.writeStrategy = b.createWriteStrategy(e)

	return e, nil
}

func (b Builder) createVictimFinder() tagging.VictimFinder {
	switch b.replacementPolicy {
	case LeastRecentlyUsed:
		return tagging.NewLRUVictimFinder()
	case FirstInFirstOut:
		return tagging.NewFIFOVictimFinder()
	default:
		panic("unknown replacement policy: " + b.replacementPolicy.String())
	}
}

func (b Builder) createWriteStrategy(e *Engine) writeStrategy {
	switch b.writePolicy {
	case WriteBackWriteAllocate:
		return &writeBackStrategy{Engine: e}
	case WriteThroughNoAllocate:
		return &writeThroughStrategy{Engine: e}
	default:
		panic("unknown write policy: " + b.writePolicy.String())
	}
}
