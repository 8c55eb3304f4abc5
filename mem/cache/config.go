package cache

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// AddressWidth is the number of bits of an address fed to the cache.
const AddressWidth = 32

// ReplacementPolicy selects how a victim is chosen from a full set.
type ReplacementPolicy int

// The replacement policies. The numeric values match the selectors used on
// the command line.
const (
	LeastRecentlyUsed ReplacementPolicy = iota
	FirstInFirstOut
)

func (p ReplacementPolicy) String() string {
	switch p {
	case LeastRecentlyUsed:
		return "LRU"
	case FirstInFirstOut:
		return "FIFO"
	default:
		return fmt.Sprintf("ReplacementPolicy(%d)", int(p))
	}
}

// ParseReplacementPolicy converts a selector, either a number (0 for LRU, 1
// for FIFO) or a name, to a ReplacementPolicy.
func ParseReplacementPolicy(s string) (ReplacementPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "lru":
		return LeastRecentlyUsed, nil
	case "1", "fifo":
		return FirstInFirstOut, nil
	default:
		return 0, &ConfigurationError{
			Field:  "ReplacementPolicy",
			Value:  s,
			Reason: "must be 0 (lru) or 1 (fifo)",
		}
	}
}

// WritePolicy selects how writes propagate to the next level.
type WritePolicy int

// The write policies. The numeric values match the selectors used on the
// command line.
const (
	WriteBackWriteAllocate WritePolicy = iota
	WriteThroughNoAllocate
)

func (p WritePolicy) String() string {
	switch p {
	case WriteBackWriteAllocate:
		return "WBWA"
	case WriteThroughNoAllocate:
		return "WTNA"
	default:
		return fmt.Sprintf("WritePolicy(%d)", int(p))
	}
}

// ParseWritePolicy converts a selector, either a number (0 for WBWA, 1 for
// WTNA) or a name, to a WritePolicy.
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "wbwa", "writeback":
		return WriteBackWriteAllocate, nil
	case "1", "wtna", "writethrough":
		return WriteThroughNoAllocate, nil
	default:
		return 0, &ConfigurationError{
			Field:  "WritePolicy",
			Value:  s,
			Reason: "must be 0 (wbwa) or 1 (wtna)",
		}
	}
}

// Config describes the geometry and the policies of a cache. A Config is a
// value; once a cache is built from it, it never changes.
type Config struct {
	BlockSize         int               `json:"block_size"`
	CacheByteSize     int               `json:"cache_byte_size"`
	Associativity     int               `json:"associativity"`
	ReplacementPolicy ReplacementPolicy `json:"replacement_policy"`
	WritePolicy       WritePolicy       `json:"write_policy"`
}

// NumSets returns the number of sets.
func (c Config) NumSets() int {
	return c.CacheByteSize / c.BlockSize / c.Associativity
}

// NumBlocks returns the number of blocks the cache can hold.
func (c Config) NumBlocks() int {
	return c.CacheByteSize / c.BlockSize
}

// OffsetBits returns the number of address bits that select a byte in a
// block.
func (c Config) OffsetBits() int {
	return log2(c.BlockSize)
}

// IndexBits returns the number of address bits that select a set.
func (c Config) IndexBits() int {
	return log2(c.NumSets())
}

// TagBits returns the number of address bits stored as the tag.
func (c Config) TagBits() int {
	return AddressWidth - c.OffsetBits() - c.IndexBits()
}

// Validate checks that the configuration describes a cache whose addresses
// can be decoded.
func (c Config) Validate() error {
	if err := mustBePowerOfTwo("BlockSize", c.BlockSize); err != nil {
		return err
	}

	if err := mustBePowerOfTwo("CacheByteSize", c.CacheByteSize); err != nil {
		return err
	}

	if err := mustBePowerOfTwo("Associativity", c.Associativity); err != nil {
		return err
	}

	if c.BlockSize > c.CacheByteSize {
		return &ConfigurationError{
			Field:  "BlockSize",
			Value:  c.BlockSize,
			Reason: fmt.Sprintf("larger than the cache of %d bytes", c.CacheByteSize),
		}
	}

	// BlockSize * Associativity can overflow int.
	blocks := c.CacheByteSize / c.BlockSize
	if c.Associativity > blocks || blocks%c.Associativity != 0 {
		return &ConfigurationError{
			Field: "Associativity",
			Value: c.Associativity,
			Reason: fmt.Sprintf(
				"cache of %d bytes cannot hold an integer number of "+
					"%d-way sets of %d-byte blocks",
				c.CacheByteSize, c.Associativity, c.BlockSize),
		}
	}

	if err := mustBePowerOfTwo("NumSets", c.NumSets()); err != nil {
		return err
	}

	if c.OffsetBits()+c.IndexBits() > AddressWidth {
		return &ConfigurationError{
			Field:  "CacheByteSize",
			Value:  c.CacheByteSize,
			Reason: "offset and index bits exceed the address width",
		}
	}

	return c.validatePolicies()
}

func (c Config) validatePolicies() error {
	switch c.ReplacementPolicy {
	case LeastRecentlyUsed, FirstInFirstOut:
	default:
		return &ConfigurationError{
			Field:  "ReplacementPolicy",
			Value:  int(c.ReplacementPolicy),
			Reason: "unknown replacement policy",
		}
	}

	switch c.WritePolicy {
	case WriteBackWriteAllocate, WriteThroughNoAllocate:
	default:
		return &ConfigurationError{
			Field:  "WritePolicy",
			Value:  int(c.WritePolicy),
			Reason: "unknown write policy",
		}
	}

	return nil
}

func mustBePowerOfTwo(field string, v int) error {
	if v <= 0 {
		return &ConfigurationError{
			Field:  field,
			Value:  v,
			Reason: "must be positive",
		}
	}

	if v&(v-1) != 0 {
		return &ConfigurationError{
			Field:  field,
			Value:  v,
			Reason: "must be a power of two",
		}
	}

	return nil
}

func log2(v int) int {
	return bits.TrailingZeros64(uint64(v))
}

// ParseSize parses a positive decimal integer given for a size parameter.
func ParseSize(field, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &ConfigurationError{
			Field:  field,
			Value:  s,
			Reason: "must be an integer",
		}
	}

	return v, nil
}
