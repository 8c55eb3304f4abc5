package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// A writeStrategy decides how misses and write hits change the cache.
type writeStrategy interface {
	onReadMiss(tag uint32, setID int) allocation
	onWriteHit(block tagging.Block)
	onWriteMiss(tag uint32, setID int) (allocation, bool)
}

// writeBackStrategy keeps written data in the cache until the block is
// evicted. Write misses allocate the block.
type writeBackStrategy struct {
	*Engine
}

func (s *writeBackStrategy) onReadMiss(tag uint32, setID int) allocation {
	return s.allocate(tag, setID, false)
}

func (s *writeBackStrategy) onWriteHit(block tagging.Block) {
	block.IsDirty = true
	s.tags.Visit(block)
}

func (s *writeBackStrategy) onWriteMiss(
	tag uint32,
	setID int,
) (allocation, bool) {
	return s.allocate(tag, setID, true), true
}

// writeThroughStrategy sends every write to the next level. Write misses do
// not allocate, so blocks are never dirty.
type writeThroughStrategy struct {
	*Engine
}

func (s *writeThroughStrategy) onReadMiss(tag uint32, setID int) allocation {
	return s.allocate(tag, setID, false)
}

func (s *writeThroughStrategy) onWriteHit(block tagging.Block) {
	s.issueWrite(s.codec.Encode(block.Tag, block.SetID))
	s.tags.Visit(block)
}

func (s *writeThroughStrategy) onWriteMiss(
	tag uint32,
	setID int,
) (allocation, bool) {
	s.issueWrite(s.codec.Encode(tag, setID))

	return allocation{}, false
}
