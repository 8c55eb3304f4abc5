package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// allocation reports where a missing block was placed and what it replaced.
type allocation struct {
	block          tagging.Block
	evicted        bool
	evictedAddress uint32
	wroteBack      bool
}

func (e *Engine) issueRead(address uint32) {
	e.stats.MemoryTraffic++
	e.traceTransfer(TransferBlockRead, address)
}

func (e *Engine) issueWrite(address uint32) {
	e.stats.MemoryTraffic++
	e.traceTransfer(TransferBlockWrite, address)
}

func (e *Engine) writeBack(victim tagging.Block) tagging.Block {
	address := e.codec.Encode(victim.Tag, victim.SetID)

	e.stats.MemoryTraffic++
	e.stats.WriteBacks++
	e.traceTransfer(TransferWriteBack, address)

	victim.IsDirty = false
	e.tags.Update(victim)

	return victim
}

// allocate brings the block into the set. It takes the first invalid way,
// or evicts a victim if the set is full. A dirty victim is written back
// before the block is read from the next level.
func (e *Engine) allocate(tag uint32, setID int, dirty bool) allocation {
	alloc := allocation{}

	block, found := e.tags.FindInvalid(setID)
	if !found {
		block = e.tags.FindVictim(setID)
		alloc.evicted = true
		alloc.evictedAddress = e.codec.Encode(block.Tag, setID)

		if block.IsDirty {
			block = e.writeBack(block)
			alloc.wroteBack = true
		}
	}

	e.issueRead(e.codec.Encode(tag, setID))

	block.Tag = tag
	block.IsValid = true
	block.IsDirty = dirty
	e.tags.Fill(block)

	alloc.block = block

	return alloc
}
