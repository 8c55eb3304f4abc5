// Package cache models a single set-associative cache level.
//
// An Engine is driven by a sequence of reads and writes. Each access is
// decoded into a tag and a set index, looked up in the set, and then
// updates the valid, dirty and replacement state of the set together with
// the statistics counters. Transfers to the next level are only counted;
// no data is stored.
//
// An Engine is not safe for concurrent use.
package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
	"github.com/sarchlab/cachesim/sim/naming"
)

// An Engine simulates one cache level.
type Engine struct {
	hooking.HookableBase
	naming.NamedBase

	config        Config
	codec         addressCodec
	tags          tagging.Tags
	writeStrategy writeStrategy
	stats         Statistics
	seq           uint64
}

// Config returns the configuration the cache was built with.
func (e *Engine) Config() Config {
	return e.config
}

// Stats returns a snapshot of the access counters.
func (e *Engine) Stats() Statistics {
	return e.stats
}

// Performance evaluates the performance model on the current counters.
func (e *Engine) Performance() Performance {
	return EvaluatePerformance(e.config, e.stats)
}

// NumSets returns the number of sets.
func (e *Engine) NumSets() int {
	return e.tags.NumSets()
}

// BlockState is a copy of the state of one way.
type BlockState struct {
	WayID   int    `json:"way_id"`
	Tag     uint32 `json:"tag"`
	Address uint32 `json:"address"`
	Valid   bool   `json:"valid"`
	Dirty   bool   `json:"dirty"`
	Counter uint64 `json:"counter"`
}

// Set returns a copy of the ways of the set with the given index.
func (e *Engine) Set(setID int) []BlockState {
	set := e.tags.GetSet(setID)

	states := make([]BlockState, len(set.Blocks))
	for i, b := range set.Blocks {
		states[i] = BlockState{
			WayID:   b.WayID,
			Tag:     b.Tag,
			Valid:   b.IsValid,
			Dirty:   b.IsDirty,
			Counter: b.Counter,
		}

		if b.IsValid {
			states[i].Address = e.codec.Encode(b.Tag, b.SetID)
		}
	}

	return states
}

// Reset invalidates every block and clears the statistics. Access sequence
// numbers keep counting, so records from before and after a reset never
// share a number.
func (e *Engine) Reset() {
	e.tags.Reset()
	e.stats = Statistics{}
}

// Access performs a read or a write.
func (e *Engine) Access(kind AccessKind, address uint64) (Outcome, error) {
	if kind == AccessWrite {
		return e.Write(address)
	}

	return e.Read(address)
}

// Write writes to the address. The returned error is an
// *InvalidAddressError if the address does not fit in 32 bits; in that case
// nothing in the cache changes.
func (e *Engine) Write(address uint64) (Outcome, error) {
	tag, setID, err := e.codec.Decode(address)
	if err != nil {
		return Miss, err
	}

	record := e.startAccess(AccessWrite, address, tag, setID)
	e.stats.Writes++

	block, found := e.tags.Lookup(setID, tag)
	if found {
		e.stats.WriteHits++
		e.writeStrategy.onWriteHit(block)
		record.hit(block)
	} else {
		e.stats.WriteMisses++
		alloc, allocated := e.writeStrategy.onWriteMiss(tag, setID)
		record.miss(alloc, allocated)
	}

	e.traceAccess(*record)

	return record.Outcome, nil
}

func (e *Engine) startAccess(
	kind AccessKind,
	address uint64,
	tag uint32,
	setID int,
) *AccessRecord {
	e.seq++

	return &AccessRecord{
		Seq:     e.seq,
		Kind:    kind,
		Address: uint32(address),
		Tag:     tag,
		SetID:   setID,
		WayID:   -1,
	}
}

func (r *AccessRecord) hit(block tagging.Block) {
	r.Outcome = Hit
	r.WayID = block.WayID
}

func (r *AccessRecord) miss(alloc allocation, allocated bool) {
	r.Outcome = Miss
	if !allocated {
		return
	}

	r.WayID = alloc.block.WayID
	r.Evicted = alloc.evicted
	r.EvictedAddress = alloc.evictedAddress
	r.WroteBack = alloc.wroteBack
}
