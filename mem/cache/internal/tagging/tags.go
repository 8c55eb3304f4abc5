// Package tagging keeps the per-set bookkeeping of a set-associative cache.
package tagging

import "fmt"

// Tags holds the tag, validity and dirtiness information of every way of
// every set.
type Tags interface {
	Lookup(setID int, tag uint32) (Block, bool)
	FindInvalid(setID int) (Block, bool)
	FindVictim(setID int) Block
	GetSet(setID int) *Set
	Visit(block Block)
	Fill(block Block)
	Update(block Block)
	NumSets() int
	NumWays() int
	Reset()
}

// NewTags creates a new Tags object. The victim finder decides the
// replacement order of the blocks within a set.
func NewTags(
	numSets int,
	numWays int,
	victimFinder VictimFinder,
) Tags {
	t := &tagsImpl{
		numSets:      numSets,
		numWays:      numWays,
		victimFinder: victimFinder,
	}

	t.Reset()

	return t
}

// A Block of a cache is the information that is associated with a cache line
type Block struct {
	Tag     uint32
	SetID   int
	WayID   int
	IsValid bool
	IsDirty bool

	// Counter orders the blocks of a set for replacement. Its meaning
	// depends on the victim finder.
	Counter uint64
}

// A Set is a list of blocks where a certain piece memory can be stored at.
type Set struct {
	Blocks []Block
}

type tagsImpl struct {
	numSets      int
	numWays      int
	sets         []Set
	victimFinder VictimFinder
}

func (t *tagsImpl) NumSets() int {
	return t.numSets
}

func (t *tagsImpl) NumWays() int {
	return t.numWays
}

// GetSet returns the set with the given ID.
func (t *tagsImpl) GetSet(setID int) *Set {
	return &t.sets[setID]
}

// Lookup finds the valid block that holds the tag in the set. The scan is
// linear over the ways.
func (t *tagsImpl) Lookup(setID int, tag uint32) (Block, bool) {
	set := t.GetSet(setID)
	for _, block := range set.Blocks {
		if block.IsValid && block.Tag == tag {
			return block, true
		}
	}

	return Block{}, false
}

// FindInvalid returns the invalid block with the lowest way ID in the set.
func (t *tagsImpl) FindInvalid(setID int) (Block, bool) {
	set := t.GetSet(setID)
	for _, block := range set.Blocks {
		if !block.IsValid {
			return block, true
		}
	}

	return Block{}, false
}

// FindVictim asks the victim finder which block to evict. The set must not
// have any invalid block.
func (t *tagsImpl) FindVictim(setID int) Block {
	set := t.GetSet(setID)
	wayID := t.victimFinder.FindVictim(set)

	return set.Blocks[wayID]
}

// Visit records a hit on the block.
func (t *tagsImpl) Visit(block Block) {
	t.Update(block)
	t.victimFinder.Visit(t.GetSet(block.SetID), block.WayID)
}

// Fill stores a newly allocated block and records its allocation.
func (t *tagsImpl) Fill(block Block) {
	t.Update(block)
	t.victimFinder.Fill(t.GetSet(block.SetID), block.WayID)
}

// Update updates the block information. The replacement counter is owned by
// the victim finder and is kept.
func (t *tagsImpl) Update(block Block) {
	t.mustBeInRange(block.SetID, block.WayID)

	stored := &t.sets[block.SetID].Blocks[block.WayID]
	block.Counter = stored.Counter
	*stored = block
}

// Reset will mark all the blocks in the directory invalid
func (t *tagsImpl) Reset() {
	t.sets = make([]Set, t.numSets)
	for i := 0; i < t.numSets; i++ {
		t.sets[i].Blocks = make([]Block, t.numWays)
		for j := 0; j < t.numWays; j++ {
			t.sets[i].Blocks[j] = Block{
				SetID: i,
				WayID: j,
			}
		}
	}

	t.victimFinder.Reset()
}

func (t *tagsImpl) mustBeInRange(setID, wayID int) {
	if setID < 0 || setID >= t.numSets || wayID < 0 || wayID >= t.numWays {
		panic(fmt.Sprintf("block (%d, %d) out of range", setID, wayID))
	}
}
