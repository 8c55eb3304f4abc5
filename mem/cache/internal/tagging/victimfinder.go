package tagging

// A VictimFinder decides with block should be evicted
type VictimFinder interface {
	// Visit records that the block in the given way is accessed.
	Visit(set *Set, wayID int)

	// Fill records that a new block is allocated in the given way.
	Fill(set *Set, wayID int)

	// FindVictim returns the way to evict from a full set. Among the blocks
	// with the smallest counter, the one with the lowest way ID is chosen.
	FindVictim(set *Set) int

	// Reset drops any state kept outside the blocks.
	Reset()
}

// LRUVictimFinder evicts the least recently used block to evict
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// Visit moves the block to the most recently used position.
func (e *LRUVictimFinder) Visit(set *Set, wayID int) {
	set.Blocks[wayID].Counter = maxCounter(set) + 1
}

// Fill treats allocation as the first access to the block.
func (e *LRUVictimFinder) Fill(set *Set, wayID int) {
	e.Visit(set, wayID)
}

// FindVictim returns the least recently used block in a set
func (e *LRUVictimFinder) FindVictim(set *Set) int {
	return minCounterWay(set)
}

// Reset does nothing as all the state lives in the blocks.
func (e *LRUVictimFinder) Reset() {
}

// FIFOVictimFinder evicts the block that was allocated first. Hits do not
// change the order.
type FIFOVictimFinder struct {
	nextArrival uint64
}

// NewFIFOVictimFinder returns a newly constructed fifo evictor
func NewFIFOVictimFinder() *FIFOVictimFinder {
	e := new(FIFOVictimFinder)
	e.Reset()

	return e
}

// Visit does nothing. The arrival order is fixed at allocation.
func (e *FIFOVictimFinder) Visit(_ *Set, _ int) {
}

// Fill stamps the block with the next arrival number.
func (e *FIFOVictimFinder) Fill(set *Set, wayID int) {
	set.Blocks[wayID].Counter = e.nextArrival
	e.nextArrival++
}

// FindVictim returns the earliest allocated block in a set
func (e *FIFOVictimFinder) FindVictim(set *Set) int {
	return minCounterWay(set)
}

// Reset restarts the arrival sequence.
func (e *FIFOVictimFinder) Reset() {
	e.nextArrival = 1
}

func maxCounter(set *Set) uint64 {
	var highest uint64
	for _, block := range set.Blocks {
		if block.Counter > highest {
			highest = block.Counter
		}
	}

	return highest
}

func minCounterWay(set *Set) int {
	mustBeFull(set)

	victim := 0
	for i, block := range set.Blocks {
		if block.Counter < set.Blocks[victim].Counter {
			victim = i
		}
	}

	return victim
}

func mustBeFull(set *Set) {
	for _, block := range set.Blocks {
		if !block.IsValid {
			panic("victim requested from a set with invalid blocks")
		}
	}
}
