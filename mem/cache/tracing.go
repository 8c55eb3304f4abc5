package cache

import (
	"github.com/sarchlab/cachesim/sim/hooking"
)

// HookPosAccess is triggered after the cache completes a read or a write.
// The hook item is an AccessRecord.
var HookPosAccess = &hooking.HookPos{Name: "CacheAccess"}

// HookPosTransfer is triggered whenever a block moves between the cache and
// the next level. The hook item is a Transfer.
var HookPosTransfer = &hooking.HookPos{Name: "CacheTransfer"}

// AccessKind tells reads from writes.
type AccessKind int

// The kinds of accesses.
const (
	AccessRead AccessKind = iota
	AccessWrite
)

func (k AccessKind) String() string {
	if k == AccessWrite {
		return "write"
	}

	return "read"
}

// Outcome tells hits from misses.
type Outcome int

// The outcomes of an access.
const (
	Miss Outcome = iota
	Hit
)

func (o Outcome) String() string {
	if o == Hit {
		return "hit"
	}

	return "miss"
}

// An AccessRecord describes one completed access.
type AccessRecord struct {
	Seq     uint64
	Kind    AccessKind
	Address uint32
	Tag     uint32
	SetID   int
	Outcome Outcome

	// WayID is the way that holds the block after the access, or -1 if the
	// block was not brought into the cache.
	WayID int

	Evicted        bool
	EvictedAddress uint32
	WroteBack      bool
}

// TransferKind tells the kinds of next-level transfers apart.
type TransferKind int

// The kinds of transfers.
const (
	TransferBlockRead TransferKind = iota
	TransferBlockWrite
	TransferWriteBack
)

func (k TransferKind) String() string {
	switch k {
	case TransferBlockRead:
		return "BlockRead"
	case TransferBlockWrite:
		return "BlockWrite"
	case TransferWriteBack:
		return "WriteBack"
	default:
		return "Unknown"
	}
}

// A Transfer is a block-granular request to the next level. Address always
// has zero offset bits.
type Transfer struct {
	Seq     uint64
	Kind    TransferKind
	Address uint32
}

func (e *Engine) traceAccess(record AccessRecord) {
	if e.NumHooks() == 0 {
		return
	}

	ctx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosAccess,
		Item:   record,
	}

	e.InvokeHook(ctx)
}

func (e *Engine) traceTransfer(kind TransferKind, address uint32) {
	if e.NumHooks() == 0 {
		return
	}

	ctx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosTransfer,
		Item: Transfer{
			Seq:     e.seq,
			Kind:    kind,
			Address: address,
		},
	}

	e.InvokeHook(ctx)
}
