// Package trace reads memory traces and records what a cache does with them.
package trace

import (
	"fmt"
	"log"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim/hooking"
	"github.com/sarchlab/cachesim/sim/naming"
)

// AccessEntry represents a cache access in the database
type AccessEntry struct {
	ID             string
	Location       string
	Seq            uint64
	Kind           string
	Address        uint32
	Tag            uint32
	SetID          int
	WayID          int
	Outcome        string
	Evicted        bool
	EvictedAddress uint32
	WroteBack      bool
}

// TransferEntry represents a next-level transfer in the database
type TransferEntry struct {
	ID       string
	Location string
	Seq      uint64
	Kind     string
	Address  uint32
}

// Table names used by the database tracer.
const (
	AccessTable   = "cache_accesses"
	TransferTable = "cache_transfers"
)

// A tracer is a hook that writes the accesses and transfers of a cache as
// lines of a log.
type tracer struct {
	logger *log.Logger
}

// NewTracer creates a new tracer that logs through the logger.
func NewTracer(logger *log.Logger) hooking.Hook {
	return &tracer{logger: logger}
}

// Func logs one access or transfer.
func (t *tracer) Func(ctx hooking.HookCtx) {
	switch item := ctx.Item.(type) {
	case cache.AccessRecord:
		t.logger.Printf(
			"access, %d, %s, %s, 0x%08x, %d, %d, %s\n",
			item.Seq,
			domainName(ctx),
			item.Kind,
			item.Address,
			item.SetID,
			item.WayID,
			item.Outcome,
		)
	case cache.Transfer:
		t.logger.Printf(
			"transfer, %d, %s, %s, 0x%08x\n",
			item.Seq,
			domainName(ctx),
			item.Kind,
			item.Address,
		)
	}
}

// A dbTracer is a hook that records the accesses and transfers of a cache
// into a database using the data recorder.
type dbTracer struct {
	dataRecorder  datarecording.DataRecorder
	transferCount uint64
}

// NewDBTracer creates a new database-based tracer.
func NewDBTracer(dataRecorder datarecording.DataRecorder) hooking.Hook {
	t := &dbTracer{
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(AccessTable, AccessEntry{})
	t.dataRecorder.CreateTable(TransferTable, TransferEntry{})

	return t
}

// Func records one access or transfer.
func (t *dbTracer) Func(ctx hooking.HookCtx) {
	location := domainName(ctx)

	switch item := ctx.Item.(type) {
	case cache.AccessRecord:
		entry := AccessEntry{
			ID:             fmt.Sprintf("%s-access-%d", location, item.Seq),
			Location:       location,
			Seq:            item.Seq,
			Kind:           item.Kind.String(),
			Address:        item.Address,
			Tag:            item.Tag,
			SetID:          item.SetID,
			WayID:          item.WayID,
			Outcome:        item.Outcome.String(),
			Evicted:        item.Evicted,
			EvictedAddress: item.EvictedAddress,
			WroteBack:      item.WroteBack,
		}
		t.dataRecorder.InsertData(AccessTable, entry)
	case cache.Transfer:
		t.transferCount++
		entry := TransferEntry{
			ID:       fmt.Sprintf("%s-transfer-%d", location, t.transferCount),
			Location: location,
			Seq:      item.Seq,
			Kind:     item.Kind.String(),
			Address:  item.Address,
		}
		t.dataRecorder.InsertData(TransferTable, entry)
	}
}

func domainName(ctx hooking.HookCtx) string {
	if n, ok := ctx.Domain.(naming.Named); ok {
		return n.Name()
	}

	return ""
}
