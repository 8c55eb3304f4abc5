package cache

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Addresses 0x0, 0x800, 0x1000, ... all map to set 0 of an 8 KB, 4-way cache
// with 32-byte blocks.
func sameSetAddress(i int) uint64 {
	return uint64(i) * 0x800
}

func mustBuild(b Builder) *Engine {
	e, err := b.Build("L1")
	Expect(err).NotTo(HaveOccurred())

	return e
}

func mustRead(e *Engine, address uint64) Outcome {
	o, err := e.Read(address)
	Expect(err).NotTo(HaveOccurred())

	return o
}

func mustWrite(e *Engine, address uint64) Outcome {
	o, err := e.Write(address)
	Expect(err).NotTo(HaveOccurred())

	return o
}

func residentTags(e *Engine, setID int) []uint32 {
	tags := []uint32{}
	for _, b := range e.Set(setID) {
		if b.Valid {
			tags = append(tags, b.Tag)
		}
	}

	return tags
}

func expectConsistent(s Statistics) {
	Expect(s.Reads).To(Equal(s.ReadHits + s.ReadMisses))
	Expect(s.Writes).To(Equal(s.WriteHits + s.WriteMisses))
}

var _ = Describe("Engine", func() {
	var builder Builder

	BeforeEach(func() {
		builder = MakeBuilder().
			WithBlockSize(32).
			WithCacheByteSize(8192).
			WithWayAssociativity(4)
	})

	It("should start empty", func() {
		e := mustBuild(builder)

		Expect(e.Name()).To(Equal("L1"))
		Expect(e.Stats()).To(BeZero())
		Expect(e.NumSets()).To(Equal(64))
		for i := 0; i < e.NumSets(); i++ {
			for _, b := range e.Set(i) {
				Expect(b.Valid).To(BeFalse())
				Expect(b.Dirty).To(BeFalse())
				Expect(b.Counter).To(BeZero())
			}
		}
	})

	It("should miss then hit in a direct mapped cache", func() {
		e := mustBuild(builder.WithWayAssociativity(1))

		Expect(mustRead(e, 0x400341a0)).To(Equal(Miss))
		Expect(e.Stats().MemoryTraffic).To(Equal(uint64(1)))

		Expect(mustRead(e, 0x400341a0)).To(Equal(Hit))
		Expect(e.Stats().MemoryTraffic).To(Equal(uint64(1)))
		Expect(e.Stats().ReadHits).To(Equal(uint64(1)))
		Expect(e.Stats().ReadMisses).To(Equal(uint64(1)))
	})

	It("should hit on another byte of the same block", func() {
		e := mustBuild(builder)

		mustRead(e, 0x1000)

		Expect(mustRead(e, 0x101f)).To(Equal(Hit))
		Expect(mustRead(e, 0x1020)).To(Equal(Miss))
	})

	It("should fill invalid ways in order", func() {
		e := mustBuild(builder)

		for i := 0; i < 3; i++ {
			mustRead(e, sameSetAddress(i))
		}

		set := e.Set(0)
		Expect(set[0].Valid).To(BeTrue())
		Expect(set[1].Valid).To(BeTrue())
		Expect(set[2].Valid).To(BeTrue())
		Expect(set[3].Valid).To(BeFalse())
		Expect(set[1].Address).To(Equal(uint32(0x800)))
	})

	It("should reject wide addresses without changing state", func() {
		e := mustBuild(builder)
		mustRead(e, 0x40)
		before := e.Stats()
		setBefore := e.Set(2)

		_, err := e.Read(math.MaxUint32 + 1)
		Expect(err).To(BeAssignableToTypeOf(&InvalidAddressError{}))

		_, err = e.Write(1 << 40)
		Expect(err).To(BeAssignableToTypeOf(&InvalidAddressError{}))

		Expect(e.Stats()).To(Equal(before))
		Expect(e.Set(2)).To(Equal(setBefore))
	})

	Context("with LRU replacement", func() {
		It("should evict the least recently used block", func() {
			e := mustBuild(builder.WithReplacementPolicy(LeastRecentlyUsed))
			for i := 0; i < 4; i++ {
				mustRead(e, sameSetAddress(i))
			}

			mustRead(e, sameSetAddress(0))
			mustRead(e, sameSetAddress(1))
			Expect(mustRead(e, sameSetAddress(4))).To(Equal(Miss))

			Expect(residentTags(e, 0)).To(ConsistOf(
				uint32(0), uint32(1), uint32(3), uint32(4)))
			Expect(mustRead(e, sameSetAddress(2))).To(Equal(Miss))
		})

		It("should count a write hit as a use", func() {
			e := mustBuild(builder.WithReplacementPolicy(LeastRecentlyUsed))
			for i := 0; i < 4; i++ {
				mustRead(e, sameSetAddress(i))
			}

			mustWrite(e, sameSetAddress(0))
			mustRead(e, sameSetAddress(4))

			Expect(residentTags(e, 0)).To(ConsistOf(
				uint32(0), uint32(2), uint32(3), uint32(4)))
		})
	})

	Context("with FIFO replacement", func() {
		It("should evict the first allocated block regardless of hits", func() {
			e := mustBuild(builder.WithReplacementPolicy(FirstInFirstOut))
			for i := 0; i < 4; i++ {
				mustRead(e, sameSetAddress(i))
			}

			for i := 0; i < 5; i++ {
				Expect(mustRead(e, sameSetAddress(0))).To(Equal(Hit))
			}
			Expect(mustRead(e, sameSetAddress(4))).To(Equal(Miss))

			Expect(residentTags(e, 0)).To(ConsistOf(
				uint32(4), uint32(1), uint32(2), uint32(3)))

			Expect(mustRead(e, sameSetAddress(5))).To(Equal(Miss))
			Expect(residentTags(e, 0)).To(ConsistOf(
				uint32(4), uint32(5), uint32(2), uint32(3)))
		})

		It("should not change the counter on hits", func() {
			e := mustBuild(builder.WithReplacementPolicy(FirstInFirstOut))
			mustRead(e, sameSetAddress(0))
			counter := e.Set(0)[0].Counter

			mustRead(e, sameSetAddress(0))
			mustWrite(e, sameSetAddress(0))

			Expect(e.Set(0)[0].Counter).To(Equal(counter))
		})
	})

	Context("with write-back write-allocate", func() {
		BeforeEach(func() {
			builder = builder.WithWritePolicy(WriteBackWriteAllocate)
		})

		It("should allocate a dirty block on write miss", func() {
			e := mustBuild(builder)

			Expect(mustWrite(e, 0x2000)).To(Equal(Miss))

			Expect(e.Stats().MemoryTraffic).To(Equal(uint64(1)))
			Expect(e.Stats().WriteMisses).To(Equal(uint64(1)))
			set := e.Set(0)
			Expect(set[0].Valid).To(BeTrue())
			Expect(set[0].Dirty).To(BeTrue())
			Expect(mustRead(e, 0x2000)).To(Equal(Hit))
		})

		It("should mark the block dirty on write hit without traffic", func() {
			e := mustBuild(builder)
			mustRead(e, 0x2000)

			Expect(mustWrite(e, 0x2000)).To(Equal(Hit))

			Expect(e.Stats().MemoryTraffic).To(Equal(uint64(1)))
			Expect(e.Set(0)[0].Dirty).To(BeTrue())
		})

		It("should write back a dirty victim once", func() {
			dirty := mustBuild(builder.WithWayAssociativity(1))
			mustWrite(dirty, 0x0)
			mustRead(dirty, 0x2000)

			clean := mustBuild(builder.WithWayAssociativity(1))
			mustRead(clean, 0x0)
			mustRead(clean, 0x2000)

			Expect(dirty.Stats().WriteBacks).To(Equal(uint64(1)))
			Expect(clean.Stats().WriteBacks).To(BeZero())
			Expect(dirty.Stats().MemoryTraffic).
				To(Equal(clean.Stats().MemoryTraffic + 1))
			Expect(dirty.Set(0)[0].Dirty).To(BeFalse())
		})

		It("should keep the new block dirty when a write evicts", func() {
			e := mustBuild(builder.WithWayAssociativity(1))
			mustWrite(e, 0x0)

			Expect(mustWrite(e, 0x2000)).To(Equal(Miss))

			Expect(e.Stats().WriteBacks).To(Equal(uint64(1)))
			Expect(e.Stats().MemoryTraffic).To(Equal(uint64(3)))
			Expect(e.Set(0)[0].Dirty).To(BeTrue())
			Expect(e.Set(0)[0].Tag).To(Equal(uint32(1)))
		})

		It("should not write back a clean victim on a write miss", func() {
			e := mustBuild(builder.WithWayAssociativity(1))
			mustRead(e, 0x0)

			mustWrite(e, 0x2000)

			Expect(e.Stats().WriteBacks).To(BeZero())
			Expect(e.Stats().MemoryTraffic).To(Equal(uint64(2)))
			Expect(e.Set(0)[0].Dirty).To(BeTrue())
		})
	})

	Context("with write-through no-allocate", func() {
		BeforeEach(func() {
			builder = builder.WithWritePolicy(WriteThroughNoAllocate)
		})

		It("should not allocate on write miss", func() {
			e := mustBuild(builder)

			Expect(mustWrite(e, 0x2000)).To(Equal(Miss))
			Expect(e.Stats().MemoryTraffic).To(Equal(uint64(1)))
			Expect(residentTags(e, 0)).To(BeEmpty())

			Expect(mustRead(e, 0x2000)).To(Equal(Miss))
		})

		It("should write to the next level on write hit", func() {
			e := mustBuild(builder)
			mustRead(e, 0x2000)

			Expect(mustWrite(e, 0x2000)).To(Equal(Hit))

			Expect(e.Stats().MemoryTraffic).To(Equal(uint64(2)))
			Expect(e.Set(0)[0].Dirty).To(BeFalse())
		})

		It("should never write back", func() {
			e := mustBuild(builder.WithWayAssociativity(1))
			for i := 0; i < 20; i++ {
				mustRead(e, sameSetAddress(i%3))
				mustWrite(e, sameSetAddress(i%3))
			}

			Expect(e.Stats().WriteBacks).To(BeZero())
		})
	})

	It("should keep the counters consistent for two conflicting blocks", func() {
		e := mustBuild(builder.
			WithReplacementPolicy(LeastRecentlyUsed).
			WithWritePolicy(WriteThroughNoAllocate))

		pattern := []AccessKind{
			AccessRead, AccessWrite, AccessRead, AccessRead, AccessWrite,
			AccessWrite, AccessRead, AccessWrite, AccessRead, AccessRead,
		}
		for round := 0; round < 10; round++ {
			for i, kind := range pattern {
				_, err := e.Access(kind, sameSetAddress((round+i)%2))
				Expect(err).NotTo(HaveOccurred())
			}
		}

		s := e.Stats()
		expectConsistent(s)
		Expect(s.Accesses()).To(Equal(uint64(100)))
		Expect(s.ReadMisses).To(Equal(uint64(2)))
	})

	It("should never hold a duplicated tag or a dirty invalid block", func() {
		e := mustBuild(builder.
			WithWayAssociativity(2).
			WithReplacementPolicy(FirstInFirstOut))

		for i := 0; i < 200; i++ {
			address := uint64((i*7919)%13) * 0x1000
			if i%3 == 0 {
				mustWrite(e, address)
			} else {
				mustRead(e, address)
			}
		}

		expectConsistent(e.Stats())
		for s := 0; s < e.NumSets(); s++ {
			seen := map[uint32]bool{}
			for _, b := range e.Set(s) {
				if !b.Valid {
					Expect(b.Dirty).To(BeFalse())
					continue
				}

				Expect(seen[b.Tag]).To(BeFalse())
				seen[b.Tag] = true
			}
		}
	})

	It("should reset to the initial state", func() {
		e := mustBuild(builder)
		mustWrite(e, 0x40)

		e.Reset()

		Expect(e.Stats()).To(BeZero())
		Expect(residentTags(e, 2)).To(BeEmpty())
		Expect(mustRead(e, 0x40)).To(Equal(Miss))
	})

	It("should keep numbering accesses across a reset", func() {
		e := mustBuild(builder)
		var seqs []uint64
		e.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if r, ok := ctx.Item.(AccessRecord); ok {
				seqs = append(seqs, r.Seq)
			}
		}))

		mustRead(e, 0x40)
		mustWrite(e, 0x80)
		e.Reset()
		mustRead(e, 0x40)

		Expect(seqs).To(Equal([]uint64{1, 2, 3}))
	})
})
