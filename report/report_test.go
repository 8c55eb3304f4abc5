package report

import (
	"bytes"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/mem/cache"
)

const golden = `  ===== Simulator configuration =====
  L1_BLOCKSIZE:                    32
  L1_SIZE:                       8192
  L1_ASSOC:                         4
  L1_REPLACEMENT_POLICY:            0
  L1_WRITE_POLICY:                  1
  trace_file:            gcc_trace.txt
  ===================================

  ====== Simulation results (raw) ======
  a. number of L1 reads:               3
  b. number of L1 read misses:         1
  c. number of L1 writes:              1
  d. number of L1 write misses:        1
  e. L1 miss rate:                0.5000
  f. total memory traffic:             3

  ==== Simulation results (performance) ====
  1. average access time:         10.9391 ns
`

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func sampleSummary() Summary {
	return Summary{
		Name:      "L1",
		TraceFile: "gcc_trace.txt",
		Config: cache.Config{
			BlockSize:         32,
			CacheByteSize:     8192,
			Associativity:     4,
			ReplacementPolicy: cache.LeastRecentlyUsed,
			WritePolicy:       cache.WriteThroughNoAllocate,
		},
		Stats: cache.Statistics{
			Reads: 3, ReadHits: 2, ReadMisses: 1,
			Writes: 1, WriteMisses: 1,
			MemoryTraffic: 3,
		},
	}
}

var _ = Describe("Report", func() {
	It("should print the classic layout", func() {
		buf := new(bytes.Buffer)

		Expect(Write(buf, sampleSummary())).To(Succeed())

		Expect(buf.String()).To(Equal(golden))
	})

	It("should return the writer error", func() {
		Expect(Write(failingWriter{}, sampleSummary())).
			To(MatchError("disk full"))
	})

	It("should print JSON with the performance model", func() {
		buf := new(bytes.Buffer)

		Expect(WriteJSON(buf, sampleSummary())).To(Succeed())

		var out map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &out)).To(Succeed())
		Expect(out).To(HaveKeyWithValue("name", "L1"))
		Expect(out["stats"]).To(HaveKeyWithValue("memory_traffic", 3.0))
		Expect(out["performance"]).
			To(HaveKeyWithValue("miss_rate", 0.5))
	})

	It("should summarize an engine and dump its sets", func() {
		e, err := cache.MakeBuilder().
			WithBlockSize(16).
			WithCacheByteSize(64).
			WithWayAssociativity(2).
			Build("L1")
		Expect(err).NotTo(HaveOccurred())
		_, err = e.Write(0x20)
		Expect(err).NotTo(HaveOccurred())

		s := Summarize(e, "t.txt")
		Expect(s.Stats.WriteMisses).To(Equal(uint64(1)))
		Expect(s.TraceFile).To(Equal("t.txt"))

		buf := new(bytes.Buffer)
		Expect(WriteSets(buf, e)).To(Succeed())
		Expect(buf.String()).To(Equal(
			"set     0:         1 V D         - - -\n" +
				"set     1:         - - -         - - -\n"))
	})
})
