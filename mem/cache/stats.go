package cache

// Statistics holds the access counters of a cache. Counters only grow.
type Statistics struct {
	Reads       uint64 `json:"reads"`
	ReadHits    uint64 `json:"read_hits"`
	ReadMisses  uint64 `json:"read_misses"`
	Writes      uint64 `json:"writes"`
	WriteHits   uint64 `json:"write_hits"`
	WriteMisses uint64 `json:"write_misses"`
	WriteBacks  uint64 `json:"write_backs"`

	// MemoryTraffic counts the block transfers to and from the next level.
	MemoryTraffic uint64 `json:"memory_traffic"`
}

// Accesses returns the number of reads and writes.
func (s Statistics) Accesses() uint64 {
	return s.Reads + s.Writes
}

// Misses returns the number of read and write misses.
func (s Statistics) Misses() uint64 {
	return s.ReadMisses + s.WriteMisses
}

// MissRate returns the fraction of accesses that missed. It is 0 before
// the first access.
func (s Statistics) MissRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}

	return float64(s.Misses()) / float64(s.Accesses())
}

// Performance is the output of the access time model, in nanoseconds.
type Performance struct {
	HitTime           float64 `json:"hit_time"`
	MissPenalty       float64 `json:"miss_penalty"`
	MissRate          float64 `json:"miss_rate"`
	AverageAccessTime float64 `json:"average_access_time"`
}

// HitTime returns the hit time in nanoseconds.
//
//	0.25 + 2.5 * (size / 512 KB) + 0.025 * (block size / 16 B) + 0.025 * ways
func (c Config) HitTime() float64 {
	return 0.25 +
		2.5*(float64(c.CacheByteSize)/524288) +
		0.025*(float64(c.BlockSize)/16) +
		0.025*float64(c.Associativity)
}

// MissPenalty returns the miss penalty in nanoseconds.
//
//	20 + 0.5 * (block size / 16 B)
func (c Config) MissPenalty() float64 {
	return 20 + 0.5*(float64(c.BlockSize)/16)
}

// EvaluatePerformance applies the access time model.
func EvaluatePerformance(c Config, s Statistics) Performance {
	p := Performance{
		HitTime:     c.HitTime(),
		MissPenalty: c.MissPenalty(),
		MissRate:    s.MissRate(),
	}
	p.AverageAccessTime = p.HitTime + p.MissRate*p.MissPenalty

	return p
}
