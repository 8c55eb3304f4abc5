package cache

// Read reads from the address. The returned error is an
// *InvalidAddressError if the address does not fit in 32 bits; in that case
// nothing in the cache changes.
func (e *Engine) Read(address uint64) (Outcome, error) {
	tag, setID, err := e.codec.Decode(address)
	if err != nil {
		return Miss, err
	}

	record := e.startAccess(AccessRead, address, tag, setID)
	e.stats.Reads++

	block, found := e.tags.Lookup(setID, tag)
	if found {
		e.stats.ReadHits++
		e.tags.Visit(block)
		record.hit(block)
	} else {
		e.stats.ReadMisses++
		alloc := e.writeStrategy.onReadMiss(tag, setID)
		record.miss(alloc, true)
	}

	e.traceAccess(*record)

	return record.Outcome, nil
}
