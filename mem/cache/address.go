package cache

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// addressCodec splits 32-bit addresses into tag, set index and block offset.
type addressCodec struct {
	offsetBits int
	indexBits  int
	indexMask  uint32
}

func newAddressCodec(c Config) addressCodec {
	return addressCodec{
		offsetBits: c.OffsetBits(),
		indexBits:  c.IndexBits(),
		indexMask:  uint32(1)<<c.IndexBits() - 1,
	}
}

// Decode returns the tag and the set index of an address. The offset within
// the block is dropped.
func (c addressCodec) Decode(address uint64) (tag uint32, setID int, err error) {
	if address > math.MaxUint32 {
		return 0, 0, &InvalidAddressError{
			Input:  fmt.Sprintf("0x%x", address),
			Reason: fmt.Sprintf("wider than %d bits", AddressWidth),
		}
	}

	addr := uint32(address)
	setID = int((addr >> c.offsetBits) & c.indexMask)
	tag = uint32(uint64(addr) >> (c.offsetBits + c.indexBits))

	return tag, setID, nil
}

// Encode returns the address of the first byte of the block identified by
// the tag and the set index.
func (c addressCodec) Encode(tag uint32, setID int) uint32 {
	blockNumber := uint64(tag)<<c.indexBits | uint64(setID)

	return uint32(blockNumber << c.offsetBits)
}

// ParseAddress parses a hexadecimal address, with or without the 0x prefix.
func ParseAddress(s string) (uint32, error) {
	trimmed := strings.TrimSpace(s)
	digits := strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")

	if digits == "" {
		return 0, &InvalidAddressError{Input: s, Reason: "empty address"}
	}

	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, &InvalidAddressError{
				Input:  s,
				Reason: fmt.Sprintf("wider than %d bits", AddressWidth),
			}
		}

		return 0, &InvalidAddressError{
			Input:  s,
			Reason: "not a hexadecimal number",
		}
	}

	if v > math.MaxUint32 {
		return 0, &InvalidAddressError{
			Input:  s,
			Reason: fmt.Sprintf("wider than %d bits", AddressWidth),
		}
	}

	return uint32(v), nil
}
