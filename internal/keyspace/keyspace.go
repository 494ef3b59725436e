package keyspace

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"go4.org/netipx"
	"golang.org/x/exp/slices"
)

var (
	// ErrInvalidWorkerCount is returned when a space cannot be split into the
	// requested number of non-empty ranges.
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	// ErrInvalidRange is returned for malformed or non-IPv4 range expressions.
	ErrInvalidRange = errors.New("invalid address range")
)

// Size is the number of addresses in the full IPv4 space (2^32).
const Size uint64 = 1 << 32

// Full covers every IPv4 address, 0.0.0.0 through 255.255.255.255.
var Full = Range{Start: 0, End: 0xffffffff}

// Range is a closed interval [Start, End] of IPv4 addresses in integer form.
// A Range produced by Split is owned by exactly one worker.
type Range struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// Len returns the number of addresses in the range.
// It is a uint64 because Full holds 2^32 addresses.
func (r Range) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return uint64(r.End) - uint64(r.Start) + 1
}

// Contains reports whether addr lies within the range.
func (r Range) Contains(addr uint32) bool {
	return addr >= r.Start && addr <= r.End
}

// IPRange converts the range to its netipx form.
func (r Range) IPRange() netipx.IPRange {
	return netipx.IPRangeFrom(addrFrom(r.Start), addrFrom(r.End))
}

// String renders the range as "first-last" in dotted-decimal form.
func (r Range) String() string {
	return r.IPRange().String()
}

// Partition splits the full IPv4 space across workers.
// It is shorthand for Split(Full, workers).
func Partition(workers int) ([]Range, error) {
	return Split(Full, workers)
}

// Split divides space into workers contiguous ranges of floor(len/workers)
// addresses each. The last range is extended to space.End so the remainder
// of an uneven division is still searched.
//
// Returns ErrInvalidWorkerCount when workers < 1 or workers exceeds the
// number of addresses in space, since some range would then be empty.
//
// Example:
//
//	ranges, _ := keyspace.Split(keyspace.Full, 3)
//	// ranges[2].End == 0xffffffff even though 2^32 is not divisible by 3
func Split(space Range, workers int) ([]Range, error) {
	total := space.Len()
	if total == 0 {
		return nil, fmt.Errorf("%w: empty space %d-%d", ErrInvalidRange, space.Start, space.End)
	}
	if workers < 1 || uint64(workers) > total {
		return nil, fmt.Errorf("%w: %d workers for %d addresses", ErrInvalidWorkerCount, workers, total)
	}

	size := total / uint64(workers)
	ranges := make([]Range, workers)
	for i := range ranges {
		start := uint64(space.Start) + uint64(i)*size
		end := start + size - 1
		ranges[i] = Range{Start: uint32(start), End: uint32(end)}
	}
	ranges[workers-1].End = space.End

	return ranges, nil
}

// Verify checks that ranges tile space exactly: every address of space is
// covered by one range and no range reaches outside it. The input order
// does not matter.
func Verify(space Range, ranges []Range) error {
	if len(ranges) == 0 {
		return fmt.Errorf("%w: no ranges", ErrInvalidRange)
	}

	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b Range) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})

	if sorted[0].Start != space.Start {
		return fmt.Errorf("%w: first range starts at %s, want %s",
			ErrInvalidRange, addrFrom(sorted[0].Start), addrFrom(space.Start))
	}
	for i, r := range sorted {
		if r.End < r.Start {
			return fmt.Errorf("%w: range %d is empty", ErrInvalidRange, i)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if uint64(r.Start) != uint64(prev.End)+1 {
			return fmt.Errorf("%w: %s and %s overlap or leave a gap", ErrInvalidRange, prev, r)
		}
	}
	if last := sorted[len(sorted)-1]; last.End != space.End {
		return fmt.Errorf("%w: last range ends at %s, want %s",
			ErrInvalidRange, addrFrom(last.End), addrFrom(space.End))
	}

	return nil
}

// ParseRange parses an IPv4 range written either as "a.b.c.d-e.f.g.h" or as
// a CIDR prefix "a.b.c.d/n". IPv6 input is rejected.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)

	var ipr netipx.IPRange
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
		ipr = netipx.RangeOfPrefix(p.Masked())
	} else {
		var err error
		ipr, err = netipx.ParseIPRange(s)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
	}

	if !ipr.IsValid() || !ipr.From().Is4() || !ipr.To().Is4() {
		return Range{}, fmt.Errorf("%w: %q is not an IPv4 range", ErrInvalidRange, s)
	}

	return Range{Start: toUint32(ipr.From()), End: toUint32(ipr.To())}, nil
}

// Format renders addr as four dot-separated decimal octets, most
// significant byte first.
func Format(addr uint32) string {
	var buf [15]byte
	return string(AppendFormat(buf[:0], addr))
}

// AppendFormat appends the dotted-decimal form of addr to dst.
// Workers call it with a reused buffer so the hot loop does not allocate.
func AppendFormat(dst []byte, addr uint32) []byte {
	dst = strconv.AppendUint(dst, uint64(addr>>24), 10)
	dst = append(dst, '.')
	dst = strconv.AppendUint(dst, uint64(addr>>16&0xff), 10)
	dst = append(dst, '.')
	dst = strconv.AppendUint(dst, uint64(addr>>8&0xff), 10)
	dst = append(dst, '.')
	return strconv.AppendUint(dst, uint64(addr&0xff), 10)
}

// Parse is the inverse of Format.
func Parse(s string) (uint32, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return 0, err
	}
	if !a.Is4() {
		return 0, fmt.Errorf("%q is not an IPv4 address", s)
	}
	return toUint32(a), nil
}

func addrFrom(v uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func toUint32(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
