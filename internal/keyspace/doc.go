// Package keyspace models the IPv4 search space as 32-bit integers and
// divides it into per-worker ranges.
//
// # Overview
//
// Every candidate address is a uint32 whose bytes, most significant first,
// are the four octets of the dotted-decimal form. The full space holds
// 2^32 addresses, so sizes are carried as uint64.
//
// # Partitioning
//
// Split hands each of W workers floor(len/W) consecutive addresses:
//
//	worker 0: [start,          start+size-1]
//	worker 1: [start+size,     start+2*size-1]
//	...
//	worker W-1: [start+(W-1)*size, end]   <- absorbs len mod W
//
// The last worker always ends at the space's upper bound, so an uneven
// division never leaves addresses unsearched. Verify checks that a set of
// ranges tiles a space with no gaps and no overlaps.
//
// # Formatting
//
// Format and AppendFormat render an address as text. AppendFormat writes
// into a caller-owned buffer and is what the search loop uses; Parse is its
// inverse.
//
// # Range expressions
//
// ParseRange accepts "10.0.0.0-10.0.255.255" or "10.0.0.0/16" and rejects
// anything that is not IPv4.
package keyspace
