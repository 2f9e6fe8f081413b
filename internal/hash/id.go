package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
// Dataset names are identified by this hash throughout the chunk format;
// collisions are detected and resolved by storing the names payload.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}
