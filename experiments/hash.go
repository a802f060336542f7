package experiments

import (
	"crypto/sha1"
	"math/big"
)

// NumBuckets is the number of buckets every bucketing provider hashes
// into. Changing this value would reshuffle every live experiment, so it
// is pinned as a constant rather than made configurable.
const NumBuckets = 1000

// Bucket deterministically maps (seed, key) to an integer in
// [0, NumBuckets).
//
// The digest is SHA-1 over the UTF-8 concatenation of seed and key,
// interpreted as a big-endian unsigned integer and reduced modulo
// NumBuckets. This algorithm must stay bit-exact: every caller that has
// ever bucketed a live experiment depends on today's assignment not
// shifting tomorrow.
func Bucket(seed, key string) int {
	digest := sha1.Sum([]byte(seed + key))
	n := new(big.Int).SetBytes(digest[:])
	n.Mod(n, big.NewInt(NumBuckets))
	return int(n.Int64())
}
