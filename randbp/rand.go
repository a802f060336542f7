package randbp

import (
	"math/rand"
)

// R is a properly seeded, thread-safe, shared *math/rand.Rand instance.
var R = rand.New(NewLockedSource64(rand.NewSource(GetSeed())))
