package randbp

import (
	"math/rand"
)

// Base64Runes are all the runes allowed in standard and url safe base64
// encodings.
//
// This is a common, safe to use set of runes to be used with
// GenerateRandomString.
const Base64Runes = `ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_+/=`

// RandomStringArgs defines the args used by GenerateRandomString.
type RandomStringArgs struct {
	// Required. If MaxLength <= MinLength it will cause panic.
	MaxLength int

	// Optional. Default is 0, which means the generated string could be empty.
	MinLength int

	// Optional. If nil, R will be used instead.
	R *rand.Rand

	// Optional. If empty, Base64Runes will be used instead.
	Runes []rune
}

// GenerateRandomString generates a random string with length
// [MinLength, MaxLength), and all characters limited to Runes.
//
// It could be used to help implement testing/quick.Generator interface.
func GenerateRandomString(args RandomStringArgs) string {
	r := args.R
	if r == nil {
		r = R
	}
	runes := args.Runes
	if len(runes) == 0 {
		runes = []rune(Base64Runes)
	}
	n := args.MinLength + r.Intn(args.MaxLength-args.MinLength)
	ret := make([]rune, n)
	for i := range ret {
		ret[i] = runes[r.Intn(len(runes))]
	}
	return string(ret)
}
