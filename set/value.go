package set

// Value is the value type used by the sets defined in this package.
//
// It's defined as a type alias of empty struct, so it takes no additional
// memory in the map.
type Value = struct{}

// DummyValue is the value to store into the underlying map when adding an
// item to a set.
var DummyValue Value
