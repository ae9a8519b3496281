// Package variables reads and writes the variable bag of a conversation state.
//
// Every written value must be representable as JSON: nil, booleans, strings,
// finite numbers, and maps with string keys or slices built from those.
package variables
