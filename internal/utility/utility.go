package utility

import (
	"fmt"
	"math/rand/v2"
)

// RandomColorHex returns a lowercase #rrggbb colour whose components stay
// between 4 and 251.
func RandomColorHex() string {
	r := 4 + rand.IntN(248)
	g := 4 + rand.IntN(248)
	b := 4 + rand.IntN(248)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// DefaultName derives a display name from a peer id.
func DefaultName(id string) string {
	if len(id) > 6 {
		id = id[:6]
	}
	return "Player " + id
}
