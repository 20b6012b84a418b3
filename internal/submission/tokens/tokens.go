// Package tokens generates submission access tokens. A token is the sole
// capability a client needs to view and decide on their submission.
package tokens

import "github.com/google/uuid"

// Generator produces a fresh opaque token: 128 bits of entropy rendered in
// canonical UUID text form, the persisted format previously distributed in
// client links.
type Generator func() string

func NewGenerator() Generator {
	return uuid.NewString
}

// Fixed returns a generator that replays the given values, for tests.
func Fixed(values ...string) Generator {
	i := 0
	return func() string {
		if i >= len(values) {
			return uuid.NewString()
		}
		v := values[i]
		i++
		return v
	}
}
