package session

import "math/rand"

// Seat orders two participants by a coin flip: index 0 plays White.
func Seat(rng *rand.Rand, a, b Participant) [2]Participant {
	if rng != nil && rng.Intn(2) == 1 {
		return [2]Participant{b, a}
	}
	return [2]Participant{a, b}
}
