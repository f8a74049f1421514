package engine

import "math/rand"

// ShuffleSeats returns a seeded permutation of the roster. The same seed
// always yields the same seating.
func ShuffleSeats(players []string, seed int64) []string {
	seated := make([]string, len(players))
	copy(seated, players)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(seated), func(i, j int) {
		seated[i], seated[j] = seated[j], seated[i]
	})
	return seated
}
