package random

import (
	"crypto/rand"
	"math/big"
)

// Random provides the randomness used for deck shuffles and guest identities.
// Tests substitute a queue-driven mock.
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int

	// String generates a random string of the given length from the given alphabet
	String(length int, alphabet string) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Intn returns a cryptographically random int in [0, n)
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	result, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(result.Int64())
}

// String generates a random string of the given length from the given alphabet
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	result := make([]byte, length)
	for i := range result {
		result[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(result)
}

// Shuffle permutes n elements in place with Fisher-Yates, drawing from rnd.
// Draws are made from the last index down, so a mock can script the order.
func Shuffle(rnd Random, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, rnd.Intn(i+1))
	}
}

// Pick returns a random element of items, or the zero value when empty
func Pick[T any](rnd Random, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[rnd.Intn(len(items))]
}
