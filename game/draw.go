// game/draw.go
package game

import (
	"math/rand"
)

const (
	MinNumber = 1
	MaxNumber = 75
	bandWidth = 15
)

var letters = []string{"B", "I", "N", "G", "O"}

// NewPool returns the full ordered set of callable numbers for a round.
func NewPool() []int {
	pool := make([]int, 0, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		pool = append(pool, n)
	}
	return pool
}

// Undrawn returns the complement of drawn in pool, preserving pool order.
func Undrawn(pool, drawn []int) []int {
	seen := make(map[int]bool, len(drawn))
	for _, n := range drawn {
		seen[n] = true
	}

	undrawn := make([]int, 0, len(pool)-len(drawn))
	for _, n := range pool {
		if !seen[n] {
			undrawn = append(undrawn, n)
		}
	}
	return undrawn
}

// Draw picks one value uniformly at random from undrawn and returns it with
// its letter band. ok is false when nothing is left to draw.
func Draw(undrawn []int) (number int, letter string, ok bool) {
	if len(undrawn) == 0 {
		return 0, "", false
	}
	number = undrawn[rand.Intn(len(undrawn))]
	return number, LetterFor(number), true
}

// LetterFor maps a number to its column letter: 1-15 B, 16-30 I, 31-45 N,
// 46-60 G, 61-75 O.
func LetterFor(n int) string {
	if n < MinNumber || n > MaxNumber {
		return ""
	}
	return letters[(n-MinNumber)/bandWidth]
}
