package services

import (
	"SmartDentist/models"
	"math/rand"
)

// RandomSource picks an index in [0, n).
type RandomSource interface {
	Intn(n int) int
}

type globalRandom struct{}

// Intn uses the auto-seeded, goroutine safe top-level generator.
func (globalRandom) Intn(n int) int {
	return rand.Intn(n)
}

// DefaultRandomSource is the unseeded production source.
func DefaultRandomSource() RandomSource {
	return globalRandom{}
}

// ChooseVariant picks one catalog entry uniformly at random.
func ChooseVariant(entries []models.ImplantLibrary, rng RandomSource) (*models.ImplantLibrary, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyLibrary
	}
	chosen := entries[rng.Intn(len(entries))]
	return &chosen, nil
}
