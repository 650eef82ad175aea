package activity

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator mints new activity IDs.
type Generator interface {
	Generate() (ID, error)
}

// NewRandomGenerator returns a generator that mints random (version 4)
// IDs.
func NewRandomGenerator() Generator {
	return randomGenerator{}
}

type randomGenerator struct{}

func (randomGenerator) Generate() (ID, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return Null, err
	}

	return ID(u), nil
}

// NewSequentialGenerator returns a generator whose IDs carry an increasing
// counter in their low 64 bits. The first ID it emits ends in 1. Sequential
// IDs are deterministic, which makes traces reproducible.
func NewSequentialGenerator() Generator {
	return &sequentialGenerator{}
}

type sequentialGenerator struct {
	next uint64
}

func (g *sequentialGenerator) Generate() (ID, error) {
	id := ID{}
	binary.BigEndian.PutUint64(id[8:], atomic.AddUint64(&g.next, 1))

	return id, nil
}
