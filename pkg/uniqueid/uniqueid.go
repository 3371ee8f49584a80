// Package uniqueid generates object keys for ingested payloads.
package uniqueid

import "github.com/google/uuid"

// Generator returns a fresh key on every call.
type Generator interface {
	Generate() string
}

type randomGenerator struct{}

// NewGenerator returns a Generator producing random (version 4) UUIDs in
// their canonical dashed form. Collisions are not checked.
func NewGenerator() Generator {
	return randomGenerator{}
}

func (randomGenerator) Generate() string {
	return uuid.NewString()
}

// Func adapts a plain function to Generator.
type Func func() string

// Generate calls f.
func (f Func) Generate() string {
	return f()
}
