// Package verify generates the short pickup codes shown to riders. Codes are
// human-readable hints, not secrets: math/rand is plenty, and collisions across
// concurrently-ready orders are tolerated.
package verify

import "math/rand"

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is fixed at four characters so the code fits the order card.
const CodeLength = 4

// Code returns a fresh verification code drawn uniformly from A-Z0-9.
func Code() string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
