package ml

import (
	"strings"

	"github.com/spaolacci/murmur3"
)

// Hasher maps namespace and feature names to 32-bit feature hashes.
type Hasher interface {
	HashSpace(namespace string) uint32
	HashFeature(name string, namespaceHash uint32) uint32
}

// VWHasher hashes names the way Vowpal Wabbit's text parser does: murmur3 seeded
// with the namespace hash, except that all-digit names are their own index.
type VWHasher struct {
	Seed uint32
}

// HashSpace returns the seed for features of a namespace.
func (h VWHasher) HashSpace(namespace string) uint32 {
	return hashString(namespace, h.Seed)
}

// HashFeature returns the unmasked hash of a feature in the namespace.
func (h VWHasher) HashFeature(name string, namespaceHash uint32) uint32 {
	return hashString(name, namespaceHash)
}

func hashString(s string, seed uint32) uint32 {
	s = strings.TrimSpace(s)
	var value uint32
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return murmur3.Sum32WithSeed([]byte(s), seed)
		}
		value = value*10 + uint32(c-'0')
	}
	return value + seed
}
