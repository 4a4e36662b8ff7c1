package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainDefinitions = "choreo/definitions/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DefinitionsHash computes a content-addressed identity for a set of
// choreographies in registration order. The journal records it so that a
// replay can tell whether it is running against the same definitions.
func DefinitionsHash(defs []Choreography) (string, error) {
	list := make(Array, len(defs))
	for i, c := range defs {
		list[i] = c.Describe()
	}
	data, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("DefinitionsHash: %w", err)
	}
	return hashWithDomain(DomainDefinitions, data), nil
}
