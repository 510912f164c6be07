package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainGraph is the domain prefix of graph fingerprints.
// Version suffix enables future algorithm migration.
const DomainGraph = "anfir/graph/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes a structural hash of g and every graph reachable from
// it. It is derived from the Print listing, so it ignores identifiers: a
// clone has the same fingerprint as its original, while any change of shape,
// operator, literal or debug name changes it.
func Fingerprint(m *Module, g GraphID) (string, error) {
	listing, err := Print(m, g)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	canonical, err := MarshalCanonical(IRObject{
		"ir_version": IRString(IRVersion),
		"listing":    IRString(listing),
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(m *Module, g GraphID) string {
	fp, err := Fingerprint(m, g)
	if err != nil {
		panic(err)
	}
	return fp
}
