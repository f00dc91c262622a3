package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainContext = "routegraph/context/v1"
	DomainGraph   = "routegraph/graph/v1"
	DomainProgram = "routegraph/program/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashLines computes an order-independent hash over canonical lines.
// Each line is NFC normalized before sorting so visually identical variant
// names always hash the same.
func HashLines(domain string, lines []string) string {
	canon := make([]string, len(lines))
	for i, l := range lines {
		canon[i] = norm.NFC.String(l)
	}
	sort.Strings(canon)
	return hashWithDomain(domain, []byte(strings.Join(canon, "\n")))
}

// ProgramHash computes the content-addressed identity of a directed program.
// Metadata is included: two programs that differ only in provenance are
// distinct versions for storage purposes.
func ProgramHash(p *Program) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, []byte(norm.NFC.String(string(data)))), nil
}
