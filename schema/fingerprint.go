package schema

import (
	"github.com/goccy/go-json"
)

// Canonical returns the canonical JSON form of s: documentation stripped,
// object keys sorted. Structurally equal schemas have equal canonical forms.
func Canonical(s DataSchema) ([]byte, error) {
	return json.Marshal(Tree(s, false))
}

const emptyFingerprint uint64 = 0xc15d213aa4d7a795

var fingerprintTable = func() [256]uint64 {
	var t [256]uint64
	for i := range t {
		fp := uint64(i)
		for j := 0; j < 8; j++ {
			fp = (fp >> 1) ^ (emptyFingerprint & -(fp & 1))
		}
		t[i] = fp
	}
	return t
}()

// Fingerprint returns the 64-bit Rabin fingerprint (CRC-64-AVRO) of the
// canonical form of s. Envelopes use it to identify writer schemas.
func Fingerprint(s DataSchema) (uint64, error) {
	c, err := Canonical(s)
	if err != nil {
		return 0, err
	}
	return FingerprintBytes(c), nil
}

// FingerprintBytes returns the Rabin fingerprint of b.
func FingerprintBytes(b []byte) uint64 {
	fp := emptyFingerprint
	for _, c := range b {
		fp = (fp >> 8) ^ fingerprintTable[byte(fp)^c]
	}
	return fp
}
