package envelope

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Marker is the first byte of every envelope written by this version.
const Marker byte = 0x01

// maxNameLen bounds the notation name so a corrupt length cannot claim the
// whole payload.
const maxNameLen = 255

// Header is the self-describing prefix of an envelope.
type Header struct {
	Notation    string
	Fingerprint uint64
}

// Append writes h followed by payload to dst.
func Append(dst []byte, h Header, payload []byte) []byte {
	dst = append(dst, Marker)
	dst = binary.AppendUvarint(dst, uint64(len(h.Notation)))
	dst = append(dst, h.Notation...)
	dst = binary.BigEndian.AppendUint64(dst, h.Fingerprint)
	return append(dst, payload...)
}

// Split parses the header of data and returns the remaining payload.
func Split(data []byte) (Header, []byte, error) {
	if len(data) == 0 {
		return Header{}, nil, fmt.Errorf("empty envelope")
	}
	if data[0] != Marker {
		return Header{}, nil, fmt.Errorf("unknown envelope marker 0x%02x", data[0])
	}
	rest := data[1:]
	n, w := binary.Uvarint(rest)
	if w <= 0 {
		return Header{}, nil, fmt.Errorf("malformed notation name length")
	}
	if n == 0 || n > maxNameLen {
		return Header{}, nil, fmt.Errorf("notation name length %d out of range", n)
	}
	rest = rest[w:]
	if uint64(len(rest)) < n+8 {
		return Header{}, nil, fmt.Errorf("envelope header truncated")
	}
	name := rest[:n]
	if !utf8.Valid(name) {
		return Header{}, nil, fmt.Errorf("notation name is not valid UTF-8")
	}
	rest = rest[n:]
	h := Header{Notation: string(name), Fingerprint: binary.BigEndian.Uint64(rest[:8])}
	return h, rest[8:], nil
}
