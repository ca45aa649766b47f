package gpt

import (
	"encoding/hex"
	"errors"
	"strings"
)

// ESPTypeGUID is the EFI System Partition type GUID spec.md §4.4 names,
// C12A7328-F81F-11D2-BA4B-00A0C93EC93B, already converted to its on-disk
// mixed-endian byte layout.
var ESPTypeGUID = mustParseGUID("C12A7328-F81F-11D2-BA4B-00A0C93EC93B")

// ParseGUID parses the canonical dashed hex string form of a GUID into its
// on-disk mixed-endian byte layout: time-low/time-mid/time-hi-and-version
// are little-endian, clock-seq and node are stored as-is (big-endian).
func ParseGUID(s string) ([16]byte, error) {
	var out [16]byte
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 32 {
		return out, errors.New("gpt: malformed guid string")
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	// raw is big-endian field order: time_low(4) time_mid(2) time_hi(2)
	// clock_seq(2) node(6).
	out[0], out[1], out[2], out[3] = raw[3], raw[2], raw[1], raw[0]
	out[4], out[5] = raw[5], raw[4]
	out[6], out[7] = raw[7], raw[6]
	copy(out[8:16], raw[8:16])
	return out, nil
}

func mustParseGUID(s string) [16]byte {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}
