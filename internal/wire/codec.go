// Package wire implements the durable log record format: one fixed 3-byte
// big-endian entry per accepted edge claim, packed as (edgeID << 2) | team.
// The stream is a bare concatenation of records with no framing, so consumers
// track byte alignment themselves.
package wire

import apperrors "github.com/louisbranch/dotgrid/internal/errors"

const (
	// RecordSize is the fixed length in bytes of one encoded record.
	RecordSize = 3

	// MaxEdgeID is the largest edge identifier the record format can carry.
	// Two of the 24 bits are reserved for the team.
	MaxEdgeID = 1<<21 - 1

	// MaxTeam is the largest team identifier the record format can carry.
	MaxTeam = 3
)

// Record is one decoded log entry: an accepted edge claim and its team.
type Record struct {
	EdgeID int
	Team   int
}

// Encode packs an edge claim into its 3-byte record.
func Encode(edgeID, team int) ([RecordSize]byte, error) {
	var buf [RecordSize]byte
	if edgeID < 0 || edgeID > MaxEdgeID {
		return buf, apperrors.New(apperrors.CodeOutOfRange, "edge id %d exceeds record capacity [0, %d]", edgeID, MaxEdgeID)
	}
	if team < 0 || team > MaxTeam {
		return buf, apperrors.New(apperrors.CodeOutOfRange, "team %d exceeds record capacity [0, %d]", team, MaxTeam)
	}
	packed := uint32(edgeID)<<2 | uint32(team)
	buf[0] = byte(packed >> 16)
	buf[1] = byte(packed >> 8)
	buf[2] = byte(packed)
	return buf, nil
}

// Decode unpacks a 3-byte record. It is total over all inputs; validating the
// edge against the grid geometry is the caller's concern.
func Decode(buf [RecordSize]byte) Record {
	packed := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	return Record{EdgeID: int(packed >> 2), Team: int(packed & MaxTeam)}
}
