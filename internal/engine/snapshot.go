package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/louisbranch/dotgrid/internal/grid"
)

// Snapshot format: a versioned big-endian binary blob. The format is internal
// to the engine and only guaranteed to round-trip through Import.
const (
	snapshotMagic   uint32 = 0x44475344 // "DGSD"
	snapshotVersion uint32 = 1
)

// Export serializes the derived state for a warm start that bypasses full
// replay. The blob is opaque to external consumers.
func (e *Engine) Export() ([]byte, error) {
	var buf bytes.Buffer
	header := []uint32{
		snapshotMagic,
		snapshotVersion,
		uint32(e.params.Width),
		uint32(e.params.Height),
	}
	for _, v := range header {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, fmt.Errorf("write snapshot header: %w", err)
		}
	}
	if err := binary.Write(&buf, binary.BigEndian, e.eventsApplied); err != nil {
		return nil, fmt.Errorf("write snapshot event count: %w", err)
	}
	if err := binary.Write(&buf, binary.BigEndian, e.scores[:]); err != nil {
		return nil, fmt.Errorf("write snapshot scores: %w", err)
	}
	if err := binary.Write(&buf, binary.BigEndian, e.edgeTaken); err != nil {
		return nil, fmt.Errorf("write snapshot edge bitset: %w", err)
	}
	if _, err := buf.Write(e.boxOwner); err != nil {
		return nil, fmt.Errorf("write snapshot box owners: %w", err)
	}
	return buf.Bytes(), nil
}

// Import deserializes a snapshot produced by Export into a fresh engine. The
// snapshot's grid geometry must match params exactly.
func Import(params grid.Params, blob []byte) (*Engine, error) {
	e, err := New(params)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(blob)
	var header [4]uint32
	for i := range header {
		if err := binary.Read(r, binary.BigEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("read snapshot header: %w", err)
		}
	}
	if header[0] != snapshotMagic {
		return nil, fmt.Errorf("snapshot magic %#x does not match %#x", header[0], snapshotMagic)
	}
	if header[1] != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", header[1])
	}
	if int(header[2]) != params.Width || int(header[3]) != params.Height {
		return nil, fmt.Errorf("snapshot grid %dx%d does not match %dx%d", header[2], header[3], params.Width, params.Height)
	}
	if err := binary.Read(r, binary.BigEndian, &e.eventsApplied); err != nil {
		return nil, fmt.Errorf("read snapshot event count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, e.scores[:]); err != nil {
		return nil, fmt.Errorf("read snapshot scores: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, e.edgeTaken); err != nil {
		return nil, fmt.Errorf("read snapshot edge bitset: %w", err)
	}
	if _, err := io.ReadFull(r, e.boxOwner); err != nil {
		return nil, fmt.Errorf("read snapshot box owners: %w", err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("snapshot has %d trailing bytes", r.Len())
	}
	return e, nil
}
