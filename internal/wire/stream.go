package wire

// StreamParser reassembles records from an arbitrarily chunked byte stream.
// Partial trailing bytes are not an error; they carry over to the next Feed
// call, so a live tail can be parsed across any chunk boundary without
// dropping or duplicating a record.
type StreamParser struct {
	pending []byte
}

// Feed consumes one chunk and returns every record it completes, in order.
func (p *StreamParser) Feed(chunk []byte) []Record {
	if len(chunk) == 0 {
		return nil
	}
	data := chunk
	if len(p.pending) > 0 {
		data = append(p.pending, chunk...)
	}
	complete := len(data) / RecordSize * RecordSize
	records := make([]Record, 0, complete/RecordSize)
	for i := 0; i < complete; i += RecordSize {
		records = append(records, Decode([RecordSize]byte(data[i:i+RecordSize])))
	}
	p.pending = append(p.pending[:0], data[complete:]...)
	return records
}

// Pending returns the number of buffered trailing bytes awaiting the next
// chunk, always in [0, RecordSize).
func (p *StreamParser) Pending() int {
	return len(p.pending)
}
