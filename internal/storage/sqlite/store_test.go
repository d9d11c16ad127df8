package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/dotgrid/internal/grid"
	"github.com/louisbranch/dotgrid/internal/wire"
)

var testParams = grid.Params{Width: 3, Height: 3}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log.db")
	store, err := Open(path, testParams)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func encodeRecord(t *testing.T, edgeID, team int) []byte {
	t.Helper()
	buf, err := wire.Encode(edgeID, team)
	if err != nil {
		t.Fatalf("Encode(%d, %d) returned error: %v", edgeID, team, err)
	}
	return buf[:]
}

func TestAppendAssignsSequentialSeqs(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seq, err := store.Append(ctx, encodeRecord(t, i, i%4))
		if err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
		if seq != uint64(i) {
			t.Fatalf("Append seq = %d, want %d", seq, i)
		}
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 5 {
		t.Fatalf("Count() = %d, want 5", count)
	}
}

func TestAppendRejectsWrongSize(t *testing.T) {
	store, _ := openTestStore(t)
	if _, err := store.Append(context.Background(), []byte{0x01, 0x02}); err == nil {
		t.Fatalf("Append accepted a short record")
	}
}

func TestReadFromOffset(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	want := make([]byte, 0, 4*wire.RecordSize)
	for i := 0; i < 4; i++ {
		rec := encodeRecord(t, i, 0)
		want = append(want, rec...)
		if _, err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}

	all, err := store.ReadFrom(ctx, 0)
	if err != nil {
		t.Fatalf("ReadFrom(0) returned error: %v", err)
	}
	if string(all) != string(want) {
		t.Fatalf("ReadFrom(0) = %x, want %x", all, want)
	}

	tail, err := store.ReadFrom(ctx, 2)
	if err != nil {
		t.Fatalf("ReadFrom(2) returned error: %v", err)
	}
	if string(tail) != string(want[2*wire.RecordSize:]) {
		t.Fatalf("ReadFrom(2) = %x, want %x", tail, want[2*wire.RecordSize:])
	}

	past, err := store.ReadFrom(ctx, 100)
	if err != nil {
		t.Fatalf("ReadFrom(100) returned error: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("ReadFrom(100) = %x, want empty", past)
	}
}

func TestLogSurvivesReopen(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()
	if _, err := store.Append(ctx, encodeRecord(t, 7, 2)); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := Open(path, testParams)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()

	data, err := reopened.ReadFrom(ctx, 0)
	if err != nil {
		t.Fatalf("ReadFrom returned error: %v", err)
	}
	if len(data) != wire.RecordSize {
		t.Fatalf("ReadFrom returned %d bytes, want %d", len(data), wire.RecordSize)
	}
	rec := wire.Decode([wire.RecordSize]byte(data))
	if rec.EdgeID != 7 || rec.Team != 2 {
		t.Fatalf("decoded record = %+v, want {7 2}", rec)
	}
}

func TestOpenRejectsMismatchedGrid(t *testing.T) {
	store, path := openTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := Open(path, grid.Params{Width: 4, Height: 4}); err == nil {
		t.Fatalf("Open accepted a log created for a different grid")
	}
}

func TestTailDeliversExistingAndNewRecords(t *testing.T) {
	store, _ := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := encodeRecord(t, 1, 0)
	if _, err := store.Append(ctx, first); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	tail, err := store.Tail(ctx, 0)
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}

	var parser wire.StreamParser
	records := collectRecords(t, tail, &parser, 1)
	if records[0].EdgeID != 1 {
		t.Fatalf("first tailed record edge = %d, want 1", records[0].EdgeID)
	}

	second := encodeRecord(t, 2, 3)
	if _, err := store.Append(ctx, second); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	records = collectRecords(t, tail, &parser, 1)
	if records[0].EdgeID != 2 || records[0].Team != 3 {
		t.Fatalf("tailed record = %+v, want {2 3}", records[0])
	}
}

func TestTailCancellationIsIsolated(t *testing.T) {
	store, _ := openTestStore(t)
	base := context.Background()

	cancelCtx, cancel := context.WithCancel(base)
	doomed, err := store.Tail(cancelCtx, 0)
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	keptCtx, keptCancel := context.WithCancel(base)
	defer keptCancel()
	kept, err := store.Tail(keptCtx, 0)
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}

	cancel()
	deadline := time.After(2 * time.Second)
drain:
	for {
		select {
		case _, ok := <-doomed:
			if !ok {
				break drain
			}
		case <-deadline:
			t.Fatalf("cancelled tail did not close")
		}
	}

	// The surviving tail still receives appends.
	if _, err := store.Append(base, encodeRecord(t, 9, 1)); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	var parser wire.StreamParser
	records := collectRecords(t, kept, &parser, 1)
	if records[0].EdgeID != 9 {
		t.Fatalf("surviving tail record edge = %d, want 9", records[0].EdgeID)
	}
}

func collectRecords(t *testing.T, tail <-chan []byte, parser *wire.StreamParser, n int) []wire.Record {
	t.Helper()
	var records []wire.Record
	deadline := time.After(5 * time.Second)
	for len(records) < n {
		select {
		case chunk, ok := <-tail:
			if !ok {
				t.Fatalf("tail closed after %d of %d records", len(records), n)
			}
			records = append(records, parser.Feed(chunk)...)
		case <-deadline:
			t.Fatalf("timed out waiting for %d records, got %d", n, len(records))
		}
	}
	return records
}
