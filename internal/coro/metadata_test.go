package coro_test

import (
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"eddy/internal/coro"
)

// TestMetadata_Roundtrip tests encode and decode of the sidecar.
func TestMetadata_Roundtrip(t *testing.T) {
	records := []coro.Record{
		{
			Func:         "gen",
			FrameSize:    24,
			SuspendCount: 2,
			HasFinal:     true,
			Resume:       "gen.resume",
			Destroy:      "gen.destroy",
			Cleanup:      "gen.cleanup",
		},
		{Func: "once", SuspendCount: 0, FrameSize: 24},
	}

	data, err := coro.EncodeMetadata(records)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	md, err := coro.ReadMetadata(data)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if md.Schema != coro.MetadataSchema {
		t.Fatalf("schema = %d", md.Schema)
	}
	if len(md.Coroutines) != 2 || md.Coroutines[0] != records[0] || md.Coroutines[1] != records[1] {
		t.Fatalf("records did not survive: %+v", md.Coroutines)
	}
}

// TestMetadata_RejectsUnknownSchema tests the version gate.
func TestMetadata_RejectsUnknownSchema(t *testing.T) {
	data, err := msgpack.Marshal(coro.Metadata{Schema: coro.MetadataSchema + 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, err = coro.ReadMetadata(data)
	if err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("err = %v, want schema rejection", err)
	}
}

// TestMetadata_RejectsGarbage tests that corrupt input errors cleanly.
func TestMetadata_RejectsGarbage(t *testing.T) {
	if _, err := coro.ReadMetadata([]byte{0xc1, 0x00, 0xff}); err == nil {
		t.Fatalf("expected decode error")
	}
}
