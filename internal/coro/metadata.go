package coro

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// MetadataSchema versions the sidecar encoding. Bump on any field change.
const MetadataSchema uint16 = 1

// Record is the per-coroutine entry the devirtualization stage consumes:
// the triple, plus enough frame facts to elide allocations.
type Record struct {
	Func         string `msgpack:"func"`
	FrameSize    uint64 `msgpack:"frame_size"`
	SuspendCount int    `msgpack:"suspend_count"`
	HasFinal     bool   `msgpack:"has_final"`
	Resume       string `msgpack:"resume"`
	Destroy      string `msgpack:"destroy"`
	Cleanup      string `msgpack:"cleanup"`
}

// Metadata is the full sidecar artifact written next to the output IR.
type Metadata struct {
	Schema     uint16   `msgpack:"schema"`
	Coroutines []Record `msgpack:"coroutines"`
}

// EncodeMetadata serializes records with the current schema.
func EncodeMetadata(records []Record) ([]byte, error) {
	data, err := msgpack.Marshal(Metadata{Schema: MetadataSchema, Coroutines: records})
	if err != nil {
		return nil, fmt.Errorf("coro: encode metadata: %w", err)
	}
	return data, nil
}

// WriteMetadataFile writes the sidecar to path.
func WriteMetadataFile(path string, records []Record) error {
	data, err := EncodeMetadata(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // build artifact, not a secret
		return fmt.Errorf("coro: write metadata: %w", err)
	}
	return nil
}

// ReadMetadata decodes a sidecar and rejects unknown schemas.
func ReadMetadata(data []byte) (*Metadata, error) {
	var md Metadata
	if err := msgpack.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("coro: decode metadata: %w", err)
	}
	if md.Schema != MetadataSchema {
		return nil, fmt.Errorf("coro: metadata schema %d, want %d", md.Schema, MetadataSchema)
	}
	return &md, nil
}
