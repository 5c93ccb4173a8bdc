// Package serialization reads and writes model weights in the safetensors
// format.
//
// Safetensors is the interchange format the zoo's published weights use: an
// 8-byte little-endian header length, a JSON header mapping tensor names to
// dtype/shape/offsets, then the raw tensor payload. Only F32 tensors are
// supported; the classifier has no other dtype.
package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// maxHeaderSize bounds the JSON header to keep a corrupt length prefix from
// driving a huge allocation.
const maxHeaderSize = 100 * 1024 * 1024

// tensorEntry is one tensor's header record.
type tensorEntry struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// WriteStateDict writes a state dictionary to a safetensors file.
//
// Tensor names are written in sorted order and payload offsets are assigned
// in the same order, so output is deterministic for a given state dict.
func WriteStateDict(path string, stateDict map[string]*tensor.Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(stateDict)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	offset := 0
	for _, name := range names {
		t := stateDict[name]
		size := t.NumElements() * 4
		header[name] = tensorEntry{
			DType:       "F32",
			Shape:       t.Shape(),
			DataOffsets: [2]int{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to encode safetensors header: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header length: %w", err)
	}
	if _, err := f.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	buf := make([]byte, 4)
	for _, name := range names {
		for _, v := range stateDict[name].Data() {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := f.Write(buf); err != nil {
				return fmt.Errorf("failed to write tensor %q: %w", name, err)
			}
		}
	}
	return nil
}

// ReadStateDict reads every tensor from a safetensors file.
func ReadStateDict(path string) (map[string]*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var headerLen uint64
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("failed to read header length: %w", err)
	}
	if headerLen > maxHeaderSize {
		return nil, fmt.Errorf("safetensors header too large: %d bytes", headerLen)
	}

	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rawHeader map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &rawHeader); err != nil {
		return nil, fmt.Errorf("failed to decode safetensors header: %w", err)
	}

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor payload: %w", err)
	}

	stateDict := make(map[string]*tensor.Tensor, len(rawHeader))
	for name, raw := range rawHeader {
		if name == "__metadata__" {
			continue
		}
		var entry tensorEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("invalid header entry for %q: %w", name, err)
		}
		t, err := decodeEntry(name, entry, payload)
		if err != nil {
			return nil, err
		}
		stateDict[name] = t
	}
	return stateDict, nil
}

func decodeEntry(name string, entry tensorEntry, payload []byte) (*tensor.Tensor, error) {
	if entry.DType != "F32" {
		return nil, fmt.Errorf("tensor %q has unsupported dtype %s (only F32)", name, entry.DType)
	}

	begin, end := entry.DataOffsets[0], entry.DataOffsets[1]
	if begin < 0 || end < begin || end > len(payload) {
		return nil, fmt.Errorf("tensor %q has offsets [%d, %d) outside payload of %d bytes", name, begin, end, len(payload))
	}

	shape := tensor.Shape(entry.Shape)
	if want := shape.NumElements() * 4; end-begin != want {
		return nil, fmt.Errorf("tensor %q: shape %v needs %d bytes, header declares %d", name, shape, want, end-begin)
	}

	data := make([]float32, shape.NumElements())
	for i := range data {
		bits := binary.LittleEndian.Uint32(payload[begin+i*4:])
		data[i] = math.Float32frombits(bits)
	}
	return tensor.FromSlice(data, shape)
}

// ReadMetadata returns the optional __metadata__ map of a safetensors file
// without decoding any tensor payload.
func ReadMetadata(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var headerLen uint64
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("failed to read header length: %w", err)
	}
	if headerLen > maxHeaderSize {
		return nil, fmt.Errorf("safetensors header too large: %d bytes", headerLen)
	}

	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var header struct {
		Metadata map[string]string `json:"__metadata__"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("failed to decode safetensors header: %w", err)
	}
	return header.Metadata, nil
}
