package serialization

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/born-ml/vision/internal/tensor"
)

// Format constants.
const (
	HeaderSizeBytes = 8 // length prefix of the JSON header
	MetadataKey     = "__metadata__"
	DTypeF32        = "F32"
	DTypeI32        = "I32"
)

// Header is the decoded safetensors header.
type Header struct {
	Tensors  []TensorMeta      // sorted by offset
	Metadata map[string]string // may be nil
}

// TensorMeta describes a tensor in the file.
type TensorMeta struct {
	Name   string
	DType  string // "F32" or "I32"
	Shape  []int
	Offset int64 // bytes from the start of the data section
	Size   int64 // bytes
}

// headerEntry is one tensor entry as it appears in the JSON header.
type headerEntry struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

func dtypeToSafeTensors(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return DTypeF32, nil
	case tensor.Int32:
		return DTypeI32, nil
	default:
		return "", fmt.Errorf("%v: %w", dt, ErrUnsupportedDType)
	}
}

func dtypeFromSafeTensors(s string) (tensor.DataType, error) {
	switch s {
	case DTypeF32:
		return tensor.Float32, nil
	case DTypeI32:
		return tensor.Int32, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrUnsupportedDType)
	}
}

// parseHeader decodes the JSON header bytes.
func parseHeader(raw []byte) (Header, error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return Header{}, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	var h Header
	for name, msg := range entries {
		if name == MetadataKey {
			if err := json.Unmarshal(msg, &h.Metadata); err != nil {
				return Header{}, fmt.Errorf("failed to parse %s: %w", MetadataKey, err)
			}
			continue
		}
		var e headerEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			return Header{}, fmt.Errorf("failed to parse entry %q: %w", name, err)
		}
		shape := make([]int, len(e.Shape))
		for i, d := range e.Shape {
			shape[i] = int(d)
		}
		h.Tensors = append(h.Tensors, TensorMeta{
			Name:   name,
			DType:  e.DType,
			Shape:  shape,
			Offset: e.DataOffsets[0],
			Size:   e.DataOffsets[1] - e.DataOffsets[0],
		})
	}
	sort.Slice(h.Tensors, func(i, j int) bool {
		if h.Tensors[i].Offset != h.Tensors[j].Offset {
			return h.Tensors[i].Offset < h.Tensors[j].Offset
		}
		return h.Tensors[i].Name < h.Tensors[j].Name
	})
	return h, nil
}
