package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/born-ml/vision/internal/tensor"
)

// Write encodes state as safetensors to w.
// Tensors are written in lexical name order; metadata may be nil.
func Write(w io.Writer, state map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(state))
	for name := range state {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	slices.Sort(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header[MetadataKey] = metadata
	}
	var offset int64
	for _, name := range names {
		raw := state[name]
		dtype, err := dtypeToSafeTensors(raw.DType())
		if err != nil {
			return fmt.Errorf("tensor %q: %w", name, err)
		}
		shape := make([]int64, len(raw.Shape()))
		for i, d := range raw.Shape() {
			shape[i] = int64(d)
		}
		size := int64(raw.ByteSize())
		header[name] = headerEntry{DType: dtype, Shape: shape, DataOffsets: [2]int64{offset, offset + size}}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := bw.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := bw.Write(encode(state[name])); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return bw.Flush()
}

// WriteFile writes state to path, replacing any existing file only once the
// new contents are complete.
func WriteFile(path string, state map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, state, metadata); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// encode returns the little-endian bytes of raw.
func encode(raw *tensor.RawTensor) []byte {
	out := make([]byte, raw.ByteSize())
	switch raw.DType() {
	case tensor.Float32:
		for i, v := range raw.AsFloat32() {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
	case tensor.Int32:
		for i, v := range raw.AsInt32() {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
		}
	}
	return out
}

// decode fills raw from little-endian bytes.
func decode(raw *tensor.RawTensor, data []byte) {
	switch raw.DType() {
	case tensor.Float32:
		dst := raw.AsFloat32()
		for i := range dst {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case tensor.Int32:
		dst := raw.AsInt32()
		for i := range dst {
			dst[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
	}
}
