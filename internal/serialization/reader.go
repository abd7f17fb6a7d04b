package serialization

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/vision/internal/tensor"
)

// Reader gives random access to the tensors of a safetensors file.
type Reader struct {
	src        io.ReaderAt
	closer     io.Closer
	header     Header
	dataOffset int64
	dataSize   int64
	closed     bool
}

// Open opens and validates a safetensors file.
func Open(path string) (*Reader, error) {
	//nolint:gosec // G304: weight paths are supplied by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	r, err := NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader parses and validates the header of a safetensors stream of the given size.
func NewReader(src io.ReaderAt, size int64) (*Reader, error) {
	if size < HeaderSizeBytes {
		return nil, fmt.Errorf("file too short (%d bytes): %w", size, ErrOutOfBounds)
	}
	var prefix [HeaderSizeBytes]byte
	if _, err := src.ReadAt(prefix[:], 0); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	headerSize := binary.LittleEndian.Uint64(prefix[:])
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%d bytes: %w", headerSize, ErrHeaderTooLarge)
	}
	if int64(headerSize) > size-HeaderSizeBytes {
		return nil, fmt.Errorf("header of %d bytes in %d byte file: %w", headerSize, size, ErrOutOfBounds)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := src.ReadAt(headerBytes, HeaderSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header, err := parseHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		src:        src,
		header:     header,
		dataOffset: HeaderSizeBytes + int64(headerSize),
	}
	r.dataSize = size - r.dataOffset
	if err := ValidateHeader(&r.header, r.dataSize); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return r, nil
}

// Header returns the decoded header.
func (r *Reader) Header() Header { return r.header }

// Metadata returns the "__metadata__" pairs, or nil.
func (r *Reader) Metadata() map[string]string { return r.header.Metadata }

// TensorNames returns tensor names in file order.
func (r *Reader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns the header entry for name.
func (r *Reader) TensorInfo(name string) (*TensorMeta, error) {
	for i := range r.header.Tensors {
		if r.header.Tensors[i].Name == name {
			return &r.header.Tensors[i], nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrTensorNotFound)
}

// LoadTensor reads one tensor.
func (r *Reader) LoadTensor(name string) (*tensor.RawTensor, error) {
	if r.closed {
		return nil, ErrClosed
	}
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	return r.load(meta)
}

func (r *Reader) load(meta *TensorMeta) (*tensor.RawTensor, error) {
	dtype, err := dtypeFromSafeTensors(meta.DType)
	if err != nil {
		return nil, err
	}
	raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", meta.Name, err)
	}
	data := make([]byte, meta.Size)
	if _, err := r.src.ReadAt(data, r.dataOffset+meta.Offset); err != nil {
		return nil, fmt.Errorf("failed to read tensor %q: %w", meta.Name, err)
	}
	decode(raw, data)
	return raw, nil
}

// ReadStateDict loads every tensor.
func (r *Reader) ReadStateDict() (map[string]*tensor.RawTensor, error) {
	if r.closed {
		return nil, ErrClosed
	}
	state := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for i := range r.header.Tensors {
		raw, err := r.load(&r.header.Tensors[i])
		if err != nil {
			return nil, err
		}
		state[r.header.Tensors[i].Name] = raw
	}
	return state, nil
}

// Close releases the underlying file, if Open created it.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// ReadFile loads a whole safetensors file.
func ReadFile(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	r, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = r.Close()
	}()
	state, err := r.ReadStateDict()
	if err != nil {
		return nil, nil, err
	}
	return state, r.Metadata(), nil
}
