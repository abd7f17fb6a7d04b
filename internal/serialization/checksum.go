package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ComputeChecksum returns the SHA-256 of data.
func ComputeChecksum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ComputeChecksumReader returns the SHA-256 of everything read from r.
func ComputeChecksumReader(r io.Reader) ([32]byte, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return [32]byte{}, fmt.Errorf("failed to compute checksum: %w", err)
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// VerifyFileChecksum compares the SHA-256 of the file at path with a hex digest.
func VerifyFileChecksum(path, wantHex string) error {
	//nolint:gosec // G304: weight paths are supplied by the caller
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	sum, err := ComputeChecksumReader(f)
	if err != nil {
		return err
	}
	if got := hex.EncodeToString(sum[:]); !strings.EqualFold(got, wantHex) {
		return fmt.Errorf("%s: got %s, want %s: %w", path, got, wantHex, ErrChecksumMismatch)
	}
	return nil
}
