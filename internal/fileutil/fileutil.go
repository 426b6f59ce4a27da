package fileutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Digest is a SHA-256 content hash.
type Digest [sha256.Size]byte

// String renders the digest as lower-case hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// chunkSize bounds how much is hashed between cancellation checks.
const chunkSize = 1 << 20

// HashFile streams the file at path through SHA-256. Cancellation is checked
// between chunks so large files do not pin a worker after the run stops.
func HashFile(ctx context.Context, path string) (Digest, error) {
	var digest Digest
	in, err := os.Open(path)
	if err != nil {
		return digest, err
	}
	defer in.Close()

	hasher := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return digest, err
		}
		n, err := io.ReadFull(in, buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return digest, fmt.Errorf("hash %s: %w", path, err)
		}
	}
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}
