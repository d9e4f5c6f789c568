package cryptoutil

import (
	"io"

	"github.com/minio/sio"
)

// Archives are always written as DARE 2.0; older versions are refused on read.
func streamConfig(key []byte) sio.Config {
	return sio.Config{Key: key, MinVersion: sio.Version20, MaxVersion: sio.Version20}
}

// EncryptWriter returns a writer that encrypts everything written through it. Close
// flushes the final package and must be called.
func EncryptWriter(w io.Writer, key []byte) (io.WriteCloser, error) {
	return sio.EncryptWriter(w, streamConfig(key))
}

// DecryptReader returns a reader that decrypts and authenticates r as it is read.
func DecryptReader(r io.Reader, key []byte) (io.Reader, error) {
	return sio.DecryptReader(r, streamConfig(key))
}
