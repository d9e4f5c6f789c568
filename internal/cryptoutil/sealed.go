package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// Sealed config layout: magic(4) | version(1) | nonce(12) | AES-256-GCM ciphertext.
// The first 17 bytes are authenticated as additional data.
const (
	sealMagic   = "SNP1"
	sealVersion = byte(1)
	nonceSize   = 12
	headerSize  = len(sealMagic) + 1 + nonceSize
)

var ErrNotSealed = errors.New("not a sealed config")

func gcm(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// SealConfig encrypts a config file body.
func SealConfig(plain, key []byte) ([]byte, error) {
	aead, err := gcm(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, headerSize, headerSize+len(plain)+aead.Overhead())
	copy(out, sealMagic)
	out[len(sealMagic)] = sealVersion
	if _, err := rand.Read(out[len(sealMagic)+1 : headerSize]); err != nil {
		return nil, err
	}
	header := out[:headerSize]
	return aead.Seal(out, header[len(sealMagic)+1:], plain, header), nil
}

// OpenConfig reverses SealConfig.
func OpenConfig(sealed, key []byte) ([]byte, error) {
	if len(sealed) < headerSize || string(sealed[:len(sealMagic)]) != sealMagic {
		return nil, ErrNotSealed
	}
	if v := sealed[len(sealMagic)]; v != sealVersion {
		return nil, fmt.Errorf("unsupported sealed config version %d", v)
	}
	aead, err := gcm(key)
	if err != nil {
		return nil, err
	}
	header := sealed[:headerSize]
	plain, err := aead.Open(nil, header[len(sealMagic)+1:], sealed[headerSize:], header)
	if err != nil {
		return nil, fmt.Errorf("open sealed config: %w", err)
	}
	return plain, nil
}
