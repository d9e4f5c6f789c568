package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/rowjay/scenesnap/internal/cryptoutil"
)

// EncryptConfigFile seals a plaintext config so Load can read it with SNAP_CONFIG_KEY.
// The input must parse as a config of the type its name implies.
func EncryptConfigFile(inputPath, outputPath, key string) error {
	if isEncryptedPath(inputPath) {
		return fmt.Errorf("%s already looks encrypted", inputPath)
	}
	if !isEncryptedPath(outputPath) {
		return fmt.Errorf("output %s must end in .enc or .encrypted", outputPath)
	}
	plain, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	vp := viper.New()
	vp.SetConfigType(configTypeFromPath(inputPath))
	if err := vp.ReadConfig(bytes.NewReader(plain)); err != nil {
		return fmt.Errorf("parse %s: %w", inputPath, err)
	}
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return err
	}
	sealed, err := cryptoutil.SealConfig(plain, parsed)
	if err != nil {
		return err
	}
	return writePrivate(outputPath, sealed)
}

// DecryptConfigFile writes the plaintext of a sealed config to outputPath.
func DecryptConfigFile(inputPath, outputPath, key string) error {
	sealed, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return err
	}
	plain, err := cryptoutil.OpenConfig(sealed, parsed)
	if err != nil {
		return err
	}
	return writePrivate(outputPath, plain)
}

func writePrivate(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapcfg-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
