package system

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// PathExists returns whether the given file or directory exists
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// WriteFileCreatingDirs writes data to path, creating any missing parent directories.
func WriteFileCreatingDirs(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // debug copies are meant to be readable
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
