package config

import (
	"errors"
	"io/fs"
)

// viper returns the raw fs error when SetConfigFile points at a missing file.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
