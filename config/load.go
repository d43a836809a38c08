package config

import (
	"os"
	"path/filepath"

	"emperror.dev/errors"
)

const (
	// DefaultGlobalConfigName is global.json's filename, read from the
	// binary's directory unless overridden.
	DefaultGlobalConfigName = "global.json"
	// DefaultConfigsName is configs.json's filename.
	DefaultConfigsName = "configs.json"
)

// NewAtPath loads global.json from dir and resolves configs.json's
// path relative to the same directory.
func NewAtPath(dir string) (*Configuration, error) {
	globalPath := filepath.Join(dir, DefaultGlobalConfigName)
	data, err := os.ReadFile(globalPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", globalPath)
	}
	c, err := FromBytes(data)
	if err != nil {
		return nil, err
	}
	c.ConfigsPath = filepath.Join(dir, DefaultConfigsName)
	return c, nil
}
