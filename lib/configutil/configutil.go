package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// layers returns the files merged for `name`, lowest priority first:
// <name>.<ext> then <name>.local.<ext>.
func layers(name string) []string {
	ext := filepath.Ext(name)
	return []string{
		name,
		strings.TrimSuffix(name, ext) + ".local" + ext,
	}
}

// readLayer decodes one json5 file, an absent or empty file is reported as
// not found.
func readLayer[T any](path string) (T, bool, error) {
	var out T
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if len(contents) == 0 {
		return out, false, nil
	}
	err = json5.Unmarshal(contents, &out)
	if err != nil {
		return out, false, fmt.Errorf("%s: %w", path, err)
	}
	return out, true, nil
}

// ReadConfig reads the json5 file `name` and merges `name.local` over it,
// non-zero values of the local file win. os.ErrNotExist is returned when
// neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false
	for i, path := range layers(name) {
		layer, ok, err := readLayer[T](path)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if i > 0 {
			slog.Info("merging config with local overrides", "local", path)
		}
		err = mergo.Merge(&out, layer, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		found = true
	}
	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadConfigWithDefaults is ReadConfig layered on top of `defaults`, every
// non-zero value found in the files overrides the default. missing files are
// not an error, the defaults are returned as is.
func ReadConfigWithDefaults[T any](name string, defaults T) (T, error) {
	found, err := ReadConfig[T](name)
	if errors.Is(err, os.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return defaults, err
	}

	out := defaults
	err = mergo.Merge(&out, found, mergo.WithOverride)
	if err != nil {
		return defaults, err
	}
	return out, nil
}

// ReadRecursively looks for `name` in the working directory and then in each
// of its parents, the first directory holding it is read with ReadConfig.
func ReadRecursively[T any](name string) (T, error) {
	var out T
	dir, err := os.Getwd()
	if err != nil {
		return out, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return out, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return out, os.ErrNotExist
		}
		dir = parent
	}
}
