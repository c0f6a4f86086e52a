// Package configutil reads json5 config files that can be overridden by a
// sibling ".local" file kept out of version control.
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

// layers returns the files a config is read from, later files override
// earlier ones. "app.json5" is overridden by "app.local.json5".
func layers(path string) []string {
	ext := filepath.Ext(path)
	return []string{path, strings.TrimSuffix(path, ext) + ".local" + ext}
}

// readLayer reports false when the file is missing or empty.
func readLayer[T any](path string) (T, bool, error) {
	var out T
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) || len(contents) == 0 {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	err = json5.Unmarshal(contents, &out)
	if err != nil {
		return out, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, true, nil
}

// ReadConfig reads the config at path merged with its local override. It
// returns os.ErrNotExist when neither file exists.
func ReadConfig[T any](path string) (T, error) {
	var out T
	found := false
	for _, layer := range layers(path) {
		value, ok, err := readLayer[T](layer)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if !found {
			out = value
			found = true
			continue
		}
		err = mergo.Merge(&out, value, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", layer, err)
		}
		slog.Debug("merged local config overrides", "path", layer)
	}
	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Locate walks up from the working directory and returns the path of the
// first directory holding any layer of the config called name.
func Locate(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, name)
		for _, layer := range layers(path) {
			if _, err := os.Stat(layer); err == nil {
				return path, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// ReadRecursively is ReadConfig on the config Locate finds.
func ReadRecursively[T any](name string) (T, error) {
	path, err := Locate(name)
	if err != nil {
		var empty T
		return empty, err
	}
	return ReadConfig[T](path)
}
