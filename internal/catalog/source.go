// Package catalog holds the editable tariff and text documents the quote
// workflow prices and composes with. Each document is a flat JSON object
// read through viper and swapped atomically when the file changes.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ErrReadOnly is returned when replacing a document that has no backing file
var ErrReadOnly = errors.New("catalog document has no backing file")

// checkKeys rejects keys viper would not read back unchanged: it lower-cases
// keys and splits them on dots.
func checkKeys[V any](values map[string]V) error {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if key != strings.ToLower(key) || strings.Contains(key, ".") {
			return domain.NewValidationError(key, "catalog keys must be lower-case and contain no dots")
		}
	}
	return nil
}

// document is one JSON file plus its embedded fallback
type document struct {
	name     string
	path     string
	fallback []byte
	logger   *zap.Logger

	mu sync.Mutex // serializes writes to the file
	v  *viper.Viper
}

func newDocument(name, path string, fallback []byte, logger *zap.Logger) *document {
	return &document{
		name:     name,
		path:     path,
		fallback: fallback,
		logger:   logger.With(zap.String("document", name)),
	}
}

// read loads the file, or the embedded fallback when there is no file
func (d *document) read() (map[string]interface{}, error) {
	v := viper.New()
	v.SetConfigType("json")

	if d.path != "" {
		if _, err := os.Stat(d.path); err == nil {
			v.SetConfigFile(d.path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", d.path, err)
			}
			d.v = v
			return v.AllSettings(), nil
		}
		d.logger.Info("Catalog file not found, using built-in defaults", zap.String("path", d.path))
	}

	if err := v.ReadConfig(bytes.NewReader(d.fallback)); err != nil {
		return nil, fmt.Errorf("failed to read built-in %s: %w", d.name, err)
	}
	d.v = nil
	return v.AllSettings(), nil
}

// watch calls reload on every change of the backing file
func (d *document) watch(reload func(map[string]interface{}) error) {
	if d.v == nil {
		return
	}
	d.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := reload(d.v.AllSettings()); err != nil {
			d.logger.Error("Rejected catalog change, keeping previous version", zap.Error(err))
			return
		}
		d.logger.Info("Catalog reloaded", zap.String("path", e.Name))
	})
	d.v.WatchConfig()
	d.logger.Info("Watching catalog file", zap.String("path", d.path))
}

// write persists the document atomically
func (d *document) write(values interface{}) error {
	if d.path == "" {
		return ErrReadOnly
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", d.name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(d.path), "."+filepath.Base(d.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", d.name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.name, err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", d.path, err)
	}
	return nil
}
