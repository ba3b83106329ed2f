// Package configpatch edits the JSON config documents of a game server in place.
//
// A patch reads the whole document, overwrites the named leaves and writes the
// whole document back to the same file with four-space indentation. Fields that
// are not named keep their values and their order.
package configpatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
)

// Indent is the indentation used for every written document.
const Indent = "    "

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Mutations maps a dotted key path such as "GameSettings.GameSpeed" to its new value.
type Mutations map[string]any

func read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config file %s", errs.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%s does not hold a JSON object", path)
	}
	return data, nil
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key path")
	}
	for _, seg := range strings.Split(key, ".") {
		if seg == "" || strings.ContainsAny(seg, `*?#|@\`) {
			return fmt.Errorf("invalid key path %q", key)
		}
	}
	return nil
}

// Patch applies mutations to the document at path and writes it back to path.
// Every intermediate object of a key path must already exist; leaves are created
// or overwritten.
func Patch(path string, mutations Mutations) error {
	data, err := read(path)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(mutations))
	for k := range mutations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return err
		}
		if i := strings.LastIndex(key, "."); i >= 0 {
			parent := gjson.GetBytes(data, key[:i])
			if !parent.IsObject() {
				return fmt.Errorf("%w: %s has no object at %q", errs.ErrNotFound, path, key[:i])
			}
		}
		raw, err := encode(mutations[key], "")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		data, err = sjson.SetRawBytes(data, key, raw)
		if err != nil {
			return fmt.Errorf("failed to set %s in %s: %w", key, path, err)
		}
	}

	out, err := format(data)
	if err != nil {
		return fmt.Errorf("failed to format %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil { //nolint:gosec // server config files are world-readable
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.WithFields(logrus.Fields{
		"file": path,
		"keys": strings.Join(keys, ","),
	}).Info("Patched config")
	return nil
}

// encode marshals v without escaping <, > and &.
func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func format(data []byte) ([]byte, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", Indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Write replaces the file at path with doc. Struct field order is kept; map keys are sorted.
func Write(path string, doc any) error {
	data, err := encode(doc, Indent)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // server config files are world-readable
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.WithField("file", path).Info("Wrote config")
	return nil
}

// Load reads the document at path.
func Load(path string) (entity.ConfigDocument, error) {
	data, err := read(path)
	if err != nil {
		return entity.ConfigDocument{}, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return entity.ConfigDocument{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return entity.ConfigDocument{FilePath: path, Fields: fields}, nil
}

// Get returns the value at a dotted key path in the document at path.
func Get(path, key string) (any, bool, error) {
	data, err := read(path)
	if err != nil {
		return nil, false, err
	}
	res := gjson.GetBytes(data, key)
	if !res.Exists() {
		return nil, false, nil
	}
	return res.Value(), true, nil
}
