package entity

import "fmt"

// ModBundle is one version-controlled collection of files cloned into a staging directory.
type ModBundle struct {
	SourceRepoURL    string
	Branch           string
	LocalStagingPath string
	IsUserCode       bool
}

// ConfigDocument is an on-disk JSON config file.
type ConfigDocument struct {
	FilePath string
	Fields   map[string]any
}

// SymlinkEntry is a single file linked from a working tree into the live server tree.
type SymlinkEntry struct {
	Source string
	Target string
}

func (s SymlinkEntry) String() string {
	return fmt.Sprintf("%s => %s", s.Source, s.Target)
}

// SecretValue holds a decrypted secret. It prints as [REDACTED] so it cannot leak
// through logs or error messages; Reveal is the only way to read it.
type SecretValue struct {
	value string
}

// NewSecretValue wraps a plaintext secret.
func NewSecretValue(v string) SecretValue {
	return SecretValue{value: v}
}

// Reveal returns the plaintext.
func (s SecretValue) Reveal() string { return s.value }

// Empty reports whether the secret holds no value.
func (s SecretValue) Empty() bool { return s.value == "" }

func (s SecretValue) String() string { return "[REDACTED]" }

// GoString keeps %#v from printing the plaintext.
func (s SecretValue) GoString() string { return "entity.SecretValue{[REDACTED]}" }

// MarshalText keeps structured log formatters from printing the plaintext.
func (s SecretValue) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }
