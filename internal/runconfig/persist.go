package runconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/me/visiumflow/pkg/model"
)

// Marshal encodes cfg as indented JSON with object keys sorted at every level,
// so configurations from different runs can be diffed.
func Marshal(cfg *model.RunConfig) ([]byte, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal run config: %w", err)
	}
	// Decoding into generic values turns structs into maps, which
	// encoding/json always writes in key order.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("normalize run config: %w", err)
	}
	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal run config: %w", err)
	}
	return append(out, '\n'), nil
}

// Unmarshal decodes a run configuration. Unknown keys are rejected.
func Unmarshal(data []byte) (*model.RunConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cfg model.RunConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse run config: %w", err)
	}
	return &cfg, nil
}

// Write persists cfg at path. The file is written to a temporary name in the
// same directory and renamed into place.
func Write(path string, cfg *model.RunConfig) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.json")
	if err != nil {
		return fmt.Errorf("write run config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write run config: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("write run config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write run config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write run config: %w", err)
	}
	return nil
}

// Read loads the run configuration at path.
func Read(path string) (*model.RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run config: %w", err)
	}
	return Unmarshal(data)
}
