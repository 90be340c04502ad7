package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SourceBuiltin is reported by LoadOrDefault when the built-in manifest was
// used instead of a file on disk.
const SourceBuiltin = "builtin"

// Load reads a launch manifest from the provided path.
func Load(path string) (*Manifest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var doc Manifest
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}

	manifestDir := filepath.Dir(absPath)
	doc.Launch.ResolvedWorkdir = resolveWorkdir(manifestDir, os.ExpandEnv(doc.Launch.Workdir))

	for _, proc := range doc.Processes {
		if proc == nil || len(proc.Env) == 0 {
			continue
		}
		expanded := make(map[string]string, len(proc.Env))
		for k, v := range proc.Env {
			expanded[k] = os.ExpandEnv(v)
		}
		proc.Env = expanded
	}

	if err := doc.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return &doc, nil
}

// LoadOrDefault loads the manifest at path, falling back to the built-in
// flight-stack manifest when the file does not exist. The returned source is
// the absolute path of the loaded file, or SourceBuiltin for the fallback.
func LoadOrDefault(path string) (*Manifest, string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			doc, derr := Default()
			return doc, SourceBuiltin, derr
		}
		return nil, "", fmt.Errorf("stat manifest: %w", err)
	}
	doc, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	source, err := filepath.Abs(path)
	if err != nil {
		source = path
	}
	return doc, source, nil
}

func resolveWorkdir(base, workdir string) string {
	if workdir == "" {
		return base
	}
	if filepath.IsAbs(workdir) {
		return filepath.Clean(workdir)
	}
	return filepath.Clean(filepath.Join(base, workdir))
}
