package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/swingscreener/internal/contracts"
)

//go:embed presets.yaml
var builtinYAML []byte

// Builtin returns the presets shipped with the binary
func Builtin() *File {
	f, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("builtin presets invalid: %v", err))
	}
	return f
}

// Load reads a preset file and returns it with the raw bytes
// ⭐ SSOT: KnownFields(true) fails fast on typos and unused fields
func Load(path string) (*File, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return f, data, nil
}

// Parse decodes and validates preset YAML
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrInvalidConfig, err)
	}

	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Resolve picks a preset from path, or from the builtin library when path is empty
func Resolve(path, name string) (Preset, *DecisionSnapshot, error) {
	source := "builtin"
	var f *File
	if path == "" {
		f = Builtin()
	} else {
		loaded, _, err := Load(path)
		if err != nil {
			return Preset{}, nil, err
		}
		f = loaded
		source = path
	}

	p, err := f.Get(name)
	if err != nil {
		return Preset{}, nil, err
	}

	hash, err := Hash(p)
	if err != nil {
		return Preset{}, nil, err
	}

	return p, &DecisionSnapshot{
		Preset:     p.Name,
		ConfigHash: hash,
		Source:     source,
		CreatedAt:  time.Now(),
	}, nil
}

// Hash generates SHA256 hash from a preset (canonical JSON)
// Structs only, so field order is deterministic
func Hash(p Preset) (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
