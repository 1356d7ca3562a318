package receipts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type unmarshalFn func([]byte, any) error

// LoadClaim reads a claim from a YAML or JSON file.
func LoadClaim(path string) (Claim, error) {
	var claim Claim
	if err := loadFile(path, "claim", &claim); err != nil {
		return Claim{}, err
	}
	return claim, nil
}

// LoadArtifacts reads a knowledge artifacts document from a YAML or JSON file.
func LoadArtifacts(path string) (KnowledgeArtifacts, error) {
	var artifacts KnowledgeArtifacts
	if err := loadFile(path, "artifacts", &artifacts); err != nil {
		return nil, err
	}
	return normalizeArtifacts(artifacts), nil
}

func loadFile(path, what string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%s file path is empty", what)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", what, err)
	}
	return decodePayload(raw, filepath.Ext(path), what, out)
}

// decodePayload tries the decoder matching ext, or every decoder when ext is unknown.
func decodePayload(data []byte, ext, what string, out any) error {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "json", ext: ".json", fn: json.Unmarshal},
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
	}

	known := false
	for _, d := range decoders {
		if ext == d.ext {
			known = true
		}
	}

	var errs []error
	for _, d := range decoders {
		if known && ext != d.ext {
			continue
		}
		if err := d.fn(data, out); err != nil {
			errs = append(errs, fmt.Errorf("decode %s %s: %w", d.name, what, err))
			continue
		}
		return nil
	}
	return fmt.Errorf("%s file format not recognized (expected YAML or JSON): %w", what, errors.Join(errs...))
}

// normalizeArtifacts drops empty category names and nil records.
func normalizeArtifacts(in KnowledgeArtifacts) KnowledgeArtifacts {
	if in == nil {
		return nil
	}
	out := make(KnowledgeArtifacts, len(in))
	for cat, items := range in {
		cat = strings.TrimSpace(cat)
		if cat == "" {
			continue
		}
		kept := make([]Artifact, 0, len(items))
		for _, a := range items {
			if a != nil {
				kept = append(kept, a)
			}
		}
		out[cat] = kept
	}
	return out
}

// ClaimKey is a stable fingerprint of a claim's JSON encoding.
func ClaimKey(claim Claim) (string, error) {
	raw, err := json.Marshal(claim)
	if err != nil {
		return "", fmt.Errorf("marshal claim: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
