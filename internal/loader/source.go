package loader

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// moduleSource is the decoded form of a module unit.
type moduleSource struct {
	Name    string         `yaml:"name" toml:"name"`
	Symbols []symbolSource `yaml:"symbols" toml:"symbols"`
	Init    []callSource   `yaml:"init" toml:"init"`
}

// symbolSource is one top-level definition. Exactly one of Value,
// Capability or Ref must be present.
type symbolSource struct {
	Name       string         `yaml:"name" toml:"name"`
	Value      any            `yaml:"value" toml:"value"`
	Capability string         `yaml:"capability" toml:"capability"`
	With       map[string]any `yaml:"with" toml:"with"`
	Ref        string         `yaml:"ref" toml:"ref"`

	// hasValue distinguishes an explicit null value from an absent one.
	hasValue bool
	hasWith  bool
}

var symbolKeys = []string{"name", "value", "capability", "with", "ref"}

const mergeTag = "!!merge"

// UnmarshalYAML records whether the value key was present and rejects
// unknown keys, including those pulled in through merge keys.
func (s *symbolSource) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	type plain symbolSource
	if err := node.Decode((*plain)(s)); err != nil {
		return err
	}
	return s.checkKeys(node)
}

func (s *symbolSource) checkKeys(node *yaml.Node) error {
	switch node.Kind {
	case yaml.AliasNode:
		return s.checkKeys(node.Alias)
	case yaml.SequenceNode:
		// "<<: [*a, *b]" merges several mappings.
		for _, n := range node.Content {
			if err := s.checkKeys(n); err != nil {
				return err
			}
		}
		return nil
	case yaml.MappingNode:
	default:
		return nil
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if key.ShortTag() == mergeTag {
			if err := s.checkKeys(val); err != nil {
				return err
			}
			continue
		}
		if !slices.Contains(symbolKeys, key.Value) {
			return fmt.Errorf("line %d: unknown symbol field %q", key.Line, key.Value)
		}
		switch key.Value {
		case "value":
			s.hasValue = true
		case "with":
			s.hasWith = true
		}
	}
	return nil
}

// kinds returns how many of value/capability/ref the definition sets.
func (s symbolSource) kinds() int {
	n := 0
	if s.hasValue {
		n++
	}
	if s.Capability != "" {
		n++
	}
	if s.Ref != "" {
		n++
	}
	return n
}

// callSource is an init statement invoking a function symbol.
type callSource struct {
	Call string         `yaml:"call" toml:"call"`
	Args map[string]any `yaml:"args" toml:"args"`
}

type decodeFunc func(data []byte) (*moduleSource, error)

// decoders maps supported file extensions to their decoder. JSON is a
// subset of YAML and shares its decoder.
var decoders = map[string]decodeFunc{
	".yaml": decodeYAML,
	".yml":  decodeYAML,
	".json": decodeYAML,
	".toml": decodeTOML,
}

// SupportedExtensions returns the module file extensions the loader accepts.
func SupportedExtensions() []string {
	return sortedKeys(decoders)
}

func decoderFor(path string) (decodeFunc, bool) {
	dec, ok := decoders[strings.ToLower(filepath.Ext(path))]
	return dec, ok
}

func decodeYAML(data []byte) (*moduleSource, error) {
	var src moduleSource
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&src); err != nil {
		if err == io.EOF {
			// An empty document is a module that defines nothing.
			return &src, nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &src, nil
}

func decodeTOML(data []byte) (*moduleSource, error) {
	var src moduleSource
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&src); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	// TOML has no null, so presence is the same as non-nil.
	for i := range src.Symbols {
		src.Symbols[i].hasValue = src.Symbols[i].Value != nil
		src.Symbols[i].hasWith = src.Symbols[i].With != nil
	}
	return &src, nil
}
