package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/types"
)

// Format identifies a supported document grammar.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// supportedExtensions maps file extensions to formats.
var supportedExtensions = map[string]Format{
	".json": FormatJSON,
	".toml": FormatTOML,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
}

// FormatForPath routes a file to its format by extension. Unsupported
// extensions are a hard error naming the accepted set.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := supportedExtensions[ext]; ok {
		return f, nil
	}
	return "", errors.Newf(errors.ErrConfigFormat,
		"unsupported config format for %s (expected .json, .toml, .yaml, .yml)", path)
}

// Load reads and normalizes one config document from disk.
func Load(path string) (*types.LoadedConfig, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read config %s", path)
	}
	return Normalize(data, format, path)
}

// Normalize parses a document in the given format and produces the
// canonical ordered command sequence. The path is used in error
// messages only.
func Normalize(data []byte, format Format, path string) (*types.LoadedConfig, error) {
	var (
		version     *int
		description string
		cmds        []types.Descriptor
		err         error
	)

	switch format {
	case FormatJSON:
		var doc document
		doc, err = decodeJSON(data, path)
		if err == nil {
			version, description, cmds, err = normalizeDocument(doc)
		}
	case FormatYAML:
		var doc document
		doc, err = decodeYAML(data, path)
		if err == nil {
			version, description, cmds, err = normalizeDocument(doc)
		}
	case FormatTOML:
		version, description, cmds, err = normalizeTOML(data, path)
	default:
		err = errors.Newf(errors.ErrConfigFormat, "unsupported config format %q", format)
	}

	if err != nil {
		return nil, err
	}

	return &types.LoadedConfig{
		Path:        path,
		Version:     version,
		Description: description,
		Commands:    cmds,
	}, nil
}

// Discover walks a directory recursively and returns every config file
// with a supported extension, sorted by path for a stable apply order.
func Discover(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to scan config dir %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// decodeJSON parses JSON into a document, preserving top-level key
// order via a token scan since Go maps do not.
func decodeJSON(data []byte, path string) (document, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		var syntaxErr *json.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			line, col := lineColAt(data, syntaxErr.Offset)
			return document{}, errors.Wrapf(err, errors.ErrConfigParse,
				"invalid JSON in %s at line %d, column %d", path, line, col)
		}
		return document{}, errors.Wrapf(err, errors.ErrConfigParse, "invalid JSON in %s", path)
	}

	switch v := raw.(type) {
	case []interface{}:
		return document{list: v}, nil
	case map[string]interface{}:
		keys, err := jsonTopLevelKeys(data)
		if err != nil {
			return document{}, errors.Wrapf(err, errors.ErrConfigParse, "invalid JSON in %s", path)
		}
		return document{table: v, keys: keys}, nil
	}
	return document{}, errors.New(errors.ErrConfigInvalid,
		"config must be a list of command objects or {version, commands: [...]}")
}

// jsonTopLevelKeys reads the top-level object keys of a JSON document
// in appearance order. A repeated key is listed once, at its first
// position: json.Unmarshal keeps the last value for it, and emitting
// the key per occurrence would apply the surviving group repeatedly.
func jsonTopLevelKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("expected top-level object")
	}

	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}

		// Consume the value without decoding it.
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// decodeYAML parses YAML through the node API, which is the only way
// to keep the top-level mapping's key order.
func decodeYAML(data []byte, path string) (document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		// yaml.v3 already embeds "line N:" in its messages.
		return document{}, errors.Wrapf(err, errors.ErrConfigParse, "invalid YAML in %s", path)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return document{}, errors.New(errors.ErrConfigInvalid,
			"config must be a list of command objects or {version, commands: [...]}")
	}

	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		var list []interface{}
		if err := node.Decode(&list); err != nil {
			return document{}, errors.Wrapf(err, errors.ErrConfigParse, "invalid YAML in %s", path)
		}
		if list == nil {
			list = []interface{}{}
		}
		return document{list: list}, nil
	case yaml.MappingNode:
		var table map[string]interface{}
		if err := node.Decode(&table); err != nil {
			return document{}, errors.Wrapf(err, errors.ErrConfigParse, "invalid YAML in %s", path)
		}
		keys := make([]string, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keys = append(keys, node.Content[i].Value)
		}
		return document{table: table, keys: keys}, nil
	}
	return document{}, errors.New(errors.ErrConfigInvalid,
		"config must be a list of command objects or {version, commands: [...]}")
}

// lineColAt converts a byte offset into a 1-based line and column.
func lineColAt(data []byte, offset int64) (int, int) {
	line, col := 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
