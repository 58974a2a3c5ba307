package config

import (
	stderrors "errors"
	"regexp"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/types"
)

// tomlHeaderRe matches array-of-tables headers like [[package]] or
// [[tool.custom]] at the start of a line.
var tomlHeaderRe = regexp.MustCompile(`(?m)^[ \t]*\[\[[ \t]*([A-Za-z0-9_.-]+)[ \t]*\]\][ \t\r]*$`)

// normalizeTOML parses a TOML document and produces the ordered command
// sequence.
//
// The parser groups all tables under the same array-of-tables key
// together, losing the interleaving between different kinds, e.g.
//
//	[[package]] ... [[symlink]] ... [[package]] ...
//
// parses as package[0], package[1], symlink[0]. Command order is
// execution order, so for the per-kind grouped style we rescan the raw
// source for [[...]] headers in appearance order and consume the parsed
// tables one by one, then verify that every parsed group was fully
// consumed. A count mismatch means the text scan and the parse disagree
// about the document structure, which would silently drop or duplicate
// a command if let through.
func normalizeTOML(data []byte, path string) (*int, string, []types.Descriptor, error) {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		var derr *toml.DecodeError
		if stderrors.As(err, &derr) {
			row, col := derr.Position()
			return nil, "", nil, errors.Wrapf(err, errors.ErrConfigParse,
				"invalid TOML in %s at line %d, column %d", path, row, col)
		}
		return nil, "", nil, errors.Wrapf(err, errors.ErrConfigParse, "invalid TOML in %s", path)
	}

	version, description, err := extractMeta(raw)
	if err != nil {
		return nil, "", nil, err
	}

	// Explicit [[commands]] style: the array itself preserves order, no
	// reconstruction needed.
	if tables, ok := sliceOfTables(raw["commands"]); ok {
		if err := extraKeysError(raw, "commands"); err != nil {
			return nil, "", nil, err
		}
		cmds, err := explicitTables(tables, "command")
		if err != nil {
			return nil, "", nil, err
		}
		return version, description, cmds, nil
	}

	// Generic [[command]] style.
	if tables, ok := sliceOfTables(raw["command"]); ok {
		if err := extraKeysError(raw, "command"); err != nil {
			return nil, "", nil, err
		}
		cmds, err := explicitTables(tables, "[[command]]")
		if err != nil {
			return nil, "", nil, err
		}
		return version, description, cmds, nil
	}

	// Per-kind grouped style, order reconstructed from the raw text.
	headers := tomlHeaderRe.FindAllStringSubmatch(string(data), -1)
	if len(headers) == 0 {
		return nil, "", nil, errors.Newf(errors.ErrConfigInvalid,
			"%s: TOML config must define either [[commands]], [[command]], or at least one [[<kind>]] table", path)
	}

	consumed := make(map[string]int)
	var out []types.Descriptor

	for _, m := range headers {
		header := m[1]
		if header == "commands" || header == "command" {
			return nil, "", nil, errors.Newf(errors.ErrConfigInvalid,
				"%s: do not mix [[%s]] with kind tables like [[package]]; choose one style", path, header)
		}

		tables, ok := sliceOfTables(resolveTOMLPath(raw, header))
		if !ok {
			return nil, "", nil, errors.Newf(errors.ErrConfigInvalid,
				"%s: [[%s]] does not parse as an array-of-tables", path, header)
		}

		idx := consumed[header]
		if idx >= len(tables) {
			return nil, "", nil, errors.Newf(errors.ErrConfigInvalid,
				"%s: too many [[%s]] headers (parsed only %d tables)", path, header, len(tables))
		}
		consumed[header] = idx + 1
		table := tables[idx]

		var cmds []types.Descriptor
		if header == "package" || header == "packages" {
			cmds, err = expandPackages([]map[string]interface{}{table})
		} else {
			cmds, err = groupedDescriptors(canonicalKind(header), []map[string]interface{}{table})
		}
		if err != nil {
			return nil, "", nil, err
		}
		out = append(out, cmds...)
	}

	// Every parsed array-of-tables must have been fully consumed by the
	// text scan.
	for key, value := range raw {
		if metaKeys[key] {
			continue
		}
		tables, ok := sliceOfTables(value)
		if !ok {
			continue
		}
		if used := consumed[key]; used != len(tables) {
			return nil, "", nil, errors.Newf(errors.ErrConfigInvalid,
				"%s: parsed %d [[%s]] tables but found %d headers in file", path, len(tables), key, used)
		}
	}

	return version, description, out, nil
}

// explicitTables normalizes tables that each carry their own kind.
func explicitTables(tables []map[string]interface{}, what string) ([]types.Descriptor, error) {
	out := make([]types.Descriptor, 0, len(tables))
	for i, t := range tables {
		d, err := descriptorFromRaw(t, what, i+1)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// sliceOfTables coerces a decoded value into a slice of tables,
// tolerating both the []interface{} and []map[string]interface{}
// representations decoders produce.
func sliceOfTables(v interface{}) ([]map[string]interface{}, bool) {
	switch s := v.(type) {
	case []map[string]interface{}:
		return s, true
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(s))
		for _, item := range s {
			t, ok := item.(map[string]interface{})
			if !ok {
				return nil, false
			}
			out = append(out, t)
		}
		return out, true
	}
	return nil, false
}

// resolveTOMLPath walks a dotted header name like tool.custom through
// nested tables.
func resolveTOMLPath(raw map[string]interface{}, dotted string) interface{} {
	var cur interface{} = raw
	start := 0
	for i := 0; i <= len(dotted); i++ {
		if i < len(dotted) && dotted[i] != '.' {
			continue
		}
		part := dotted[start:i]
		start = i + 1
		table, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = table[part]
	}
	return cur
}
