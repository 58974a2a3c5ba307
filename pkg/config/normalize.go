package config

import (
	"sort"
	"strings"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/types"
)

// metaKeys are the top-level keys that carry document metadata rather
// than commands.
var metaKeys = map[string]bool{
	"version":     true,
	"description": true,
}

// kindAliases collapses pluralized grouped-table keys to canonical kind
// names. Unknown keys pass through verbatim, which is how plugin-defined
// kinds participate without special-casing.
var kindAliases = map[string]string{
	"package":  "package",
	"packages": "package",
	"symlink":  "symlink",
	"symlinks": "symlink",
	"shell":    "shell",
	"shells":   "shell",
	"service":  "service",
	"services": "service",
}

func canonicalKind(key string) string {
	if k, ok := kindAliases[key]; ok {
		return k
	}
	return key
}

// document is a decoded top-level shape. Exactly one of list or table is
// set; keys preserves the table's authoring key order, which map types
// would otherwise lose.
type document struct {
	list  []interface{}
	table map[string]interface{}
	keys  []string
}

// requireInt accepts the integer representations the three parsers
// produce (int, int64, and integral float64 from JSON).
func requireInt(v interface{}, what string) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, errors.Newf(errors.ErrConfigInvalid, "'%s' must be an integer if present", what)
}

func toTable(v interface{}) (map[string]interface{}, bool) {
	t, ok := v.(map[string]interface{})
	return t, ok
}

// asTableList accepts a single table or a sequence of tables.
func asTableList(v interface{}, what string) ([]map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if t, ok := toTable(v); ok {
		return []map[string]interface{}{t}, nil
	}
	if seq, ok := v.([]interface{}); ok {
		out := make([]map[string]interface{}, 0, len(seq))
		for _, item := range seq {
			t, ok := toTable(item)
			if !ok {
				return nil, errors.Newf(errors.ErrConfigInvalid,
					"'%s' must be a table or array-of-tables", what)
			}
			out = append(out, t)
		}
		return out, nil
	}
	return nil, errors.Newf(errors.ErrConfigInvalid, "'%s' must be a table or array-of-tables", what)
}

// descriptorFromRaw builds a descriptor from an explicit-style table,
// where the table itself names its kind (as 'kind' or 'command').
func descriptorFromRaw(raw map[string]interface{}, what string, index int) (types.Descriptor, error) {
	kind, _ := raw["kind"].(string)
	if kind == "" {
		kind, _ = raw["command"].(string)
	}
	if kind == "" {
		return types.Descriptor{}, errors.Newf(errors.ErrConfigInvalid,
			"%s entry %d requires 'kind'", what, index)
	}

	backend, err := optionalBackend(raw)
	if err != nil {
		return types.Descriptor{}, err
	}

	return types.Descriptor{
		Kind:    kind,
		Backend: backend,
		Fields:  fieldsOf(raw, "command"),
	}, nil
}

func optionalBackend(raw map[string]interface{}) (string, error) {
	v, ok := raw["backend"]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.New(errors.ErrConfigInvalid, "'backend' must be a string if present")
	}
	return s, nil
}

// fieldsOf copies a raw table minus the keys the descriptor lifts out.
// kind and backend are always lifted; 'command' is lifted only in the
// explicit styles where it can spell the kind, so a grouped table may
// carry a plain field named command.
func fieldsOf(raw map[string]interface{}, lifted ...string) map[string]interface{} {
	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == "kind" || k == "backend" {
			continue
		}
		skip := false
		for _, l := range lifted {
			if k == l {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		fields[k] = v
	}
	return fields
}

// groupedDescriptors tags every table with the group's kind. A table may
// repeat the kind explicitly, but it must agree with its group key.
func groupedDescriptors(kind string, tables []map[string]interface{}) ([]types.Descriptor, error) {
	out := make([]types.Descriptor, 0, len(tables))
	for _, t := range tables {
		if existing, ok := t["kind"]; ok {
			if s, ok := existing.(string); !ok || s != kind {
				return nil, errors.Newf(errors.ErrConfigInvalid,
					"command table for [[%s]] must not set kind=%v", kind, existing)
			}
		}
		backend, err := optionalBackend(t)
		if err != nil {
			return nil, err
		}
		out = append(out, types.Descriptor{
			Kind:    kind,
			Backend: backend,
			Fields:  fieldsOf(t),
		})
	}
	return out, nil
}

// expandPackages handles the dedicated [[package]]/[[packages]] rule:
// 'name' installs one package, 'names' expands to one descriptor per
// entry, all sharing the same optional backend. The two are mutually
// exclusive.
func expandPackages(tables []map[string]interface{}) ([]types.Descriptor, error) {
	var out []types.Descriptor
	for _, t := range tables {
		backend, err := optionalBackend(t)
		if err != nil {
			return nil, errors.New(errors.ErrConfigInvalid,
				"'backend' must be a string if present (in [[package]]/[[packages]])")
		}

		name, hasName := t["name"]
		names, hasNames := t["names"]
		if hasName && hasNames {
			return nil, errors.New(errors.ErrConfigInvalid,
				"use either 'name' or 'names' in [[package]]/[[packages]], not both")
		}

		if s, ok := name.(string); hasName && ok && s != "" {
			out = append(out, packageDescriptor(s, backend))
			continue
		}

		if seq, ok := names.([]interface{}); hasNames && ok {
			expanded := make([]types.Descriptor, 0, len(seq))
			valid := len(seq) > 0
			for _, n := range seq {
				s, ok := n.(string)
				if !ok || s == "" {
					valid = false
					break
				}
				expanded = append(expanded, packageDescriptor(s, backend))
			}
			if valid {
				out = append(out, expanded...)
				continue
			}
		}

		return nil, errors.New(errors.ErrConfigInvalid,
			"[[package]]/[[packages]] requires 'name' (string) or 'names' (array of strings)")
	}
	return out, nil
}

func packageDescriptor(name, backend string) types.Descriptor {
	return types.Descriptor{
		Kind:    "package",
		Backend: backend,
		Fields:  map[string]interface{}{"name": name},
	}
}

// extractMeta pulls version and description off a top-level table,
// validating their types.
func extractMeta(table map[string]interface{}) (*int, string, error) {
	var version *int
	if v, ok := table["version"]; ok && v != nil {
		n, err := requireInt(v, "version")
		if err != nil {
			return nil, "", err
		}
		version = &n
	}

	description := ""
	if v, ok := table["description"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, "", errors.New(errors.ErrConfigInvalid, "'description' must be a string if present")
		}
		description = s
	}

	return version, description, nil
}

// extraKeysError reports unexpected top-level keys next to an explicit
// command list, so typos never get silently ignored.
func extraKeysError(table map[string]interface{}, allowed string) error {
	var extra []string
	for k := range table {
		if metaKeys[k] || k == allowed {
			continue
		}
		extra = append(extra, k)
	}
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return errors.Newf(errors.ErrConfigInvalid,
		"when using '%s', no other top-level command tables are allowed (found: %s)",
		allowed, strings.Join(extra, ", "))
}

// explicitList normalizes a whole-document sequence of tables.
func explicitList(list []interface{}) ([]types.Descriptor, error) {
	out := make([]types.Descriptor, 0, len(list))
	for i, item := range list {
		t, ok := toTable(item)
		if !ok {
			return nil, errors.Newf(errors.ErrConfigInvalid, "command entry %d must be a table", i+1)
		}
		d, err := descriptorFromRaw(t, "command", i+1)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// normalizeDocument reconciles the accepted top-level shapes, checked in
// precedence order: explicit list, 'commands' list, 'command' generic
// list, then per-kind grouped tables in document key order.
func normalizeDocument(doc document) (*int, string, []types.Descriptor, error) {
	if doc.list != nil {
		cmds, err := explicitList(doc.list)
		if err != nil {
			return nil, "", nil, err
		}
		return nil, "", cmds, nil
	}

	if doc.table == nil {
		return nil, "", nil, errors.New(errors.ErrConfigInvalid,
			"config must be a list of command objects or {version, commands: [...]}")
	}

	version, description, err := extractMeta(doc.table)
	if err != nil {
		return nil, "", nil, err
	}

	if cmds, ok := doc.table["commands"].([]interface{}); ok {
		if err := extraKeysError(doc.table, "commands"); err != nil {
			return nil, "", nil, err
		}
		out, err := explicitList(cmds)
		if err != nil {
			return nil, "", nil, err
		}
		return version, description, out, nil
	}

	if generic, ok := doc.table["command"].([]interface{}); ok {
		if err := extraKeysError(doc.table, "command"); err != nil {
			return nil, "", nil, err
		}
		out := make([]types.Descriptor, 0, len(generic))
		for i, item := range generic {
			t, ok := toTable(item)
			if !ok {
				return nil, "", nil, errors.Newf(errors.ErrConfigInvalid,
					"[[command]] entry %d must be a table", i+1)
			}
			d, err := descriptorFromRaw(t, "[[command]]", i+1)
			if err != nil {
				return nil, "", nil, err
			}
			out = append(out, d)
		}
		return version, description, out, nil
	}

	// Grouped per-kind tables, one group at a time in key order.
	var out []types.Descriptor
	for _, key := range doc.keys {
		if metaKeys[key] {
			continue
		}
		tables, err := asTableList(doc.table[key], key)
		if err != nil {
			return nil, "", nil, err
		}

		var cmds []types.Descriptor
		if key == "package" || key == "packages" {
			cmds, err = expandPackages(tables)
		} else {
			cmds, err = groupedDescriptors(canonicalKind(key), tables)
		}
		if err != nil {
			return nil, "", nil, err
		}
		out = append(out, cmds...)
	}

	if len(out) == 0 {
		return nil, "", nil, errors.New(errors.ErrConfigInvalid,
			"config must be a list of command objects or {version, commands: [...]}")
	}
	return version, description, out, nil
}
