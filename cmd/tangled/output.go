package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/dshills/tangled/internal/reload"
	"github.com/dshills/tangled/internal/settings"
)

// document is one loaded file ready for output.
type document struct {
	file   string
	values map[string]any
}

func settingsValues(s *settings.Settings, typed bool) (map[string]any, error) {
	if typed {
		return s.Typed(settings.ParseOptions{})
	}
	values := make(map[string]any, s.Len())
	for k, v := range s.Map() {
		values[k] = v
	}
	return values, nil
}

// writeDocuments writes docs in format. A single document is written as its
// mapping; several are keyed by file path.
func writeDocuments(w io.Writer, format string, docs []document) error {
	if format == "env" {
		for i, doc := range docs {
			if len(docs) > 1 {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "# %s\n", doc.file)
			}
			if err := writeEnv(w, doc.values); err != nil {
				return err
			}
		}
		return nil
	}

	out := documentsValue(docs)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case "toml":
		return toml.NewEncoder(w).Encode(dropNil(out))
	default:
		return fmt.Errorf("%w: unknown format %q", errUsage, format)
	}
}

// documentsValue returns the mapping of a single document, or the documents
// keyed by file path.
func documentsValue(docs []document) any {
	if len(docs) == 1 {
		return docs[0].values
	}
	byFile := make(map[string]any, len(docs))
	for _, doc := range docs {
		byFile[doc.file] = doc.values
	}
	return byFile
}

// writeQuery prints the value at a gjson path of the JSON form of docs.
// Strings are printed bare, everything else as JSON.
func writeQuery(w io.Writer, docs []document, query string) error {
	data, err := json.Marshal(documentsValue(docs))
	if err != nil {
		return err
	}
	res := gjson.GetBytes(data, query)
	if !res.Exists() {
		return fmt.Errorf("nothing found at %q", query)
	}
	if res.Type == gjson.String {
		fmt.Fprintln(w, res.Str)
		return nil
	}
	fmt.Fprintln(w, res.Raw)
	return nil
}

// dropNil removes nil values, which TOML cannot represent.
func dropNil(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		if val == nil {
			continue
		}
		out[k] = dropNil(val)
	}
	return out
}

// writeEnv writes KEY='value' lines sorted by key.
func writeEnv(w io.Writer, values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := envValue(values[k])
		if err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
		fmt.Fprintf(w, "%s=%s\n", envName(k), shellQuote(v))
	}
	return nil
}

func envValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// envName upper-cases key and replaces anything but letters, digits and
// underscores with an underscore.
func envName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// writeChange prints one reload outcome.
func writeChange(w io.Writer, c reload.Change) {
	if c.Err != nil {
		fmt.Fprintf(w, "! %v\n", c.Err)
		return
	}
	for _, k := range c.Diff.Added {
		fmt.Fprintf(w, "+ %s = %s\n", k, c.New.Get(k))
	}
	for _, k := range c.Diff.Modified {
		fmt.Fprintf(w, "~ %s = %s -> %s\n", k, c.Old.Get(k), c.New.Get(k))
	}
	for _, k := range c.Diff.Removed {
		fmt.Fprintf(w, "- %s\n", k)
	}
}
