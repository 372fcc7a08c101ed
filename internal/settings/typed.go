package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dshills/tangled/internal/convert"
)

// ParseOptions controls Parse.
type ParseOptions struct {
	// Defaults are applied before the parsed settings.
	Defaults map[string]any
	// Extra is applied after the parsed settings and overrides them.
	Extra map[string]any
	// Required keys must be present in the result.
	Required []string
	// Prefix keeps only keys starting with it.
	Prefix string
	// KeepPrefix keeps Prefix on the result keys.
	KeepPrefix bool
	// Converters resolves "key:type" names. Defaults to convert.Default().
	Converters *convert.Registry
}

// reserved keys hold paths and names rather than JSON.
var reserved = map[string]bool{
	KeyDir:     true,
	KeyFile:    true,
	KeyBase:    true,
	KeyBases:   true,
	KeyExtends: true,
	KeyEnv:     true,
}

// Parse decodes settings values as JSON.
//
// A key of the form "name:type" is decoded and then converted by the named
// converter; the result is stored under "name". Empty values decode to nil,
// integral numbers to int. Reserved keys are kept verbatim unless they hold a
// JSON string.
func Parse(values map[string]string, opts ParseOptions) (map[string]any, error) {
	reg := opts.Converters
	if reg == nil {
		reg = convert.Default()
	}

	out := make(map[string]any, len(values)+len(opts.Defaults)+len(opts.Extra))
	for k, v := range opts.Defaults {
		out[k] = v
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := values[key]

		name := key
		if opts.Prefix != "" {
			rest, ok := strings.CutPrefix(key, opts.Prefix)
			if !ok {
				continue
			}
			if !opts.KeepPrefix {
				name = rest
			}
		}

		name, typ := splitType(name)

		v, err := decodeValue(name, raw)
		if err != nil {
			return nil, err
		}

		if typ != "" {
			c, err := reg.Lookup(typ)
			if err != nil {
				return nil, fmt.Errorf("setting %s: %w", key, err)
			}
			v, err = c(v)
			if err != nil {
				return nil, &ValueError{Key: key, Type: typ, Value: raw, Err: err}
			}
		}

		out[name] = v
	}

	for k, v := range opts.Extra {
		out[k] = v
	}

	var missing []string
	for _, k := range opts.Required {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingError{Keys: missing}
	}

	return out, nil
}

// splitType splits "name:type" at the last colon.
func splitType(key string) (string, string) {
	i := strings.LastIndexByte(key, ':')
	if i <= 0 || i == len(key)-1 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

func decodeValue(name, raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	v, err := decodeJSON(raw)
	if reserved[name] {
		if s, ok := v.(string); ok && err == nil {
			return s, nil
		}
		return raw, nil
	}
	if err != nil {
		return nil, &ValueError{Key: name, Type: "json", Value: raw, Err: err}
	}
	return v, nil
}

var errTrailingData = errors.New("unexpected data after JSON value")

// decodeJSON decodes exactly one JSON value, turning integral numbers into
// int and the rest into float64.
func decodeJSON(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return normalizeNumbers(v)
}

func normalizeNumbers(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := t.Int64(); err == nil {
				return int(i), nil
			}
		}
		return t.Float64()
	case []any:
		for i, item := range t {
			n, err := normalizeNumbers(item)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	case map[string]any:
		for k, item := range t {
			n, err := normalizeNumbers(item)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	default:
		return v, nil
	}
}

