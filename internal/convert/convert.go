// Package convert provides value converters for settings.
//
// Settings files store strings. Converters turn those strings (or values
// already decoded from JSON) into typed Go values. Converters are looked up
// by name through a Registry so that a settings key can name its type, as in
// "timeout:duration = \"5s\"".
package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Converter converts a value into another representation.
type Converter func(v any) (any, error)

// ErrConversion indicates a value could not be converted.
var ErrConversion = errors.New("conversion failed")

var (
	trueStrings  = []string{"true", "yes", "y", "on", "1"}
	falseStrings = []string{"false", "no", "n", "off", "0"}

	strBool = func() map[string]bool {
		m := make(map[string]bool, len(trueStrings)+len(falseStrings))
		for _, s := range trueStrings {
			m[s] = true
		}
		for _, s := range falseStrings {
			m[s] = false
		}
		return m
	}()
)

// Bool converts v to a bool.
//
// Strings are matched case-insensitively against true/yes/y/on/1 and
// false/no/n/off/0. Numbers are true when non-zero.
func Bool(v any) (any, error) {
	return ToBool(v)
}

// ToBool is the typed form of Bool.
func ToBool(v any) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case string:
		if r, ok := strBool[strings.ToLower(strings.TrimSpace(b))]; ok {
			return r, nil
		}
		return false, fmt.Errorf("%w: could not convert %q to bool", ErrConversion, b)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return false, fmt.Errorf("%w: could not convert %T to bool", ErrConversion, v)
	}
	return f != 0, nil
}

// Int converts v to an int.
func Int(v any) (any, error) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return i, nil
}

// Float converts v to a float64.
func Float(v any) (any, error) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return f, nil
}

// String converts v to its string form.
func String(v any) (any, error) {
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return s, nil
}

// Duration converts v to a time.Duration. Strings use time.ParseDuration
// syntax; bare numbers are nanoseconds.
func Duration(v any) (any, error) {
	return ToDuration(v)
}

// ToDuration is the typed form of Duration.
func ToDuration(v any) (time.Duration, error) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return d, nil
}

// Identity returns v unchanged.
func Identity(v any) (any, error) {
	return v, nil
}

// Seq splits a string into a sequence.
//
// The string is trimmed, any run of sep characters is stripped from both
// ends, and the rest is split on sep. An empty sep splits on whitespace.
// Slices are returned as []any unchanged in content.
//
//	Seq("a b c", "")  // [a b c]
//	Seq("a, b,", ",") // [a b]
func Seq(v any, sep string) ([]any, error) {
	switch s := v.(type) {
	case nil:
		return []any{}, nil
	case string:
		parts := split(s, sep)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	case []any:
		out := make([]any, len(s))
		copy(out, s)
		return out, nil
	case []string:
		out := make([]any, len(s))
		for i, p := range s {
			out[i] = p
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: could not convert %T to a sequence", ErrConversion, v)
	}
}

// Strings is the typed form of Seq for callers that want []string.
func Strings(v any, sep string) ([]string, error) {
	if s, ok := v.(string); ok {
		return split(s, sep), nil
	}
	out, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return out, nil
}

// List converts v to a whitespace-separated sequence.
func List(v any) (any, error) {
	return Seq(v, "")
}

// SeqOf returns a converter that splits its input with Seq and converts
// each item with item.
func SeqOf(item Converter, sep string) Converter {
	return func(v any) (any, error) {
		items, err := Seq(v, sep)
		if err != nil {
			return nil, err
		}
		for i, it := range items {
			c, err := item(it)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			items[i] = c
		}
		return items, nil
	}
}

// SeqOfSeq splits v into lines on sep (newline when empty) and each line
// into items on itemSep (whitespace when empty).
//
//	SeqOfSeq("1 2 3\na b c", "", "") // [[1 2 3] [a b c]]
func SeqOfSeq(v string, sep, itemSep string) [][]string {
	if strings.TrimSpace(v) == "" {
		return [][]string{}
	}
	if sep == "" {
		sep = "\n"
	}
	lines := split(v, sep)
	out := make([][]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, split(line, itemSep))
	}
	return out
}

// Lines is SeqOfSeq with default separators as a Converter.
func Lines(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: lines requires a string, got %T", ErrConversion, v)
	}
	return SeqOfSeq(s, "", ""), nil
}

// FirstOf returns a converter that tries each converter in turn and returns
// the first successful result.
func FirstOf(c Converter, cs ...Converter) Converter {
	all := append([]Converter{c}, cs...)
	return func(v any) (any, error) {
		for _, conv := range all {
			if r, err := conv(v); err == nil {
				return r, nil
			}
		}
		return nil, fmt.Errorf("%w: could not convert %v", ErrConversion, v)
	}
}

func split(s, sep string) []string {
	s = strings.TrimSpace(s)
	if sep == "" {
		return strings.Fields(s)
	}
	s = strings.Trim(s, sep)
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
