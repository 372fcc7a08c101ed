package settings

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Reserved keys.
const (
	// KeyDir holds the absolute directory of the defining file. Always injected.
	KeyDir = "__dir__"
	// KeyExtends names the parent settings file.
	KeyExtends = "extends"
	// KeyFile holds the absolute path of the loaded file (meta settings only).
	KeyFile = "__file__"
	// KeyBase holds the absolute path of the direct parent (meta settings only).
	KeyBase = "__base__"
	// KeyBases holds every ancestor path, nearest first (meta settings only).
	KeyBases = "__bases__"
	// KeyEnv names the environment. Injected from the file name when absent
	// (meta settings only).
	KeyEnv = "env"
)

// DefaultDelimiters separate keys from values: "key = value" or "key: value".
const DefaultDelimiters = "=:"

// rawFile is one parsed settings file before interpolation and merging.
type rawFile struct {
	path   string
	dir    string
	keys   []string // file order, each key once
	values map[string]string
}

// parseFile parses data into a flat key/value namespace.
// An empty section folds every section together in file order; otherwise only
// the unnamed section and [section] are used. The first of delimiters on a
// line ends the key.
func parseFile(path, dir string, data []byte, section, delimiters string) (*rawFile, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreContinuation:      true,
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
		KeyValueDelimiters:      delimiters,
	}, quoteLiteralValues(data, delimiters))
	if err != nil {
		return nil, newParseError(path, data, err)
	}

	sections := f.Sections()
	if section != "" {
		sec, err := f.GetSection(section)
		if err != nil {
			return nil, fmt.Errorf("%w: [%s] in %s", ErrSectionNotFound, section, path)
		}
		sections = []*ini.Section{f.Section(ini.DefaultSection), sec}
	}

	raw := &rawFile{
		path:   path,
		dir:    dir,
		values: make(map[string]string),
	}
	for _, sec := range sections {
		for _, key := range sec.Keys() {
			name := key.Name()
			if name == KeyDir {
				continue
			}
			if _, seen := raw.values[name]; !seen {
				raw.keys = append(raw.keys, name)
			}
			raw.values[name] = key.Value()
		}
	}

	return raw, nil
}

// quoteLiteralValues wraps values beginning with a backtick or `"""` in
// triple quotes. ini would otherwise strip the backticks or read the following
// lines into the value. Line numbers are unchanged.
func quoteLiteralValues(data []byte, delimiters string) []byte {
	if !bytes.ContainsAny(data, "`\"") {
		return data
	}

	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 || bytes.IndexByte([]byte("#;[\"`"), trimmed[0]) >= 0 {
			continue
		}
		idx := bytes.IndexAny(line, delimiters)
		if idx < 0 {
			continue
		}
		value := bytes.TrimSpace(line[idx+1:])
		if !bytes.HasPrefix(value, []byte("`")) && !bytes.HasPrefix(value, []byte(`"""`)) {
			continue
		}

		quoted := make([]byte, 0, idx+len(value)+8)
		quoted = append(quoted, line[:idx+1]...)
		quoted = append(quoted, ` """`...)
		quoted = append(quoted, value...)
		quoted = append(quoted, `"""`...)
		lines[i] = quoted
	}
	return bytes.Join(lines, []byte("\n"))
}

// newParseError converts an ini error into a ParseError, locating the
// offending line where possible.
func newParseError(path string, data []byte, err error) *ParseError {
	pe := &ParseError{Path: path, Message: err.Error(), Err: err}

	var delim ini.ErrDelimiterNotFound
	if errors.As(err, &delim) {
		pe.Message = "expected key = value"
		pe.Line = locateLine(data, delim.Line)
		return pe
	}

	// Other ini errors end with the offending line after a "reason: " prefix.
	msg := err.Error()
	for {
		_, after, ok := strings.Cut(msg, ": ")
		if !ok {
			break
		}
		if n := locateLine(data, after); n > 0 {
			pe.Line = n
			break
		}
		msg = after
	}
	return pe
}

// locateLine returns the 1-based number of the first line whose trimmed
// content equals text, or 0.
func locateLine(data []byte, text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; scanner.Scan(); n++ {
		if strings.TrimSpace(scanner.Text()) == text {
			return n
		}
	}
	return 0
}
