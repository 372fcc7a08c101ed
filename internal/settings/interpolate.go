package settings

import "strings"

// DefaultMaxInterpolationDepth bounds how deeply ${key} references may nest.
const DefaultMaxInterpolationDepth = 10

// interpolator resolves ${key} placeholders in one file's own values.
//
// Own values are expanded on demand and memoized. Inherited values arrive
// fully resolved and are substituted verbatim, never re-scanned, so an escape
// resolved in a parent stays literal in the child.
type interpolator struct {
	path      string
	own       map[string]string // unresolved values defined by this file
	fixed     map[string]string // values that must not be scanned (e.g. __dir__)
	inherited map[string]string // resolved values from the parent chain
	maxDepth  int

	done   map[string]string
	active map[string]bool
}

func newInterpolator(path string, own, fixed, inherited map[string]string, maxDepth int) *interpolator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxInterpolationDepth
	}
	return &interpolator{
		path:      path,
		own:       own,
		fixed:     fixed,
		inherited: inherited,
		maxDepth:  maxDepth,
		done:      make(map[string]string),
		active:    make(map[string]bool),
	}
}

// resolve returns the fully substituted value of one of the file's own keys.
func (in *interpolator) resolve(key string) (string, error) {
	return in.lookup(key, key, 0)
}

// lookup finds ref on behalf of key at the given nesting depth.
func (in *interpolator) lookup(key, ref string, depth int) (string, error) {
	if depth > in.maxDepth {
		return "", &InterpolationError{Path: in.path, Key: key, Ref: ref, Reason: ReasonDepth}
	}
	if v, ok := in.fixed[ref]; ok {
		return v, nil
	}
	if v, ok := in.done[ref]; ok {
		return v, nil
	}

	raw, ok := in.own[ref]
	if !ok {
		if v, ok := in.inherited[ref]; ok {
			return v, nil
		}
		return "", &InterpolationError{Path: in.path, Key: key, Ref: ref, Reason: ReasonMissing}
	}

	if in.active[ref] {
		return "", &InterpolationError{Path: in.path, Key: key, Ref: ref, Reason: ReasonCycle}
	}
	in.active[ref] = true
	v, err := in.expand(ref, raw, depth)
	delete(in.active, ref)
	if err != nil {
		return "", err
	}

	in.done[ref] = v
	return v, nil
}

// expand substitutes the placeholders of a single value.
//
//	${key}  value of key
//	$$      literal $
//	$x      literal $x
func (in *interpolator) expand(key, value string, depth int) (string, error) {
	if !strings.Contains(value, "$") {
		return value, nil
	}

	var b strings.Builder
	b.Grow(len(value))

	for i := 0; i < len(value); {
		c := value[i]
		if c != '$' || i+1 == len(value) {
			b.WriteByte(c)
			i++
			continue
		}

		switch value[i+1] {
		case '$':
			b.WriteByte('$')
			i += 2
		case '{':
			end := strings.IndexByte(value[i+2:], '}')
			if end < 0 {
				return "", &InterpolationError{Path: in.path, Key: key, Reason: ReasonSyntax}
			}
			ref := value[i+2 : i+2+end]
			if strings.TrimSpace(ref) == "" {
				return "", &InterpolationError{Path: in.path, Key: key, Reason: ReasonSyntax}
			}
			sub, err := in.lookup(key, ref, depth+1)
			if err != nil {
				return "", err
			}
			b.WriteString(sub)
			i += end + 3
		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String(), nil
}
