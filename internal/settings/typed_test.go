package settings

import (
	"errors"
	"testing"

	"github.com/dshills/tangled/internal/convert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	values := map[string]string{
		"debug":              "true",
		"port":               "8080",
		"ratio":              "0.5",
		"big":                "1e3",
		"name":               `"app"`,
		"hosts":              `["a", "b"]`,
		"db":                 `{"port": 5432, "host": "x"}`,
		"empty":              "",
		"timeout:duration":   `"2s"`,
		"tags:list":          `"x y z"`,
		"flags:list_of_bool": `"yes no"`,
		"__dir__":            "/etc/app",
		"extends":            "base.cfg",
		"env":                `"prod"`,
	}

	got, err := Parse(values, ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, true, got["debug"])
	assert.Equal(t, 8080, got["port"])
	assert.Equal(t, 0.5, got["ratio"])
	assert.Equal(t, 1000.0, got["big"])
	assert.Equal(t, "app", got["name"])
	assert.Equal(t, []any{"a", "b"}, got["hosts"])
	assert.Equal(t, map[string]any{"port": 5432, "host": "x"}, got["db"])
	assert.Nil(t, got["empty"])
	assert.Contains(t, got, "empty")
	assert.Equal(t, []any{"x", "y", "z"}, got["tags"])
	assert.Equal(t, []any{true, false}, got["flags"])
	assert.Equal(t, "/etc/app", got["__dir__"])
	assert.Equal(t, "base.cfg", got["extends"])
	assert.Equal(t, "prod", got["env"])
	assert.NotContains(t, got, "timeout:duration")
	assert.Contains(t, got, "timeout")
}

func TestParse_Options(t *testing.T) {
	values := map[string]string{
		"app.port":  "8080",
		"app.name":  `"svc"`,
		"other.key": "1",
	}

	got, err := Parse(values, ParseOptions{
		Prefix:   "app.",
		Defaults: map[string]any{"port": 80, "host": "localhost"},
		Extra:    map[string]any{"name": "override"},
		Required: []string{"port", "host"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"port": 8080,
		"host": "localhost",
		"name": "override",
	}, got)

	got, err = Parse(values, ParseOptions{Prefix: "app.", KeepPrefix: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"app.port": 8080, "app.name": "svc"}, got)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(map[string]string{"name": "bare words"}, ParseOptions{})
	require.ErrorIs(t, err, ErrInvalidValue)
	var ve *ValueError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Key)

	_, err = Parse(map[string]string{"n": "1 2"}, ParseOptions{})
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = Parse(map[string]string{"x:nope": "1"}, ParseOptions{})
	require.True(t, errors.Is(err, convert.ErrUnknownConverter))

	_, err = Parse(map[string]string{"x:int": `"abc"`}, ParseOptions{})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "x:int", ve.Key)
	assert.Equal(t, "int", ve.Type)

	_, err = Parse(map[string]string{"a": "1"}, ParseOptions{Required: []string{"z", "b", "a"}})
	var me *MissingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, []string{"b", "z"}, me.Keys)
}

func TestParse_CustomConverters(t *testing.T) {
	reg := convert.NewRegistry()
	reg.MustRegister("upper", func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("not a string")
		}
		return s + "!", nil
	})

	got, err := Parse(map[string]string{"greeting:upper": `"hi"`}, ParseOptions{Converters: reg})
	require.NoError(t, err)
	assert.Equal(t, "hi!", got["greeting"])

	_, err = Parse(map[string]string{"n:int": "1"}, ParseOptions{Converters: reg})
	require.ErrorIs(t, err, convert.ErrUnknownConverter)
}

func TestSettings_Typed(t *testing.T) {
	l := newMemLoader(t, map[string]string{
		"/t/app.cfg": "port:int = \"8080\"\ndebug = false\n",
	}, WithDelimiters("="))

	s, err := l.Load("/t/app.cfg")
	require.NoError(t, err)

	got, err := s.Typed(ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 8080, got["port"])
	assert.Equal(t, false, got["debug"])
	assert.Equal(t, "/t", got["__dir__"])
}
