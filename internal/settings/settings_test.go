package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadMem(t *testing.T, content string) *Settings {
	t.Helper()
	l := newMemLoader(t, map[string]string{"/t/staging.cfg": content})
	s, err := l.Load("/t/staging.cfg")
	require.NoError(t, err)
	return s
}

func TestSettings_Accessors(t *testing.T) {
	s := loadMem(t, `
name = app
port = 8080
ratio = 0.25
debug = yes
timeout = 1m30s
hosts = a, b ,c
`)

	assert.Equal(t, []string{"__dir__", "debug", "hosts", "name", "port", "ratio", "timeout"}, s.Keys())
	assert.Equal(t, 7, s.Len())
	assert.True(t, s.Has("name"))
	assert.False(t, s.Has("missing"))

	v, ok := s.Lookup("name")
	assert.True(t, ok)
	assert.Equal(t, "app", v)
	_, ok = s.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, "", s.Get("missing"))

	port, err := s.Int("port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	ratio, err := s.Float("ratio")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, ratio, 1e-9)

	debug, err := s.Bool("debug")
	require.NoError(t, err)
	assert.True(t, debug)

	timeout, err := s.Duration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, timeout)

	hosts, err := s.List("hosts", ",")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, hosts)

	assert.Equal(t, "staging", s.Env())
}

func TestSettings_AccessorErrors(t *testing.T) {
	s := loadMem(t, "port = eighty\n")

	_, err := s.Int("port")
	require.ErrorIs(t, err, ErrInvalidValue)
	var ve *ValueError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "port", ve.Key)
	assert.Equal(t, "int", ve.Type)
	assert.Equal(t, "eighty", ve.Value)

	_, err = s.Bool("port")
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = s.String("missing")
	require.ErrorIs(t, err, ErrMissingRequired)
	var me *MissingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, []string{"missing"}, me.Keys)
}

func TestSettings_KeysAreCopies(t *testing.T) {
	s := loadMem(t, "a = 1\n")

	keys := s.Keys()
	keys[0] = "changed"
	assert.Equal(t, []string{"__dir__", "a"}, s.Keys())

	files := s.Files()
	files[0] = "changed"
	assert.Equal(t, "/t/staging.cfg", s.File())
}

func TestDiff(t *testing.T) {
	l := newMemLoader(t, map[string]string{
		"/d/old.cfg": "same = 1\nchanged = a\nremoved = x\n",
		"/d/new.cfg": "same = 1\nchanged = b\nadded = y\nalso = z\n",
	})
	oldS, err := l.Load("/d/old.cfg")
	require.NoError(t, err)
	newS, err := l.Load("/d/new.cfg")
	require.NoError(t, err)

	c := Diff(oldS, newS)
	assert.Equal(t, []string{"added", "also"}, c.Added)
	assert.Equal(t, []string{"changed"}, c.Modified)
	assert.Equal(t, []string{"removed"}, c.Removed)
	assert.False(t, c.Empty())

	assert.True(t, Diff(oldS, oldS).Empty())

	c = Diff(nil, oldS)
	assert.Equal(t, []string{"__dir__", "changed", "removed", "same"}, c.Added)
	c = Diff(oldS, nil)
	assert.Equal(t, []string{"__dir__", "changed", "removed", "same"}, c.Removed)
}
