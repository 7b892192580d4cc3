package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexKey_Deterministic(t *testing.T) {
	l := NewLink([]byte{0xab, 0xcd}, []byte{0x01})
	require.Equal(t, "abcd01", IndexKey(l))
	require.Equal(t, IndexKey(l), IndexKey(NewLink([]byte{0xab, 0xcd}, []byte{0x01})))
	require.NotEqual(t, IndexKey(l), IndexKey(NewLink([]byte{0xab, 0xcd}, []byte{0x02})))
}

func TestLink_KeyDistinguishesSplit(t *testing.T) {
	a := NewLink([]byte{1, 2}, []byte{3})
	b := NewLink([]byte{1}, []byte{2, 3})
	// Same concatenation, so the ledger index collides, but the links differ.
	require.Equal(t, IndexKey(a), IndexKey(b))
	require.False(t, a.Equal(b))
	require.NotEqual(t, a.Key(), b.Key())

	m := map[string]Link{a.Key(): a, b.Key(): b}
	require.Len(t, m, 2)
}

func TestLink_Immutable(t *testing.T) {
	app := []byte{1, 2, 3}
	l := NewLink(app, []byte{4})
	app[0] = 9
	require.Equal(t, []byte{1, 2, 3}, l.AppInst())

	got := l.MsgID()
	got[0] = 9
	require.Equal(t, []byte{4}, l.MsgID())
}

func TestParseLink(t *testing.T) {
	l := NewLink([]byte("app"), []byte("msg"))
	back, err := ParseLink(l.String())
	require.NoError(t, err)
	require.True(t, back.Equal(l))

	half, err := ParseLink(":00")
	require.NoError(t, err)
	require.False(t, half.IsZero())

	for _, bad := range []string{"", ":", " : ", "nocolon", "zz:00", "00:zz"} {
		_, err := ParseLink(bad)
		require.Error(t, err, bad)
	}
}
