package ledger

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"xdao.co/streams-tangle/cidutil"
)

func testTips(t *testing.T) Tips {
	t.Helper()
	a, err := cidutil.MessageCID([]byte("parent a"))
	require.NoError(t, err)
	b, err := cidutil.MessageCID([]byte("parent b"))
	require.NoError(t, err)
	return Tips{a, b}
}

func TestEncodeDecode_Indexation(t *testing.T) {
	m := &Message{
		NetworkID: 9,
		Parents:   testTips(t),
		Payload:   &Indexation{Index: []byte("abcd"), Data: []byte("0102")},
		Nonce:     77,
	}
	b, err := Encode(m)
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, uint64(9), got.NetworkID)
	require.Equal(t, uint64(77), got.Nonce)
	require.Equal(t, m.Parents, got.Parents)

	p, ok := got.Payload.(*Indexation)
	require.True(t, ok, "payload type %T", got.Payload)
	require.Equal(t, []byte("abcd"), p.Index)
	require.Equal(t, []byte("0102"), p.Data)
}

func TestEncode_Deterministic(t *testing.T) {
	m := &Message{Parents: testTips(t), Payload: &Indexation{Index: []byte("k"), Data: []byte("v")}}
	a, err := ID(m)
	require.NoError(t, err)
	b, err := ID(m)
	require.NoError(t, err)
	require.True(t, a.Equals(b), "ID not deterministic: %s vs %s", a, b)

	m.Nonce++
	c, err := ID(m)
	require.NoError(t, err)
	require.False(t, c.Equals(a), "nonce does not affect id")

	e1, err := Essence(m)
	require.NoError(t, err)
	m.Nonce = 0
	e2, err := Encode(m)
	require.NoError(t, err)
	require.Equal(t, e2, e1, "essence is the zero-nonce encoding")
}

func TestDecode_OpaqueKinds(t *testing.T) {
	for _, kind := range []PayloadKind{KindTransaction, KindMilestone, PayloadKind(9)} {
		m := &Message{Parents: testTips(t), Payload: &Opaque{Type: kind, Bytes: []byte{1, 2}}}
		b, err := Encode(m)
		require.NoError(t, err, kind.String())
		got, err := Decode(b)
		require.NoError(t, err, kind.String())
		require.Equal(t, kind, got.Payload.Kind())
		require.Nil(t, got.Index(), "opaque payload has index")
	}
}

func TestDecode_NoPayload(t *testing.T) {
	b, err := Encode(&Message{Parents: testTips(t)})
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	require.Nil(t, got.Payload)
}

func TestValidate(t *testing.T) {
	tips := testTips(t)
	cases := []struct {
		name string
		m    *Message
		want error
	}{
		{"nil", nil, ErrMalformedMessage},
		{"undefined parents", &Message{Parents: Tips{tips[0], cid.Undef}}, ErrMalformedMessage},
		{"empty index", &Message{Parents: tips, Payload: &Indexation{Data: []byte("x")}}, ErrMalformedMessage},
		{"oversize", &Message{Parents: tips, Payload: &Indexation{Index: []byte("k"), Data: make([]byte, MaxPayloadBytes)}}, ErrMessageTooLarge},
		{"opaque indexation", &Message{Parents: tips, Payload: &Opaque{Type: KindIndexation}}, ErrMalformedMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.m.Validate(), tc.want)
		})
	}
}

func TestEncode_MaxPayloadFits(t *testing.T) {
	m := &Message{
		NetworkID: ^uint64(0),
		Parents:   testTips(t),
		Payload:   &Indexation{Index: bytes.Repeat([]byte("i"), 64), Data: make([]byte, MaxPayloadBytes-64)},
		Nonce:     ^uint64(0),
	}
	_, err := Encode(m)
	require.NoError(t, err, "encode at payload limit")
}

func TestVerify(t *testing.T) {
	m := &Message{Parents: testTips(t), Payload: &Indexation{Index: []byte("k"), Data: []byte("v")}}
	b, err := Encode(m)
	require.NoError(t, err)
	id, err := cidutil.MessageCID(b)
	require.NoError(t, err)
	_, err = Verify(id, b)
	require.NoError(t, err)

	other, err := cidutil.MessageCID([]byte("other"))
	require.NoError(t, err)
	_, err = Verify(other, b)
	require.ErrorIs(t, err, ErrIDMismatch)
	_, err = Verify(cid.Undef, b)
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00})
	require.ErrorIs(t, err, ErrMalformedMessage)
	_, err = Decode(make([]byte, MaxMessageBytes+1))
	require.ErrorIs(t, err, ErrMessageTooLarge)
}
