package transport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/ledger"
)

func testTips(t *testing.T) ledger.Tips {
	t.Helper()
	id, err := cidutil.MessageCID([]byte("tip"))
	require.NoError(t, err)
	return ledger.Tips{id, id}
}

func TestCodec_RoundTrip(t *testing.T) {
	link := NewLink([]byte("app"), []byte("m1"))
	for _, body := range [][]byte{{}, []byte("hello"), {0x00, 0xff, 0x10}} {
		p, err := EncodePayload(body, IndexKey(link))
		require.NoError(t, err)
		require.Equal(t, IndexKey(link), string(p.Index))
		require.Equal(t, strings.ToLower(string(p.Data)), string(p.Data))

		msg := BuildMessage(1, testTips(t), p)
		b, err := ledger.Encode(msg)
		require.NoError(t, err)
		wire, err := ledger.Decode(b)
		require.NoError(t, err)

		got, err := DecodeMessage(wire, link)
		require.NoError(t, err)
		require.True(t, got.Link.Equal(link))
		require.Equal(t, len(body), len(got.Body))
		if len(body) > 0 {
			require.Equal(t, body, got.Body)
		}
		require.Equal(t, UnknownTimestamp, got.Timestamp)
	}
}

func TestEncodePayload_SizeBound(t *testing.T) {
	key := IndexKey(NewLink([]byte("app"), []byte("msg")))
	lim := MaxBodySize(key)

	p, err := EncodePayload(make([]byte, lim), key)
	require.NoError(t, err)
	_, err = ledger.Encode(BuildMessage(0, testTips(t), p))
	require.NoError(t, err, "largest accepted body must fit a ledger message")

	_, err = EncodePayload(make([]byte, lim+1), key)
	require.ErrorIs(t, err, ErrPayloadTooLarge)

	// A key that alone exceeds the payload limit admits no body at all.
	long := IndexKey(NewLink(bytes.Repeat([]byte{1}, ledger.MaxPayloadBytes), []byte("x")))
	require.Zero(t, MaxBodySize(long))
	_, err = EncodePayload(nil, long)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestEncodePayload_EmptyKey(t *testing.T) {
	_, err := EncodePayload([]byte("x"), "")
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestDecodeMessage_Errors(t *testing.T) {
	link := NewLink([]byte("app"), []byte("m"))
	tips := testTips(t)

	_, err := DecodeMessage(&ledger.Message{Parents: tips, Payload: &ledger.Opaque{Type: ledger.KindTransaction}}, link)
	require.ErrorIs(t, err, ErrUnexpectedPayloadType)
	require.Contains(t, err.Error(), "transaction")

	_, err = DecodeMessage(&ledger.Message{Parents: tips}, link)
	require.ErrorIs(t, err, ErrUnexpectedPayloadType)

	_, err = DecodeMessage(nil, link)
	require.ErrorIs(t, err, ErrUnexpectedPayloadType)

	bad := &ledger.Indexation{Index: []byte(IndexKey(link)), Data: []byte("not hex")}
	_, err = DecodeMessage(&ledger.Message{Parents: tips, Payload: bad}, link)
	require.ErrorIs(t, err, ErrMalformedPayload)

	other := &ledger.Indexation{Index: []byte("beef"), Data: []byte("00")}
	_, err = DecodeMessage(&ledger.Message{Parents: tips, Payload: other}, link)
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestBuildMessage_ZeroNonce(t *testing.T) {
	tips := testTips(t)
	m := BuildMessage(5, tips, &ledger.Indexation{Index: []byte("k")})
	require.Equal(t, uint64(5), m.NetworkID)
	require.Equal(t, tips, m.Parents)
	require.Zero(t, m.Nonce)
	require.NotEqual(t, cid.Undef, m.Parents[0])
}
