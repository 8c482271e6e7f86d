package property

import (
	"math/rand"
	"testing"

	"github.com/relabs-tech/xrone-go/internal/varint"
	"github.com/relabs-tech/xrone-go/internal/xerr"
	"github.com/stretchr/testify/require"
)

func TestEncodeGetPropertyRequest(t *testing.T) {
	require.Equal(t, []byte{0x18, 0x00}, EncodeGetPropertyRequest())
}

func TestEncodeSetNumericRequest(t *testing.T) {
	enc, err := EncodeSetNumericRequest(0)
	require.NoError(t, err)
	require.Equal(t, []byte{0x1A, 0x02, 0x08, 0x00}, enc)

	enc, err = EncodeSetNumericRequest(9)
	require.NoError(t, err)
	require.Equal(t, []byte{0x1A, 0x02, 0x08, 0x09}, enc)

	enc, err = EncodeSetNumericRequest(128)
	require.NoError(t, err)
	require.Equal(t, []byte{0x1A, 0x03, 0x08, 0x80, 0x01}, enc)

	_, err = EncodeSetNumericRequest(-1)
	require.Error(t, err)
	var xe *xerr.Error
	require.ErrorAs(t, err, &xe)
	require.Equal(t, xerr.KindInvalidArgument, xe.Kind)
}

func TestParseNumericResponse(t *testing.T) {
	v, err := ParseNumericResponse([]byte{0x22, 0x02, 0x10, 0x05})
	require.NoError(t, err)
	require.Equal(t, int32(5), v)
}

func TestParseStringResponse(t *testing.T) {
	s, err := ParseStringResponse([]byte{0x22, 0x09, 0x12, 0x07, 'o', 'n', 'e', 'p', 'r', 'o', 'x'})
	require.NoError(t, err)
	require.Equal(t, "oneprox", s)
}

func TestParseEmptyResponseSuccess(t *testing.T) {
	require.NoError(t, ParseEmptyResponse([]byte{0x22, 0x00}))
}

func TestParseEmptyResponseCommandRejected(t *testing.T) {
	err := ParseEmptyResponse([]byte{0x22, 0x03, 0x08, 0x91, 0x4E})
	require.Error(t, err)
	var xe *xerr.Error
	require.ErrorAs(t, err, &xe)
	require.Equal(t, xerr.KindCommandRejected, xe.Kind)
	require.Equal(t, uint32(0x2711), xe.Status)
}

func TestParseResponseTrailingBytesIsProtocolError(t *testing.T) {
	_, err := ParseNumericResponse([]byte{0x22, 0x02, 0x10, 0x05, 0xFF})
	require.Error(t, err)
}

func TestStringRoundTripArbitraryUTF8(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := []string{"", "hello", "日本語", "emoji 🎉 test", string(rune(0x10FFFF))}
	for _, s := range samples {
		body := append([]byte{0x22}, encodeOuterLen(s)...)
		_ = rng
		got, err := ParseStringResponse(body)
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

// encodeOuterLen builds a valid [varint(len), 0x12, varint(len(s)), s…] body
// for the given string, used only by the round-trip test above.
func encodeOuterLen(s string) []byte {
	inner := append([]byte{0x12}, varint.Encode(uint64(len(s)))...)
	inner = append(inner, []byte(s)...)
	return append(varint.Encode(uint64(len(inner))), inner...)
}
