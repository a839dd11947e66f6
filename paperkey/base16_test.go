package paperkey

import (
	"strings"
	"testing"
	"time"

	"github.com/lcp29/Paperkey/openpgp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedTime() time.Time {
	return time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)
}

func Test_Base16Sink_HeaderAndRoundTrip(t *testing.T) {
	old := nowFunc
	nowFunc = fixedTime
	defer func() { nowFunc = old }()

	var fp [openpgp.FingerprintLen]byte
	for i := range fp {
		fp[i] = byte(i)
	}

	out := NewStream()
	sink, err := newBase16Sink(out, fp, 78)
	require.NoError(t, err)

	payload := []byte{0x00, 0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03}
	require.NoError(t, sink.writeBytes(payload))
	require.NoError(t, sink.finish())

	text := string(out.Bytes())
	assert.Contains(t, text, "# Secret portions of key 000102030405060708090A0B0C0D0E0F10111213")
	assert.Contains(t, text, "# Created with paperkey")
	assert.Contains(t, text, "File format:")

	decoded, err := DecodeBase16(NewStreamFromBytes(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func Test_Base16Sink_LineNumbersAreZeroPadded(t *testing.T) {
	var fp [openpgp.FingerprintLen]byte
	out := NewStream()
	sink, err := newBase16Sink(out, fp, 78) // lineItems = (78-5-6)/3 = 22
	require.NoError(t, err)
	require.NoError(t, sink.writeBytes([]byte{0x01}))
	require.NoError(t, sink.finish())

	lines := strings.Split(string(out.Bytes()), "\n")
	var dataLine string
	for _, l := range lines {
		if strings.HasPrefix(l, "001: ") {
			dataLine = l
			break
		}
	}
	require.NotEmpty(t, dataLine)
}

func Test_Base16Sink_RejectsTooNarrowWidth(t *testing.T) {
	var fp [openpgp.FingerprintLen]byte
	_, err := newBase16Sink(NewStream(), fp, 5)
	assert.Error(t, err)
}

func Test_Base16Sink_MultiLineWraps(t *testing.T) {
	var fp [openpgp.FingerprintLen]byte
	out := NewStream()
	// width 14 -> lineItems = (14-5-6)/3 = 1, one octet per line.
	sink, err := newBase16Sink(out, fp, 14)
	require.NoError(t, err)
	payload := []byte{0x01, 0x02, 0x03}
	require.NoError(t, sink.writeBytes(payload))
	require.NoError(t, sink.finish())

	decoded, err := DecodeBase16(NewStreamFromBytes(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)

	dataLines := 0
	for _, l := range strings.Split(string(out.Bytes()), "\n") {
		if strings.HasPrefix(l, "00") && strings.Contains(l, ":") {
			dataLines++
		}
	}
	// 3 data lines (one octet each) plus the terminator line.
	assert.Equal(t, 4, dataLines)
}
