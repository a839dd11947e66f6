package paperkey

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Stream_WriteThenReadAfterRewind(t *testing.T) {
	s := NewStream()
	n, err := s.Write([]byte("hello, "))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	_, err = s.Printf("%s!", "world")
	require.NoError(t, err)

	assert.Equal(t, "hello, world!", string(s.Bytes()))
	assert.Equal(t, 13, s.Len())

	s.Rewind()
	buf := make([]byte, 5)
	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func Test_Stream_GrowsPastInitialCapacity(t *testing.T) {
	s := NewStream()
	big := make([]byte, 10000)
	for i := range big {
		big[i] = byte(i)
	}
	_, err := s.Write(big)
	require.NoError(t, err)
	assert.Equal(t, big, s.Bytes())
}

func Test_Stream_ReadLine(t *testing.T) {
	s := NewStreamFromBytes([]byte("one\ntwo\nthree"))

	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(line))

	line, err = s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(line))

	line, err = s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "three", string(line))
	assert.True(t, s.EOF())

	_, err = s.ReadLine()
	assert.Equal(t, io.EOF, err)
}

func Test_Stream_PeekByteDoesNotConsume(t *testing.T) {
	s := NewStreamFromBytes([]byte("AB"))
	b, err := s.PeekByte()
	require.NoError(t, err)
	assert.Equal(t, byte('A'), b)

	buf := make([]byte, 1)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte('A'), buf[0])
}

func Test_Stream_Remaining(t *testing.T) {
	s := NewStreamFromBytes([]byte("abcde"))
	assert.Equal(t, 5, s.Remaining())
	buf := make([]byte, 2)
	_, _ = s.Read(buf)
	assert.Equal(t, 3, s.Remaining())
}
