package wipe

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediawiper/internal/apperr"
)

func TestMethodPassTables(t *testing.T) {
	assert.Zero(t, MethodNone.PassCount())
	assert.Equal(t, 1, MethodRandom.PassCount())
	assert.Equal(t, 3, MethodDOD.PassCount())
	assert.Equal(t, 35, MethodRandom35Pass.PassCount())

	for _, p := range MethodRandom35Pass.Passes() {
		assert.Equal(t, PatternRandom, p.Kind)
	}
}

func TestResolvePassesComplement(t *testing.T) {
	passes := resolvePasses(MethodDOD.Passes())
	require.Len(t, passes, 3)
	assert.Equal(t, byte(0x00), passes[0].Value)
	assert.Equal(t, byte(0xFF), passes[1].Value)
	assert.Equal(t, PatternRandom, passes[2].Kind)

	custom := resolvePasses([]Pass{{Kind: PatternOne}, {Kind: PatternComplement}, {Kind: PatternComplement}})
	assert.Equal(t, []byte{0xFF, 0x00, 0xFF}, []byte{custom[0].Value, custom[1].Value, custom[2].Value})
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodNone, m)

	m, err = ParseMethod(" DoD ")
	require.NoError(t, err)
	assert.Equal(t, MethodDOD, m)

	_, err = ParseMethod("gutmann")
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestPassesPanicsOnUnknownMethod(t *testing.T) {
	assert.Panics(t, func() { Method("bogus").Passes() })
}

func TestBufferPoolReturnsCleanBuffers(t *testing.T) {
	buf := GetBuffer(1000)
	assert.Len(t, buf, 1000)
	assert.Equal(t, 4096, cap(buf))

	FillBufferPattern(buf, 0x7F)
	PutBuffer(buf)

	again := GetBuffer(1000)
	assert.Equal(t, make([]byte, 1000), again)
	PutBuffer(again)

	assert.Nil(t, GetBuffer(0))
}

type halfWriter struct{ buf bytes.Buffer }

func (h *halfWriter) Write(p []byte) (int, error) {
	return h.buf.Write(p[:len(p)/2])
}

func TestThrottledWriter(t *testing.T) {
	var out bytes.Buffer
	data := bytes.Repeat([]byte{1}, 4096)

	n, err := NewThrottledWriter(&out, 0, 0).Write(data)
	require.NoError(t, err)
	assert.Equal(t, 4096, n)

	out.Reset()
	n, err = NewThrottledWriter(&out, 1, 1024).Write(data)
	require.NoError(t, err)
	assert.Equal(t, 4096, n)
	assert.Equal(t, data, out.Bytes())

	_, err = NewThrottledWriter(&halfWriter{}, 1, 1024).Write(data)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}
