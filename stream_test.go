package multistream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoopbackStreams(t *testing.T) (*EncodingStream, *DecodingStream) {
	t.Helper()
	enc, err := NewDefaultEncoder(8000, 2, ApplicationVoIP, loopbackOptions()...)
	require.NoError(t, err)
	dec, err := NewDefaultDecoder(8000, 2, loopbackOptions()...)
	require.NoError(t, err)

	es, err := NewEncodingStream("enc", enc, 20, 1500)
	require.NoError(t, err)
	ds, err := NewDecodingStream("dec", dec, 100)
	require.NoError(t, err)
	return es, ds
}

func TestNewEncodingStream(t *testing.T) {
	es, _ := newLoopbackStreams(t)
	assert.Equal(t, 8000, es.SampleRate())
	assert.Equal(t, 2, es.ChannelCount())
	assert.Equal(t, 20, es.SampleDurationMs())
	assert.Equal(t, 160, es.SampleCount()) // sampleDuration * sampleRate / 1000
}

func TestNewEncodingStreamRejects(t *testing.T) {
	enc, err := NewDefaultEncoder(8000, 6, ApplicationAudio, loopbackOptions()...)
	require.NoError(t, err)

	_, err = NewEncodingStream("enc", enc, 0, 1500)
	assert.ErrorIs(t, err, ErrBadArgument)
	_, err = NewEncodingStream("enc", enc, 20, 2*enc.Streams()-2)
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestNewDecodingStream(t *testing.T) {
	_, ds := newLoopbackStreams(t)
	assert.Equal(t, 8000, ds.SampleRate())
	assert.Equal(t, 2, ds.ChannelCount())
	assert.Equal(t, 0, ds.Buffered())

	dec, err := NewDefaultDecoder(8000, 2, loopbackOptions()...)
	require.NoError(t, err)
	_, err = NewDecodingStream("dec", dec, 0)
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestEncodingStream_WritePCM(t *testing.T) {
	es, _ := newLoopbackStreams(t)
	var sink bytes.Buffer
	require.NoError(t, es.Connect(&sink))

	pcm := rampPCM(2, 160)
	n, err := es.WritePCM(pcm[:100])
	assert.NoError(t, err)
	assert.Equal(t, 100, n)
	_, err = es.Read(make([]byte, 1500))
	assert.ErrorIs(t, err, ErrEmptyBuffer)

	n, err = es.WritePCM(pcm[100:])
	assert.NoError(t, err)
	assert.Equal(t, 220, n)
	assert.Equal(t, 1+2*320, sink.Len())

	_, err = es.Read(make([]byte, 10))
	assert.ErrorIs(t, err, io.ErrShortBuffer)

	packet := make([]byte, 1500)
	n, err = es.Read(packet)
	require.NoError(t, err)
	assert.Equal(t, sink.Bytes(), packet[:n])
}

func TestEncodingStream_Flush(t *testing.T) {
	es, _ := newLoopbackStreams(t)
	require.NoError(t, es.Flush())

	_, err := es.Write(int16ToByteSlice([]int16{1, 2, 3, 4}))
	require.NoError(t, err)
	require.NoError(t, es.Flush())

	packet := make([]byte, 1500)
	n, err := es.Read(packet)
	require.NoError(t, err)
	assert.Equal(t, 1+2*320, n)
	assert.Equal(t, []byte{1, 0, 2, 0, 3, 0, 4, 0, 0, 0}, packet[1:11])
}

func TestEncodingStream_Connect(t *testing.T) {
	es, _ := newLoopbackStreams(t)
	assert.NoError(t, es.Connect(io.Discard))
	assert.EqualError(t, es.Connect(io.Discard), "stream already connected to other sink")

	_, err := es.ReadPCM(make([]int16, 4))
	assert.Error(t, err)
}

func TestDecodingStream_Write(t *testing.T) {
	es, ds := newLoopbackStreams(t)
	var sink bytes.Buffer
	require.NoError(t, ds.Connect(&sink))

	pcm := rampPCM(2, 160)
	_, err := es.WritePCM(pcm)
	require.NoError(t, err)
	packet := make([]byte, 1500)
	n, err := es.Read(packet)
	require.NoError(t, err)

	written, err := ds.Write(packet[:n])
	require.NoError(t, err)
	assert.Equal(t, n, written)
	assert.Equal(t, 320, ds.Buffered())
	assert.Equal(t, int16ToByteSlice(pcm), sink.Bytes())

	out := make([]int16, 320)
	got, err := ds.ReadPCM(out)
	require.NoError(t, err)
	assert.Equal(t, 320, got)
	assert.Equal(t, pcm, out)

	_, err = ds.ReadPCM(out)
	assert.ErrorIs(t, err, ErrEmptyBuffer)
}

func TestDecodingStream_Read(t *testing.T) {
	es, ds := newLoopbackStreams(t)
	require.NoError(t, es.Connect(ds))

	pcm := rampPCM(2, 160)
	_, err := es.WritePCM(pcm)
	require.NoError(t, err)

	raw := make([]byte, 2*len(pcm))
	n, err := ds.Read(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, pcm, byteSliceToInt16(raw))

	_, err = ds.WritePCM(pcm)
	assert.Error(t, err)
	assert.NoError(t, ds.Connect(io.Discard))
	assert.Error(t, ds.Connect(io.Discard))
}

func TestDecodingStream_CorruptPacket(t *testing.T) {
	_, ds := newLoopbackStreams(t)
	_, err := ds.Write(nil)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
	assert.Equal(t, 0, ds.Buffered())
}
