package multistream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewEncoderRejectsLayouts(t *testing.T) {
	_, err := NewEncoder(48000, 2, 1, 1, []byte{1, 255}, ApplicationAudio, loopbackOptions()...)
	assert.ErrorIs(t, err, ErrBadArgument)

	_, err = NewEncoder(48000, 2, 1, 1, []byte{0}, ApplicationAudio, loopbackOptions()...)
	assert.ErrorIs(t, err, ErrBadArgument)

	_, err = NewEncoder(48000, 2, 0, 0, []byte{0, 0}, ApplicationAudio, loopbackOptions()...)
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestNewEncoderClosesOnFailure(t *testing.T) {
	var created []*loopbackEncoder
	boom := errors.New("boom")
	factory := WithStreamEncoderFactory(func(_, channels int, _ Application) (StreamEncoder, error) {
		if len(created) == 2 {
			return nil, boom
		}
		enc := &loopbackEncoder{channels: channels}
		created = append(created, enc)
		return enc, nil
	})

	enc, err := NewEncoder(48000, 3, 3, 0, []byte{0, 1, 2}, ApplicationAudio, factory)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, enc)
	require.Len(t, created, 2)
	for _, c := range created {
		assert.True(t, c.closed)
	}
}

func TestNewEncoderNilStream(t *testing.T) {
	factory := WithStreamEncoderFactory(func(_, _ int, _ Application) (StreamEncoder, error) {
		return nil, nil
	})
	_, err := NewEncoder(48000, 1, 1, 0, []byte{0}, ApplicationAudio, factory)
	assert.ErrorIs(t, err, ErrAllocFail)
}

func TestEncoderStreamChannels(t *testing.T) {
	var channels []int
	factory := WithStreamEncoderFactory(func(_, ch int, _ Application) (StreamEncoder, error) {
		channels = append(channels, ch)
		return &loopbackEncoder{channels: ch}, nil
	})
	enc, err := NewDefaultEncoder(48000, 6, ApplicationAudio, factory)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1, 1}, channels)
	assert.Equal(t, 4, enc.Streams())
	assert.Equal(t, 2, enc.CoupledStreams())
	assert.Equal(t, 6, enc.Channels())
	assert.Equal(t, 48000, enc.SampleRate())
	assert.NoError(t, enc.Close())
}

func TestEncodePacketLayout(t *testing.T) {
	enc, err := NewEncoder(48000, 2, 2, 0, []byte{0, 1}, ApplicationAudio, loopbackOptions()...)
	require.NoError(t, err)

	data := make([]byte, 64)
	n, err := enc.Encode([]int16{1, 2, 3, 4}, 2, data)
	require.NoError(t, err)

	want := []byte{
		0xf8, 4, 1, 0, 3, 0, // stream 0, self-delimited
		0xf8, 2, 0, 4, 0, // stream 1, rest of the packet
	}
	assert.Equal(t, want, data[:n])
}

func TestEncodeMinimumPacket(t *testing.T) {
	factory := WithStreamEncoderFactory(func(_, channels int, _ Application) (StreamEncoder, error) {
		return &tocOnlyEncoder{channels: channels}, nil
	})
	enc, err := NewEncoder(48000, 3, 3, 0, []byte{0, 1, 2}, ApplicationAudio, factory)
	require.NoError(t, err)
	pcm := make([]int16, 3*10)

	_, err = enc.Encode(pcm, 10, make([]byte, 4))
	assert.ErrorIs(t, err, ErrBufferTooSmall)

	data := make([]byte, 5)
	n, err := enc.Encode(pcm, 10, data)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte{0xf8, 0, 0xf8, 0, 0xf8}, data)
}

func TestEncodeBadFrame(t *testing.T) {
	enc, err := NewEncoder(48000, 2, 1, 1, []byte{0, 1}, ApplicationAudio, loopbackOptions()...)
	require.NoError(t, err)

	_, err = enc.Encode(make([]int16, 4), 0, make([]byte, 64))
	assert.ErrorIs(t, err, ErrBadArgument)
	_, err = enc.Encode(make([]int16, 3), 2, make([]byte, 64))
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestEncodeStreamErrorPassesThrough(t *testing.T) {
	enc, err := NewEncoder(48000, 2, 2, 0, []byte{0, 1}, ApplicationAudio, loopbackOptions()...)
	require.NoError(t, err)

	// Three bytes meet the framing minimum but leave no room for samples.
	_, err = enc.Encode([]int16{1, 2, 3, 4}, 2, make([]byte, 3))
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestEncodeLongStreamsUseTwoByteLengths(t *testing.T) {
	enc, err := NewDefaultEncoder(48000, 2, ApplicationAudio, loopbackOptions()...)
	require.NoError(t, err)
	// One coupled stream is also the last, so it is never length-prefixed.
	data := make([]byte, 1024)
	n, err := enc.Encode(make([]int16, 2*120), 120, data)
	require.NoError(t, err)
	assert.Equal(t, 1+2*2*120, n)

	enc, err = NewEncoder(48000, 3, 2, 1, []byte{0, 1, 2}, ApplicationAudio, loopbackOptions()...)
	require.NoError(t, err)
	n, err = enc.Encode(make([]int16, 3*120), 120, data)
	require.NoError(t, err)
	// 481 byte stereo packet: ToC, two byte length, 480 payload bytes.
	assert.Equal(t, 1+2+480+1+240, n)
	assert.Equal(t, byte(0xfc), data[0])
	size, _, err := parseSize(data[1:])
	require.NoError(t, err)
	assert.Equal(t, 480, size)
}

func newMockEncoder(t *testing.T, channels, streams, coupled int, mapping []byte) (*Encoder, []*MockStreamEncoder) {
	t.Helper()
	mocks := make([]*MockStreamEncoder, streams)
	for i := range mocks {
		mocks[i] = new(MockStreamEncoder)
	}
	enc, err := NewEncoder(48000, channels, streams, coupled, mapping, ApplicationAudio, mockEncoderFactory(mocks...))
	require.NoError(t, err)
	return enc, mocks
}

func TestEncoderSetBitrateSplit(t *testing.T) {
	enc, mocks := newMockEncoder(t, 3, 2, 1, []byte{0, 1, 2})
	mocks[0].On("Ctl", SetBitrate{Bitrate: 2 * (100000 / 3)}).Return(0, nil)
	mocks[1].On("Ctl", SetBitrate{Bitrate: 100000 / 3}).Return(0, nil)

	require.NoError(t, enc.SetBitrate(100000))
	for _, m := range mocks {
		m.AssertExpectations(t)
	}
}

func TestEncoderSetBitrateNegative(t *testing.T) {
	enc, mocks := newMockEncoder(t, 1, 1, 0, []byte{0})
	assert.ErrorIs(t, enc.SetBitrate(-1), ErrBadArgument)
	mocks[0].AssertNotCalled(t, "Ctl", mock.Anything)
}

func TestEncoderCtlStopsAtFirstFailure(t *testing.T) {
	enc, mocks := newMockEncoder(t, 3, 3, 0, []byte{0, 1, 2})
	failed := errors.New("ctl failed")
	mocks[0].On("Ctl", SetComplexity{Complexity: 5}).Return(0, nil)
	mocks[1].On("Ctl", SetComplexity{Complexity: 5}).Return(0, failed)

	err := enc.SetComplexity(5)
	assert.ErrorIs(t, err, failed)
	mocks[0].AssertCalled(t, "Ctl", SetComplexity{Complexity: 5})
	mocks[2].AssertNotCalled(t, "Ctl", mock.Anything)
}

func TestEncoderGetReportsLastStream(t *testing.T) {
	enc, mocks := newMockEncoder(t, 2, 2, 0, []byte{0, 1})
	mocks[0].On("Ctl", GetComplexity{}).Return(5, nil)
	mocks[1].On("Ctl", GetComplexity{}).Return(9, nil)

	v, err := enc.Ctl(GetComplexity{})
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	for _, m := range mocks {
		m.AssertExpectations(t)
	}
}

func TestEncoderResetBroadcasts(t *testing.T) {
	enc, mocks := newMockEncoder(t, 2, 2, 0, []byte{0, 1})
	for _, m := range mocks {
		m.On("Ctl", ResetState{}).Return(0, nil)
	}
	require.NoError(t, enc.Reset())
	for _, m := range mocks {
		m.AssertNumberOfCalls(t, "Ctl", 1)
	}
}
