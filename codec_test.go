package multistream

import (
	"encoding/binary"
	"errors"

	"github.com/stretchr/testify/mock"
)

// loopbackEncoder emits a code 0 packet whose payload is the frame as
// little-endian int16 samples.
type loopbackEncoder struct {
	channels int
	closed   bool
}

func (e *loopbackEncoder) Channels() int { return e.channels }

func (e *loopbackEncoder) EncodeFloat32(pcm []float32, data []byte) (int, error) {
	n := 1 + 2*len(pcm)
	if len(data) < n {
		return 0, ErrBufferTooSmall
	}
	data[0] = loopbackToc(e.channels)
	for i, v := range pcm {
		binary.LittleEndian.PutUint16(data[1+2*i:], uint16(float32ToInt16(v)))
	}
	return n, nil
}

func (e *loopbackEncoder) Ctl(EncoderRequest) (int, error) { return 0, nil }

func (e *loopbackEncoder) Close() error {
	e.closed = true
	return nil
}

func loopbackToc(channels int) byte {
	toc := byte(31 << 3)
	if channels == 2 {
		toc |= 0x4
	}
	return toc
}

type loopbackDecoder struct {
	channels int
}

func (d *loopbackDecoder) Channels() int { return d.channels }

func (d *loopbackDecoder) DecodeFloat32(data []byte, pcm []float32, fec, selfDelimited bool) (int, int, error) {
	packet, consumed := data, len(data)
	if selfDelimited {
		var err error
		packet, consumed, err = AppendUnframed(nil, data)
		if err != nil {
			return 0, 0, err
		}
	}
	body := packet[1:]
	samples := len(body) / 2
	if samples > len(pcm) {
		return 0, 0, ErrBufferTooSmall
	}
	for i := 0; i < samples; i++ {
		pcm[i] = float32(int16(binary.LittleEndian.Uint16(body[2*i:]))) / 32768
	}
	return samples / d.channels, consumed, nil
}

func (d *loopbackDecoder) Ctl(DecoderRequest) (int, error) { return 0, nil }

// tocOnlyEncoder emits a one byte packet regardless of input.
type tocOnlyEncoder struct{ channels int }

func (e *tocOnlyEncoder) Channels() int { return e.channels }

func (e *tocOnlyEncoder) EncodeFloat32(_ []float32, data []byte) (int, error) {
	data[0] = loopbackToc(e.channels)
	return 1, nil
}

func (e *tocOnlyEncoder) Ctl(EncoderRequest) (int, error) { return 0, nil }

func loopbackOptions() []Option {
	return []Option{
		WithStreamEncoderFactory(func(_, channels int, _ Application) (StreamEncoder, error) {
			return &loopbackEncoder{channels: channels}, nil
		}),
		WithStreamDecoderFactory(func(_, channels int) (StreamDecoder, error) {
			return &loopbackDecoder{channels: channels}, nil
		}),
	}
}

type MockStreamEncoder struct {
	mock.Mock
	channels int
}

func (m *MockStreamEncoder) Channels() int { return m.channels }

func (m *MockStreamEncoder) EncodeFloat32(pcm []float32, data []byte) (int, error) {
	args := m.Called(pcm, data)
	return args.Int(0), args.Error(1)
}

func (m *MockStreamEncoder) Ctl(req EncoderRequest) (int, error) {
	args := m.Called(req)
	return args.Int(0), args.Error(1)
}

type MockStreamDecoder struct {
	mock.Mock
	channels int
}

func (m *MockStreamDecoder) Channels() int { return m.channels }

func (m *MockStreamDecoder) DecodeFloat32(data []byte, pcm []float32, fec, selfDelimited bool) (int, int, error) {
	args := m.Called(data, pcm, fec, selfDelimited)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockStreamDecoder) Ctl(req DecoderRequest) (int, error) {
	args := m.Called(req)
	return args.Int(0), args.Error(1)
}

// mockEncoderFactory hands out the given mocks in stream order.
func mockEncoderFactory(mocks ...*MockStreamEncoder) Option {
	next := 0
	return WithStreamEncoderFactory(func(_, channels int, _ Application) (StreamEncoder, error) {
		if next >= len(mocks) {
			return nil, errors.New("no more mocks")
		}
		m := mocks[next]
		next++
		m.channels = channels
		return m, nil
	})
}

func mockDecoderFactory(mocks ...*MockStreamDecoder) Option {
	next := 0
	return WithStreamDecoderFactory(func(_, channels int) (StreamDecoder, error) {
		if next >= len(mocks) {
			return nil, errors.New("no more mocks")
		}
		m := mocks[next]
		next++
		m.channels = channels
		return m, nil
	})
}
