package multistream

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Decoder decodes multistream packets into interleaved multichannel PCM.
// Channels mapped to no stream are decoded as silence.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	layout     ChannelLayout
	sampleRate int
	decoders   []StreamDecoder
	logger     zerolog.Logger
}

// NewDecoder creates a multistream decoder. Unlike NewEncoder, streams need
// not feed any channel.
func NewDecoder(sampleRate, channels, streams, coupledStreams int, mapping []byte, opts ...Option) (*Decoder, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	layout, err := NewChannelLayout(channels, streams, coupledStreams, mapping)
	if err != nil {
		return nil, err
	}
	if err := ValidateLayout(layout); err != nil {
		return nil, err
	}

	decoders := make([]StreamDecoder, 0, streams)
	for s := 0; s < streams; s++ {
		dec, err := o.newDecoder(sampleRate, layout.streamChannels(s))
		if err == nil && dec == nil {
			err = ErrAllocFail
		}
		if err != nil {
			_ = closeAll(decoders)
			return nil, fmt.Errorf("create stream %d decoder: %w", s, err)
		}
		decoders = append(decoders, dec)
	}

	o.logger.Debug().
		Int("sample_rate", sampleRate).
		Int("channels", channels).
		Int("streams", streams).
		Int("coupled", coupledStreams).
		Msg("multistream decoder created")

	return &Decoder{
		layout:     layout,
		sampleRate: sampleRate,
		decoders:   decoders,
		logger:     o.logger,
	}, nil
}

// NewDefaultDecoder creates a decoder for 1 to 8 channels in Vorbis channel
// order.
func NewDefaultDecoder(sampleRate, channels int, opts ...Option) (*Decoder, error) {
	l, err := DefaultLayout(channels)
	if err != nil {
		return nil, err
	}
	return NewDecoder(sampleRate, l.channels, l.streams, l.coupledStreams, l.MappingBytes(), opts...)
}

func (d *Decoder) Layout() ChannelLayout { return d.layout }
func (d *Decoder) Channels() int         { return d.layout.channels }
func (d *Decoder) Streams() int          { return d.layout.streams }
func (d *Decoder) CoupledStreams() int   { return d.layout.coupledStreams }
func (d *Decoder) SampleRate() int       { return d.sampleRate }

// Decode decodes a packet into interleaved 16-bit PCM. See DecodeFloat32.
func (d *Decoder) Decode(data []byte, pcm []int16, frameSize int, fec bool) (int, error) {
	n := frameSize * d.layout.channels
	if frameSize <= 0 {
		return 0, fmt.Errorf("%w: frame size %d", ErrBadArgument, frameSize)
	}
	if len(pcm) < n {
		return 0, ErrBufferTooSmall
	}
	out := getFloat32Buffer(n)
	defer putFloat32Buffer(out)

	ret, err := d.DecodeFloat32(data, *out, frameSize, fec)
	if err != nil || ret <= 0 {
		return ret, err
	}
	for i, v := range (*out)[:ret*d.layout.channels] {
		pcm[i] = float32ToInt16(v)
	}
	return ret, nil
}

// DecodeFloat32 decodes one multistream packet into pcm, which must hold
// frameSize samples per channel, and returns the samples decoded per
// channel. All streams of a packet must decode the same number of samples.
//
// On error the contents of pcm are unspecified.
func (d *Decoder) DecodeFloat32(data []byte, pcm []float32, frameSize int, fec bool) (int, error) {
	channels := d.layout.channels
	streams := d.layout.streams
	if frameSize <= 0 {
		return 0, fmt.Errorf("%w: frame size %d", ErrBadArgument, frameSize)
	}
	if len(pcm) < frameSize*channels {
		return 0, ErrBufferTooSmall
	}
	if len(data) < 2*streams-1 {
		return 0, ErrBufferTooSmall
	}

	buf := getFloat32Buffer(2 * frameSize)
	defer putFloat32Buffer(buf)

	for s, dec := range d.decoders {
		if len(data) == 0 {
			return 0, fmt.Errorf("%w: no data left for stream %d", ErrCorruptedData, s)
		}
		ret, consumed, err := dec.DecodeFloat32(data, (*buf)[:d.layout.streamChannels(s)*frameSize], fec, s != streams-1)
		if err != nil {
			return 0, err
		}
		if consumed < 0 || consumed > len(data) {
			return 0, fmt.Errorf("%w: stream %d consumed %d of %d bytes", ErrCorruptedData, s, consumed, len(data))
		}
		data = data[consumed:]

		if ret > frameSize {
			return 0, ErrBufferTooSmall
		}
		if s > 0 && ret != frameSize {
			return 0, fmt.Errorf("%w: stream %d decoded %d samples, stream 0 decoded %d", ErrCorruptedData, s, ret, frameSize)
		}
		if ret <= 0 {
			return ret, nil
		}
		frameSize = ret

		if s < d.layout.coupledStreams {
			for ch := d.layout.LeftChannel(s, -1); ch != -1; ch = d.layout.LeftChannel(s, ch) {
				for i := 0; i < frameSize; i++ {
					pcm[channels*i+ch] = (*buf)[2*i]
				}
			}
			for ch := d.layout.RightChannel(s, -1); ch != -1; ch = d.layout.RightChannel(s, ch) {
				for i := 0; i < frameSize; i++ {
					pcm[channels*i+ch] = (*buf)[2*i+1]
				}
			}
		} else {
			for ch := d.layout.MonoChannel(s, -1); ch != -1; ch = d.layout.MonoChannel(s, ch) {
				for i := 0; i < frameSize; i++ {
					pcm[channels*i+ch] = (*buf)[i]
				}
			}
		}
	}

	// Muted channels.
	for ch, slot := range d.layout.mapping {
		if slot != NoSlot {
			continue
		}
		for i := 0; i < frameSize; i++ {
			pcm[channels*i+ch] = 0
		}
	}
	return frameSize, nil
}

// Ctl applies a control request to every sub-decoder in stream order,
// stopping at the first failure. Get requests return the value reported by
// the last sub-decoder queried.
func (d *Decoder) Ctl(req DecoderRequest) (int, error) {
	switch req.(type) {
	case GetLastPacketDuration, GetSampleRate, ResetState:
		var value int
		for s, dec := range d.decoders {
			v, err := dec.Ctl(req)
			if err != nil {
				d.logger.Debug().Err(err).Int("stream", s).Msgf("decoder ctl %T failed", req)
				return v, err
			}
			value = v
		}
		return value, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedRequest, req)
	}
}

// LastPacketDuration reports the samples per channel of the last packet, as
// seen by the last stream.
func (d *Decoder) LastPacketDuration() (int, error) {
	return d.Ctl(GetLastPacketDuration{})
}

// Reset resets every sub-decoder.
func (d *Decoder) Reset() error {
	_, err := d.Ctl(ResetState{})
	return err
}

// Close releases the sub-decoders. The decoder must not be used afterwards.
func (d *Decoder) Close() error {
	err := closeAll(d.decoders)
	d.decoders = nil
	return err
}
