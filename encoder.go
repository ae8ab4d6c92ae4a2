package multistream

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Encoder encodes interleaved multichannel PCM into multistream packets.
// The first CoupledStreams() sub-encoders are stereo, the rest mono.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	layout     ChannelLayout
	sampleRate int
	app        Application
	encoders   []StreamEncoder
	logger     zerolog.Logger
}

// NewEncoder creates a multistream encoder. Every stream must have a source
// channel for each of its inputs. If any sub-encoder fails to initialise,
// the ones already created are closed and no encoder is returned.
func NewEncoder(sampleRate, channels, streams, coupledStreams int, mapping []byte, app Application, opts ...Option) (*Encoder, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	layout, err := NewChannelLayout(channels, streams, coupledStreams, mapping)
	if err != nil {
		return nil, err
	}
	if err := ValidateEncoderLayout(layout); err != nil {
		return nil, err
	}

	encoders := make([]StreamEncoder, 0, streams)
	for s := 0; s < streams; s++ {
		enc, err := o.newEncoder(sampleRate, layout.streamChannels(s), app)
		if err == nil && enc == nil {
			err = ErrAllocFail
		}
		if err != nil {
			_ = closeAll(encoders)
			return nil, fmt.Errorf("create stream %d encoder: %w", s, err)
		}
		encoders = append(encoders, enc)
	}

	o.logger.Debug().
		Int("sample_rate", sampleRate).
		Int("channels", channels).
		Int("streams", streams).
		Int("coupled", coupledStreams).
		Stringer("application", app).
		Msg("multistream encoder created")

	return &Encoder{
		layout:     layout,
		sampleRate: sampleRate,
		app:        app,
		encoders:   encoders,
		logger:     o.logger,
	}, nil
}

// NewDefaultEncoder creates an encoder for 1 to 8 channels in Vorbis channel
// order.
func NewDefaultEncoder(sampleRate, channels int, app Application, opts ...Option) (*Encoder, error) {
	l, err := DefaultLayout(channels)
	if err != nil {
		return nil, err
	}
	return NewEncoder(sampleRate, l.channels, l.streams, l.coupledStreams, l.MappingBytes(), app, opts...)
}

func (e *Encoder) Layout() ChannelLayout { return e.layout }
func (e *Encoder) Channels() int         { return e.layout.channels }
func (e *Encoder) Streams() int          { return e.layout.streams }
func (e *Encoder) CoupledStreams() int   { return e.layout.coupledStreams }
func (e *Encoder) SampleRate() int       { return e.sampleRate }

// Encode encodes one frame of interleaved 16-bit PCM. See EncodeFloat32.
func (e *Encoder) Encode(pcm []int16, frameSize int, data []byte) (int, error) {
	n := frameSize * e.layout.channels
	if frameSize <= 0 || len(pcm) < n {
		return 0, fmt.Errorf("%w: need %d samples for frame size %d, have %d", ErrBadArgument, n, frameSize, len(pcm))
	}
	in := getFloat32Buffer(n)
	defer putFloat32Buffer(in)
	int16ToFloat32(*in, pcm[:n])
	return e.EncodeFloat32(*in, frameSize, data)
}

// EncodeFloat32 encodes frameSize samples per channel of interleaved PCM into
// data and returns the packet length. len(data) bounds the packet size and
// must be at least 2*Streams()-1.
//
// Every stream but the last is written self-delimited; the last stream takes
// the rest of the packet.
func (e *Encoder) EncodeFloat32(pcm []float32, frameSize int, data []byte) (int, error) {
	channels := e.layout.channels
	streams := e.layout.streams
	if frameSize <= 0 || len(pcm) < frameSize*channels {
		return 0, fmt.Errorf("%w: need %d samples for frame size %d, have %d", ErrBadArgument, frameSize*channels, frameSize, len(pcm))
	}
	if len(data) < 2*streams-1 {
		return 0, ErrBufferTooSmall
	}

	buf := getFloat32Buffer(2 * frameSize)
	defer putFloat32Buffer(buf)
	tmp := getPacketBuffer()
	defer putPacketBuffer(tmp)

	total := 0
	for s, enc := range e.encoders {
		in := (*buf)[:e.layout.streamChannels(s)*frameSize]
		if s < e.layout.coupledStreams {
			left := e.layout.LeftChannel(s, -1)
			right := e.layout.RightChannel(s, -1)
			for i := 0; i < frameSize; i++ {
				in[2*i] = pcm[channels*i+left]
				in[2*i+1] = pcm[channels*i+right]
			}
		} else {
			ch := e.layout.MonoChannel(s, -1)
			for i := 0; i < frameSize; i++ {
				in[i] = pcm[channels*i+ch]
			}
		}

		budget := min(e.streamBudget(len(data)-total, s), len(*tmp))
		if budget < 1 {
			return 0, ErrBufferTooSmall
		}
		n, err := enc.EncodeFloat32(in, (*tmp)[:budget])
		if err != nil {
			return 0, err
		}
		if n < 1 || n > budget {
			return 0, fmt.Errorf("%w: stream %d wrote %d bytes with a budget of %d", ErrCorruptedData, s, n, budget)
		}
		packet := (*tmp)[:n]

		if s == streams-1 {
			total += copy(data[total:], packet)
			continue
		}
		w, err := writeSelfDelimited(data[total:], packet)
		if err != nil {
			return 0, err
		}
		total += w
	}
	return total, nil
}

// streamBudget returns how many bytes stream s may spend out of remaining.
// Each later stream keeps one ToC byte, plus a one-byte length unless it is
// the last. A non-final stream also keeps room for its own length, two bytes
// once its payload could reach 252 bytes.
func (e *Encoder) streamBudget(remaining, s int) int {
	later := e.layout.streams - 1 - s
	if later == 0 {
		return remaining
	}
	avail := remaining - (2*later - 1)
	budget := avail - 1
	if budget > 252 {
		budget = avail - 2
	}
	return budget
}

// Ctl applies a control request to every sub-encoder in stream order.
//
// SetBitrate splits the aggregate rate evenly across channel equivalents:
// each coupled stream gets twice the per-channel share, each mono stream one
// share. Other requests go unchanged to every sub-encoder and stop at the
// first failure; updates already applied are kept. Get requests return the
// value reported by the last sub-encoder queried, so they are only
// meaningful for settings that are uniform across streams.
func (e *Encoder) Ctl(req EncoderRequest) (int, error) {
	switch r := req.(type) {
	case SetBitrate:
		if r.Bitrate < 0 {
			return 0, fmt.Errorf("%w: negative bitrate %d", ErrBadArgument, r.Bitrate)
		}
		per := r.Bitrate / (e.layout.streams + e.layout.coupledStreams)
		for s, enc := range e.encoders {
			rate := per
			if s < e.layout.coupledStreams {
				rate *= 2
			}
			if _, err := enc.Ctl(SetBitrate{Bitrate: rate}); err != nil {
				e.logger.Debug().Err(err).Int("stream", s).Int("bitrate", rate).Msg("set bitrate failed")
				return 0, err
			}
		}
		return 0, nil

	case GetBitrate, SetComplexity, GetComplexity, SetDTX, GetDTX,
		SetInBandFEC, GetInBandFEC, SetPacketLossPerc, GetPacketLossPerc,
		SetMaxBandwidth, GetMaxBandwidth, GetApplication, GetSampleRate, ResetState:
		var value int
		for s, enc := range e.encoders {
			v, err := enc.Ctl(req)
			if err != nil {
				e.logger.Debug().Err(err).Int("stream", s).Msgf("encoder ctl %T failed", req)
				return v, err
			}
			value = v
		}
		return value, nil

	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedRequest, req)
	}
}

// SetBitrate sets the aggregate bitrate in bits per second.
func (e *Encoder) SetBitrate(bitrate int) error {
	_, err := e.Ctl(SetBitrate{Bitrate: bitrate})
	return err
}

// Bitrate reports the bitrate of the last stream.
func (e *Encoder) Bitrate() (int, error) {
	return e.Ctl(GetBitrate{})
}

func (e *Encoder) SetComplexity(complexity int) error {
	_, err := e.Ctl(SetComplexity{Complexity: complexity})
	return err
}

func (e *Encoder) SetInBandFEC(enabled bool) error {
	_, err := e.Ctl(SetInBandFEC{Enabled: enabled})
	return err
}

func (e *Encoder) SetPacketLossPerc(percent int) error {
	_, err := e.Ctl(SetPacketLossPerc{Percent: percent})
	return err
}

func (e *Encoder) SetDTX(enabled bool) error {
	_, err := e.Ctl(SetDTX{Enabled: enabled})
	return err
}

func (e *Encoder) SetMaxBandwidth(bw Bandwidth) error {
	_, err := e.Ctl(SetMaxBandwidth{Bandwidth: bw})
	return err
}

// Reset resets every sub-encoder.
func (e *Encoder) Reset() error {
	_, err := e.Ctl(ResetState{})
	return err
}

// Close releases the sub-encoders. The encoder must not be used afterwards.
func (e *Encoder) Close() error {
	err := closeAll(e.encoders)
	e.encoders = nil
	return err
}
