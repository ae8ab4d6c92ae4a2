package multistream

import (
	"io"

	"github.com/rs/zerolog"
)

// StreamEncoder encodes one mono or stereo stream. EncodeFloat32 receives
// interleaved samples for exactly one frame and must emit a single Opus
// packet into data, returning its length.
type StreamEncoder interface {
	Channels() int
	EncodeFloat32(pcm []float32, data []byte) (int, error)
	Ctl(req EncoderRequest) (int, error)
}

// StreamDecoder decodes one mono or stereo stream. DecodeFloat32 decodes the
// packet at the start of data into pcm, which holds frameSize*Channels()
// samples. When selfDelimited is set, data may carry trailing bytes of later
// streams and the packet length comes from its self-delimited framing.
// It returns the samples decoded per channel and the bytes consumed.
type StreamDecoder interface {
	Channels() int
	DecodeFloat32(data []byte, pcm []float32, fec, selfDelimited bool) (samples, consumed int, err error)
	Ctl(req DecoderRequest) (int, error)
}

// EncoderFactory creates a single-stream encoder.
type EncoderFactory func(sampleRate, channels int, app Application) (StreamEncoder, error)

// DecoderFactory creates a single-stream decoder.
type DecoderFactory func(sampleRate, channels int) (StreamDecoder, error)

// Option configures an Encoder or Decoder.
type Option func(*options)

type options struct {
	logger     zerolog.Logger
	newEncoder EncoderFactory
	newDecoder DecoderFactory
}

func defaultOptions() options {
	return options{
		logger:     zerolog.Nop(),
		newEncoder: NewOpusStreamEncoder,
		newDecoder: NewOpusStreamDecoder,
	}
}

// WithLogger sets the logger used for debug events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStreamEncoderFactory replaces the libopus single-stream encoder.
func WithStreamEncoderFactory(f EncoderFactory) Option {
	return func(o *options) { o.newEncoder = f }
}

// WithStreamDecoderFactory replaces the libopus single-stream decoder.
func WithStreamDecoderFactory(f DecoderFactory) Option {
	return func(o *options) { o.newDecoder = f }
}

func closeAll[T any](codecs []T) error {
	var first error
	for _, c := range codecs {
		if closer, ok := any(c).(io.Closer); ok {
			if err := closer.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
