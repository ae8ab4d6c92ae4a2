package multistream

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Stream is one end of a multistream pipeline. PCM moves as interleaved
// int16 samples (ReadPCM/WritePCM) or as little-endian bytes (Read/Write),
// depending on the direction of the stream.
type Stream interface {
	io.ReadWriter
	ReadPCM(dst []int16) (int, error)
	WritePCM(src []int16) (int, error)
	Connect(sink io.Writer) error
}

const (
	// packetQueueLen is how many encoded packets an EncodingStream keeps for
	// Read before overwriting the oldest.
	packetQueueLen = 64
	// maxPacketDurationMs is the longest Opus packet.
	maxPacketDurationMs = 120
)

var (
	_ Stream = (*EncodingStream)(nil)
	_ Stream = (*DecodingStream)(nil)
)

// EncodingStream collects interleaved PCM and encodes every complete frame
// into a multistream packet. Packets go to the connected sink, if any, and
// are queued for Read.
type EncodingStream struct {
	id               string
	sampleDurationMs int
	frameSize        int
	maxPacket        int

	encoder *Encoder
	pending *RingBuffer[int16]
	packets *RingBuffer[[]byte]
	sink    io.Writer
	logger  zerolog.Logger
}

// DecodingStream decodes multistream packets written to it and queues the
// resulting PCM for ReadPCM and Read.
type DecodingStream struct {
	id       string
	maxFrame int

	decoder *Decoder
	pcm     *RingBuffer[int16]
	sink    io.Writer
	logger  zerolog.Logger
}

// NewEncodingStream wraps enc, encoding frames of sampleDurationMs. Each
// packet is limited to maxPacket bytes.
func NewEncodingStream(id string, enc *Encoder, sampleDurationMs, maxPacket int) (*EncodingStream, error) {
	frameSize := sampleDurationMs * enc.SampleRate() / 1000
	if frameSize <= 0 {
		return nil, fmt.Errorf("%w: frame duration %dms", ErrBadArgument, sampleDurationMs)
	}
	if maxPacket < 2*enc.Streams()-1 {
		return nil, fmt.Errorf("%w: packet limit %d too small for %d streams", ErrBadArgument, maxPacket, enc.Streams())
	}
	return &EncodingStream{
		id:               id,
		sampleDurationMs: sampleDurationMs,
		frameSize:        frameSize,
		maxPacket:        maxPacket,
		encoder:          enc,
		pending:          NewRingBuffer[int16](4 * frameSize * enc.Channels()),
		packets:          NewRingBuffer[[]byte](packetQueueLen),
		logger:           enc.logger,
	}, nil
}

// NewDecodingStream wraps dec, buffering up to bufferMs of decoded PCM.
// Older samples are overwritten when the reader falls behind.
func NewDecodingStream(id string, dec *Decoder, bufferMs int) (*DecodingStream, error) {
	capacity := bufferMs * dec.SampleRate() / 1000 * dec.Channels()
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: buffer duration %dms", ErrBadArgument, bufferMs)
	}
	return &DecodingStream{
		id:       id,
		maxFrame: maxPacketDurationMs * dec.SampleRate() / 1000,
		decoder:  dec,
		pcm:      NewRingBuffer[int16](capacity),
		logger:   dec.logger,
	}, nil
}

func (es *EncodingStream) SampleCount() int      { return es.frameSize }
func (es *EncodingStream) ChannelCount() int     { return es.encoder.Channels() }
func (es *EncodingStream) SampleRate() int       { return es.encoder.SampleRate() }
func (es *EncodingStream) SampleDurationMs() int { return es.sampleDurationMs }

// WritePCM queues interleaved samples and encodes every complete frame.
func (es *EncodingStream) WritePCM(src []int16) (int, error) {
	written := 0
	for len(src) > 0 {
		chunk := min(len(src), es.pending.Cap()-es.pending.Len())
		if _, err := es.pending.Write(src[:chunk]); err != nil {
			return written, err
		}
		src = src[chunk:]
		written += chunk
		if err := es.encodeFrames(); err != nil {
			return written, err
		}
	}
	return written, nil
}

// Write takes little-endian 16-bit PCM bytes.
func (es *EncodingStream) Write(data []byte) (int, error) {
	n, err := es.WritePCM(byteSliceToInt16(data))
	return 2 * n, err
}

// Flush pads a trailing partial frame with silence and encodes it.
func (es *EncodingStream) Flush() error {
	need := es.frameSize * es.encoder.Channels()
	left := es.pending.Len()
	if left == 0 {
		return nil
	}
	_, err := es.WritePCM(make([]int16, need-left))
	return err
}

func (es *EncodingStream) encodeFrames() error {
	need := es.frameSize * es.encoder.Channels()
	for es.pending.Len() >= need {
		pcm := make([]int16, need)
		if _, err := es.pending.Read(pcm); err != nil {
			return err
		}
		packet := make([]byte, es.maxPacket)
		n, err := es.encoder.Encode(pcm, es.frameSize, packet)
		if err != nil {
			return err
		}
		packet = packet[:n]
		es.logger.Debug().Str("stream", es.id).Int("bytes", n).Msg("frame encoded")

		if es.sink != nil {
			if _, err := es.sink.Write(packet); err != nil {
				return err
			}
		}
		if _, err := es.packets.Write([][]byte{packet}); err != nil {
			return err
		}
	}
	return nil
}

// Read copies the oldest queued packet into dst. The packet stays queued if
// dst is too small to hold it.
func (es *EncodingStream) Read(dst []byte) (int, error) {
	next := make([][]byte, 1)
	if es.packets.Peek(next) == 0 {
		return 0, ErrEmptyBuffer
	}
	if len(dst) < len(next[0]) {
		return 0, io.ErrShortBuffer
	}
	if _, err := es.packets.Read(next); err != nil {
		return 0, err
	}
	return copy(dst, next[0]), nil
}

func (*EncodingStream) ReadPCM([]int16) (int, error) {
	return 0, errors.New("encoding stream doesn't support reading pcm")
}

func (es *EncodingStream) Connect(writer io.Writer) error {
	if es.sink != nil {
		return errors.New("stream already connected to other sink")
	}
	es.sink = writer
	return nil
}

func (ds *DecodingStream) ChannelCount() int { return ds.decoder.Channels() }
func (ds *DecodingStream) SampleRate() int   { return ds.decoder.SampleRate() }

// Buffered returns the number of decoded samples waiting to be read.
func (ds *DecodingStream) Buffered() int { return ds.pcm.Len() }

// Write decodes one multistream packet.
func (ds *DecodingStream) Write(packet []byte) (int, error) {
	channels := ds.decoder.Channels()
	pcm := make([]int16, ds.maxFrame*channels)
	n, err := ds.decoder.Decode(packet, pcm, ds.maxFrame, false)
	if err != nil {
		return 0, err
	}
	samples := pcm[:n*channels]
	ds.logger.Debug().Str("stream", ds.id).Int("samples", n).Int("bytes", len(packet)).Msg("packet decoded")
	if n == 0 {
		return len(packet), nil
	}

	if ds.sink != nil {
		if _, err := ds.sink.Write(int16ToByteSlice(samples)); err != nil {
			return 0, err
		}
	}
	if _, err := ds.pcm.Write(samples); err != nil {
		return 0, err
	}
	return len(packet), nil
}

// ReadPCM reads decoded interleaved samples.
func (ds *DecodingStream) ReadPCM(dst []int16) (int, error) {
	return ds.pcm.Read(dst)
}

// Read reads decoded samples as little-endian bytes.
func (ds *DecodingStream) Read(dst []byte) (int, error) {
	samples := make([]int16, len(dst)/2)
	n, err := ds.pcm.Read(samples)
	if err != nil {
		return 0, err
	}
	return copy(dst, int16ToByteSlice(samples[:n])), nil
}

func (*DecodingStream) WritePCM([]int16) (int, error) {
	return 0, errors.New("decoding stream doesn't support writing pcm")
}

func (ds *DecodingStream) Connect(writer io.Writer) error {
	if ds.sink != nil {
		return errors.New("stream already connected to other sink")
	}
	ds.sink = writer
	return nil
}
