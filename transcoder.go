package multistream

import (
	"errors"
)

// FrameEncoder encodes one interleaved frame into a packet. *Encoder
// implements it.
type FrameEncoder interface {
	Channels() int
	Encode(pcm []int16, frameSize int, data []byte) (int, error)
}

// Transcoder pulls PCM from a source stream and encodes one frame per Read.
// A short read from the source is padded with silence.
type Transcoder struct {
	input     Stream
	encoder   FrameEncoder
	frameSize int
}

// NewTranscoder creates a transcoder producing frames of frameSize samples
// per channel.
func NewTranscoder(frameSize int) *Transcoder {
	return &Transcoder{frameSize: frameSize}
}

func (tc *Transcoder) AddSource(stream Stream) error {
	if tc.input != nil {
		return errors.New("source is already present")
	}
	tc.input = stream
	return nil
}

func (tc *Transcoder) AddEncoder(enc FrameEncoder) error {
	if tc.encoder != nil {
		return errors.New("encoder is already present")
	}
	tc.encoder = enc
	return nil
}

// Read encodes the next frame of the source into dst and returns the packet
// length.
func (tc *Transcoder) Read(dst []byte) (int, error) {
	if tc.input == nil {
		return 0, errors.New("input stream is not binded")
	}
	if tc.encoder == nil {
		return 0, errors.New("encoder is not binded")
	}
	pcm := make([]int16, tc.frameSize*tc.encoder.Channels())
	if _, err := tc.input.ReadPCM(pcm); err != nil {
		return 0, err
	}
	return tc.encoder.Encode(pcm, tc.frameSize, dst)
}

func (tc *Transcoder) ReadPCM(dst []int16) (int, error) {
	if tc.input == nil {
		return 0, errors.New("input stream is not binded")
	}
	return tc.input.ReadPCM(dst)
}

func (tc *Transcoder) WritePCM([]int16) (int, error) {
	return 0, errors.New("transcoder stream doesn't support write method")
}
