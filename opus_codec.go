package multistream

import (
	"errors"
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

// OpusEncoder is the libopus single-stream encoder used by default.
type OpusEncoder struct {
	encoder  *opus.Encoder
	channels int
	app      Application
}

// OpusDecoder is the libopus single-stream decoder used by default.
type OpusDecoder struct {
	decoder    *opus.Decoder
	sampleRate int
	channels   int

	// standard framing of the last self-delimited packet
	packet []byte
}

var (
	_ StreamEncoder = (*OpusEncoder)(nil)
	_ StreamDecoder = (*OpusDecoder)(nil)
)

// NewOpusStreamEncoder creates a libopus encoder. It satisfies EncoderFactory.
func NewOpusStreamEncoder(sampleRate, channels int, app Application) (StreamEncoder, error) {
	oapp, err := opusApplication(app)
	if err != nil {
		return nil, err
	}
	enc, err := opus.NewEncoder(sampleRate, channels, oapp)
	if err != nil {
		return nil, translateOpusError(err)
	}
	return &OpusEncoder{
		encoder:  enc,
		channels: channels,
		app:      app,
	}, nil
}

// NewOpusStreamDecoder creates a libopus decoder. It satisfies DecoderFactory.
func NewOpusStreamDecoder(sampleRate, channels int) (StreamDecoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, translateOpusError(err)
	}
	return &OpusDecoder{
		decoder:    dec,
		sampleRate: sampleRate,
		channels:   channels,
		packet:     make([]byte, 0, maxStreamPacket),
	}, nil
}

func (oe *OpusEncoder) Channels() int {
	return oe.channels
}

func (oe *OpusEncoder) EncodeFloat32(pcm []float32, data []byte) (int, error) {
	return oe.encoder.EncodeFloat32(pcm, data)
}

func (oe *OpusEncoder) Ctl(req EncoderRequest) (int, error) {
	switch r := req.(type) {
	case SetBitrate:
		return 0, oe.encoder.SetBitrate(r.Bitrate)
	case GetBitrate:
		return oe.encoder.Bitrate()
	case SetComplexity:
		return 0, oe.encoder.SetComplexity(r.Complexity)
	case GetComplexity:
		return oe.encoder.Complexity()
	case SetDTX:
		return 0, oe.encoder.SetDTX(r.Enabled)
	case GetDTX:
		on, err := oe.encoder.DTX()
		return boolValue(on), err
	case SetInBandFEC:
		return 0, oe.encoder.SetInBandFEC(r.Enabled)
	case GetInBandFEC:
		on, err := oe.encoder.InBandFEC()
		return boolValue(on), err
	case SetPacketLossPerc:
		return 0, oe.encoder.SetPacketLossPerc(r.Percent)
	case GetPacketLossPerc:
		return oe.encoder.PacketLossPerc()
	case SetMaxBandwidth:
		bw, ok := opusBandwidths[r.Bandwidth]
		if !ok {
			return 0, fmt.Errorf("%w: bandwidth %d", ErrBadArgument, r.Bandwidth)
		}
		return 0, oe.encoder.SetMaxBandwidth(bw)
	case GetMaxBandwidth:
		bw, err := oe.encoder.MaxBandwidth()
		if err != nil {
			return 0, err
		}
		for ours, theirs := range opusBandwidths {
			if theirs == bw {
				return int(ours), nil
			}
		}
		return int(bw), nil
	case GetApplication:
		return int(oe.app), nil
	case GetSampleRate:
		return oe.encoder.SampleRate()
	case ResetState:
		return 0, oe.encoder.Reset()
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedRequest, req)
	}
}

func (od *OpusDecoder) Channels() int {
	return od.channels
}

// DecodeFloat32 decodes one packet. pcm must be sized for the expected frame;
// in FEC mode its length selects the duration to recover.
func (od *OpusDecoder) DecodeFloat32(data []byte, pcm []float32, fec, selfDelimited bool) (int, int, error) {
	packet, consumed := data, len(data)
	if selfDelimited {
		var err error
		od.packet, consumed, err = AppendUnframed(od.packet[:0], data)
		if err != nil {
			return 0, 0, err
		}
		packet = od.packet
	}

	if fec {
		if err := od.decoder.DecodeFECFloat32(packet, pcm); err != nil {
			return 0, 0, err
		}
		return len(pcm) / od.channels, consumed, nil
	}
	n, err := od.decoder.DecodeFloat32(packet, pcm)
	if err != nil {
		return 0, 0, err
	}
	return n, consumed, nil
}

func (od *OpusDecoder) Ctl(req DecoderRequest) (int, error) {
	switch req.(type) {
	case GetLastPacketDuration:
		return od.decoder.LastPacketDuration()
	case GetSampleRate:
		return od.sampleRate, nil
	case ResetState:
		dec, err := opus.NewDecoder(od.sampleRate, od.channels)
		if err != nil {
			return 0, translateOpusError(err)
		}
		od.decoder = dec
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedRequest, req)
	}
}

var opusBandwidths = map[Bandwidth]opus.Bandwidth{
	Narrowband:    opus.Narrowband,
	Mediumband:    opus.Mediumband,
	Wideband:      opus.Wideband,
	SuperWideband: opus.SuperWideband,
	Fullband:      opus.Fullband,
}

func opusApplication(app Application) (opus.Application, error) {
	switch app {
	case ApplicationVoIP:
		return opus.AppVoIP, nil
	case ApplicationAudio:
		return opus.AppAudio, nil
	case ApplicationLowDelay:
		return opus.AppRestrictedLowdelay, nil
	default:
		return 0, fmt.Errorf("%w: application %d", ErrBadArgument, app)
	}
}

func translateOpusError(err error) error {
	if errors.Is(err, opus.ErrAllocFail) {
		return fmt.Errorf("%w: %v", ErrAllocFail, err)
	}
	return err
}
