package multistream

// EncoderRequest is a control request for an encoder. The set of requests is
// closed; see the types in this file.
type EncoderRequest interface {
	encoderRequest()
}

// DecoderRequest is a control request for a decoder.
type DecoderRequest interface {
	decoderRequest()
}

// Bandwidth is the audio bandwidth an encoder may code.
type Bandwidth int

const (
	Narrowband Bandwidth = iota + 1
	Mediumband
	Wideband
	SuperWideband
	Fullband
)

// Application selects the encoder tuning.
type Application int

const (
	// ApplicationVoIP favours speech intelligibility.
	ApplicationVoIP Application = iota + 1
	// ApplicationAudio favours fidelity for general audio.
	ApplicationAudio
	// ApplicationLowDelay disables the speech modes to minimise latency.
	ApplicationLowDelay
)

func (a Application) String() string {
	switch a {
	case ApplicationVoIP:
		return "voip"
	case ApplicationAudio:
		return "audio"
	case ApplicationLowDelay:
		return "lowdelay"
	default:
		return "unknown"
	}
}

type (
	// SetBitrate sets the aggregate bitrate in bits per second. A multistream
	// encoder splits it across streams.
	SetBitrate struct{ Bitrate int }
	GetBitrate struct{}

	// SetComplexity sets the computational complexity, 0 to 10.
	SetComplexity struct{ Complexity int }
	GetComplexity struct{}

	SetDTX struct{ Enabled bool }
	GetDTX struct{}

	SetInBandFEC struct{ Enabled bool }
	GetInBandFEC struct{}

	SetPacketLossPerc struct{ Percent int }
	GetPacketLossPerc struct{}

	SetMaxBandwidth struct{ Bandwidth Bandwidth }
	GetMaxBandwidth struct{}

	GetApplication struct{}

	// GetLastPacketDuration returns the samples per channel of the last
	// decoded packet.
	GetLastPacketDuration struct{}

	GetSampleRate struct{}

	// ResetState returns a codec to its freshly initialised state.
	ResetState struct{}
)

func (SetBitrate) encoderRequest()        {}
func (GetBitrate) encoderRequest()        {}
func (SetComplexity) encoderRequest()     {}
func (GetComplexity) encoderRequest()     {}
func (SetDTX) encoderRequest()            {}
func (GetDTX) encoderRequest()            {}
func (SetInBandFEC) encoderRequest()      {}
func (GetInBandFEC) encoderRequest()      {}
func (SetPacketLossPerc) encoderRequest() {}
func (GetPacketLossPerc) encoderRequest() {}
func (SetMaxBandwidth) encoderRequest()   {}
func (GetMaxBandwidth) encoderRequest()   {}
func (GetApplication) encoderRequest()    {}
func (GetSampleRate) encoderRequest()     {}
func (ResetState) encoderRequest()        {}

func (GetLastPacketDuration) decoderRequest() {}
func (GetSampleRate) decoderRequest()         {}
func (ResetState) decoderRequest()            {}

func boolValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
