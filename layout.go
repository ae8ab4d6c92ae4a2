package multistream

import (
	"errors"
	"fmt"
)

// MaxChannels is the largest channel count a layout can describe.
const MaxChannels = 255

// silentSlot is the wire value of an unmapped channel.
const silentSlot = 255

// Slot addresses one decoded channel of a stream, or nothing at all.
//
// Slots below 2*coupledStreams address one half of a coupled stream (even is
// left, odd is right). The remaining slots address mono streams.
type Slot struct {
	index uint8
	valid bool
}

// NoSlot marks a channel that no stream feeds.
var NoSlot = Slot{}

// SlotAt returns the slot with the given index. Index 255 is the wire marker
// for a silent channel and yields NoSlot.
func SlotAt(index int) Slot {
	if index < 0 || index >= silentSlot {
		return NoSlot
	}
	return Slot{index: uint8(index), valid: true}
}

// Index returns the slot index and whether the slot is present.
func (s Slot) Index() (int, bool) {
	return int(s.index), s.valid
}

// Byte returns the wire encoding of the slot.
func (s Slot) Byte() byte {
	if !s.valid {
		return silentSlot
	}
	return s.index
}

func (s Slot) String() string {
	if !s.valid {
		return "-"
	}
	return fmt.Sprintf("%d", s.index)
}

// ChannelLayout maps logical channels onto coupled and mono streams.
// It is built once and never modified.
type ChannelLayout struct {
	channels       int
	streams        int
	coupledStreams int
	mapping        []Slot
}

// NewChannelLayout builds a layout from its wire description. Only the counts
// are checked here; slot references are checked by ValidateLayout.
func NewChannelLayout(channels, streams, coupledStreams int, mapping []byte) (ChannelLayout, error) {
	if channels < 1 || channels > MaxChannels {
		return ChannelLayout{}, fmt.Errorf("%w: channels %d out of range 1-%d", ErrBadArgument, channels, MaxChannels)
	}
	if streams < 1 {
		return ChannelLayout{}, fmt.Errorf("%w: streams %d must be positive", ErrBadArgument, streams)
	}
	if coupledStreams < 0 || coupledStreams > streams {
		return ChannelLayout{}, fmt.Errorf("%w: coupled streams %d out of range 0-%d", ErrBadArgument, coupledStreams, streams)
	}
	if len(mapping) != channels {
		return ChannelLayout{}, fmt.Errorf("%w: mapping has %d entries for %d channels", ErrBadArgument, len(mapping), channels)
	}

	slots := make([]Slot, channels)
	for i, b := range mapping {
		slots[i] = SlotAt(int(b))
	}
	return ChannelLayout{
		channels:       channels,
		streams:        streams,
		coupledStreams: coupledStreams,
		mapping:        slots,
	}, nil
}

// Channels returns the number of logical channels.
func (l ChannelLayout) Channels() int { return l.channels }

// Streams returns the total number of coded streams.
func (l ChannelLayout) Streams() int { return l.streams }

// CoupledStreams returns the number of stereo streams. They come first.
func (l ChannelLayout) CoupledStreams() int { return l.coupledStreams }

// MonoStreams returns the number of single-channel streams.
func (l ChannelLayout) MonoStreams() int { return l.streams - l.coupledStreams }

// Slot returns the slot feeding channel ch.
func (l ChannelLayout) Slot(ch int) Slot { return l.mapping[ch] }

// MappingBytes returns the wire form of the mapping, with 255 for silent
// channels.
func (l ChannelLayout) MappingBytes() []byte {
	out := make([]byte, len(l.mapping))
	for i, s := range l.mapping {
		out[i] = s.Byte()
	}
	return out
}

// streamChannels returns 2 for coupled streams and 1 for mono streams.
func (l ChannelLayout) streamChannels(stream int) int {
	if stream < l.coupledStreams {
		return 2
	}
	return 1
}

// ValidateLayout checks that every present slot references an existing
// stream channel and that the slot space fits in a byte.
func ValidateLayout(l ChannelLayout) error {
	maxSlot := l.streams + l.coupledStreams
	if maxSlot > MaxChannels {
		return fmt.Errorf("%w: %d streams plus %d coupled exceeds %d", ErrBadArgument, l.streams, l.coupledStreams, MaxChannels)
	}
	for ch, s := range l.mapping {
		idx, ok := s.Index()
		if ok && idx >= maxSlot {
			return fmt.Errorf("%w: channel %d maps to slot %d, want < %d", ErrBadArgument, ch, idx, maxSlot)
		}
	}
	return nil
}

// ValidateEncoderLayout checks ValidateLayout and that every stream has a
// source channel for each of its inputs.
func ValidateEncoderLayout(l ChannelLayout) error {
	if err := ValidateLayout(l); err != nil {
		return err
	}
	for s := 0; s < l.streams; s++ {
		if s < l.coupledStreams {
			if l.LeftChannel(s, -1) == -1 {
				return fmt.Errorf("%w: coupled stream %d has no left channel", ErrBadArgument, s)
			}
			if l.RightChannel(s, -1) == -1 {
				return fmt.Errorf("%w: coupled stream %d has no right channel", ErrBadArgument, s)
			}
		} else if l.MonoChannel(s, -1) == -1 {
			return fmt.Errorf("%w: mono stream %d has no source channel", ErrBadArgument, s)
		}
	}
	return nil
}

// ErrNoDefaultLayout is returned by DefaultLayout for channel counts outside 1-8.
var ErrNoDefaultLayout = errors.New("multistream: no default layout for channel count (must be 1-8)")

// DefaultLayout returns the Vorbis channel order layout (mapping family 1)
// for 1 to 8 channels.
func DefaultLayout(channels int) (ChannelLayout, error) {
	var streams, coupled int
	var mapping []byte
	switch channels {
	case 1:
		streams, coupled, mapping = 1, 0, []byte{0}
	case 2:
		streams, coupled, mapping = 1, 1, []byte{0, 1}
	case 3:
		// L, C, R
		streams, coupled, mapping = 2, 1, []byte{0, 2, 1}
	case 4:
		// FL, FR, RL, RR
		streams, coupled, mapping = 2, 2, []byte{0, 1, 2, 3}
	case 5:
		// FL, C, FR, RL, RR
		streams, coupled, mapping = 3, 2, []byte{0, 4, 1, 2, 3}
	case 6:
		// FL, C, FR, RL, RR, LFE
		streams, coupled, mapping = 4, 2, []byte{0, 4, 1, 2, 3, 5}
	case 7:
		// FL, C, FR, SL, SR, RC, LFE
		streams, coupled, mapping = 5, 2, []byte{0, 4, 1, 2, 3, 5, 6}
	case 8:
		// FL, C, FR, SL, SR, RL, RR, LFE
		streams, coupled, mapping = 5, 3, []byte{0, 6, 1, 2, 3, 4, 5, 7}
	default:
		return ChannelLayout{}, ErrNoDefaultLayout
	}
	return NewChannelLayout(channels, streams, coupled, mapping)
}
