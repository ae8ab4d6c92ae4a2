package multistream

// The lookups below take a cursor so callers can walk every channel fed by
// one slot:
//
//	for ch := l.LeftChannel(s, -1); ch != -1; ch = l.LeftChannel(s, ch) {
//		...
//	}

// LeftChannel returns the first channel after `after` carrying the left half
// of coupled stream s, or -1.
func (l ChannelLayout) LeftChannel(s, after int) int {
	return l.nextChannel(2*s, after)
}

// RightChannel returns the first channel after `after` carrying the right half
// of coupled stream s, or -1.
func (l ChannelLayout) RightChannel(s, after int) int {
	return l.nextChannel(2*s+1, after)
}

// MonoChannel returns the first channel after `after` carrying mono stream s,
// or -1. s is the absolute stream index, so its slot is
// 2*coupled + (s - coupled).
func (l ChannelLayout) MonoChannel(s, after int) int {
	return l.nextChannel(l.coupledStreams+s, after)
}

// SlotChannels lists every channel fed by slot, in channel order.
func (l ChannelLayout) SlotChannels(slot int) []int {
	var out []int
	for ch := l.nextChannel(slot, -1); ch != -1; ch = l.nextChannel(slot, ch) {
		out = append(out, ch)
	}
	return out
}

func (l ChannelLayout) nextChannel(slot, after int) int {
	start := 0
	if after >= 0 {
		start = after + 1
	}
	for i := start; i < l.channels; i++ {
		if idx, ok := l.mapping[i].Index(); ok && idx == slot {
			return i
		}
	}
	return -1
}
