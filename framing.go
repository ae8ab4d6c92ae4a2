package multistream

import "fmt"

// maxFramesPerPacket is the largest frame count a code 3 packet may declare.
const maxFramesPerPacket = 48

// EncodeSize writes size using the one- or two-byte length coding of
// RFC 6716 section 3.2.1 and returns the number of bytes written. dst must
// have room for two bytes when size >= 252.
func EncodeSize(size int, dst []byte) int {
	if size < 252 {
		dst[0] = byte(size)
		return 1
	}
	first := 252 + (size & 0x3)
	dst[0] = byte(first)
	dst[1] = byte((size - first) >> 2)
	return 2
}

func sizeBytes(size int) int {
	if size < 252 {
		return 1
	}
	return 2
}

func parseSize(data []byte) (size, n int, err error) {
	if len(data) < 1 {
		return 0, 0, fmt.Errorf("%w: missing frame length", ErrCorruptedData)
	}
	if data[0] < 252 {
		return int(data[0]), 1, nil
	}
	if len(data) < 2 {
		return 0, 0, fmt.Errorf("%w: truncated frame length", ErrCorruptedData)
	}
	return 4*int(data[1]) + int(data[0]), 2, nil
}

// packetInfo locates the self-delimiting length of a packet. In both framings
// every header field comes first, then (self-delimited only) the extra length,
// then frame data and padding.
type packetInfo struct {
	header   int // bytes before the self-delimiting length
	lastSize int // frame size carried by the self-delimiting length
	sdBytes  int // width of the self-delimiting length, 0 for a standard packet
	size     int // bytes occupied by the packet
}

func parsePacket(data []byte, selfDelimited bool) (packetInfo, error) {
	if len(data) < 1 {
		return packetInfo{}, fmt.Errorf("%w: empty packet", ErrCorruptedData)
	}

	off := 1
	count := 1
	padding := 0
	known := 0 // bytes of frames sized explicitly in the header
	cbr := false

	switch data[0] & 0x3 {
	case 0:
	case 1:
		count, cbr = 2, true
	case 2:
		size, n, err := parseSize(data[off:])
		if err != nil {
			return packetInfo{}, err
		}
		off += n
		count, known = 2, size
	case 3:
		if off >= len(data) {
			return packetInfo{}, fmt.Errorf("%w: missing frame count", ErrCorruptedData)
		}
		fc := data[off]
		off++
		count = int(fc & 0x3f)
		if count == 0 || count > maxFramesPerPacket {
			return packetInfo{}, fmt.Errorf("%w: invalid frame count %d", ErrCorruptedData, count)
		}
		if fc&0x40 != 0 {
			for {
				if off >= len(data) {
					return packetInfo{}, fmt.Errorf("%w: truncated padding length", ErrCorruptedData)
				}
				p := int(data[off])
				off++
				if p < 255 {
					padding += p
					break
				}
				padding += 254
			}
		}
		if fc&0x80 != 0 {
			for i := 0; i < count-1; i++ {
				size, n, err := parseSize(data[off:])
				if err != nil {
					return packetInfo{}, err
				}
				off += n
				known += size
			}
		} else {
			cbr = true
		}
	}

	info := packetInfo{header: off}
	if selfDelimited {
		size, n, err := parseSize(data[off:])
		if err != nil {
			return packetInfo{}, err
		}
		info.lastSize, info.sdBytes = size, n
		frames := known + size
		if cbr {
			frames = count * size
		}
		info.size = off + n + frames + padding
		if info.size > len(data) {
			return packetInfo{}, fmt.Errorf("%w: packet needs %d bytes, have %d", ErrCorruptedData, info.size, len(data))
		}
		return info, nil
	}

	rest := len(data) - off - padding - known
	if rest < 0 {
		return packetInfo{}, fmt.Errorf("%w: header exceeds packet", ErrCorruptedData)
	}
	if cbr {
		if rest%count != 0 {
			return packetInfo{}, fmt.Errorf("%w: %d bytes do not split into %d frames", ErrCorruptedData, rest, count)
		}
		rest /= count
	}
	info.lastSize = rest
	info.size = len(data)
	return info, nil
}

// writeSelfDelimited writes packet into dst in self-delimited framing
// (RFC 6716 appendix B). For a single-frame packet this is the ToC byte,
// EncodeSize(len(packet)-1), then the remaining payload.
func writeSelfDelimited(dst, packet []byte) (int, error) {
	info, err := parsePacket(packet, false)
	if err != nil {
		return 0, err
	}
	if len(dst) < len(packet)+sizeBytes(info.lastSize) {
		return 0, ErrBufferTooSmall
	}
	n := copy(dst, packet[:info.header])
	n += EncodeSize(info.lastSize, dst[n:])
	n += copy(dst[n:], packet[info.header:])
	return n, nil
}

// AppendUnframed reads one self-delimited packet from the start of data,
// appends its standard framing to dst and reports how many bytes of data it
// occupied. A truncated packet yields ErrCorruptedData.
func AppendUnframed(dst, data []byte) ([]byte, int, error) {
	info, err := parsePacket(data, true)
	if err != nil {
		return dst, 0, err
	}
	dst = append(dst, data[:info.header]...)
	dst = append(dst, data[info.header+info.sdBytes:info.size]...)
	return dst, info.size, nil
}
