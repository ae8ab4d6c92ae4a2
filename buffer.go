package multistream

import (
	"sync"
)

// maxStreamPacket bounds one single-stream packet: three maximum size frames
// plus the code 3 header.
const maxStreamPacket = 3*1275 + 7

var (
	float32BufferPool sync.Pool
	packetBufferPool  = sync.Pool{
		New: func() any {
			buf := make([]byte, maxStreamPacket)
			return &buf
		},
	}
)

// getFloat32Buffer returns a zeroed scratch slice of size samples. Release it
// with putFloat32Buffer.
func getFloat32Buffer(size int) *[]float32 {
	if v := float32BufferPool.Get(); v != nil {
		buf := v.(*[]float32)
		if cap(*buf) >= size {
			*buf = (*buf)[:size]
			clear(*buf)
			return buf
		}
	}
	buf := make([]float32, size)
	return &buf
}

func putFloat32Buffer(buf *[]float32) {
	*buf = (*buf)[:0]
	float32BufferPool.Put(buf)
}

func getPacketBuffer() *[]byte {
	return packetBufferPool.Get().(*[]byte)
}

func putPacketBuffer(buf *[]byte) {
	*buf = (*buf)[:maxStreamPacket]
	packetBufferPool.Put(buf)
}
