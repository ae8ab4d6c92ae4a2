package multistream

import (
	"errors"
	"fmt"
	"sync"
)

// Multiplexer places independent mono or stereo sources side by side in one
// interleaved multichannel frame. Sources occupy consecutive channels in the
// order they were added. Sources may be fed from different goroutines.
type Multiplexer struct {
	sync.RWMutex
	bufferSamples int
	channels      int
	order         []*muxSource
	sources       map[string]*muxSource
}

type muxSource struct {
	id       string
	channels int
	offset   int
	buffer   *RingBuffer[int16]
}

// NewMultiplexer creates a multiplexer that buffers up to bufferSamples
// samples per channel for each source.
func NewMultiplexer(bufferSamples int) *Multiplexer {
	return &Multiplexer{
		bufferSamples: bufferSamples,
		sources:       make(map[string]*muxSource),
	}
}

// AddSource appends a source of 1 or 2 channels.
func (m *Multiplexer) AddSource(id string, channels int) error {
	if channels < 1 || channels > 2 {
		return fmt.Errorf("%w: source %q has %d channels", ErrBadArgument, id, channels)
	}
	m.Lock()
	defer m.Unlock()
	if _, ok := m.sources[id]; ok {
		return errors.New("source already exists")
	}
	if m.channels+channels > MaxChannels {
		return fmt.Errorf("%w: more than %d channels", ErrBadArgument, MaxChannels)
	}
	src := &muxSource{
		id:       id,
		channels: channels,
		offset:   m.channels,
		buffer:   NewRingBuffer[int16](m.bufferSamples * channels),
	}
	m.sources[id] = src
	m.order = append(m.order, src)
	m.channels += channels
	return nil
}

// Channels returns the total channel count across sources.
func (m *Multiplexer) Channels() int {
	m.RLock()
	defer m.RUnlock()
	return m.channels
}

// Push queues interleaved samples for a source.
func (m *Multiplexer) Push(id string, pcm []int16) error {
	m.RLock()
	src, ok := m.sources[id]
	m.RUnlock()
	if !ok {
		return errors.New("source is not initialized")
	}
	if len(pcm)%src.channels != 0 {
		return fmt.Errorf("%w: %d samples for %d channels", ErrBadArgument, len(pcm), src.channels)
	}
	if len(pcm) == 0 {
		return nil
	}
	_, err := src.buffer.Write(pcm)
	return err
}

// Ready reports whether every source holds at least frameSize samples per
// channel.
func (m *Multiplexer) Ready(frameSize int) bool {
	m.RLock()
	defer m.RUnlock()
	if len(m.order) == 0 {
		return false
	}
	for _, src := range m.order {
		if src.buffer.Len() < frameSize*src.channels {
			return false
		}
	}
	return true
}

// ReadFrame fills dst with up to frameSize samples per channel, interleaved
// over Channels() channels, and returns the samples per channel written.
// Sources with less data are padded with silence. It returns ErrEmptyBuffer
// when no source has data.
func (m *Multiplexer) ReadFrame(dst []int16, frameSize int) (int, error) {
	m.RLock()
	defer m.RUnlock()
	if len(dst) < frameSize*m.channels {
		return 0, ErrShortBuffer
	}

	longest := 0
	for _, src := range m.order {
		longest = max(longest, min(frameSize, src.buffer.Len()/src.channels))
	}
	if longest == 0 {
		return 0, ErrEmptyBuffer
	}

	clear(dst[:longest*m.channels])
	scratch := make([]int16, longest*2)
	for _, src := range m.order {
		n, err := src.buffer.Read(scratch[:longest*src.channels])
		if err != nil && !errors.Is(err, ErrEmptyBuffer) {
			return 0, err
		}
		for i := 0; i < n/src.channels; i++ {
			for c := 0; c < src.channels; c++ {
				dst[i*m.channels+src.offset+c] = scratch[i*src.channels+c]
			}
		}
	}
	return longest, nil
}
