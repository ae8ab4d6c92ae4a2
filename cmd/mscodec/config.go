package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/itzmanish/multistream"
)

// Config describes a multistream layout and the encoder settings applied to
// every stream.
type Config struct {
	SampleRate     int    `toml:"sample_rate"`
	Channels       int    `toml:"channels"`
	Streams        int    `toml:"streams"`
	CoupledStreams int    `toml:"coupled_streams"`
	Mapping        []int  `toml:"mapping"`
	Application    string `toml:"application"`
	FrameMs        int    `toml:"frame_ms"`
	MaxPacket      int    `toml:"max_packet"`
	Bitrate        int    `toml:"bitrate"` // 0 leaves the codec default
	Complexity     int    `toml:"complexity"`
	FEC            bool   `toml:"fec"`
	PacketLossPerc int    `toml:"packet_loss_perc"`
}

// Default returns a stereo 48 kHz configuration.
func Default() Config {
	return Config{
		SampleRate:  48000,
		Channels:    2,
		Application: "audio",
		FrameMs:     20,
		MaxPacket:   4000,
		Complexity:  10,
	}
}

// Load reads path over the defaults, then normalizes and validates the
// result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize fills in the default layout when no mapping is given.
func (c *Config) normalize() error {
	c.Application = strings.ToLower(strings.TrimSpace(c.Application))
	if len(c.Mapping) > 0 {
		return nil
	}
	layout, err := multistream.DefaultLayout(c.Channels)
	if err != nil {
		return fmt.Errorf("mapping is required for %d channels: %w", c.Channels, err)
	}
	c.Streams = layout.Streams()
	c.CoupledStreams = layout.CoupledStreams()
	c.Mapping = c.Mapping[:0]
	for _, b := range layout.MappingBytes() {
		c.Mapping = append(c.Mapping, int(b))
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return fmt.Errorf("sample_rate %d must be one of 8000, 12000, 16000, 24000, 48000", c.SampleRate)
	}
	switch c.FrameMs {
	case 10, 20, 40, 60:
	default:
		return fmt.Errorf("frame_ms %d must be one of 10, 20, 40, 60", c.FrameMs)
	}
	if _, err := c.App(); err != nil {
		return err
	}
	if c.Bitrate < 0 {
		return errors.New("bitrate must not be negative")
	}
	if c.Complexity < 0 || c.Complexity > 10 {
		return errors.New("complexity must be between 0 and 10")
	}
	if c.PacketLossPerc < 0 || c.PacketLossPerc > 100 {
		return errors.New("packet_loss_perc must be between 0 and 100")
	}
	for i, m := range c.Mapping {
		if m < 0 || m > 255 {
			return fmt.Errorf("mapping[%d] = %d must be between 0 and 255", i, m)
		}
	}
	layout, err := multistream.NewChannelLayout(c.Channels, c.Streams, c.CoupledStreams, c.MappingBytes())
	if err != nil {
		return err
	}
	if err := multistream.ValidateLayout(layout); err != nil {
		return err
	}
	if c.MaxPacket < 2*c.Streams-1 {
		return fmt.Errorf("max_packet %d is below the %d byte framing minimum", c.MaxPacket, 2*c.Streams-1)
	}
	return nil
}

// App resolves the application name.
func (c *Config) App() (multistream.Application, error) {
	switch c.Application {
	case "voip":
		return multistream.ApplicationVoIP, nil
	case "audio", "":
		return multistream.ApplicationAudio, nil
	case "lowdelay":
		return multistream.ApplicationLowDelay, nil
	default:
		return 0, fmt.Errorf("application %q must be voip, audio or lowdelay", c.Application)
	}
}

func (c *Config) MappingBytes() []byte {
	out := make([]byte, len(c.Mapping))
	for i, m := range c.Mapping {
		out[i] = byte(m)
	}
	return out
}

// FrameSize returns samples per channel in one frame.
func (c *Config) FrameSize() int {
	return c.FrameMs * c.SampleRate / 1000
}

// NewEncoder creates an encoder for the layout and applies the settings.
func (c *Config) NewEncoder(logger zerolog.Logger) (*multistream.Encoder, error) {
	app, err := c.App()
	if err != nil {
		return nil, err
	}
	enc, err := multistream.NewEncoder(c.SampleRate, c.Channels, c.Streams, c.CoupledStreams, c.MappingBytes(), app,
		multistream.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if c.Bitrate > 0 {
		if err := enc.SetBitrate(c.Bitrate); err != nil {
			enc.Close()
			return nil, fmt.Errorf("set bitrate: %w", err)
		}
	}
	if err := enc.SetComplexity(c.Complexity); err != nil {
		enc.Close()
		return nil, fmt.Errorf("set complexity: %w", err)
	}
	if err := enc.SetInBandFEC(c.FEC); err != nil {
		enc.Close()
		return nil, fmt.Errorf("set fec: %w", err)
	}
	if err := enc.SetPacketLossPerc(c.PacketLossPerc); err != nil {
		enc.Close()
		return nil, fmt.Errorf("set packet loss: %w", err)
	}
	return enc, nil
}

// NewDecoder creates a decoder for the layout.
func (c *Config) NewDecoder(logger zerolog.Logger) (*multistream.Decoder, error) {
	return multistream.NewDecoder(c.SampleRate, c.Channels, c.Streams, c.CoupledStreams, c.MappingBytes(),
		multistream.WithLogger(logger))
}
