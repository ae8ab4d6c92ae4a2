package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/hraban/opus.v2"

	"github.com/itzmanish/multistream"
)

// oggSource decodes one Ogg Opus input to PCM at the configured rate.
// Pages are assumed to carry one packet each.
type oggSource struct {
	id       string
	file     *os.File
	reader   *oggreader.OggReader
	decoder  *opus.Decoder
	channels int
	pcm      []int16
	done     bool
}

func openOggSource(path string, sampleRate int) (*oggSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	reader, header, err := oggreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read ogg header %s: %w", path, err)
	}
	channels := int(header.Channels)
	decoder, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("create decoder for %s: %w", path, err)
	}
	return &oggSource{
		id:       filepath.Base(path),
		file:     file,
		reader:   reader,
		decoder:  decoder,
		channels: channels,
		pcm:      make([]int16, 120*sampleRate/1000*channels),
	}, nil
}

// next decodes the next audio page. It returns nil samples for header pages.
func (s *oggSource) next() ([]int16, error) {
	page, _, err := s.reader.ParseNextPage()
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(page, []byte("OpusHead")) || bytes.HasPrefix(page, []byte("OpusTags")) {
		return nil, nil
	}
	n, err := s.decoder.Decode(page, s.pcm)
	if err != nil {
		return nil, err
	}
	return s.pcm[:n*s.channels], nil
}

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "encode <input.ogg>...",
		Short: "Encode Ogg Opus inputs into one multistream packet file",
		Long: "Decode every input and place its channels side by side, in argument order, " +
			"then encode them as multistream packets. The total channel count must match the configuration.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runEncode(cfg, ctx.logger(), args, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.msp", "Packet file to write")
	return cmd
}

func runEncode(cfg *Config, logger zerolog.Logger, inputs []string, output string) error {
	mux := multistream.NewMultiplexer(cfg.SampleRate)
	sources := make([]*oggSource, 0, len(inputs))
	defer func() {
		for _, src := range sources {
			src.file.Close()
		}
	}()
	for i, path := range inputs {
		src, err := openOggSource(path, cfg.SampleRate)
		if err != nil {
			return err
		}
		src.id = fmt.Sprintf("%d:%s", i, src.id)
		sources = append(sources, src)
		if err := mux.AddSource(src.id, src.channels); err != nil {
			return err
		}
		logger.Info().Str("source", src.id).Int("channels", src.channels).Msg("input opened")
	}
	if mux.Channels() != cfg.Channels {
		return fmt.Errorf("inputs carry %d channels, configuration expects %d", mux.Channels(), cfg.Channels)
	}

	enc, err := cfg.NewEncoder(logger)
	if err != nil {
		return err
	}
	defer enc.Close()

	stream, err := multistream.NewEncodingStream(output, enc, cfg.FrameMs, cfg.MaxPacket)
	if err != nil {
		return err
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	counter := &packetCounter{w: packetWriter{w: w}}
	if err := stream.Connect(counter); err != nil {
		return err
	}

	frameSize := cfg.FrameSize()
	frame := make([]int16, frameSize*cfg.Channels)
	drain := func(partial bool) error {
		for partial || mux.Ready(frameSize) {
			n, err := mux.ReadFrame(frame, frameSize)
			if errors.Is(err, multistream.ErrEmptyBuffer) {
				return nil
			}
			if err != nil {
				return err
			}
			if _, err := stream.WritePCM(frame[:n*cfg.Channels]); err != nil {
				return err
			}
		}
		return nil
	}

	for remaining := len(sources); remaining > 0; {
		for _, src := range sources {
			if src.done {
				continue
			}
			pcm, err := src.next()
			if errors.Is(err, io.EOF) {
				src.done = true
				remaining--
				logger.Debug().Str("source", src.id).Msg("input finished")
				continue
			}
			if err != nil {
				return fmt.Errorf("decode %s: %w", src.id, err)
			}
			if err := mux.Push(src.id, pcm); err != nil {
				return err
			}
		}
		if err := drain(false); err != nil {
			return err
		}
	}
	if err := drain(true); err != nil {
		return err
	}
	if err := stream.Flush(); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logger.Info().
		Str("output", output).
		Int("packets", counter.packets).
		Int("bytes", counter.bytes).
		Int("streams", enc.Streams()).
		Msg("encode finished")
	return nil
}

type packetCounter struct {
	w       io.Writer
	packets int
	bytes   int
}

func (c *packetCounter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err == nil {
		c.packets++
		c.bytes += len(p)
	}
	return n, err
}
