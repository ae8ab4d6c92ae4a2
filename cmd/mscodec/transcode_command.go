package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/itzmanish/multistream"
)

func newTranscodeCommand(ctx *commandContext) *cobra.Command {
	var output string
	var bitrate int

	cmd := &cobra.Command{
		Use:   "transcode <input.msp>",
		Short: "Re-encode a multistream packet file",
		Long:  "Decode every packet and encode the audio again with the configured settings, optionally at a new bitrate.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bitrate") {
				if bitrate < 0 {
					return errors.New("bitrate must not be negative")
				}
				copied := *cfg
				copied.Bitrate = bitrate
				cfg = &copied
			}
			return runTranscode(cfg, ctx.logger(), args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.msp", "Packet file to write")
	cmd.Flags().IntVar(&bitrate, "bitrate", 0, "Aggregate bitrate for the new packets")
	return cmd
}

func runTranscode(cfg *Config, logger zerolog.Logger, input, output string) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	dec, err := cfg.NewDecoder(logger)
	if err != nil {
		return err
	}
	defer dec.Close()
	enc, err := cfg.NewEncoder(logger)
	if err != nil {
		return err
	}
	defer enc.Close()

	// Room for a maximum length packet plus a partial frame left over.
	source, err := multistream.NewDecodingStream(input, dec, 240)
	if err != nil {
		return err
	}
	frameSize := cfg.FrameSize()
	transcoder := multistream.NewTranscoder(frameSize)
	if err := transcoder.AddSource(source); err != nil {
		return err
	}
	if err := transcoder.AddEncoder(enc); err != nil {
		return err
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	pw := packetWriter{w: w}

	packet := make([]byte, cfg.MaxPacket)
	written := 0
	emit := func() error {
		n, err := transcoder.Read(packet)
		if err != nil {
			return err
		}
		if _, err := pw.Write(packet[:n]); err != nil {
			return err
		}
		written++
		return nil
	}

	r := bufio.NewReader(in)
	read := 0
	for {
		p, err := readPacket(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, err := source.Write(p); err != nil {
			return fmt.Errorf("packet %d: %w", read, err)
		}
		read++
		for source.Buffered() >= frameSize*cfg.Channels {
			if err := emit(); err != nil {
				return err
			}
		}
	}
	if source.Buffered() > 0 {
		if err := emit(); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logger.Info().
		Str("output", output).
		Int("packets_in", read).
		Int("packets_out", written).
		Int("bitrate", cfg.Bitrate).
		Msg("transcode finished")
	return nil
}
