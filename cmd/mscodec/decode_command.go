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

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "decode <input.msp>",
		Short: "Decode a multistream packet file to raw PCM",
		Long:  "Decode every packet and write interleaved 16-bit little-endian PCM at the configured rate.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runDecode(cfg, ctx.logger(), args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.pcm", "PCM file to write")
	return cmd
}

func runDecode(cfg *Config, logger zerolog.Logger, input, output string) error {
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

	stream, err := multistream.NewDecodingStream(input, dec, 2*cfg.FrameMs)
	if err != nil {
		return err
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	if err := stream.Connect(w); err != nil {
		return err
	}

	r := bufio.NewReader(in)
	packets := 0
	for {
		packet, err := readPacket(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, err := stream.Write(packet); err != nil {
			return fmt.Errorf("packet %d: %w", packets, err)
		}
		packets++
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logger.Info().
		Str("output", output).
		Int("packets", packets).
		Int("channels", dec.Channels()).
		Int("sample_rate", dec.SampleRate()).
		Msg("decode finished")
	return nil
}
