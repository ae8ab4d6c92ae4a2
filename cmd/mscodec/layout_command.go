package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/itzmanish/multistream"
)

func newLayoutCommand(ctx *commandContext) *cobra.Command {
	var channels int

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show the channel layout in use",
		Long:  "Show the configured channel layout, or the default layout for --channels.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var layout multistream.ChannelLayout
			if cmd.Flags().Changed("channels") {
				l, err := multistream.DefaultLayout(channels)
				if err != nil {
					return err
				}
				layout = l
			} else {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				l, err := multistream.NewChannelLayout(cfg.Channels, cfg.Streams, cfg.CoupledStreams, cfg.MappingBytes())
				if err != nil {
					return err
				}
				layout = l
			}
			return printLayout(cmd.OutOrStdout(), layout)
		},
	}
	cmd.Flags().IntVar(&channels, "channels", 2, "Show the default layout for this channel count")
	return cmd
}

func printLayout(w io.Writer, layout multistream.ChannelLayout) error {
	fmt.Fprintf(w, "channels: %d\nstreams:  %d (%d coupled)\n", layout.Channels(), layout.Streams(), layout.CoupledStreams())
	for ch := 0; ch < layout.Channels(); ch++ {
		fmt.Fprintf(w, "  channel %d -> %s\n", ch, layout.Slot(ch))
	}
	for s := 0; s < layout.Streams(); s++ {
		if s < layout.CoupledStreams() {
			left := layout.LeftChannel(s, -1)
			right := layout.RightChannel(s, -1)
			fmt.Fprintf(w, "  stream %d: stereo, left %d right %d\n", s, left, right)
			continue
		}
		fmt.Fprintf(w, "  stream %d: mono, channel %d\n", s, layout.MonoChannel(s, -1))
	}
	if err := multistream.ValidateEncoderLayout(layout); err != nil {
		fmt.Fprintf(w, "decode only: %v\n", err)
	}
	return nil
}
