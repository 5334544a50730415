package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/exotracker/audio/internal/synth"
	"github.com/exotracker/audio/internal/warning"
)

func newRenderCmd() *cobra.Command {
	var out string
	var sampleRate int
	var seconds float64

	cmd := &cobra.Command{
		Use:   "render <doc.json>",
		Short: "render a document offline to a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			warnings := &warning.Sink{}
			source := synth.NewAtomicSource(d)
			overall := synth.New(2, sampleRate, source, synth.Options{Warnings: warnings})
			overall.Seek(0, 0)

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()

			enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)

			// Render in audio-callback-sized chunks: the core is built
			// around repeated bounded render calls, so the offline path
			// exercises the same loop the realtime path does.
			const chunkFrames = 1024
			pcm := make([]int16, chunkFrames*2)
			intBuf := &audio.IntBuffer{
				Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
				Data:           make([]int, chunkFrames*2),
				SourceBitDepth: 16,
			}

			totalFrames := int(seconds * float64(sampleRate))
			for rendered := 0; rendered < totalFrames; rendered += chunkFrames {
				n := chunkFrames
				if remaining := totalFrames - rendered; remaining < n {
					n = remaining
				}
				overall.Render(pcm[:n*2])
				intBuf.Data = intBuf.Data[:n*2]
				for i := 0; i < n*2; i++ {
					intBuf.Data[i] = int(pcm[i])
				}
				if err := enc.Write(intBuf); err != nil {
					return fmt.Errorf("writing WAV data: %w", err)
				}
			}

			if err := enc.Close(); err != nil {
				return fmt.Errorf("finalizing WAV file: %w", err)
			}

			for _, w := range warnings.Items() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", w.Kind, w.Detail)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rendered %d frames to %s\n", totalFrames, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "out.wav", "output WAV path")
	cmd.Flags().IntVar(&sampleRate, "rate", 48000, "output sample rate in Hz")
	cmd.Flags().Float64Var(&seconds, "seconds", 10, "duration to render")
	return cmd
}
