package main

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/spf13/cobra"

	"github.com/exotracker/audio/internal/synth"
	"github.com/exotracker/audio/internal/warning"
)

// synthReader adapts OverallSynth.Render to oto's pull model: each
// Read renders exactly the requested span as little-endian int16.
type synthReader struct {
	synth    *synth.OverallSynth
	frameBuf []int16
}

func (r *synthReader) Read(p []byte) (int, error) {
	nsamples := len(p) / 2
	if len(r.frameBuf) < nsamples {
		r.frameBuf = make([]int16, nsamples)
	}
	buf := r.frameBuf[:nsamples]
	r.synth.Render(buf)
	for i, s := range buf {
		p[2*i] = byte(s)
		p[2*i+1] = byte(s >> 8)
	}
	return nsamples * 2, nil
}

func newPlayCmd() *cobra.Command {
	var sampleRate int
	var seconds float64

	cmd := &cobra.Command{
		Use:   "play <doc.json>",
		Short: "stream a document to the default audio device",
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

			ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
				SampleRate:   sampleRate,
				ChannelCount: 2,
				Format:       oto.FormatSignedInt16LE,
			})
			if err != nil {
				return fmt.Errorf("opening audio device: %w", err)
			}
			<-ready

			player := ctx.NewPlayer(&synthReader{synth: overall})
			player.Play()
			defer player.Close()

			time.Sleep(time.Duration(seconds * float64(time.Second)))

			for _, w := range warnings.Items() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", w.Kind, w.Detail)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&sampleRate, "rate", 48000, "output sample rate in Hz")
	cmd.Flags().Float64Var(&seconds, "seconds", 10, "how long to play before exiting")
	return cmd
}
