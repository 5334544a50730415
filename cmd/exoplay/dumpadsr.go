package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exotracker/audio/internal/adsr"
)

func newDumpAdsrCmd() *cobra.Command {
	var attack, decay, sustain, decay2 int
	var endTime uint32

	cmd := &cobra.Command{
		Use:   "dump-adsr",
		Short: "print an ADSR envelope's stairstep points",
		RunE: func(cmd *cobra.Command, args []string) error {
			points := adsr.Simulate(adsr.Params{
				Attack:     uint8(attack),
				Decay:      uint8(decay),
				SustainLvl: uint8(sustain),
				Decay2:     uint8(decay2),
			}, endTime)

			for _, p := range points {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", p.Time, p.Level)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&attack, "attack", 0xF, "attack rate (0-15)")
	cmd.Flags().IntVar(&decay, "decay", 0, "decay rate (0-7)")
	cmd.Flags().IntVar(&sustain, "sustain", 7, "sustain level (0-7)")
	cmd.Flags().IntVar(&decay2, "decay2", 0, "decay2/release rate (0-31)")
	cmd.Flags().Uint32Var(&endTime, "end-time", 32000, "simulation horizon in samples")
	return cmd
}
