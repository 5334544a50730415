// exoplay is the demonstration host for the audio core: it streams a
// document to the default audio device, renders it offline to WAV, or
// dumps ADSR envelope curves, exercising the core's render path and
// ADSR simulator without any GUI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "exoplay",
		Short:         "chiptune tracker audio-core demo host",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newPlayCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newDumpAdsrCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
