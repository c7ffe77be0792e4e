package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veandco/go-sdl2/sdl"

	"flow-player/pkg/audio/sdldevice"
)

func init() {
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio output devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer sdl.Quit()
		names := sdldevice.Devices()
		if len(names) == 0 {
			return fmt.Errorf("no audio output devices")
		}
		for _, n := range names {
			marker := " "
			if n == cfg.Audio.Device {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, n)
		}
		return nil
	},
}
