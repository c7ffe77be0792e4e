package cmd

import (
	"encoding/json"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"flow-player/pkg/mpeg"
	"flow-player/pkg/video"
)

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().Bool("compact", false, "Print JSON on one line")
	infoCmd.Flags().Bool("advice", false, "Include hardware decoding advice for video streams")
}

type infoOutput struct {
	mpeg.ScanResult
	Advice []video.Advice `json:"advice,omitempty"`
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print streams, timing and tags of a media file as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := newBackend()
		res, err := mpeg.Scan(backend, args[0])
		if err != nil {
			return err
		}

		out := infoOutput{ScanResult: res}
		if lo.Must(cmd.Flags().GetBool("advice")) {
			for _, s := range res.Info.Streams {
				if a, ok := video.Advise(args[0], s, backend.HardwareDecoders(s.CodecID)); ok {
					out.Advice = append(out.Advice, a)
				}
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		if !lo.Must(cmd.Flags().GetBool("compact")) {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(out)
	},
}
