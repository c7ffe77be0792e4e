package cmd

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"flow-player/pkg/mpeg"
)

func init() {
	rootCmd.AddCommand(thumbnailCmd)
	thumbnailCmd.Flags().StringP("output", "o", "", "Output image, .png or .jpg (default <file>.png)")
	thumbnailCmd.Flags().Float64("at", 0.25, "Position as a fraction of the duration")
	thumbnailCmd.Flags().Int("size", 320, "Longest side in pixels, 0 keeps the native size")
}

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail <file>",
	Short: "Render a frame of a video file to an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		flags := cmd.Flags()
		out := lo.Must(flags.GetString("output"))
		if out == "" {
			out = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".png"
		}
		at := lo.Must(flags.GetFloat64("at"))
		if at < 0 || at > 1 || math.IsNaN(at) {
			return fmt.Errorf("--at %v: want a fraction between 0 and 1", at)
		}

		d := mpeg.NewDecoder(newBackend(), logrus.WithField("component", "thumbnail"))
		defer d.Close()
		if !d.Open(path) {
			return fmt.Errorf("open %s: %w", path, mpeg.ErrNotSupported)
		}
		if !d.InitStreams(-1, -1, cfg.Video.AllowHardware, true) {
			return fmt.Errorf("%s: %w", path, mpeg.ErrNoVideo)
		}
		if !d.Info().HasVideo {
			return fmt.Errorf("%s: %w", path, mpeg.ErrNoVideo)
		}

		const den = 10000
		img, err := d.ExtractThumbnail(int64(math.Round(at*den)), den, lo.Must(flags.GetInt("size")))
		if err != nil {
			if errors.Is(err, mpeg.ErrNoFrame) {
				return fmt.Errorf("no frame at %.0f%% of %s", at*100, path)
			}
			return err
		}
		if err := mpeg.WriteImage(afero.NewOsFs(), out, img); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}
