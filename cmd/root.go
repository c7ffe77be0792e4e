// Package cmd implements the flow-player command line.
package cmd

import (
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"flow-player/pkg/logging"
	"flow-player/pkg/mpeg/ffmpeg"
	"flow-player/pkg/settings"
)

// cfg is loaded before any command runs.
var cfg settings.Settings

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON")
	rootCmd.PersistentFlags().Bool("software", false, "Disable hardware video decoders")
	rootCmd.PersistentFlags().String("decoder", "", "Video decoder to try first")
}

var rootCmd = &cobra.Command{
	Use:           settings.Name,
	Short:         "Play audio and video files with a synced spectrum visualizer",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := settings.Load(afero.NewOsFs())
		cfg = loaded
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.Log.Level = lo.Must(flags.GetString("log-level"))
		}
		if flags.Changed("log-json") {
			cfg.Log.JSON = lo.Must(flags.GetBool("log-json"))
		}
		if lo.Must(flags.GetBool("software")) {
			cfg.Video.AllowHardware = false
		}
		if flags.Changed("decoder") {
			cfg.Video.Decoder = lo.Must(flags.GetString("decoder"))
		}
		logging.Setup(cfg.Log.Level, cfg.Log.JSON, os.Stderr)
		if err != nil {
			logrus.WithError(err).Warn("using default settings")
		}
		return nil
	},
}

// newBackend builds the FFmpeg backend from the loaded settings.
func newBackend() *ffmpeg.Backend {
	return ffmpeg.New(ffmpeg.Options{
		Decoder:       cfg.Video.Decoder,
		ForceSoftware: !cfg.Video.AllowHardware,
	})
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	cc.Init(&cc.Config{
		RootCmd:       rootCmd,
		Headings:      cc.HiCyan + cc.Bold + cc.Underline,
		Commands:      cc.HiYellow + cc.Bold,
		Example:       cc.Italic,
		ExecName:      cc.Bold,
		Flags:         cc.Bold,
		FlagsDataType: cc.Italic + cc.HiBlue,
	})
	if err := rootCmd.Execute(); err != nil {
		handleErr(err)
	}
}

func handleErr(err error) {
	if err != nil {
		logrus.WithError(err).Debug("command failed")
		_, _ = fmt.Fprintf(os.Stderr, "%s: %s\n", settings.Name, strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
