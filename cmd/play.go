package cmd

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/veandco/go-sdl2/sdl"

	"flow-player/pkg/audio"
	"flow-player/pkg/audio/sdldevice"
	"flow-player/pkg/history"
	"flow-player/pkg/mpeg/ffmpeg"
	"flow-player/pkg/playback"
	"flow-player/pkg/settings"
	"flow-player/screens/root"
	"flow-player/screens/videoPlayer"
)

func init() {
	rootCmd.AddCommand(playCmd)
	f := playCmd.Flags()
	f.Float64("start", 0, "Start position in seconds, ignored within 2s of either end")
	f.Bool("paused", false, "Open paused on the first frame")
	f.Int("video-track", -1, "Video stream to play, counted among video streams")
	f.Int("audio-track", -1, "Audio stream to play, counted among audio streams")
	f.String("device", "", "Audio output device (see devices)")
	f.Bool("no-visualizer", false, "Disable the spectrum visualizer")
	f.Bool("loop", false, "Restart at the end")
	f.Bool("exit-on-end", false, "Quit at the end")
	f.Bool("window", false, "Run in a window instead of fullscreen")
	f.String("capture-dir", ".", "Directory for frame captures (key C)")
	f.Float64("seek-step", 5, "Arrow key seek in seconds")
	f.Int("memory-limit", 0, "Go heap limit in MiB, 0 for none")
	f.Bool("resume", true, "Continue where the file was left last time")
}

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a media file",
	Long: "Play a media file.\n\nKeys: space pause, left/right seek (hold to scrub), up/down volume,\n" +
		"M mute, C capture frame, A audio output, Q or Esc quit.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		path := args[0]
		limitMemory(lo.Must(f.GetInt("memory-limit")))

		if f.Changed("device") {
			cfg.Audio.Device = lo.Must(f.GetString("device"))
		}
		if lo.Must(f.GetBool("no-visualizer")) {
			cfg.Visualizer = false
		}

		if err := initializeSDL2(); err != nil {
			return err
		}
		defer sdl.Quit()

		if dev, ok := audio.MatchDevice(cfg.Audio.Device, sdldevice.Devices()); ok {
			cfg.Audio.Device = dev
		} else {
			logrus.WithField("device", cfg.Audio.Device).Warn("audio device not found, using default")
			cfg.Audio.Device = ""
		}

		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		window, err := createWindow(title+" - flow-player", !lo.Must(f.GetBool("window")))
		if err != nil {
			return err
		}
		defer window.Destroy()
		renderer, err := createRenderer(window)
		if err != nil {
			return err
		}
		defer renderer.Destroy()

		host := videoPlayer.NewHost(logrus.WithField("component", "host"))
		player := playback.NewPlayer(playback.Config{
			Backend:      newBackend(),
			Host:         host,
			OpenDevice:   sdldevice.Open,
			NewResampler: func() playback.Resampler { return ffmpeg.NewResampler() },
			DeviceID:     cfg.Audio.Device,
			Format:       cfg.Format(),
			Visualizer:   cfg.Visualizer,
			Log:          logrus.WithField("component", "player"),
		})
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		player.Start(ctx)
		defer func() {
			if err := player.Shutdown(); err != nil {
				logrus.WithError(err).Error("player stopped with error")
			}
		}()

		rs := root.NewRootScreen(window, renderer, player, host, videoPlayer.Options{
			Loop:       lo.Must(f.GetBool("loop")),
			ExitOnEnd:  lo.Must(f.GetBool("exit-on-end")),
			SeekStep:   lo.Must(f.GetFloat64("seek-step")),
			CaptureDir: lo.Must(f.GetString("capture-dir")),
			Devices:    sdldevice.Devices,
		})
		defer rs.Close()

		opts := playback.DefaultOpenOptions()
		opts.AutoPlay = !lo.Must(f.GetBool("paused"))
		opts.VideoTrack = lo.Must(f.GetInt("video-track"))
		opts.AudioTrack = lo.Must(f.GetInt("audio-track"))
		opts.AllowHW = cfg.Video.AllowHardware
		start := lo.Must(f.GetFloat64("start"))
		resume := lo.Must(f.GetBool("resume"))
		hist := history.Open(afero.NewOsFs(), history.DefaultPath(settings.Name))
		if !f.Changed("start") && resume {
			if pos, ok := hist.Position(path); ok {
				logrus.WithField("position", pos).Info("resuming")
				start = pos
			}
		}
		opts.UseLastPosition = start > 0

		rs.Open(playback.Item{Path: path, Title: title, LastPosition: start}, opts)
		player.SetVolume(cfg.Audio.Volume)
		player.SetMuted(cfg.Audio.Muted)

		err = runGameLoop(rs)
		if s := rs.Session(); s != nil && resume {
			if herr := hist.Remember(path, s.Position(player.Now()), s.EndTime()); herr != nil {
				logrus.WithError(herr).Warn("could not save position")
			}
		}
		return err
	},
}
