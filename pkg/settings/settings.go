package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"flow-player/pkg/audio"
)

const (
	// Name is the config file base name and the environment prefix.
	Name = "flow-player"

	envPrefix = "FLOWPLAYER"
	envFile   = ".env"
)

// Config keys.
const (
	KeyAudioDevice       = "audio.device"
	KeyAudioVolume       = "audio.volume"
	KeyAudioMuted        = "audio.muted"
	KeyAudioSampleRate   = "audio.sample_rate"
	KeyVideoAllowHW      = "video.allow_hardware"
	KeyVideoDecoder      = "video.decoder"
	KeyVisualizerEnabled = "visualizer.enabled"
	KeyLogLevel          = "log.level"
	KeyLogJSON           = "log.json"

	keyForceSoftware = "video.force_software"
)

// Settings represents user-tunable configuration that persists across runs.
type Settings struct {
	Audio      Audio
	Video      Video
	Visualizer bool
	Log        Log
}

type Audio struct {
	// Device is the output device name. Empty selects the system default.
	Device     string
	Volume     float64
	Muted      bool
	SampleRate int
}

type Video struct {
	AllowHardware bool
	// Decoder names a decoder tried before the built-in priority list.
	Decoder string
}

type Log struct {
	Level string
	JSON  bool
}

// Format is the audio output format the settings ask for.
func (s Settings) Format() audio.Format {
	return audio.Format{SampleRate: s.Audio.SampleRate, Channels: audio.DefaultFormat.Channels}
}

var defaults = map[string]any{
	KeyAudioDevice:       "",
	KeyAudioVolume:       1.0,
	KeyAudioMuted:        false,
	KeyAudioSampleRate:   audio.DefaultFormat.SampleRate,
	KeyVideoAllowHW:      true,
	KeyVideoDecoder:      "",
	KeyVisualizerEnabled: true,
	KeyLogLevel:          "info",
	KeyLogJSON:           false,
	keyForceSoftware:     false,
}

// Paths lists the directories searched for the config file, in order.
func Paths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, Name))
	}
	return paths
}

// New returns a viper instance reading from fs with defaults and environment
// bindings in place.
func New(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigName(Name)
	for _, p := range Paths() {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Variables understood before the prefix existed.
	lo.Must0(v.BindEnv(KeyVideoDecoder, envPrefix+"_VIDEO_DECODER", "VIDEO_DECODER"))
	lo.Must0(v.BindEnv(keyForceSoftware, envPrefix+"_VIDEO_FORCE_SOFTWARE", "FORCE_SOFTWARE_DECODER"))

	v.SetTypeByDefaultValue(true)
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	return v
}

// Load reads .env, the config file and the environment. A missing config
// file is not an error; a malformed one is.
func Load(fs afero.Fs) (Settings, error) {
	if err := loadEnv(fs, envFile); err != nil {
		return Settings{}, err
	}
	v := New(fs)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return FromViper(v), fmt.Errorf("settings: %w", err)
		}
	}
	return FromViper(v), nil
}

// FromViper extracts Settings, replacing out-of-range values with defaults.
func FromViper(v *viper.Viper) Settings {
	s := Settings{
		Audio: Audio{
			Device:     v.GetString(KeyAudioDevice),
			Volume:     lo.Clamp(v.GetFloat64(KeyAudioVolume), 0, 1),
			Muted:      v.GetBool(KeyAudioMuted),
			SampleRate: v.GetInt(KeyAudioSampleRate),
		},
		Video: Video{
			AllowHardware: v.GetBool(KeyVideoAllowHW) && !v.GetBool(keyForceSoftware),
			Decoder:       v.GetString(KeyVideoDecoder),
		},
		Visualizer: v.GetBool(KeyVisualizerEnabled),
		Log: Log{
			Level: v.GetString(KeyLogLevel),
			JSON:  v.GetBool(KeyLogJSON),
		},
	}
	if s.Audio.SampleRate <= 0 {
		s.Audio.SampleRate = audio.DefaultFormat.SampleRate
	}
	return s
}

// Save writes s to path on fs. The format follows the file extension.
func Save(fs afero.Fs, path string, s Settings) error {
	v := viper.New()
	v.SetFs(fs)
	v.Set(KeyAudioDevice, s.Audio.Device)
	v.Set(KeyAudioVolume, s.Audio.Volume)
	v.Set(KeyAudioMuted, s.Audio.Muted)
	v.Set(KeyAudioSampleRate, s.Audio.SampleRate)
	v.Set(KeyVideoAllowHW, s.Video.AllowHardware)
	v.Set(KeyVideoDecoder, s.Video.Decoder)
	v.Set(KeyVisualizerEnabled, s.Visualizer)
	v.Set(KeyLogLevel, s.Log.Level)
	v.Set(KeyLogJSON, s.Log.JSON)

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}

// loadEnv exports the variables from a dotenv file that are not already set.
func loadEnv(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("settings: %w", err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("settings: %s: %w", path, err)
	}
	for k, val := range vars {
		if _, ok := os.LookupEnv(k); !ok {
			os.Setenv(k, val)
		}
	}
	return nil
}
