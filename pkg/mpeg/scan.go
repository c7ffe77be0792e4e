package mpeg

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Tags are the descriptive fields stored inside a media file.
type Tags struct {
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	AlbumArtist string `json:"albumArtist,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Year        int    `json:"year,omitempty"`
	Track       int    `json:"track,omitempty"`
	TrackTotal  int    `json:"trackTotal,omitempty"`
	Disc        int    `json:"disc,omitempty"`
	HasArt      bool   `json:"hasArt"`
	ArtMIME     string `json:"artMime,omitempty"`
}

// ScanResult is what the library index stores for a file.
type ScanResult struct {
	Info MediaInfo `json:"info"`
	Tags Tags      `json:"tags"`
}

// Scan opens path for metadata only: streams are probed but nothing is
// decoded. Tags are optional; a file without them still scans.
func Scan(backend Backend, path string) (ScanResult, error) {
	return ScanFs(backend, afero.NewOsFs(), path)
}

// ScanFs is Scan with the tag reader going through fs.
func ScanFs(backend Backend, fs afero.Fs, path string) (ScanResult, error) {
	log := logrus.WithFields(logrus.Fields{"component": "scan", "path": path})

	d := NewDecoder(backend, log)
	defer d.Close()
	if !d.Open(path) {
		return ScanResult{}, fmt.Errorf("scan %s: open: %w", path, ErrNotSupported)
	}
	if !d.InitStreams(-1, -1, false, false) {
		return ScanResult{}, fmt.Errorf("scan %s: no playable streams: %w", path, ErrNotSupported)
	}

	res := ScanResult{Info: d.Info()}
	tags, err := ReadTags(fs, path)
	if err != nil {
		log.WithError(err).Debug("no tags")
	}
	res.Tags = tags
	if res.Tags.Title == "" {
		res.Tags.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return res, nil
}

// ReadTags reads ID3, MP4, FLAC or OGG tags from the file at path.
func ReadTags(fs afero.Fs, path string) (Tags, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Tags{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Tags{}, err
	}

	t := Tags{
		Title:       m.Title(),
		Artist:      m.Artist(),
		Album:       m.Album(),
		AlbumArtist: m.AlbumArtist(),
		Genre:       m.Genre(),
		Year:        m.Year(),
	}
	t.Track, t.TrackTotal = m.Track()
	t.Disc, _ = m.Disc()
	if pic := m.Picture(); pic != nil {
		t.HasArt = true
		t.ArtMIME = pic.MIMEType
	}
	return t, nil
}
