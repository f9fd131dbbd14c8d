// Package webmsaver finalizes captured VP8/Opus streams into a WebM
// file. Timestamps are supplied by the caller as stream time.
package webmsaver

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/at-wat/ebml-go/webm"
)

var ErrClosed = errors.New("webmsaver: saver closed")

// Saver muxes one video and one audio stream into WebM.
type Saver struct {
	out   io.WriteCloser
	audio webm.BlockWriteCloser
	video webm.BlockWriteCloser
}

// New creates the file and the underlying block writers.
func New(path string, width, height int) (*Saver, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s, err := NewWith(f, width, height)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// NewWith writes the WebM into out. Close finalizes the container and
// closes out.
func NewWith(out io.WriteCloser, width, height int) (*Saver, error) {
	writers, err := webm.NewSimpleBlockWriter(out, []webm.TrackEntry{
		{
			Name:        "Audio",
			TrackNumber: 1,
			TrackUID:    1,
			CodecID:     "A_OPUS",
			TrackType:   2,
			Audio: &webm.Audio{
				SamplingFrequency: 48000.0,
				Channels:          2,
			},
		},
		{
			Name:        "Video",
			TrackNumber: 2,
			TrackUID:    2,
			CodecID:     "V_VP8",
			TrackType:   1,
			Video: &webm.Video{
				PixelWidth:  uint64(width),
				PixelHeight: uint64(height),
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Saver{out: out, audio: writers[0], video: writers[1]}, nil
}

// WriteVideo appends one VP8 frame at the given stream time.
func (s *Saver) WriteVideo(keyframe bool, t time.Duration, payload []byte) error {
	if s.video == nil {
		return ErrClosed
	}
	_, err := s.video.Write(keyframe, t.Milliseconds(), payload)
	return err
}

// WriteAudio appends one Opus frame at the given stream time.
func (s *Saver) WriteAudio(t time.Duration, payload []byte) error {
	if s.audio == nil {
		return ErrClosed
	}
	_, err := s.audio.Write(true, t.Milliseconds(), payload)
	return err
}

// Close finalizes both tracks. The block writers own the output, so
// closing them also closes the file.
func (s *Saver) Close() error {
	if s.video == nil && s.audio == nil {
		return nil
	}
	var firstErr error
	if s.audio != nil {
		if err := s.audio.Close(); err != nil {
			firstErr = err
		}
		s.audio = nil
	}
	if s.video != nil {
		if err := s.video.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.video = nil
	}
	return firstErr
}
