package engine

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v3/pkg/media/ivfreader"
)

// FrameSource supplies encoded VP8 frames for one viewer. Sources are
// per-peer so viewers do not share read positions.
type FrameSource interface {
	// NextFrame returns the next frame payload and its display
	// duration.
	NextFrame() (payload []byte, duration time.Duration, err error)
	// ForceKeyframe makes the source resume from a keyframe, used to
	// answer picture loss indications.
	ForceKeyframe()
	Close() error
}

// newFrameSource opens the configured video file for one peer. Without
// a configured file the peer negotiates but streams nothing.
func (e *Engine) newFrameSource() (FrameSource, error) {
	e.mu.Lock()
	path := e.opts.VideoFile
	e.mu.Unlock()
	if path == "" {
		return nil, nil
	}
	return NewIVFSource(path)
}

// IVFSource loops a VP8 IVF file. The first frame of an IVF file is a
// keyframe, so both end-of-file and ForceKeyframe rewind to the start.
type IVFSource struct {
	path string

	mu            sync.Mutex
	file          *os.File
	reader        *ivfreader.IVFReader
	frameDuration time.Duration
	rewind        bool
}

func NewIVFSource(path string) (*IVFSource, error) {
	s := &IVFSource{path: path}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *IVFSource) open() error {
	file, err := os.Open(s.path)
	if err != nil {
		return err
	}
	reader, header, err := ivfreader.NewWith(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("engine: bad ivf file %s: %w", s.path, err)
	}
	if s.file != nil {
		s.file.Close()
	}
	s.file = file
	s.reader = reader
	s.frameDuration = time.Duration(
		float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second))
	if s.frameDuration <= 0 {
		s.frameDuration = time.Second / 30
	}
	return nil
}

func (s *IVFSource) NextFrame() ([]byte, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil, 0, os.ErrClosed
	}
	if s.rewind {
		s.rewind = false
		if err := s.open(); err != nil {
			return nil, 0, err
		}
	}
	payload, _, err := s.reader.ParseNextFrame()
	if err != nil {
		// Loop the clip.
		if err := s.open(); err != nil {
			return nil, 0, err
		}
		payload, _, err = s.reader.ParseNextFrame()
		if err != nil {
			return nil, 0, err
		}
	}
	return payload, s.frameDuration, nil
}

func (s *IVFSource) ForceKeyframe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewind = true
}

func (s *IVFSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.reader = nil
	return err
}
