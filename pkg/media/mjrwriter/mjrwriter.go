// Package mjrwriter records raw RTP streams in the MJR container used
// by the engine's debug capture mode. One file holds one stream.
package mjrwriter

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"time"

	"github.com/pion/rtp"

	json "github.com/openviz/renderboard/pkg/json"
)

var ErrNotOpen = errors.New("mjrwriter: writer not open")

// Media selects the stream kind stored in the file header.
type Media uint

const (
	Audio Media = iota
	Video
	Data
)

var mediaCodecs = map[Media][2]string{
	Audio: {"a", "opus"},
	Video: {"v", "vp8"},
	Data:  {"d", "binary"},
}

const (
	fileMagic  = "MJR00002"
	frameMagic = "MEET"
)

// Writer writes one MJR stream. The file header is emitted lazily on
// the first packet so its first-packet timestamp is accurate.
type Writer struct {
	out         io.Writer
	media       Media
	wroteHeader bool
	createdUS   int64
}

// New creates the file and a Writer for it.
func New(path string, m Media) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWith(f, m)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// NewWith wraps an existing output. The caller keeps ownership of out
// unless it is an io.Closer, which Close will close.
func NewWith(out io.Writer, m Media) (*Writer, error) {
	if out == nil {
		return nil, ErrNotOpen
	}
	return &Writer{
		out:       out,
		media:     m,
		createdUS: time.Now().UnixNano() / 1000,
	}, nil
}

type fileHeader struct {
	TypeMedia       string `json:"t"`
	Codec           string `json:"c"`
	CreatedTime     int64  `json:"s"`
	FirstPacketTime int64  `json:"u"`
}

func (w *Writer) writeHeader() error {
	header := make([]byte, 10)
	copy(header, fileMagic)

	meta, err := json.Marshal(fileHeader{
		TypeMedia:       mediaCodecs[w.media][0],
		Codec:           mediaCodecs[w.media][1],
		CreatedTime:     w.createdUS,
		FirstPacketTime: time.Now().UnixNano() / 1000,
	})
	if err != nil {
		return err
	}

	binary.BigEndian.PutUint16(header[8:], uint16(len(meta)))
	if _, err := w.out.Write(append(header, meta...)); err != nil {
		return err
	}
	w.wroteHeader = true
	return nil
}

// WriteRTP appends one packet, preceded by a MEET frame header carrying
// the elapsed time since the file was created.
func (w *Writer) WriteRTP(packet *rtp.Packet) error {
	if w.out == nil {
		return ErrNotOpen
	}
	if !w.wroteHeader {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}

	packetHeader, err := packet.Header.Marshal()
	if err != nil {
		return err
	}

	frame := make([]byte, 10)
	copy(frame, frameMagic)
	elapsedUS := time.Now().UnixNano()/1000 - w.createdUS
	binary.BigEndian.PutUint32(frame[4:], uint32(elapsedUS))
	binary.BigEndian.PutUint16(frame[8:], uint16(len(packetHeader)+len(packet.Payload)))

	if _, err := w.out.Write(frame); err != nil {
		return err
	}
	if _, err := w.out.Write(packetHeader); err != nil {
		return err
	}
	_, err = w.out.Write(packet.Payload)
	return err
}

// Close closes the underlying output if it is closable. Further writes
// return ErrNotOpen.
func (w *Writer) Close() error {
	if w.out == nil {
		return nil
	}
	defer func() { w.out = nil }()
	if closer, ok := w.out.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
