package bridge

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
)

// maxFrameSize bounds a single frame body, guarding against a misbehaving
// or hostile peer claiming an absurd length prefix.
const maxFrameSize = 256 << 20 // 256 MiB

// WriteFrame encodes v with gob and writes it as one length-prefixed frame.
// The length prefix is a framing concern only; it says nothing about the
// codec the caller's own Payload bytes are encoded with (§4.4).
func WriteFrame(w io.Writer, v any) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(v); err != nil {
		return isolateerrors.NewProtocolFault("encoding a frame", err)
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(body.Len()))
	if _, err := w.Write(header[:]); err != nil {
		return isolateerrors.NewProtocolFault("writing a frame length prefix", err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return isolateerrors.NewProtocolFault("writing a frame body", err)
	}
	return nil
}

// ReadFrame reads exactly one length-prefixed frame and gob-decodes it
// into v. io.EOF on the very first read (no bytes of a length prefix at
// all) is returned unwrapped so callers can distinguish "peer closed
// cleanly before any frame" from a mid-frame protocol violation.
func ReadFrame(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return isolateerrors.NewProtocolFault("reading a frame length prefix", err)
	}

	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return isolateerrors.NewProtocolFault("reading a frame body", io.ErrShortBuffer)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return isolateerrors.NewProtocolFault("reading a frame body", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil {
		return isolateerrors.NewProtocolFault("decoding a frame", err)
	}
	return nil
}
