// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/hashicorp/go-hclog"
)

// MessageReader decodes a stream of concatenated LDAP messages, such as a
// capture of the responses sent by a directory over one connection. It is
// not safe for concurrent use.
type MessageReader struct {
	reader  *bufio.Reader
	decoder *Decoder
	logger  hclog.Logger

	messageCount int
	err          error
}

// NewMessageReader creates a MessageReader which decodes each message read
// from r with d.
//
// Options supported: WithLogger (defaults to the decoder's logger)
func NewMessageReader(r io.Reader, d *Decoder, opt ...Option) (*MessageReader, error) {
	const op = "ldapcodec.NewMessageReader"
	if isNil(r) {
		return nil, fmt.Errorf("%s: missing reader: %w", op, ErrInvalidParameter)
	}
	if d == nil {
		return nil, fmt.Errorf("%s: missing decoder: %w", op, ErrInvalidParameter)
	}
	opts := getDecoderOpts(opt...)
	if opts.withLogger == nil {
		opts.withLogger = d.logger
	}
	return &MessageReader{
		reader:  bufio.NewReader(r),
		decoder: d,
		logger:  opts.withLogger,
	}, nil
}

// Next decodes the next message in the stream. It returns io.EOF when the
// stream ends cleanly between messages. A message which can't be decoded
// is reported with its *Error and reading continues with the next message;
// an error framing the stream is returned for every subsequent call.
func (r *MessageReader) Next() (Map, error) {
	const op = "ldapcodec.(MessageReader).Next"
	raw, err := r.nextFrame()
	if err != nil {
		return nil, err
	}
	m, err := r.decoder.Decode(raw)
	if err != nil {
		r.logger.Debug("unable to decode message", "op", op, "message", r.messageCount, "err", err.Error())
		return nil, err
	}
	return m, nil
}

// Err returns the error which ended the stream (io.EOF for a clean end), or
// nil while more messages may be read.
func (r *MessageReader) Err() error {
	return r.err
}

// Count returns the number of messages framed so far
func (r *MessageReader) Count() int {
	return r.messageCount
}

// nextFrame reads the raw bytes of the next BER element
func (r *MessageReader) nextFrame() ([]byte, error) {
	const op = "ldapcodec.(MessageReader).nextFrame"
	if r.err != nil {
		return nil, r.err
	}
	if _, err := r.reader.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			r.err = io.EOF
		} else {
			r.err = fmt.Errorf("%s: %w", op, err)
		}
		return nil, r.err
	}

	var raw bytes.Buffer
	_, _, ok, err := r.readElement(&raw)
	if err == nil && !ok {
		// replay what was consumed so the ber package reports the header it
		// rejects
		consumed := append([]byte(nil), raw.Bytes()...)
		raw.Reset()
		_, err = ber.ReadPacket(io.TeeReader(io.MultiReader(bytes.NewReader(consumed), r.reader), &raw))
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		r.err = newError(op, ErrMalformedMessage, fmt.Sprintf("unable to read message %d: %s", r.messageCount+1, err.Error()), err)
		return nil, r.err
	}
	r.messageCount += 1
	if r.logger.IsDebug() {
		r.logger.Debug("message read", "op", op, "message", r.messageCount, "len", raw.Len())
	}
	return raw.Bytes(), nil
}

// readElement copies one BER element from the stream into raw. Content is
// copied as it arrives, so memory use is bounded by the stream rather than
// by declared lengths. ok is false when a header isn't one ber.ReadPacket
// accepts.
func (r *MessageReader) readElement(raw *bytes.Buffer) (n int, eoc bool, ok bool, err error) {
	head := r.peekHeader()
	hdrLen, constructed, eocIdentifier, length, ok := berHeader(head)
	if !ok {
		return 0, false, false, nil
	}
	if _, err := io.CopyN(raw, r.reader, int64(hdrLen)); err != nil {
		return 0, false, false, err
	}
	if !constructed {
		if ber.MaxPacketLengthBytes > 0 && int64(length) > ber.MaxPacketLengthBytes {
			return 0, false, false, nil
		}
		if _, err := io.CopyN(raw, r.reader, int64(length)); err != nil {
			return 0, false, false, err
		}
		return hdrLen + length, eocIdentifier && length == 0, true, nil
	}
	contentRead := 0
	for {
		if length >= 0 {
			if contentRead == length {
				break
			}
			if contentRead > length {
				return 0, false, false, nil
			}
		}
		childLen, childEOC, ok, err := r.readElement(raw)
		if err != nil || !ok {
			return 0, false, ok, err
		}
		contentRead += childLen
		if childEOC {
			if length < 0 {
				break
			}
			return 0, false, false, nil
		}
	}
	return hdrLen + contentRead, false, true, nil
}

// peekHeader returns the next header's octets without consuming them. It
// doesn't peek past the header, so it never waits on the next element.
func (r *MessageReader) peekHeader() []byte {
	n := 1
	head, err := r.reader.Peek(n)
	if err != nil {
		return head
	}
	if head[0]&0x1f == 0x1f {
		for {
			n++
			if n > 11 {
				return head
			}
			if head, err = r.reader.Peek(n); err != nil {
				return head
			}
			if head[n-1]&0x80 == 0 {
				break
			}
		}
	}
	n++
	if head, err = r.reader.Peek(n); err != nil {
		return head
	}
	if l := head[n-1]; l&0x80 != 0 && l != 0x80 && l != 0xff && int(l&0x7f) <= 8 {
		head, _ = r.reader.Peek(n + int(l&0x7f))
	}
	return head
}
