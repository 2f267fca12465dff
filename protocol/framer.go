/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

// MaxRecordSize bounds a single line. Snapshots of a full canvas are the
// largest records and stay well below it.
const MaxRecordSize = 8 << 20

const (
	recordSep  = '\n'
	commandSep = ":"
)

// Frame encodes a command as a single newline-terminated record. Newlines in
// the payload are replaced by spaces.
func Frame(c Command) []byte {
	payload := c.Payload
	if strings.ContainsAny(payload, "\r\n") {
		payload = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(payload)
	}

	name := c.Kind.String()
	buf := make([]byte, 0, len(name)+len(payload)+2)
	buf = append(buf, name...)
	buf = append(buf, commandSep...)
	buf = append(buf, payload...)
	return append(buf, recordSep)
}

// Framer splits an inbound byte stream into commands. It is not safe for
// concurrent use; one Framer serves one connection.
type Framer struct {
	// OnDrop, if set, is called for every record that is discarded.
	OnDrop func(line string, err error)

	buf      []byte
	skipping bool
}

func NewFramer() *Framer {
	return &Framer{}
}

// Feed appends data to the stream and returns every command completed by
// it, in order. A trailing partial line is kept for the next call.
func (f *Framer) Feed(data []byte) []Command {
	var out []Command

	for len(data) > 0 {
		i := bytes.IndexByte(data, recordSep)
		if i < 0 {
			f.buffer(data)
			break
		}

		chunk := data[:i]
		data = data[i+1:]

		if f.skipping {
			f.skipping = false
			f.buf = f.buf[:0]
			continue
		}

		line := chunk
		if len(f.buf) > 0 {
			f.buffer(chunk)
			if f.skipping {
				f.skipping = false
				f.buf = f.buf[:0]
				continue
			}
			line = f.buf
		} else if len(chunk) > MaxRecordSize {
			f.drop(string(chunk[:32]), fmt.Errorf("%w: more than %d bytes", ErrRecordTooLarge, MaxRecordSize))
			continue
		}

		if cmd, ok := f.parse(line); ok {
			out = append(out, cmd)
		}
		f.buf = f.buf[:0]
	}

	return out
}

// Reset drops any buffered partial record.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.skipping = false
}

// Buffered returns the number of bytes held for an incomplete record.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

func (f *Framer) buffer(data []byte) {
	if f.skipping {
		return
	}

	if len(f.buf)+len(data) > MaxRecordSize {
		f.drop(string(f.buf[:min(len(f.buf), 32)]), fmt.Errorf("%w: more than %d bytes", ErrRecordTooLarge, MaxRecordSize))
		f.buf = f.buf[:0]
		f.skipping = true
		return
	}

	f.buf = append(f.buf, data...)
}

func (f *Framer) parse(raw []byte) (Command, bool) {
	line := strings.TrimSuffix(string(raw), "\r")
	if line == "" {
		return Command{}, false
	}

	name, payload, found := strings.Cut(line, commandSep)
	if !found {
		f.drop(line, ErrMalformedRecord)
		return Command{}, false
	}

	kind, ok := ParseKind(name)
	if !ok {
		f.drop(line, fmt.Errorf("%w: %q", ErrUnknownCommand, name))
		return Command{}, false
	}

	return Command{Kind: kind, Payload: payload}, true
}

func (f *Framer) drop(line string, err error) {
	if f.OnDrop != nil {
		f.OnDrop(line, err)
	}
}
