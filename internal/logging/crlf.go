package logging

import (
	"bytes"
	"io"
)

var crlf = []byte("\r\n")

type crlfWriter struct {
	w io.Writer
}

// NewCRLFWriter returns a writer that expands every "\n" to "\r\n".
// Input that already carries "\r\n" gets a doubled "\r".
func NewCRLFWriter(w io.Writer) io.Writer {
	return crlfWriter{w: w}
}

// Write reports len(p) on success, not the expanded byte count.
func (c crlfWriter) Write(p []byte) (int, error) {
	n := 0
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			m, err := c.w.Write(p)
			return n + m, err
		}
		if i > 0 {
			m, err := c.w.Write(p[:i])
			n += m
			if err != nil {
				return n, err
			}
		}
		if _, err := c.w.Write(crlf); err != nil {
			return n, err
		}
		n++
		p = p[i+1:]
	}
	return n, nil
}
