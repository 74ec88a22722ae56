/*
 * MIT License
 *
 * Copyright (c) 2022 waj334
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package primitives implements the wire-level building blocks of the MQTT
// encoding (variable byte integers, big-endian integers, UTF-8 strings and
// binary blobs) over plain byte slices rather than io.Reader/io.Writer, so
// that decoding never blocks waiting on more bytes than are currently
// buffered.
package primitives

import "errors"

// ErrShortBuffer indicates a Reader ran out of bytes before a complete
// value could be decoded. A restartable stream decoder treats it as
// "buffer more bytes and retry" while reading a fixed header; inside a
// frame body that is already fully buffered it means a length-prefixed
// field overran the frame, which the decoder reports as malformed.
var ErrShortBuffer = errors.New("primitives: short buffer")

// Reader is a forward-only cursor over a byte slice.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of unread bytes left in the buffer.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, ErrShortBuffer
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// Bytes reads and returns the next n bytes without copying them.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ScatterWriter accumulates encoded bytes while keeping large payloads as
// distinct slices, so a host can hand the result to a vectored write
// (net.Buffers) instead of copying every PUBLISH payload into one buffer.
type ScatterWriter struct {
	bufs [][]byte
	cur  []byte
}

// WriteByte appends a single byte to the current contiguous run.
func (w *ScatterWriter) WriteByte(b byte) error {
	w.cur = append(w.cur, b)
	return nil
}

// Write appends p to the current contiguous run.
func (w *ScatterWriter) Write(p []byte) (int, error) {
	w.cur = append(w.cur, p...)
	return len(p), nil
}

// WriteRaw appends p as its own scatter buffer without copying it,
// flushing any pending contiguous bytes first. Used for PUBLISH payloads
// and other caller-owned byte slices that should not be duplicated.
func (w *ScatterWriter) WriteRaw(p []byte) {
	w.flush()
	if len(p) > 0 {
		w.bufs = append(w.bufs, p)
	}
}

// Append flushes other and appends its buffers to w, in order.
func (w *ScatterWriter) Append(other *ScatterWriter) {
	w.flush()
	w.bufs = append(w.bufs, other.Buffers()...)
}

func (w *ScatterWriter) flush() {
	if len(w.cur) > 0 {
		w.bufs = append(w.bufs, w.cur)
		w.cur = nil
	}
}

// Buffers flushes any pending contiguous bytes and returns the full
// ordered list of scatter buffers.
func (w *ScatterWriter) Buffers() [][]byte {
	w.flush()
	if w.bufs == nil {
		return [][]byte{}
	}
	return w.bufs
}

// Len returns the total encoded size across all buffers written so far.
func (w *ScatterWriter) Len() int {
	n := len(w.cur)
	for _, b := range w.bufs {
		n += len(b)
	}
	return n
}
