/*
 * MIT License
 *
 * Copyright (c) 2022-2022 waj334
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

package mqtt

import (
	"errors"

	"github.com/mqttcore/sansio/mqtt/packets"
	"github.com/mqttcore/sansio/mqtt/packets/primitives"
)

// errIncomplete means the buffered bytes do not yet contain a full frame;
// the caller should wait for the next recv() before trying again.
var errIncomplete = errors.New("mqtt: incomplete frame")

// ErrMalformedFrame is returned when a fixed header advertises a Remaining
// Length that is fully buffered, but the body itself does not parse —
// e.g. a length-prefixed field claiming more bytes than the frame holds.
// Unlike errIncomplete, more recv() calls will never fix this; the frame
// is simply malformed.
var ErrMalformedFrame = errors.New("mqtt: malformed control packet frame")

// decoder incrementally parses MQTT control packets out of a single
// growable byte buffer fed by repeated recv() calls. It never blocks and
// never looks past the bytes it has been given: a frame that isn't fully
// buffered yet is reported as errIncomplete and retried, unmodified, the
// next time bytes arrive.
type decoder struct {
	version packets.Version
	buf     []byte
}

// feed appends newly received bytes to the decode buffer.
func (d *decoder) feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// next attempts to decode a single complete frame from the front of the
// buffer. On success it returns the packet type and the decoded packet
// value (one of the packets.* struct types, or packets.PingReq{} /
// packets.PingResp{} for the header-only packets) and advances past the
// consumed bytes. It returns errIncomplete if the buffer does not yet
// hold a complete frame, leaving the buffer untouched.
func (d *decoder) next() (packets.PacketType, any, error) {
	r := primitives.NewReader(d.buf)
	fh, err := packets.DecodeFixedHeader(r)
	if err != nil {
		if errors.Is(err, primitives.ErrShortBuffer) {
			return 0, nil, errIncomplete
		}
		return 0, nil, err
	}

	headerSize := r.Pos()
	frameSize := headerSize + int(fh.Remaining)
	if len(d.buf) < frameSize {
		return 0, nil, errIncomplete
	}

	body := primitives.NewReader(d.buf[headerSize:frameSize])
	pkt, decodeErr := d.dispatch(fh, body)
	d.buf = d.buf[frameSize:]

	if decodeErr != nil {
		// The body reader is bounded to exactly fh.Remaining bytes, which
		// are already fully buffered, so a short-buffer error here means
		// a length-prefixed field inside the body lied about its size,
		// not that more bytes are coming.
		if errors.Is(decodeErr, primitives.ErrShortBuffer) {
			return fh.GetType(), nil, ErrMalformedFrame
		}
		return fh.GetType(), nil, decodeErr
	}
	return fh.GetType(), pkt, nil
}

func (d *decoder) dispatch(fh packets.FixedHeader, r *primitives.Reader) (any, error) {
	switch fh.GetType() {
	case packets.CONNECT:
		return packets.DecodeConnect(fh, r)
	case packets.CONNACK:
		return packets.DecodeConnack(fh, d.version, r)
	case packets.PUBLISH:
		return packets.DecodePublish(fh, d.version, r)
	case packets.PUBACK, packets.PUBREC, packets.PUBREL, packets.PUBCOMP:
		return packets.DecodePubAck(fh, fh.GetType(), d.version, r)
	case packets.SUBSCRIBE:
		return packets.DecodeSubscribe(fh, d.version, r)
	case packets.SUBACK:
		return packets.DecodeSuback(fh, d.version, r)
	case packets.UNSUBSCRIBE:
		return packets.DecodeUnsubscribe(fh, d.version, r)
	case packets.UNSUBACK:
		return packets.DecodeUnsuback(fh, d.version, r)
	case packets.PINGREQ:
		return packets.PingReq{}, nil
	case packets.PINGRESP:
		return packets.PingResp{}, nil
	case packets.DISCONNECT:
		return packets.DecodeDisconnect(fh, d.version, r)
	case packets.AUTH:
		if d.version != packets.Version5 {
			return nil, ErrMalformedFrame
		}
		return packets.DecodeAuth(fh, r)
	default:
		return nil, ErrMalformedFrame
	}
}
