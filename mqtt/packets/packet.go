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

// Package packets implements the MQTT v3.1.1 and v5.0 wire format: fixed
// header, properties and the individual control packet bodies. It performs
// no I/O of its own; every packet type knows how to measure, encode into a
// primitives.ScatterWriter and decode from a primitives.Reader.
package packets

import (
	"errors"

	"github.com/mqttcore/sansio/mqtt/packets/primitives"
)

type (
	PacketType           byte
	QoS                  byte
	RetainHandlingOption byte
	Version              byte
)

const (
	Version311 Version = 4
	Version5   Version = 5
)

const (
	QoS0 QoS = 0
	QoS1 QoS = 1
	QoS2 QoS = 2

	SendAtTimeOfSubscribe       RetainHandlingOption = 0
	SendAtTimeOfUniqueSubscribe RetainHandlingOption = 1
	DoNotSendRetainedMessages   RetainHandlingOption = 2
)

const (
	// CONNECT - Connection request
	CONNECT PacketType = iota + 1

	// CONNACK - Connect acknowledgment
	CONNACK

	// PUBLISH - Publish message
	PUBLISH

	// PUBACK - Publish acknowledgment (QoS 1)
	PUBACK

	// PUBREC - Publish received (QoS 2 delivery part 1)
	PUBREC

	// PUBREL - Publish release (QoS 2 delivery part 2)
	PUBREL

	// PUBCOMP - Publish complete (QoS 2 delivery part 3)
	PUBCOMP

	// SUBSCRIBE - Subscribe request
	SUBSCRIBE

	// SUBACK - Subscribe Acknowledgement
	SUBACK

	// UNSUBSCRIBE - Unsubscribe request
	UNSUBSCRIBE

	// UNSUBACK - Unsubscribe acknowledgment
	UNSUBACK

	// PINGREQ - PING request
	PINGREQ

	// PINGRESP - PING response
	PINGRESP

	// DISCONNECT - Disconnect notification
	DISCONNECT

	// AUTH - Authentication exchange
	AUTH
)

func (t PacketType) String() string {
	switch t {
	case CONNECT:
		return "CONNECT"
	case CONNACK:
		return "CONNACK"
	case PUBLISH:
		return "PUBLISH"
	case PUBACK:
		return "PUBACK"
	case PUBREC:
		return "PUBREC"
	case PUBREL:
		return "PUBREL"
	case PUBCOMP:
		return "PUBCOMP"
	case SUBSCRIBE:
		return "SUBSCRIBE"
	case SUBACK:
		return "SUBACK"
	case UNSUBSCRIBE:
		return "UNSUBSCRIBE"
	case UNSUBACK:
		return "UNSUBACK"
	case PINGREQ:
		return "PINGREQ"
	case PINGRESP:
		return "PINGRESP"
	case DISCONNECT:
		return "DISCONNECT"
	case AUTH:
		return "AUTH"
	default:
		return "UNKNOWN"
	}
}

// ErrMalformedHeader is returned when a PUBLISH fixed header carries the
// reserved QoS value 3, or when a CONNECT's protocol name is not "MQTT".
var ErrMalformedHeader = errors.New("packets: malformed fixed header")

// FixedHeader is the first one-to-five bytes of every MQTT control packet:
// a type+flags byte followed by the Remaining Length variable byte integer.
type FixedHeader struct {
	Header    byte
	Remaining uint32
}

func (f *FixedHeader) SetType(packetType PacketType) {
	f.Header = (f.Header & 0x0F) | byte(packetType<<4)
}

func (f *FixedHeader) GetType() PacketType {
	return PacketType(f.Header >> 4)
}

func (f *FixedHeader) SetFlags(flags byte) {
	f.Header = (f.Header & 0xF0) | (flags & 0x0F)
}

func (f *FixedHeader) GetFlags() byte {
	return f.Header & 0x0F
}

// EncodedSize returns the size of the fixed header itself (not including
// the Remaining bytes it describes).
func (f *FixedHeader) EncodedSize() int {
	return 1 + primitives.VarIntSize(f.Remaining)
}

// AppendTo writes the fixed header.
func (f *FixedHeader) AppendTo(w *primitives.ScatterWriter) error {
	if err := w.WriteByte(f.Header); err != nil {
		return err
	}
	return primitives.AppendVarInt(w, f.Remaining)
}

// DecodeFixedHeader reads a fixed header from r. It returns
// primitives.ErrShortBuffer if r does not yet contain a complete header,
// which a stream decoder treats as "wait for more bytes".
func DecodeFixedHeader(r *primitives.Reader) (FixedHeader, error) {
	var f FixedHeader
	b, err := r.Byte()
	if err != nil {
		return f, err
	}
	f.Header = b
	remaining, err := primitives.DecodeVarInt(r)
	if err != nil {
		return f, err
	}
	f.Remaining = remaining
	return f, nil
}
