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

package packets

import (
	"errors"

	"github.com/mqttcore/sansio/mqtt/packets/primitives"
)

// ErrControlPacketIsMalformed is returned by a packet builder when field
// combinations violate the wire-format invariants (e.g. a zero-length
// topic with no Topic Alias).
var ErrControlPacketIsMalformed = errors.New("packets: control packet is malformed")

// Publish is the PUBLISH control packet.
type Publish struct {
	Version   Version
	Retain    bool
	QoS       QoS
	Duplicate bool

	Topic    string
	PacketID uint16

	Payload []byte

	Properties Properties

	// TopicNameExtracted is set by the Connection when Topic was restored
	// from a TopicAlias mapping rather than carried on the wire; it is
	// never set by AppendTo/Decode themselves.
	TopicNameExtracted bool
}

// SetTopic sets the topic name.
func (p *Publish) SetTopic(topic string) *Publish { p.Topic = topic; return p }

// SetPayload sets the application payload.
func (p *Publish) SetPayload(payload []byte) *Publish { p.Payload = payload; return p }

// SetQoS sets the delivery QoS level.
func (p *Publish) SetQoS(qos QoS) *Publish { p.QoS = qos; return p }

// SetPacketID sets the packet identifier. Required (and only legal) for
// QoS 1/2.
func (p *Publish) SetPacketID(id uint16) *Publish { p.PacketID = id; return p }

// Validate enforces the structural invariants a builder must satisfy
// before encoding: SPEC [MQTT-3.3.2-1]/[MQTT-3.3.2-8] require a non-empty
// topic unless a Topic Alias is present, and QoS 0 PUBLISH carries no
// packet identifier.
func (p *Publish) Validate() error {
	_, hasAlias := p.Properties.GetUint16(PropTopicAlias)
	if p.Topic == "" && !hasAlias {
		return ErrControlPacketIsMalformed
	}
	if p.QoS == QoS0 && p.PacketID != 0 {
		return ErrControlPacketIsMalformed
	}
	if p.QoS != QoS0 && p.PacketID == 0 {
		return ErrControlPacketIsMalformed
	}
	return nil
}

func (p *Publish) flags() byte {
	var flags byte
	if p.Retain {
		flags |= 1 << 0
	}
	flags |= byte(p.QoS) << 1
	if p.Duplicate {
		flags |= 1 << 3
	}
	return flags
}

func (p *Publish) bodySize() int {
	size := primitives.StringSize(p.Topic)
	if p.QoS != QoS0 {
		size += 2
	}
	if p.Version == Version5 {
		propsLen := p.Properties.EncodedLen()
		size += primitives.VarIntSize(uint32(propsLen)) + propsLen
	}
	size += len(p.Payload)
	return size
}

// EncodedSize returns the total encoded size, including the fixed header.
func (p *Publish) EncodedSize() int {
	body := p.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	return fh.EncodedSize() + body
}

// AppendTo encodes the packet. The payload is appended as its own scatter
// buffer (WriteRaw) so a vectored write need not copy it.
func (p *Publish) AppendTo(w *primitives.ScatterWriter) error {
	if err := p.Validate(); err != nil {
		return err
	}
	body := p.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	fh.SetType(PUBLISH)
	fh.SetFlags(p.flags())
	if err := fh.AppendTo(w); err != nil {
		return err
	}
	if err := primitives.AppendString(w, p.Topic); err != nil {
		return err
	}
	if p.QoS != QoS0 {
		if err := primitives.AppendUint16(w, p.PacketID); err != nil {
			return err
		}
	}
	if p.Version == Version5 {
		if err := p.Properties.AppendTo(w); err != nil {
			return err
		}
	}
	if len(p.Payload) > 0 {
		w.WriteRaw(p.Payload)
	}
	return nil
}

// DecodePublish parses a PUBLISH body. fh.Remaining bytes must already be
// buffered in r.
func DecodePublish(fh FixedHeader, version Version, r *primitives.Reader) (Publish, error) {
	p := Publish{Version: version}
	p.Retain = fh.GetFlags()&0x01 != 0
	p.QoS = QoS((fh.GetFlags() >> 1) & 0x03)
	p.Duplicate = (fh.GetFlags()>>3)&0x01 != 0
	if p.QoS > QoS2 {
		return p, ErrMalformedHeader
	}

	bodyEnd := r.Pos() + int(fh.Remaining)

	topic, err := primitives.DecodeString(r)
	if err != nil {
		return p, err
	}
	p.Topic = topic

	if p.QoS != QoS0 {
		p.PacketID, err = primitives.DecodeUint16(r)
		if err != nil {
			return p, err
		}
	}

	if version == Version5 {
		p.Properties, err = DecodeProperties(r, AllowedPublish)
		if err != nil {
			return p, err
		}
	}

	payloadLen := bodyEnd - r.Pos()
	if payloadLen < 0 {
		return p, ErrControlPacketIsMalformed
	}
	if payloadLen > 0 {
		payload, err := r.Bytes(payloadLen)
		if err != nil {
			return p, err
		}
		p.Payload = make([]byte, payloadLen)
		copy(p.Payload, payload)
	}

	return p, nil
}
