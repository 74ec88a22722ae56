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
	"github.com/mqttcore/sansio/mqtt/packets/primitives"
)

// PubAck is the shared body shape of PUBACK, PUBREC, PUBREL and PUBCOMP:
// packet identifier, optional reason code, optional v5 properties. SPEC:
// the Reason Code and Property Length can both be omitted when the
// Reason Code is 0x00 (Success) and there are no properties, in which
// case Remaining Length is 2.
type PubAck struct {
	Type       PacketType
	Version    Version
	PacketID   uint16
	ReasonCode byte
	Properties Properties
}

// NewPubAck, NewPubRec, NewPubRel and NewPubComp build a PubAck with its
// packet type preset. PUBREL additionally reserves flag bits 0b0010 in
// the fixed header [MQTT-3.6.1-1].
func NewPubAck(version Version, id uint16) *PubAck {
	return &PubAck{Type: PUBACK, Version: version, PacketID: id}
}

func NewPubRec(version Version, id uint16) *PubAck {
	return &PubAck{Type: PUBREC, Version: version, PacketID: id}
}

func NewPubRel(version Version, id uint16) *PubAck {
	return &PubAck{Type: PUBREL, Version: version, PacketID: id}
}

func NewPubComp(version Version, id uint16) *PubAck {
	return &PubAck{Type: PUBCOMP, Version: version, PacketID: id}
}

func (p *PubAck) SetReasonCode(rc byte) *PubAck { p.ReasonCode = rc; return p }

func (p *PubAck) hasReasonCode() bool {
	return p.ReasonCode != 0 || p.Properties.Len() > 0
}

func (p *PubAck) bodySize() int {
	size := 2 // packet identifier
	if p.Version != Version5 {
		return size
	}
	if p.hasReasonCode() {
		size++
		propsLen := p.Properties.EncodedLen()
		size += primitives.VarIntSize(uint32(propsLen)) + propsLen
	}
	return size
}

// EncodedSize returns the total encoded size, including the fixed header.
func (p *PubAck) EncodedSize() int {
	body := p.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	return fh.EncodedSize() + body
}

// AppendTo encodes the packet.
func (p *PubAck) AppendTo(w *primitives.ScatterWriter) error {
	body := p.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	fh.SetType(p.Type)
	if p.Type == PUBREL {
		fh.SetFlags(0x02)
	}
	if err := fh.AppendTo(w); err != nil {
		return err
	}
	if err := primitives.AppendUint16(w, p.PacketID); err != nil {
		return err
	}
	if p.Version == Version5 && p.hasReasonCode() {
		if err := primitives.AppendByte(w, p.ReasonCode); err != nil {
			return err
		}
		if err := p.Properties.AppendTo(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodePubAck parses a PUBACK/PUBREC/PUBREL/PUBCOMP body.
func DecodePubAck(fh FixedHeader, packetType PacketType, version Version, r *primitives.Reader) (PubAck, error) {
	p := PubAck{Type: packetType, Version: version}
	var err error
	p.PacketID, err = primitives.DecodeUint16(r)
	if err != nil {
		return p, err
	}
	if fh.Remaining == 2 {
		return p, nil
	}
	p.ReasonCode, err = primitives.DecodeByte(r)
	if err != nil {
		return p, err
	}
	if version == Version5 && fh.Remaining > 3 {
		p.Properties, err = DecodeProperties(r, AllowedPubAck)
		if err != nil {
			return p, err
		}
	}
	return p, nil
}
