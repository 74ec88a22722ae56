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

package packets

import (
	"github.com/mqttcore/sansio/mqtt/packets/primitives"
)

// Disconnect is the DISCONNECT control packet. SPEC: the Reason Code and
// Property Length can be omitted if the Reason Code is 0x00 (Normal
// Disconnection) and there are no Properties, giving Remaining Length 0.
type Disconnect struct {
	Version    Version
	ReasonCode byte
	Properties Properties
}

func (d *Disconnect) SetReasonCode(rc byte) *Disconnect { d.ReasonCode = rc; return d }

func (d *Disconnect) hasBody() bool {
	return d.ReasonCode != 0 || d.Properties.Len() > 0
}

// bodySize returns 0 for v3.1.1 (DISCONNECT has no variable header there)
// and for a v5 DISCONNECT with Success/no properties.
func (d *Disconnect) bodySize() int {
	if d.Version != Version5 || !d.hasBody() {
		return 0
	}
	propsLen := d.Properties.EncodedLen()
	return 1 + primitives.VarIntSize(uint32(propsLen)) + propsLen
}

func (d *Disconnect) EncodedSize() int {
	body := d.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	return fh.EncodedSize() + body
}

func (d *Disconnect) AppendTo(w *primitives.ScatterWriter) error {
	body := d.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	fh.SetType(DISCONNECT)
	if err := fh.AppendTo(w); err != nil {
		return err
	}
	if body == 0 {
		return nil
	}
	if err := primitives.AppendByte(w, d.ReasonCode); err != nil {
		return err
	}
	if d.Version == Version5 && d.hasBody() {
		if err := d.Properties.AppendTo(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeDisconnect parses a DISCONNECT body.
func DecodeDisconnect(fh FixedHeader, version Version, r *primitives.Reader) (Disconnect, error) {
	d := Disconnect{Version: version}
	if fh.Remaining == 0 {
		return d, nil
	}
	var err error
	d.ReasonCode, err = primitives.DecodeByte(r)
	if err != nil {
		return d, err
	}
	if version == Version5 && fh.Remaining > 1 {
		d.Properties, err = DecodeProperties(r, AllowedDisconnect)
		if err != nil {
			return d, err
		}
	}
	return d, nil
}
