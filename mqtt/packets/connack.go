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

// Connack is the CONNACK control packet. ReasonCode doubles as the v3.1.1
// "Connect Return Code" field; callers targeting v3.1.1 should only use
// the subset of values valid there.
type Connack struct {
	Version        Version
	SessionPresent bool
	ReasonCode     byte
	Properties     Properties
}

// SetSessionPresent sets the Session Present flag. SPEC: this field MUST
// always be populated, even on a malformed-CONNECT error response — never
// leave it at its zero value by accident.
func (c *Connack) SetSessionPresent(on bool) *Connack { c.SessionPresent = on; return c }

func (c *Connack) SetReasonCode(rc byte) *Connack { c.ReasonCode = rc; return c }

func (c *Connack) flags() byte {
	if c.SessionPresent {
		return 1
	}
	return 0
}

func (c *Connack) bodySize() int {
	size := 2 // flags + reason code
	if c.Version == Version5 {
		propsLen := c.Properties.EncodedLen()
		size += primitives.VarIntSize(uint32(propsLen)) + propsLen
	}
	return size
}

func (c *Connack) EncodedSize() int {
	body := c.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	return fh.EncodedSize() + body
}

func (c *Connack) AppendTo(w *primitives.ScatterWriter) error {
	body := c.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	fh.SetType(CONNACK)
	if err := fh.AppendTo(w); err != nil {
		return err
	}
	if err := primitives.AppendByte(w, c.flags()); err != nil {
		return err
	}
	if err := primitives.AppendByte(w, c.ReasonCode); err != nil {
		return err
	}
	if c.Version == Version5 {
		if err := c.Properties.AppendTo(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeConnack parses a CONNACK body.
func DecodeConnack(fh FixedHeader, version Version, r *primitives.Reader) (Connack, error) {
	c := Connack{Version: version}
	flags, err := primitives.DecodeByte(r)
	if err != nil {
		return c, err
	}
	c.SessionPresent = flags&0x01 != 0

	c.ReasonCode, err = primitives.DecodeByte(r)
	if err != nil {
		return c, err
	}

	if version == Version5 {
		c.Properties, err = DecodeProperties(r, AllowedConnack)
		if err != nil {
			return c, err
		}
	}
	return c, nil
}
