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

// Auth is the AUTH control packet (v5 only, used for extended
// authentication exchanges). SPEC: the Reason Code and Property Length
// can be omitted if the Reason Code is 0x00 (Success) and there are no
// Properties, giving Remaining Length 0.
type Auth struct {
	ReasonCode byte
	Properties Properties
}

func (a *Auth) SetReasonCode(rc byte) *Auth { a.ReasonCode = rc; return a }

func (a *Auth) hasBody() bool {
	return a.ReasonCode != 0 || a.Properties.Len() > 0
}

func (a *Auth) bodySize() int {
	if !a.hasBody() {
		return 0
	}
	propsLen := a.Properties.EncodedLen()
	return 1 + primitives.VarIntSize(uint32(propsLen)) + propsLen
}

func (a *Auth) EncodedSize() int {
	body := a.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	return fh.EncodedSize() + body
}

func (a *Auth) AppendTo(w *primitives.ScatterWriter) error {
	body := a.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	fh.SetType(AUTH)
	if err := fh.AppendTo(w); err != nil {
		return err
	}
	if body == 0 {
		return nil
	}
	if err := primitives.AppendByte(w, a.ReasonCode); err != nil {
		return err
	}
	return a.Properties.AppendTo(w)
}

// DecodeAuth parses an AUTH body.
func DecodeAuth(fh FixedHeader, r *primitives.Reader) (Auth, error) {
	var a Auth
	if fh.Remaining == 0 {
		return a, nil
	}
	var err error
	a.ReasonCode, err = primitives.DecodeByte(r)
	if err != nil {
		return a, err
	}
	if fh.Remaining > 1 {
		a.Properties, err = DecodeProperties(r, AllowedAuth)
		if err != nil {
			return a, err
		}
	}
	return a, nil
}
