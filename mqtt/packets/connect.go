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

// Connect is the CONNECT control packet (§3.1 MQTT 5.0 / §3.1 MQTT 3.1.1).
type Connect struct {
	Version      Version
	CleanStart   bool
	KeepAlive    uint16
	ClientID     string
	HasUsername  bool
	Username     string
	HasPassword  bool
	Password     []byte

	HasWill        bool
	WillRetain     bool
	WillQoS        QoS
	WillTopic      string
	WillPayload    []byte
	WillProperties Properties

	Properties Properties
}

// SetClientID sets the client identifier.
func (c *Connect) SetClientID(id string) *Connect { c.ClientID = id; return c }

// SetCleanStart sets the Clean Start (v5) / Clean Session (v3.1.1) flag.
func (c *Connect) SetCleanStart(on bool) *Connect { c.CleanStart = on; return c }

// SetKeepAlive sets the keep-alive interval, in seconds.
func (c *Connect) SetKeepAlive(seconds uint16) *Connect { c.KeepAlive = seconds; return c }

// SetUsername attaches a username to the CONNECT payload.
func (c *Connect) SetUsername(username string) *Connect {
	c.HasUsername = true
	c.Username = username
	return c
}

// SetPassword attaches a password to the CONNECT payload. SPEC:
// [MQTT-3.1.2-21] — a Password MUST NOT be sent if a Username is not.
func (c *Connect) SetPassword(password []byte) *Connect {
	c.HasPassword = true
	c.Password = password
	return c
}

// SetWill configures the Will message delivered by the server if the
// connection is lost ungracefully.
func (c *Connect) SetWill(topic string, payload []byte, qos QoS, retain bool) *Connect {
	c.HasWill = true
	c.WillTopic = topic
	c.WillPayload = payload
	c.WillQoS = qos
	c.WillRetain = retain
	return c
}

func (c *Connect) flags() byte {
	var flags byte
	if c.CleanStart {
		flags |= 1 << 1
	}
	if c.HasWill {
		flags |= 1 << 2
		flags |= byte(c.WillQoS) << 3
		if c.WillRetain {
			flags |= 1 << 5
		}
	}
	if c.HasPassword {
		flags |= 1 << 6
	}
	if c.HasUsername {
		flags |= 1 << 7
	}
	return flags
}

// bodySize returns the size of this packet's variable header, will
// properties/fields, and payload, not including the fixed header.
func (c *Connect) bodySize() int {
	size := primitives.StringSize("MQTT") + 1 /* version */ + 1 /* flags */ + 2 /* keep alive */
	if c.Version == Version5 {
		propsLen := c.Properties.EncodedLen()
		size += primitives.VarIntSize(uint32(propsLen)) + propsLen
	}
	size += primitives.StringSize(c.ClientID)
	if c.HasWill {
		if c.Version == Version5 {
			willPropsLen := c.WillProperties.EncodedLen()
			size += primitives.VarIntSize(uint32(willPropsLen)) + willPropsLen
		}
		size += primitives.StringSize(c.WillTopic)
		size += primitives.BinarySize(c.WillPayload)
	}
	if c.HasUsername {
		size += primitives.StringSize(c.Username)
	}
	if c.HasPassword {
		size += primitives.BinarySize(c.Password)
	}
	return size
}

// EncodedSize returns the total encoded size of the packet, including the
// fixed header.
func (c *Connect) EncodedSize() int {
	body := c.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	return fh.EncodedSize() + body
}

// AppendTo encodes the packet into w.
func (c *Connect) AppendTo(w *primitives.ScatterWriter) error {
	body := c.bodySize()
	fh := FixedHeader{Remaining: uint32(body)}
	fh.SetType(CONNECT)
	if err := fh.AppendTo(w); err != nil {
		return err
	}

	if err := primitives.AppendString(w, "MQTT"); err != nil {
		return err
	}
	if err := primitives.AppendByte(w, byte(c.Version)); err != nil {
		return err
	}
	if err := primitives.AppendByte(w, c.flags()); err != nil {
		return err
	}
	if err := primitives.AppendUint16(w, c.KeepAlive); err != nil {
		return err
	}

	if c.Version == Version5 {
		if err := c.Properties.AppendTo(w); err != nil {
			return err
		}
	}

	if err := primitives.AppendString(w, c.ClientID); err != nil {
		return err
	}

	if c.HasWill {
		if c.Version == Version5 {
			if err := c.WillProperties.AppendTo(w); err != nil {
				return err
			}
		}
		if err := primitives.AppendString(w, c.WillTopic); err != nil {
			return err
		}
		if err := primitives.AppendBinary(w, c.WillPayload); err != nil {
			return err
		}
	}

	if c.HasUsername {
		if err := primitives.AppendString(w, c.Username); err != nil {
			return err
		}
	}
	if c.HasPassword {
		if err := primitives.AppendBinary(w, c.Password); err != nil {
			return err
		}
	}
	return nil
}

// DecodeConnect parses a CONNECT body. fh.Remaining bytes must already be
// available in r.
func DecodeConnect(fh FixedHeader, r *primitives.Reader) (Connect, error) {
	var c Connect

	protocolName, err := primitives.DecodeString(r)
	if err != nil {
		return c, err
	}
	if protocolName != "MQTT" {
		return c, ErrMalformedHeader
	}

	versionByte, err := primitives.DecodeByte(r)
	if err != nil {
		return c, err
	}
	c.Version = Version(versionByte)

	flags, err := primitives.DecodeByte(r)
	if err != nil {
		return c, err
	}
	c.CleanStart = flags&(1<<1) != 0
	c.HasWill = flags&(1<<2) != 0
	c.WillQoS = QoS((flags >> 3) & 0x03)
	c.WillRetain = flags&(1<<5) != 0
	c.HasPassword = flags&(1<<6) != 0
	c.HasUsername = flags&(1<<7) != 0

	c.KeepAlive, err = primitives.DecodeUint16(r)
	if err != nil {
		return c, err
	}

	if c.Version == Version5 {
		c.Properties, err = DecodeProperties(r, AllowedConnect)
		if err != nil {
			return c, err
		}
	}

	c.ClientID, err = primitives.DecodeString(r)
	if err != nil {
		return c, err
	}

	if c.HasWill {
		if c.Version == Version5 {
			c.WillProperties, err = DecodeProperties(r, AllowedWill)
			if err != nil {
				return c, err
			}
		}
		c.WillTopic, err = primitives.DecodeString(r)
		if err != nil {
			return c, err
		}
		c.WillPayload, err = primitives.DecodeBinary(r)
		if err != nil {
			return c, err
		}
	}

	if c.HasUsername {
		c.Username, err = primitives.DecodeString(r)
		if err != nil {
			return c, err
		}
	}
	if c.HasPassword {
		c.Password, err = primitives.DecodeBinary(r)
		if err != nil {
			return c, err
		}
	}

	return c, nil
}
