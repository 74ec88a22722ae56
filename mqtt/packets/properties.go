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
	"errors"

	"github.com/mqttcore/sansio/mqtt/packets/primitives"
)

// PropertyID identifies an MQTT v5 property. Values are the identifiers
// assigned by the OASIS MQTT 5.0 specification section 2.2.2.2.
type PropertyID byte

const (
	PropPayloadFormatIndicator           PropertyID = 0x01
	PropMessageExpiryInterval            PropertyID = 0x02
	PropContentType                      PropertyID = 0x03
	PropResponseTopic                    PropertyID = 0x08
	PropCorrelationData                  PropertyID = 0x09
	PropSubscriptionIdentifier           PropertyID = 0x0B
	PropSessionExpiryInterval            PropertyID = 0x11
	PropAssignedClientIdentifier         PropertyID = 0x12
	PropServerKeepAlive                  PropertyID = 0x13
	PropAuthenticationMethod             PropertyID = 0x15
	PropAuthenticationData               PropertyID = 0x16
	PropRequestProblemInformation        PropertyID = 0x17
	PropWillDelayInterval                PropertyID = 0x18
	PropRequestResponseInformation       PropertyID = 0x19
	PropResponseInformation              PropertyID = 0x1A
	PropServerReference                  PropertyID = 0x1C
	PropReasonString                     PropertyID = 0x1F
	PropReceiveMaximum                   PropertyID = 0x21
	PropTopicAliasMaximum                PropertyID = 0x22
	PropTopicAlias                       PropertyID = 0x23
	PropMaximumQoS                       PropertyID = 0x24
	PropRetainAvailable                  PropertyID = 0x25
	PropUserProperty                     PropertyID = 0x26
	PropMaximumPacketSize                PropertyID = 0x27
	PropWildcardSubscriptionAvailable    PropertyID = 0x28
	PropSubscriptionIdentifiersAvailable PropertyID = 0x29
	PropSharedSubscriptionAvailable      PropertyID = 0x2A
)

type propKind int

const (
	kindByte propKind = iota
	kindUint16
	kindUint32
	kindVarInt
	kindString
	kindBinary
	kindUserProperty
)

var propertyKinds = map[PropertyID]propKind{
	PropPayloadFormatIndicator:           kindByte,
	PropMessageExpiryInterval:            kindUint32,
	PropContentType:                      kindString,
	PropResponseTopic:                    kindString,
	PropCorrelationData:                  kindBinary,
	PropSubscriptionIdentifier:           kindVarInt,
	PropSessionExpiryInterval:            kindUint32,
	PropAssignedClientIdentifier:         kindString,
	PropServerKeepAlive:                  kindUint16,
	PropAuthenticationMethod:             kindString,
	PropAuthenticationData:               kindBinary,
	PropRequestProblemInformation:        kindByte,
	PropWillDelayInterval:                kindUint32,
	PropRequestResponseInformation:       kindByte,
	PropResponseInformation:              kindString,
	PropServerReference:                  kindString,
	PropReasonString:                     kindString,
	PropReceiveMaximum:                   kindUint16,
	PropTopicAliasMaximum:                kindUint16,
	PropTopicAlias:                       kindUint16,
	PropMaximumQoS:                       kindByte,
	PropRetainAvailable:                  kindByte,
	PropUserProperty:                     kindUserProperty,
	PropMaximumPacketSize:                kindUint32,
	PropWildcardSubscriptionAvailable:    kindByte,
	PropSubscriptionIdentifiersAvailable: kindByte,
	PropSharedSubscriptionAvailable:      kindByte,
}

// multiOccurrence reports whether id is allowed to appear more than once
// in a single property run. Only User Property and Subscription
// Identifier are repeatable.
func multiOccurrence(id PropertyID) bool {
	return id == PropUserProperty || id == PropSubscriptionIdentifier
}

var (
	// ErrUnknownProperty is returned when a decoded identifier is not a
	// recognized MQTT v5 property.
	ErrUnknownProperty = errors.New("packets: unknown property identifier")
	// ErrPropertyNotAllowed is returned when a property is well-formed
	// but not in the allowed set for the packet being decoded.
	ErrPropertyNotAllowed = errors.New("packets: property not allowed for this packet")
	// ErrDuplicateProperty is returned when a single-occurrence property
	// appears more than once in the same run.
	ErrDuplicateProperty = errors.New("packets: duplicate single-occurrence property")
)

// UserProperty is an MQTT v5 User Property: a free-form UTF-8 key/value
// pair. Unlike most properties, keys are not required to be unique.
type UserProperty struct {
	Key   string
	Value string
}

type propEntry struct {
	id   PropertyID
	num  uint32
	str  string
	bin  []byte
	user UserProperty
}

// Properties is an ordered collection of MQTT v5 properties. Order is
// preserved across decode/encode so that re-encoding a decoded packet
// reproduces the same bytes.
type Properties struct {
	entries []propEntry
}

func (p *Properties) find(id PropertyID) (int, bool) {
	for i := range p.entries {
		if p.entries[i].id == id {
			return i, true
		}
	}
	return -1, false
}

// SetByte sets a single-byte property, replacing any existing value.
func (p *Properties) SetByte(id PropertyID, v byte) *Properties {
	return p.setNum(id, uint32(v))
}

// SetUint16 sets a two-byte property, replacing any existing value.
func (p *Properties) SetUint16(id PropertyID, v uint16) *Properties {
	return p.setNum(id, uint32(v))
}

// SetUint32 sets a four-byte property, replacing any existing value.
func (p *Properties) SetUint32(id PropertyID, v uint32) *Properties {
	return p.setNum(id, v)
}

// SetVarInt sets a variable-byte-integer property (Subscription
// Identifier), replacing any existing value. Use AddVarInt to append a
// second occurrence for packets that send more than one.
func (p *Properties) SetVarInt(id PropertyID, v uint32) *Properties {
	return p.setNum(id, v)
}

// AddVarInt appends an additional occurrence of a repeatable
// variable-byte-integer property.
func (p *Properties) AddVarInt(id PropertyID, v uint32) *Properties {
	p.entries = append(p.entries, propEntry{id: id, num: v})
	return p
}

func (p *Properties) setNum(id PropertyID, v uint32) *Properties {
	if i, ok := p.find(id); ok {
		p.entries[i].num = v
		return p
	}
	p.entries = append(p.entries, propEntry{id: id, num: v})
	return p
}

// SetString sets a UTF-8 string property, replacing any existing value.
func (p *Properties) SetString(id PropertyID, v string) *Properties {
	if i, ok := p.find(id); ok {
		p.entries[i].str = v
		return p
	}
	p.entries = append(p.entries, propEntry{id: id, str: v})
	return p
}

// SetBinary sets a binary-data property, replacing any existing value.
func (p *Properties) SetBinary(id PropertyID, v []byte) *Properties {
	if i, ok := p.find(id); ok {
		p.entries[i].bin = v
		return p
	}
	p.entries = append(p.entries, propEntry{id: id, bin: v})
	return p
}

// AddUserProperty appends a User Property. Keys are not deduplicated.
func (p *Properties) AddUserProperty(key, value string) *Properties {
	p.entries = append(p.entries, propEntry{id: PropUserProperty, user: UserProperty{Key: key, Value: value}})
	return p
}

// GetByte returns a single-byte property's value.
func (p *Properties) GetByte(id PropertyID) (byte, bool) {
	if i, ok := p.find(id); ok {
		return byte(p.entries[i].num), true
	}
	return 0, false
}

// GetUint16 returns a two-byte property's value.
func (p *Properties) GetUint16(id PropertyID) (uint16, bool) {
	if i, ok := p.find(id); ok {
		return uint16(p.entries[i].num), true
	}
	return 0, false
}

// GetUint32 returns a four-byte property's value.
func (p *Properties) GetUint32(id PropertyID) (uint32, bool) {
	if i, ok := p.find(id); ok {
		return p.entries[i].num, true
	}
	return 0, false
}

// GetVarInt returns the first occurrence of a variable-byte-integer
// property's value.
func (p *Properties) GetVarInt(id PropertyID) (uint32, bool) {
	return p.GetUint32(id)
}

// GetVarInts returns every occurrence of a repeatable
// variable-byte-integer property, in wire order.
func (p *Properties) GetVarInts(id PropertyID) []uint32 {
	var out []uint32
	for _, e := range p.entries {
		if e.id == id {
			out = append(out, e.num)
		}
	}
	return out
}

// GetString returns a UTF-8 string property's value.
func (p *Properties) GetString(id PropertyID) (string, bool) {
	if i, ok := p.find(id); ok {
		return p.entries[i].str, true
	}
	return "", false
}

// GetBinary returns a binary-data property's value.
func (p *Properties) GetBinary(id PropertyID) ([]byte, bool) {
	if i, ok := p.find(id); ok {
		return p.entries[i].bin, true
	}
	return nil, false
}

// UserProperties returns every User Property in wire order.
func (p *Properties) UserProperties() []UserProperty {
	var out []UserProperty
	for _, e := range p.entries {
		if e.id == PropUserProperty {
			out = append(out, e.user)
		}
	}
	return out
}

// Len reports the number of property entries, including repeated ones.
func (p *Properties) Len() int { return len(p.entries) }

func entrySize(e propEntry) int {
	// Identifier is always a single-byte VBI (every defined id < 0x80).
	size := 1
	switch propertyKinds[e.id] {
	case kindByte:
		size += 1
	case kindUint16:
		size += 2
	case kindUint32:
		size += 4
	case kindVarInt:
		size += primitives.VarIntSize(e.num)
	case kindString:
		size += primitives.StringSize(e.str)
	case kindBinary:
		size += primitives.BinarySize(e.bin)
	case kindUserProperty:
		size += primitives.StringSize(e.user.Key) + primitives.StringSize(e.user.Value)
	}
	return size
}

// EncodedLen returns the total size of the properties, not including the
// VBI length prefix itself.
func (p *Properties) EncodedLen() int {
	n := 0
	for _, e := range p.entries {
		n += entrySize(e)
	}
	return n
}

// AppendTo writes the VBI length prefix followed by every property entry,
// in insertion order.
func (p *Properties) AppendTo(w *primitives.ScatterWriter) error {
	if err := primitives.AppendVarInt(w, uint32(p.EncodedLen())); err != nil {
		return err
	}
	for _, e := range p.entries {
		if err := primitives.AppendByte(w, byte(e.id)); err != nil {
			return err
		}
		switch propertyKinds[e.id] {
		case kindByte:
			if err := primitives.AppendByte(w, byte(e.num)); err != nil {
				return err
			}
		case kindUint16:
			if err := primitives.AppendUint16(w, uint16(e.num)); err != nil {
				return err
			}
		case kindUint32:
			if err := primitives.AppendUint32(w, e.num); err != nil {
				return err
			}
		case kindVarInt:
			if err := primitives.AppendVarInt(w, e.num); err != nil {
				return err
			}
		case kindString:
			if err := primitives.AppendString(w, e.str); err != nil {
				return err
			}
		case kindBinary:
			if err := primitives.AppendBinary(w, e.bin); err != nil {
				return err
			}
		case kindUserProperty:
			if err := primitives.AppendString(w, e.user.Key); err != nil {
				return err
			}
			if err := primitives.AppendString(w, e.user.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// AllowedSet is a lookup table of property identifiers legal for a given
// packet type, built with allowedSet.
type AllowedSet map[PropertyID]bool

func allowedSet(ids ...PropertyID) AllowedSet {
	m := make(AllowedSet, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

var (
	AllowedConnect = allowedSet(
		PropSessionExpiryInterval, PropReceiveMaximum, PropMaximumPacketSize,
		PropTopicAliasMaximum, PropRequestResponseInformation,
		PropRequestProblemInformation, PropUserProperty,
		PropAuthenticationMethod, PropAuthenticationData,
	)
	AllowedWill = allowedSet(
		PropPayloadFormatIndicator, PropMessageExpiryInterval, PropContentType,
		PropResponseTopic, PropCorrelationData, PropWillDelayInterval,
		PropUserProperty,
	)
	AllowedConnack = allowedSet(
		PropSessionExpiryInterval, PropReceiveMaximum, PropMaximumQoS,
		PropRetainAvailable, PropMaximumPacketSize, PropAssignedClientIdentifier,
		PropTopicAliasMaximum, PropReasonString, PropUserProperty,
		PropWildcardSubscriptionAvailable, PropSubscriptionIdentifiersAvailable,
		PropSharedSubscriptionAvailable, PropServerKeepAlive,
		PropResponseInformation, PropServerReference, PropAuthenticationMethod,
		PropAuthenticationData,
	)
	AllowedPublish = allowedSet(
		PropPayloadFormatIndicator, PropMessageExpiryInterval, PropTopicAlias,
		PropResponseTopic, PropCorrelationData, PropUserProperty,
		PropSubscriptionIdentifier, PropContentType,
	)
	AllowedPubAck = allowedSet(PropReasonString, PropUserProperty)
	AllowedSubscribe = allowedSet(PropSubscriptionIdentifier, PropUserProperty)
	AllowedSuback = allowedSet(PropReasonString, PropUserProperty)
	AllowedUnsubscribe = allowedSet(PropUserProperty)
	AllowedUnsuback = allowedSet(PropReasonString, PropUserProperty)
	AllowedDisconnect = allowedSet(
		PropSessionExpiryInterval, PropReasonString, PropUserProperty,
		PropServerReference,
	)
	AllowedAuth = allowedSet(
		PropAuthenticationMethod, PropAuthenticationData, PropReasonString,
		PropUserProperty,
	)
)

// DecodeProperties reads a VBI-prefixed property run from r, validating
// every identifier against allowed and rejecting duplicates of
// single-occurrence properties.
func DecodeProperties(r *primitives.Reader, allowed AllowedSet) (Properties, error) {
	var props Properties
	length, err := primitives.DecodeVarInt(r)
	if err != nil {
		return props, err
	}
	end := r.Pos() + int(length)
	seen := make(map[PropertyID]bool)
	for r.Pos() < end {
		idByte, err := primitives.DecodeByte(r)
		if err != nil {
			return props, err
		}
		id := PropertyID(idByte)

		kind, known := propertyKinds[id]
		if !known {
			return props, ErrUnknownProperty
		}
		if !allowed[id] {
			return props, ErrPropertyNotAllowed
		}
		if seen[id] && !multiOccurrence(id) {
			return props, ErrDuplicateProperty
		}
		seen[id] = true

		switch kind {
		case kindByte:
			v, err := primitives.DecodeByte(r)
			if err != nil {
				return props, err
			}
			props.entries = append(props.entries, propEntry{id: id, num: uint32(v)})
		case kindUint16:
			v, err := primitives.DecodeUint16(r)
			if err != nil {
				return props, err
			}
			props.entries = append(props.entries, propEntry{id: id, num: uint32(v)})
		case kindUint32:
			v, err := primitives.DecodeUint32(r)
			if err != nil {
				return props, err
			}
			props.entries = append(props.entries, propEntry{id: id, num: v})
		case kindVarInt:
			v, err := primitives.DecodeVarInt(r)
			if err != nil {
				return props, err
			}
			props.entries = append(props.entries, propEntry{id: id, num: v})
		case kindString:
			v, err := primitives.DecodeString(r)
			if err != nil {
				return props, err
			}
			props.entries = append(props.entries, propEntry{id: id, str: v})
		case kindBinary:
			v, err := primitives.DecodeBinary(r)
			if err != nil {
				return props, err
			}
			props.entries = append(props.entries, propEntry{id: id, bin: v})
		case kindUserProperty:
			k, err := primitives.DecodeString(r)
			if err != nil {
				return props, err
			}
			v, err := primitives.DecodeString(r)
			if err != nil {
				return props, err
			}
			props.entries = append(props.entries, propEntry{id: id, user: UserProperty{Key: k, Value: v}})
		}
	}
	return props, nil
}
