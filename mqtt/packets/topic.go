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
	"strings"

	"github.com/mqttcore/sansio/mqtt/packets/primitives"
)

// ErrTopicNameInvalid and ErrTopicFilterInvalid report a violation of the
// MQTT topic name / topic filter grammar (section 4.7 of the MQTT 5.0
// specification).
var (
	ErrTopicNameInvalid   = errors.New("packets: invalid topic name")
	ErrTopicFilterInvalid = errors.New("packets: invalid topic filter")
)

// Topic is one (filter, subscription-options) pair carried in the
// SUBSCRIBE payload.
type Topic struct {
	filter  string
	options byte
}

func isSharedFilter(filter string) bool {
	return len(filter) >= 6 && filter[:6] == "$share"
}

func (t *Topic) SetQoS(qos QoS) *Topic {
	t.options &= ^byte(1 << 0)
	t.options &= ^byte(1 << 1)
	t.options |= byte(qos)
	return t
}

func (t *Topic) QoS() QoS {
	return QoS(t.options & 0x03)
}

func (t *Topic) Filter() string {
	return t.filter
}

// SetFilter sets the topic filter string. It is a Protocol Error to set
// the No Local bit on a shared subscription [MQTT-3.8.3-4], so switching
// to a "$share/" filter clears any previously-set No Local bit.
func (t *Topic) SetFilter(filter string) *Topic {
	t.filter = filter
	if isSharedFilter(filter) {
		t.options &= ^byte(1 << 2)
	}
	return t
}

func (t *Topic) SetNoLocal(on bool) *Topic {
	t.options &= ^byte(1 << 2)
	if on && !isSharedFilter(t.filter) {
		t.options |= byte(1 << 2)
	}
	return t
}

func (t *Topic) NoLocal() bool {
	return t.options&(1<<2) != 0
}

func (t *Topic) SetRetainAsPublished(on bool) *Topic {
	t.options &= ^byte(1 << 3)
	if on {
		t.options |= byte(1 << 3)
	}
	return t
}

func (t *Topic) RetainAsPublished() bool {
	return t.options&(1<<3) != 0
}

func (t *Topic) SetRetainHandling(handling RetainHandlingOption) *Topic {
	t.options &= ^byte(1 << 5)
	t.options &= ^byte(1 << 4)
	t.options |= byte(handling << 4)
	return t
}

func (t *Topic) RetainHandling() RetainHandlingOption {
	return RetainHandlingOption((t.options >> 4) & 0x03)
}

// EncodedSize returns the wire size of this (filter, options) payload
// entry.
func (t *Topic) EncodedSize() int {
	return primitives.StringSize(t.filter) + 1
}

// AppendTo writes the filter string followed by the subscription options
// byte.
func (t *Topic) AppendTo(w *primitives.ScatterWriter) error {
	if err := primitives.AppendString(w, t.filter); err != nil {
		return err
	}
	return primitives.AppendByte(w, t.options)
}

// DecodeTopic reads a (filter, options) entry from a SUBSCRIBE payload.
func DecodeTopic(r *primitives.Reader) (Topic, error) {
	var t Topic
	filter, err := primitives.DecodeString(r)
	if err != nil {
		return t, err
	}
	options, err := primitives.DecodeByte(r)
	if err != nil {
		return t, err
	}
	t.filter = filter
	t.options = options
	return t, nil
}

// ValidTopicName reports whether name is a legal PUBLISH topic name: non-
// empty, free of wildcard characters, and not containing a U+0000 byte
// (already enforced by the string codec on decode).
func ValidTopicName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, "+#")
}

// ValidTopicFilter reports whether filter follows the MQTT topic filter
// grammar: '+' matches exactly one level, '#' matches any number of
// trailing levels and must be the final character, and "$share/<group>/"
// prefixes a shared-subscription filter.
func ValidTopicFilter(filter string) bool {
	if filter == "" {
		return false
	}
	if isSharedFilter(filter) {
		parts := strings.SplitN(filter, "/", 3)
		if len(parts) != 3 || parts[1] == "" {
			return false
		}
		filter = parts[2]
		if filter == "" {
			return false
		}
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#":
			if i != len(levels)-1 {
				return false
			}
		case strings.Contains(level, "#"):
			return false
		case level == "+":
			// valid on its own
		case strings.Contains(level, "+"):
			return false
		}
	}
	return true
}

// MatchTopic reports whether a published topic name matches a
// subscription filter, honoring '+' (single level) and '#' (multi-level
// trailing) wildcards. It does not interpret "$share/" prefixes — callers
// route shared subscriptions by group before matching the remainder.
func MatchTopic(filter, name string) bool {
	if strings.HasPrefix(name, "$") && !strings.HasPrefix(filter, "$") {
		// SPEC: topics beginning with $ are excluded from + and # wildcards
		// at the first level unless the filter explicitly starts with $.
		return false
	}
	filterLevels := strings.Split(filter, "/")
	nameLevels := strings.Split(name, "/")

	i := 0
	for ; i < len(filterLevels); i++ {
		if filterLevels[i] == "#" {
			return true
		}
		if i >= len(nameLevels) {
			return false
		}
		if filterLevels[i] == "+" {
			continue
		}
		if filterLevels[i] != nameLevels[i] {
			return false
		}
	}
	return i == len(nameLevels)
}
