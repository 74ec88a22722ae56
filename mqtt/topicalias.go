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

import "errors"

// ErrTopicAliasInvalid is returned when a received PUBLISH references an
// alias that was never registered, or a send-side alias request exceeds
// the peer's advertised Topic-Alias-Maximum.
var ErrTopicAliasInvalid = errors.New("mqtt: topic alias invalid")

// aliasMap is a bounded, bidirectional alias<->topic mapping for one
// direction (send or receive) of a connection, capped at the negotiated
// Topic-Alias-Maximum. Recency is tracked per alias and updated on every
// use — lookup or store — not registration alone, so auto-numbering
// evicts the alias that has gone longest unused rather than the one
// registered longest ago.
//
// A plain slice of aliases, scanned linearly on each touch, backs the LRU
// order instead of container/list: the rest of this codebase (see
// storage/memory/memory.go) favors plain slices/maps over stdlib
// container types, and the slice here never exceeds Topic-Alias-Maximum
// (at most 65535) entries.
type aliasMap struct {
	max uint16

	aliasToTopic map[uint16]string
	topicToAlias map[string]uint16

	// recency order, most-recently-used at the back.
	order []uint16
}

func newAliasMap(max uint16) *aliasMap {
	return &aliasMap{
		max:          max,
		aliasToTopic: make(map[uint16]string),
		topicToAlias: make(map[string]uint16),
	}
}

func (m *aliasMap) touch(alias uint16) {
	for i, a := range m.order {
		if a == alias {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append(m.order, alias)
}

// register records alias -> topic, evicting the least-recently-used
// alias first if the map is already at capacity and alias is new.
func (m *aliasMap) register(alias uint16, topic string) error {
	if alias == 0 || alias > m.max {
		return ErrTopicAliasInvalid
	}
	if old, ok := m.aliasToTopic[alias]; ok {
		delete(m.topicToAlias, old)
	} else if uint16(len(m.aliasToTopic)) >= m.max {
		m.evictLRU()
	}
	m.aliasToTopic[alias] = topic
	m.topicToAlias[topic] = alias
	m.touch(alias)
	return nil
}

func (m *aliasMap) evictLRU() {
	if len(m.order) == 0 {
		return
	}
	lru := m.order[0]
	m.order = m.order[1:]
	if topic, ok := m.aliasToTopic[lru]; ok {
		delete(m.aliasToTopic, lru)
		delete(m.topicToAlias, topic)
	}
}

// resolve looks up the topic registered for alias, marking it as
// recently used. Reports ErrTopicAliasInvalid if alias is out of range
// or unregistered.
func (m *aliasMap) resolve(alias uint16) (string, error) {
	if alias == 0 || alias > m.max {
		return "", ErrTopicAliasInvalid
	}
	topic, ok := m.aliasToTopic[alias]
	if !ok {
		return "", ErrTopicAliasInvalid
	}
	m.touch(alias)
	return topic, nil
}

// aliasFor returns the alias already registered for topic, if any.
func (m *aliasMap) aliasFor(topic string) (uint16, bool) {
	alias, ok := m.topicToAlias[topic]
	if ok {
		m.touch(alias)
	}
	return alias, ok
}

// autoAssign picks an alias for topic under LRU numbering: reuse an
// existing mapping if one exists, otherwise claim the lowest unused slot
// (growing until max is reached) or evict the LRU entry once full.
func (m *aliasMap) autoAssign(topic string) (alias uint16, isNew bool, err error) {
	if m.max == 0 {
		return 0, false, ErrTopicAliasInvalid
	}
	if existing, ok := m.aliasFor(topic); ok {
		return existing, false, nil
	}
	var next uint16
	if uint16(len(m.aliasToTopic)) < m.max {
		next = uint16(len(m.aliasToTopic)) + 1
		for m.aliasToTopic[next] != "" {
			next++
		}
	} else {
		if len(m.order) == 0 {
			return 0, false, ErrTopicAliasInvalid
		}
		next = m.order[0]
	}
	if err := m.register(next, topic); err != nil {
		return 0, false, err
	}
	return next, true, nil
}
