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

import (
	"errors"
)

// ErrPacketIdentifiersExhausted is returned by acquire() when every
// identifier in [1, max] is already in use.
var ErrPacketIdentifiersExhausted = errors.New("mqtt: packet identifiers exhausted")

// ErrPacketIdentifierConflict is returned by register() when the
// requested identifier is already held.
var ErrPacketIdentifierConflict = errors.New("mqtt: packet identifier already in use")

// ErrPacketIdentifierInvalid is returned for identifier 0, which MQTT
// never allows as a packet identifier.
var ErrPacketIdentifierInvalid = errors.New("mqtt: packet identifier 0 is invalid")

// packetIDWidth selects the integer width a Connection allocates packet
// identifiers from. Standard MQTT is always 16-bit; 32-bit is an
// application-specific extension for broker clusters and never appears
// on the wire (wire fields stay uint16 regardless).
type packetIDWidth int

const (
	width16 packetIDWidth = 16
	width32 packetIDWidth = 32
)

func (w packetIDWidth) max() uint32 {
	if w == width32 {
		return 1<<32 - 1
	}
	return 1<<16 - 1
}

// packetIDSet is an ordered set over identifiers in [1, width.max()]. It
// is backed by a membership map plus a low-water mark rather than a flat
// bitset: width32 exists for broker-cluster deployments that never come
// close to using the full 32-bit range, and a 2^32-bit dense bitset would
// reserve half a gigabyte per connection whether or not it is used.
type packetIDSet struct {
	width packetIDWidth
	inUse map[uint32]struct{}
	// low is the smallest id that might still be free; acquire scans
	// upward from it, and release lowers it when it frees an earlier id.
	low uint32
}

func newPacketIDSet(width packetIDWidth) *packetIDSet {
	return &packetIDSet{width: width, inUse: make(map[uint32]struct{}), low: 1}
}

// acquire returns the lowest unused identifier in [1, max], marking it in
// use, or ErrPacketIdentifiersExhausted if none remain.
func (s *packetIDSet) acquire() (uint32, error) {
	for id := s.low; id <= s.width.max(); id++ {
		if _, ok := s.inUse[id]; ok {
			continue
		}
		s.inUse[id] = struct{}{}
		s.low = id + 1
		return id, nil
	}
	return 0, ErrPacketIdentifiersExhausted
}

// register explicitly inserts id, for host-supplied identifiers (e.g.
// replaying a stored inflight record). Fails if id is 0 or already held.
func (s *packetIDSet) register(id uint32) error {
	if id == 0 || id > s.width.max() {
		return ErrPacketIdentifierInvalid
	}
	if _, ok := s.inUse[id]; ok {
		return ErrPacketIdentifierConflict
	}
	s.inUse[id] = struct{}{}
	return nil
}

// release removes id from the set. Idempotent: releasing an id that is
// not a member is a no-op.
func (s *packetIDSet) release(id uint32) {
	if id == 0 || id > s.width.max() {
		return
	}
	delete(s.inUse, id)
	if id < s.low {
		s.low = id
	}
}

// contains reports whether id is currently held.
func (s *packetIDSet) contains(id uint32) bool {
	if id == 0 || id > s.width.max() {
		return false
	}
	_, ok := s.inUse[id]
	return ok
}
