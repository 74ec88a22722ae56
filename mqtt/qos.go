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

	"github.com/mqttcore/sansio/mqtt/packets"
)

// ErrReceiveMaximumExceeded is returned by trackOutgoing when the peer's
// Receive-Maximum would be exceeded by another inflight QoS>=1 PUBLISH.
var ErrReceiveMaximumExceeded = errors.New("mqtt: receive maximum exceeded")

// qosPhase is the position of an outgoing QoS1/QoS2 exchange in its
// acknowledgment cycle.
type qosPhase int

const (
	phaseAwaitingPuback qosPhase = iota
	phaseAwaitingPubrec
	phaseAwaitingPubcomp
)

// PublishRecord tracks one outgoing QoS1/QoS2 PUBLISH from the moment it
// is sent until its exchange terminates. The stored Packet is what gets
// re-emitted, with Dup set, on reconnect-triggered retransmission.
type PublishRecord struct {
	PacketID uint16
	QoS      packets.QoS
	Packet   packets.Publish
	Phase    qosPhase
	Dup      bool
}

// qosTracker holds the two bookkeeping tables described in §4.G: the
// outgoing inflight table (bounded by the peer's Receive-Maximum) and
// the incoming QoS2 id set (preventing duplicate redelivery of a PUBLISH
// whose PUBREC was already sent but whose PUBREL hasn't arrived yet).
//
// The outgoing table is slice-ordered like storage/memory/memory.go's
// store, so dup-retransmission on reconnect can replay records in the
// order they were originally sent.
type qosTracker struct {
	receiveMax uint16 // peer's Receive-Maximum; never 0 (setReceiveMaximum maps 0 to the MQTT default of 65535)
	outgoing   []*PublishRecord

	incomingQoS2 map[uint16]struct{}
}

func newQoSTracker() *qosTracker {
	return &qosTracker{
		receiveMax:   65535,
		incomingQoS2: make(map[uint16]struct{}),
	}
}

// setReceiveMaximum installs the peer-advertised Receive-Maximum. A zero
// value restores the MQTT default of 65535.
func (t *qosTracker) setReceiveMaximum(max uint16) {
	if max == 0 {
		max = 65535
	}
	t.receiveMax = max
}

// inflightCount returns the number of outgoing QoS>=1 PUBLISH records
// awaiting a terminal acknowledgment.
func (t *qosTracker) inflightCount() int { return len(t.outgoing) }

// trackOutgoing registers rec as inflight, failing with
// ErrReceiveMaximumExceeded if the peer's Receive-Maximum would be
// exceeded.
func (t *qosTracker) trackOutgoing(rec *PublishRecord) error {
	if uint16(len(t.outgoing)) >= t.receiveMax {
		return ErrReceiveMaximumExceeded
	}
	t.outgoing = append(t.outgoing, rec)
	return nil
}

func (t *qosTracker) find(id uint16) (*PublishRecord, int) {
	for i, r := range t.outgoing {
		if r.PacketID == id {
			return r, i
		}
	}
	return nil, -1
}

func (t *qosTracker) remove(i int) {
	t.outgoing = append(t.outgoing[:i], t.outgoing[i+1:]...)
}

// onPuback completes a QoS1 exchange: PacketID is released by the caller
// once this returns the record.
func (t *qosTracker) onPuback(id uint16) (*PublishRecord, bool) {
	rec, i := t.find(id)
	if rec == nil || rec.QoS != packets.QoS1 {
		return nil, false
	}
	t.remove(i)
	return rec, true
}

// onPubrec advances a QoS2 exchange from AwaitingPubrec to
// AwaitingPubcomp. The record stays inflight; the caller auto-sends
// PUBREL if configured to.
func (t *qosTracker) onPubrec(id uint16) (*PublishRecord, bool) {
	rec, _ := t.find(id)
	if rec == nil || rec.QoS != packets.QoS2 || rec.Phase != phaseAwaitingPubrec {
		return nil, false
	}
	rec.Phase = phaseAwaitingPubcomp
	return rec, true
}

// onPubcomp completes a QoS2 exchange.
func (t *qosTracker) onPubcomp(id uint16) (*PublishRecord, bool) {
	rec, i := t.find(id)
	if rec == nil || rec.QoS != packets.QoS2 || rec.Phase != phaseAwaitingPubcomp {
		return nil, false
	}
	t.remove(i)
	return rec, true
}

// retransmit marks every inflight record Dup=true and returns them in
// original send order, for replay after a reconnect with a resumed
// session.
func (t *qosTracker) retransmit() []*PublishRecord {
	for _, rec := range t.outgoing {
		rec.Dup = true
	}
	out := make([]*PublishRecord, len(t.outgoing))
	copy(out, t.outgoing)
	return out
}

// recordIncomingQoS2 records id as awaiting PUBREL, reporting whether
// this is the first PUBLISH seen for id (false means id is already
// pending and this delivery is a duplicate that should be acked but not
// redelivered).
func (t *qosTracker) recordIncomingQoS2(id uint16) (isNew bool) {
	if _, ok := t.incomingQoS2[id]; ok {
		return false
	}
	t.incomingQoS2[id] = struct{}{}
	return true
}

// releaseIncomingQoS2 removes id from the incoming QoS2 set on receipt
// of the matching PUBREL.
func (t *qosTracker) releaseIncomingQoS2(id uint16) {
	delete(t.incomingQoS2, id)
}
