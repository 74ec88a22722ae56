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

package mqtt

import "github.com/mqttcore/sansio/mqtt/packets"

// TimerKind identifies which of the Connection's timers a
// RequestTimerReset/RequestTimerCancel event concerns. The Connection
// never starts a timer itself; it only ever asks the host to.
type TimerKind int

const (
	// PingreqSend fires when it is time to send the next PINGREQ.
	PingreqSend TimerKind = iota
	// PingrespRecv fires if no PINGRESP arrives within the configured
	// timeout after a PINGREQ was sent.
	PingrespRecv
	// PingreqRecv is the server-side mirror of PingrespRecv: it fires if
	// no packet arrives from the client within its advertised keep-alive
	// interval.
	PingreqRecv
)

// EventKind discriminates the Event union described in §6.
type EventKind int

const (
	// RequestSendPacket asks the host to write Packet's encoded bytes to
	// the transport.
	RequestSendPacket EventKind = iota
	// RequestTimerReset asks the host to (re)arm the named timer.
	RequestTimerReset
	// RequestTimerCancel asks the host to stop the named timer.
	RequestTimerCancel
	// RequestClose asks the host to tear down the transport.
	RequestClose
	// NotifyPacketReceived delivers a fully decoded inbound packet.
	NotifyPacketReceived
	// NotifyPacketIdReleased announces that PacketID is free for reuse.
	NotifyPacketIdReleased
	// NotifyError surfaces a protocol or local-resource error.
	NotifyError
)

// Event is the value type every Connection entry point (Recv, Send,
// NotifyTimerFired, ...) returns a slice of. Only the fields relevant to
// Kind are populated; the rest are left zero.
type Event struct {
	Kind EventKind

	// PacketType and Packet carry the control packet for
	// RequestSendPacket and NotifyPacketReceived events. Packet is one of
	// the packets.* struct types. Ownership transfers to the host with
	// the event; the engine keeps no reference to it afterward.
	PacketType packets.PacketType
	Packet     any

	// ReleaseIDOnError is set on a RequestSendPacket for a QoS>=1
	// PUBLISH the engine just marked inflight: if the host fails to
	// write the bytes, it should release this packet identifier rather
	// than leaking it. Zero means "not applicable".
	ReleaseIDOnError uint32

	// Timer and DurationMS describe RequestTimerReset/RequestTimerCancel.
	Timer      TimerKind
	DurationMS uint32

	// PacketID is the released identifier, for NotifyPacketIdReleased.
	PacketID uint32

	// Err is the error kind, for NotifyError.
	Err ErrorKind
}

func eventSendPacket(t packets.PacketType, pkt any) Event {
	return Event{Kind: RequestSendPacket, PacketType: t, Packet: pkt}
}

func eventSendPacketReleaseOnError(t packets.PacketType, pkt any, id uint32) Event {
	return Event{Kind: RequestSendPacket, PacketType: t, Packet: pkt, ReleaseIDOnError: id}
}

func eventTimerReset(kind TimerKind, durationMS uint32) Event {
	return Event{Kind: RequestTimerReset, Timer: kind, DurationMS: durationMS}
}

func eventTimerCancel(kind TimerKind) Event {
	return Event{Kind: RequestTimerCancel, Timer: kind}
}

func eventClose() Event {
	return Event{Kind: RequestClose}
}

func eventPacketReceived(t packets.PacketType, pkt any) Event {
	return Event{Kind: NotifyPacketReceived, PacketType: t, Packet: pkt}
}

func eventPacketIDReleased(id uint32) Event {
	return Event{Kind: NotifyPacketIdReleased, PacketID: id}
}

func eventError(kind ErrorKind) Event {
	return Event{Kind: NotifyError, Err: kind}
}
