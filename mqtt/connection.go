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

// Package mqtt implements a sans-I/O MQTT v3.1.1/v5.0 protocol engine: a
// Connection consumes received bytes and submitted packets and produces
// an ordered Event stream, performing no socket, timer, or goroutine
// work of its own. Hosts drive it from whatever transport and scheduler
// they already have.
package mqtt

import (
	"errors"

	"github.com/mqttcore/sansio/mqtt/packets"
	"github.com/mqttcore/sansio/mqtt/storage"
)

// Role selects which packet types a Connection is legal to send versus
// receive, per §4.I's state table.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// State is the connection's lifecycle position in §4.I's state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnectSent       // client: CONNECT sent, awaiting CONNACK
	StateConnectReceived   // server: CONNECT received, building CONNACK
	StatePreAuth            // v5 extended-auth cycling
	StateConnected
	StateDisconnecting
)

// ErrWrongRole is returned when a caller submits a packet its role is
// never allowed to send (e.g. a server sending CONNECT).
var ErrWrongRole = errors.New("mqtt: packet not legal for this role")

// Connection is the sans-I/O protocol engine root described in §3. It is
// single-threaded and synchronous: every entry point runs to completion
// and returns before any I/O the host performs on its behalf happens.
type Connection struct {
	role    Role
	version packets.Version
	state   State

	dec *decoder

	ids *packetIDSet
	qos *qosTracker

	sendAlias *aliasMap // topics we may elide on repeat, keyed by alias
	recvAlias *aliasMap // aliases the peer may elide, keyed by alias

	keepAlive *keepAliveConfig

	// Configuration flags, per §3/§6.
	autoPubResponse           bool
	autoPingResponse          bool
	autoMapTopicAliasSend     bool
	autoReplaceTopicAliasSend bool

	topicAliasMaximumRecv uint16 // advertised to the peer via CONNECT/CONNACK

	sentKeepAliveSeconds uint16
	sessionPresent       bool

	pendingClose bool

	// store mirrors every outgoing QoS>=1 PublishRecord the qos tracker
	// holds, keyed by packet identifier, so a host-supplied storage.Store
	// (e.g. storage/memory.Storage) actually persists session state as it
	// changes rather than being populated only at shutdown. Nil by
	// default: mirroring is opt-in via SetSessionStore.
	store storage.Store
}

// NewConnection creates a Connection for role operating protocol version,
// with packet identifiers allocated from a 16-bit space (standard MQTT).
func NewConnection(role Role, version packets.Version) *Connection {
	return newConnection(role, version, width16)
}

// NewClusterConnection creates a Connection using a 32-bit packet
// identifier space, an application-specific extension for broker
// clusters (§9) — identifiers above 65535 never appear on the wire, only
// in the allocator's own bookkeeping.
func NewClusterConnection(role Role, version packets.Version) *Connection {
	return newConnection(role, version, width32)
}

func newConnection(role Role, version packets.Version, width packetIDWidth) *Connection {
	return &Connection{
		role:                      role,
		version:                   version,
		state:                     StateDisconnected,
		dec:                       &decoder{version: version},
		ids:                       newPacketIDSet(width),
		qos:                       newQoSTracker(),
		sendAlias:                 newAliasMap(0),
		recvAlias:                 newAliasMap(0),
		keepAlive:                 newKeepAliveConfig(),
		autoPubResponse:           true,
		autoPingResponse:          true,
		autoMapTopicAliasSend:     false,
		autoReplaceTopicAliasSend: false,
	}
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State { return c.state }

// AcquirePacketID returns the lowest unused packet identifier, or
// ErrPacketIdentifiersExhausted. Surfaced synchronously, per §7.
func (c *Connection) AcquirePacketID() (uint16, error) {
	id, err := c.ids.acquire()
	if err != nil {
		return 0, err
	}
	return uint16(id), nil
}

// RegisterPacketID explicitly reserves id, for host-supplied identifiers
// (e.g. replaying a persisted inflight record after restart).
func (c *Connection) RegisterPacketID(id uint16) error {
	return c.ids.register(uint32(id))
}

// ReleasePacketID frees id for reuse. Idempotent.
func (c *Connection) ReleasePacketID(id uint16) {
	c.ids.release(uint32(id))
}

// SetAutoPubResponse toggles automatic PUBACK/PUBREC/PUBREL/PUBCOMP
// generation. When disabled, the host must submit the response packets
// itself via Send after observing the corresponding NotifyPacketReceived.
func (c *Connection) SetAutoPubResponse(enabled bool) { c.autoPubResponse = enabled }

// SetAutoPingResponse toggles automatic PINGRESP generation in response
// to a received PINGREQ.
func (c *Connection) SetAutoPingResponse(enabled bool) { c.autoPingResponse = enabled }

// SetAutoMapTopicAliasSend toggles LRU auto-numbering of send-side topic
// aliases (§4.F mode ii): the engine itself picks and evicts aliases as
// new topics are published.
func (c *Connection) SetAutoMapTopicAliasSend(enabled bool) { c.autoMapTopicAliasSend = enabled }

// SetAutoReplaceTopicAliasSend toggles send-side alias substitution
// (§4.F mode i): the engine substitutes a previously-registered alias for
// a topic the host already sent once, but never assigns new aliases
// itself.
func (c *Connection) SetAutoReplaceTopicAliasSend(enabled bool) {
	c.autoReplaceTopicAliasSend = enabled
}

// SetPingreqSendInterval overrides the effective PINGREQ cadence,
// outranking both the v5 ServerKeepAlive property and the KeepAlive field
// sent in CONNECT (§3). A nil ms clears the override and restores the
// normal priority order.
func (c *Connection) SetPingreqSendInterval(ms *uint32) {
	c.keepAlive.setSendIntervalOverride(ms)
}

// SetPingrespRecvTimeout sets how long the engine waits for a PINGRESP
// after sending a PINGREQ before declaring KeepAliveTimeout. 0 disables
// the timeout.
func (c *Connection) SetPingrespRecvTimeout(ms uint32) {
	c.keepAlive.setPingrespTimeout(ms)
}

// SetTopicAliasMaximumRecv sets the Topic-Alias-Maximum this connection
// advertises to the peer via CONNECT/CONNACK, bounding the receive-side
// alias map.
func (c *Connection) SetTopicAliasMaximumRecv(max uint16) {
	c.topicAliasMaximumRecv = max
	c.recvAlias = newAliasMap(max)
}

// SetReceiveMaximum sets the cap on outgoing inflight QoS>=1 PUBLISH
// records that Send enforces with ErrReceiveMaximumExceeded; it is the
// same bound a Receive Maximum property in a received CONNACK installs
// (and a later CONNACK carrying that property replaces it). The value is
// not advertised to the peer: no Receive Maximum property is added to the
// CONNECT or CONNACK this connection sends. 0 restores the default 65535.
func (c *Connection) SetReceiveMaximum(max uint16) {
	c.qos.setReceiveMaximum(max)
}

// SetSessionStore attaches a storage.Store the connection mirrors its
// outgoing inflight PublishRecords into as they are created and
// terminally acknowledged, per §6 "Persistence": the engine keeps session
// state in memory only, but a host wanting to survive a process restart
// can drive a durable storage.Store (or storage/memory.Storage as the
// in-process reference) from here instead of polling InflightPublishes.
// A nil store disables mirroring (the default).
func (c *Connection) SetSessionStore(s storage.Store) {
	c.store = s
}

// InflightPublishes returns every outgoing QoS1/QoS2 PUBLISH the engine
// is still waiting on a terminal acknowledgment for, in send order, so a
// host can persist them for its own session-resumption logic (§6
// "Persistence").
func (c *Connection) InflightPublishes() []*PublishRecord {
	out := make([]*PublishRecord, len(c.qos.outgoing))
	copy(out, c.qos.outgoing)
	return out
}

// Recv feeds newly received bytes into the connection and returns every
// event they produce. It may decode zero, one, or several complete
// frames from a single call, and never blocks on incomplete frames —
// partial data is retained for the next Recv.
func (c *Connection) Recv(b []byte) []Event {
	c.dec.feed(b)
	var events []Event
	for {
		packetType, pkt, err := c.dec.next()
		if err != nil {
			if errors.Is(err, errIncomplete) {
				return events
			}
			events = append(events, c.handleDecodeError(packetType, err)...)
			return events
		}
		events = append(events, c.handleInbound(packetType, pkt)...)
		if c.pendingClose {
			return events
		}
	}
}

// handleDecodeError reports a frame that failed to parse. A malformed
// CONNECT arriving at a server that hasn't completed its handshake yet
// gets the §4.I special case: build and send a CONNACK with
// session-present always populated (the teacher's historical panic this
// guards against) rather than a DISCONNECT, since the connection was
// never established enough to disconnect from.
func (c *Connection) handleDecodeError(packetType packets.PacketType, err error) []Event {
	if c.role == RoleServer && c.state == StateDisconnected && packetType == packets.CONNECT {
		ack := packets.Connack{Version: c.version, SessionPresent: false, ReasonCode: byte(ReasonMalformedPacket)}
		c.pendingClose = true
		c.state = StateDisconnected
		return []Event{
			eventError(MalformedPacket),
			eventSendPacket(packets.CONNACK, &ack),
			eventClose(),
		}
	}

	var ev []Event
	ev = append(ev, eventError(MalformedPacket))
	if c.version == packets.Version5 && c.state != StateDisconnected {
		d := packets.Disconnect{Version: c.version, ReasonCode: byte(ReasonMalformedPacket)}
		ev = append(ev, eventSendPacket(packets.DISCONNECT, &d))
	}
	ev = append(ev, eventClose())
	c.pendingClose = true
	c.state = StateDisconnected
	return ev
}

// handleInbound validates packet type t against the current state and
// role, then dispatches to the per-type handler. Out-of-state packets
// produce a ProtocolError and close, per §4.I.
func (c *Connection) handleInbound(t packets.PacketType, pkt any) []Event {
	if !c.legalToReceive(t) {
		ev := []Event{eventError(ProtocolError)}
		if c.version == packets.Version5 && c.state != StateDisconnected {
			d := packets.Disconnect{Version: c.version, ReasonCode: byte(ReasonProtocolError)}
			ev = append(ev, eventSendPacket(packets.DISCONNECT, &d))
		}
		ev = append(ev, eventClose())
		c.pendingClose = true
		c.state = StateDisconnected
		return ev
	}

	// Any inbound packet while waiting for a PINGRESP satisfies keep-alive;
	// cancel the wait timer regardless of packet type (§4.H).
	var timerEvents []Event
	if c.keepAlive.pingrespTimeoutMS > 0 && c.state == StateConnected {
		timerEvents = append(timerEvents, eventTimerCancel(PingrespRecv))
	}

	var ev []Event
	switch t {
	case packets.CONNECT:
		ev = c.recvConnect(pkt.(packets.Connect))
	case packets.CONNACK:
		ev = c.recvConnack(pkt.(packets.Connack))
	case packets.PUBLISH:
		ev = c.recvPublish(pkt.(packets.Publish))
	case packets.PUBACK, packets.PUBREC, packets.PUBREL, packets.PUBCOMP:
		ev = c.recvPubAck(pkt.(packets.PubAck))
	case packets.SUBSCRIBE:
		ev = []Event{eventPacketReceived(t, pkt)}
	case packets.SUBACK:
		ev = c.recvSuback(pkt.(packets.Suback))
	case packets.UNSUBSCRIBE:
		ev = []Event{eventPacketReceived(t, pkt)}
	case packets.UNSUBACK:
		ev = c.recvUnsuback(pkt.(packets.Unsuback))
	case packets.PINGREQ:
		ev = c.recvPingreq()
	case packets.PINGRESP:
		ev = []Event{eventPacketReceived(t, pkt)}
	case packets.DISCONNECT:
		ev = c.recvDisconnect(pkt.(packets.Disconnect))
	case packets.AUTH:
		ev = []Event{eventPacketReceived(t, pkt)}
	default:
		ev = []Event{eventError(MalformedPacket), eventClose()}
		c.pendingClose = true
	}
	return append(timerEvents, ev...)
}

// legalToReceive implements §4.I's per-state, per-role inbound table.
func (c *Connection) legalToReceive(t packets.PacketType) bool {
	switch c.state {
	case StateDisconnected:
		return c.role == RoleServer && t == packets.CONNECT
	case StateConnectSent:
		return c.role == RoleClient && (t == packets.CONNACK || (t == packets.AUTH && c.version == packets.Version5))
	case StatePreAuth:
		return t == packets.AUTH
	case StateConnected:
		if t == packets.DISCONNECT {
			return true
		}
		if c.role == RoleClient {
			return t != packets.CONNECT
		}
		return t != packets.CONNACK
	case StateDisconnecting:
		return t == packets.DISCONNECT
	default:
		return false
	}
}

// --- CONNECT / CONNACK -----------------------------------------------

func (c *Connection) recvConnect(conn packets.Connect) []Event {
	c.version = conn.Version
	c.dec.version = conn.Version
	c.sentKeepAliveSeconds = conn.KeepAlive

	if max, ok := conn.Properties.GetUint16(packets.PropTopicAliasMaximum); ok {
		c.sendAlias = newAliasMap(max)
	}

	c.state = StateConnected
	var ev []Event
	if c.autoPubResponse {
		// Nothing to auto-ack for CONNECT itself; state mutation above is
		// the only (a)-phase work.
	}
	ev = append(ev, eventPacketReceived(packets.CONNECT, conn))
	return ev
}

func (c *Connection) recvConnack(ack packets.Connack) []Event {
	var ev []Event
	failed := (c.version == packets.Version5 && ack.ReasonCode >= 0x80) ||
		(c.version != packets.Version5 && ack.ReasonCode != 0)

	if !failed {
		c.state = StateConnected
		c.sessionPresent = ack.SessionPresent

		serverKA, hasServerKA := ack.Properties.GetUint16(packets.PropServerKeepAlive)
		interval := c.keepAlive.resolveSendInterval(c.sentKeepAliveSeconds, serverKA, hasServerKA)

		if rm, ok := ack.Properties.GetUint16(packets.PropReceiveMaximum); ok {
			c.qos.setReceiveMaximum(rm)
		}
		if tam, ok := ack.Properties.GetUint16(packets.PropTopicAliasMaximum); ok {
			c.sendAlias = newAliasMap(tam)
		}

		ev = append(ev, eventPacketReceived(packets.CONNACK, ack))
		if interval > 0 {
			ev = append(ev, eventTimerReset(PingreqSend, interval))
		}
		return ev
	}

	// Open Question #1: mirror v5's auto-close on v3.1.1 CONNACK error too.
	ev = append(ev, eventPacketReceived(packets.CONNACK, ack))
	ev = append(ev, eventClose())
	c.pendingClose = true
	c.state = StateDisconnected
	return ev
}

// --- PUBLISH / PUBACK family ------------------------------------------

func (c *Connection) recvPublish(p packets.Publish) []Event {
	if c.version == packets.Version5 {
		if alias, ok := p.Properties.GetUint16(packets.PropTopicAlias); ok {
			if p.Topic == "" {
				topic, err := c.recvAlias.resolve(alias)
				if err != nil {
					ev := []Event{eventError(TopicAliasInvalid)}
					d := packets.Disconnect{Version: c.version, ReasonCode: byte(ReasonTopicAliasInvalid)}
					ev = append(ev, eventSendPacket(packets.DISCONNECT, &d), eventClose())
					c.pendingClose = true
					c.state = StateDisconnected
					return ev
				}
				p.Topic = topic
				p.TopicNameExtracted = true
			} else {
				_ = c.recvAlias.register(alias, p.Topic)
			}
		}
	}

	var ev []Event
	switch p.QoS {
	case packets.QoS1:
		if c.autoPubResponse {
			ack := packets.NewPubAck(c.version, p.PacketID)
			ev = append(ev, eventSendPacket(packets.PUBACK, ack))
		}
		ev = append(ev, eventPacketReceived(packets.PUBLISH, p))
	case packets.QoS2:
		isNew := c.qos.recordIncomingQoS2(p.PacketID)
		if c.autoPubResponse {
			ack := packets.NewPubRec(c.version, p.PacketID)
			ev = append(ev, eventSendPacket(packets.PUBREC, ack))
		}
		if isNew {
			ev = append(ev, eventPacketReceived(packets.PUBLISH, p))
		}
		// A duplicate QoS2 PUBLISH (isNew == false) is acked above but not
		// redelivered, per §4.G/§8 scenario 2.
	default:
		ev = append(ev, eventPacketReceived(packets.PUBLISH, p))
	}
	return ev
}

func (c *Connection) recvPubAck(ack packets.PubAck) []Event {
	var ev []Event
	switch ack.Type {
	case packets.PUBACK:
		if rec, ok := c.qos.onPuback(ack.PacketID); ok {
			_ = rec
			if c.store != nil {
				_ = c.store.Drop(ack.PacketID)
			}
			c.ids.release(uint32(ack.PacketID))
			ev = append(ev, eventPacketIDReleased(uint32(ack.PacketID)))
		}
		ev = append(ev, eventPacketReceived(packets.PUBACK, ack))
	case packets.PUBREC:
		if rec, ok := c.qos.onPubrec(ack.PacketID); ok {
			if c.autoPubResponse {
				rel := packets.NewPubRel(c.version, ack.PacketID)
				ev = append(ev, eventSendPacket(packets.PUBREL, rel))
			}
			_ = rec
		}
		ev = append(ev, eventPacketReceived(packets.PUBREC, ack))
	case packets.PUBREL:
		c.qos.releaseIncomingQoS2(ack.PacketID)
		if c.autoPubResponse {
			comp := packets.NewPubComp(c.version, ack.PacketID)
			ev = append(ev, eventSendPacket(packets.PUBCOMP, comp))
		}
		ev = append(ev, eventPacketReceived(packets.PUBREL, ack))
	case packets.PUBCOMP:
		if _, ok := c.qos.onPubcomp(ack.PacketID); ok {
			if c.store != nil {
				_ = c.store.Drop(ack.PacketID)
			}
			// Release-before-notify: Open Question #3.
			c.ids.release(uint32(ack.PacketID))
			ev = append(ev, eventPacketIDReleased(uint32(ack.PacketID)))
		}
		ev = append(ev, eventPacketReceived(packets.PUBCOMP, ack))
	}
	return ev
}

func (c *Connection) recvSuback(s packets.Suback) []Event {
	c.ids.release(uint32(s.PacketID))
	return []Event{
		eventPacketReceived(packets.SUBACK, s),
		eventPacketIDReleased(uint32(s.PacketID)),
	}
}

func (c *Connection) recvUnsuback(u packets.Unsuback) []Event {
	c.ids.release(uint32(u.PacketID))
	return []Event{
		eventPacketReceived(packets.UNSUBACK, u),
		eventPacketIDReleased(uint32(u.PacketID)),
	}
}

func (c *Connection) recvPingreq() []Event {
	var ev []Event
	if c.autoPingResponse {
		ev = append(ev, eventSendPacket(packets.PINGRESP, packets.PingResp{}))
	}
	ev = append(ev, eventPacketReceived(packets.PINGREQ, packets.PingReq{}))
	return ev
}

func (c *Connection) recvDisconnect(d packets.Disconnect) []Event {
	c.state = StateDisconnected
	c.pendingClose = true
	return []Event{
		eventPacketReceived(packets.DISCONNECT, d),
		eventTimerCancel(PingreqSend),
		eventClose(),
	}
}

// --- Timers -------------------------------------------------------------

// NotifyTimerFired handles a host-reported timer expiry, per §4.H.
func (c *Connection) NotifyTimerFired(kind TimerKind) []Event {
	switch kind {
	case PingreqSend:
		var ev []Event
		ev = append(ev, eventSendPacket(packets.PINGREQ, packets.PingReq{}))
		if c.keepAlive.sendIntervalMS > 0 {
			ev = append(ev, eventTimerReset(PingreqSend, c.keepAlive.sendIntervalMS))
		}
		if c.keepAlive.pingrespTimeoutMS > 0 {
			ev = append(ev, eventTimerReset(PingrespRecv, c.keepAlive.pingrespTimeoutMS))
		}
		return ev
	case PingrespRecv:
		ev := []Event{eventError(KeepAliveTimeout)}
		if c.version == packets.Version5 {
			d := packets.Disconnect{Version: c.version, ReasonCode: byte(ReasonKeepAliveTimeout)}
			ev = append(ev, eventSendPacket(packets.DISCONNECT, &d))
		}
		ev = append(ev, eventClose())
		c.pendingClose = true
		c.state = StateDisconnected
		return ev
	case PingreqRecv:
		ev := []Event{eventError(KeepAliveTimeout), eventClose()}
		c.pendingClose = true
		c.state = StateDisconnected
		return ev
	default:
		return nil
	}
}

// --- Outbound submission --------------------------------------------

// Send submits a packet to be encoded and transmitted. While the
// connection is not connected, QoS>=1 PUBLISH submissions are buffered for
// replay after reconnect (§4.J) instead of failing; QoS0 PUBLISH,
// SUBSCRIBE, UNSUBSCRIBE, PINGREQ and unrecognized packet values fail with
// ErrPacketNotAllowedToSendOffline via the returned error, while CONNECT,
// CONNACK, DISCONNECT and AUTH are sent regardless of state. Per §4.H,
// on a client any packet actually handed to the host for transmission
// while connected re-arms the PINGREQ send timer.
func (c *Connection) Send(pkt any) ([]Event, error) {
	ev, err := c.sendLocked(pkt)
	if err != nil {
		return ev, err
	}
	if hasSendEvent(ev) {
		ev = append(ev, c.pingreqResetEvents()...)
	}
	return ev, nil
}

// hasSendEvent reports whether ev contains a RequestSendPacket, i.e.
// whether this call actually handed the host bytes to transmit rather
// than only buffering a record for later replay.
func hasSendEvent(ev []Event) bool {
	for _, e := range ev {
		if e.Kind == RequestSendPacket {
			return true
		}
	}
	return false
}

// pingreqResetEvents returns the RequestTimerReset event every packet
// send re-arms while connected with keep-alive active (§4.H: "Every
// packet sent resets the timer"). Only the client side runs the
// PingreqSend timer; nil outside StateConnected or with keep-alive
// disabled.
func (c *Connection) pingreqResetEvents() []Event {
	if c.role != RoleClient || c.state != StateConnected || c.keepAlive.sendIntervalMS == 0 {
		return nil
	}
	return []Event{eventTimerReset(PingreqSend, c.keepAlive.sendIntervalMS)}
}

func (c *Connection) sendLocked(pkt any) ([]Event, error) {
	switch p := pkt.(type) {
	case *packets.Connect:
		if c.role != RoleClient {
			return nil, ErrWrongRole
		}
		c.version = p.Version
		c.dec.version = p.Version
		c.sentKeepAliveSeconds = p.KeepAlive
		c.state = StateConnectSent
		if p.Version == packets.Version5 && c.topicAliasMaximumRecv > 0 {
			p.Properties.SetUint16(packets.PropTopicAliasMaximum, c.topicAliasMaximumRecv)
		}
		return []Event{eventSendPacket(packets.CONNECT, p)}, nil

	case *packets.Connack:
		if c.role != RoleServer {
			return nil, ErrWrongRole
		}
		if p.Version == packets.Version5 && c.topicAliasMaximumRecv > 0 {
			p.Properties.SetUint16(packets.PropTopicAliasMaximum, c.topicAliasMaximumRecv)
		}
		ev := []Event{eventSendPacket(packets.CONNACK, p)}
		if p.ReasonCode >= 0x80 {
			ev = append(ev, eventClose())
			c.pendingClose = true
			c.state = StateDisconnected
		} else {
			c.state = StateConnected
		}
		return ev, nil

	case *packets.Publish:
		return c.sendPublish(p)

	case *packets.Subscribe:
		if c.state != StateConnected {
			return nil, ErrPacketNotAllowedToSendOffline
		}
		return []Event{eventSendPacket(packets.SUBSCRIBE, p)}, nil

	case *packets.Unsubscribe:
		if c.state != StateConnected {
			return nil, ErrPacketNotAllowedToSendOffline
		}
		return []Event{eventSendPacket(packets.UNSUBSCRIBE, p)}, nil

	case *packets.Disconnect:
		c.state = StateDisconnected
		c.pendingClose = true
		return []Event{
			eventSendPacket(packets.DISCONNECT, p),
			eventTimerCancel(PingreqSend),
			eventClose(),
		}, nil

	case packets.PingReq:
		if c.state != StateConnected {
			return nil, ErrPacketNotAllowedToSendOffline
		}
		return []Event{eventSendPacket(packets.PINGREQ, p)}, nil

	case *packets.Auth:
		return []Event{eventSendPacket(packets.AUTH, p)}, nil

	default:
		return nil, ErrPacketNotAllowedToSendOffline
	}
}

// ErrPacketNotAllowedToSendOffline is returned by Send for a packet type
// that cannot be buffered for replay while disconnected.
var ErrPacketNotAllowedToSendOffline = errors.New("mqtt: packet not allowed to send while offline")

func (c *Connection) sendPublish(p *packets.Publish) ([]Event, error) {
	if c.version == packets.Version5 && c.autoMapTopicAliasSend && c.sendAlias.max > 0 {
		if alias, isNew, err := c.sendAlias.autoAssign(p.Topic); err == nil {
			p.Properties.SetUint16(packets.PropTopicAlias, alias)
			if !isNew {
				p.Topic = ""
			}
		}
	} else if c.version == packets.Version5 && c.autoReplaceTopicAliasSend && c.sendAlias.max > 0 {
		if alias, ok := c.sendAlias.aliasFor(p.Topic); ok {
			p.Properties.SetUint16(packets.PropTopicAlias, alias)
			p.Topic = ""
		}
	}

	if p.QoS == packets.QoS0 {
		if c.state != StateConnected {
			return nil, ErrPacketNotAllowedToSendOffline
		}
		return []Event{eventSendPacket(packets.PUBLISH, p)}, nil
	}

	rec := &PublishRecord{PacketID: p.PacketID, QoS: p.QoS, Packet: *p}
	if p.QoS == packets.QoS2 {
		rec.Phase = phaseAwaitingPubrec
	}
	if err := c.qos.trackOutgoing(rec); err != nil {
		return nil, err
	}
	if c.store != nil {
		// Packet identifiers are unique by construction (the allocator
		// never hands one out twice), so this can only fail if a host
		// reused an identifier behind the engine's back, which the host
		// would already observe from AcquirePacketID/RegisterPacketID.
		_ = c.store.Store(rec.PacketID, rec)
	}

	if c.state != StateConnected {
		// Buffered for replay after reconnect; no RequestSendPacket yet.
		return nil, nil
	}
	return []Event{eventSendPacketReleaseOnError(packets.PUBLISH, p, uint32(p.PacketID))}, nil
}

// Retransmit re-emits every outgoing inflight PUBLISH with Dup set, for
// a host that resumed a stored session after reconnecting (§4.G).
func (c *Connection) Retransmit() []Event {
	recs := c.qos.retransmit()
	ev := make([]Event, 0, len(recs))
	for _, rec := range recs {
		pkt := rec.Packet
		pkt.Duplicate = true
		ev = append(ev, eventSendPacket(packets.PUBLISH, &pkt))
	}
	return ev
}
