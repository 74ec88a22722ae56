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

var (
	ErrUnexpectedPacketTypeReceived = errors.New("unexpected packet type received")
	ErrClientNotConnected           = errors.New("the client is not connected")
	ErrInvalidArgument              = errors.New("invalid argument")
)

// ErrorKind enumerates the error taxonomy surfaced to the host via
// NotifyError, per §7. Some kinds are also returned synchronously from a
// call (e.g. AcquirePacketID) rather than appearing in the event stream;
// see each kind's doc comment.
type ErrorKind int

const (
	// MalformedPacket: byte layout violates the wire format.
	MalformedPacket ErrorKind = iota
	// ProtocolError: well-formed but illegal in the connection's current
	// state.
	ProtocolError
	// TopicAliasInvalid: referenced an unregistered alias, or one beyond
	// the negotiated maximum.
	TopicAliasInvalid
	// TopicNameInvalid: a PUBLISH topic name failed validation.
	TopicNameInvalid
	// TopicFilterInvalid: a SUBSCRIBE/UNSUBSCRIBE filter failed
	// validation.
	TopicFilterInvalid
	// PacketIdentifiersExhausted: the packet-ID allocator has no free
	// identifiers left. Surfaced synchronously to the caller of
	// AcquirePacketID, not via NotifyError.
	PacketIdentifiersExhausted
	// PacketIdentifierConflict: RegisterPacketID was called with an
	// identifier already in use. Surfaced synchronously.
	PacketIdentifierConflict
	// PacketIdentifierInvalid: identifier 0, or out of range for the
	// connection's configured width.
	PacketIdentifierInvalid
	// ReceiveMaximumExceeded: sending this PUBLISH would exceed the
	// peer's advertised Receive-Maximum. Surfaced synchronously to the
	// caller of Send.
	ReceiveMaximumExceeded
	// PacketTooLarge: the encoded packet exceeds the peer's
	// Maximum-Packet-Size.
	PacketTooLarge
	// KeepAliveTimeout: no PINGRESP arrived within the configured
	// timeout.
	KeepAliveTimeout
	// PacketNotAllowedToSendOffline: Send was called while disconnected
	// with a packet type that cannot be buffered for replay.
	PacketNotAllowedToSendOffline
	// PacketNotAllowedToReceive: a received packet type is not legal for
	// this role in the connection's current state.
	PacketNotAllowedToReceive
	// Unsupported: the requested feature does not exist in the
	// negotiated protocol version (e.g. TopicAlias under v3.1.1).
	Unsupported
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedPacket:
		return "malformed packet"
	case ProtocolError:
		return "protocol error"
	case TopicAliasInvalid:
		return "topic alias invalid"
	case TopicNameInvalid:
		return "topic name invalid"
	case TopicFilterInvalid:
		return "topic filter invalid"
	case PacketIdentifiersExhausted:
		return "packet identifiers exhausted"
	case PacketIdentifierConflict:
		return "packet identifier conflict"
	case PacketIdentifierInvalid:
		return "packet identifier invalid"
	case ReceiveMaximumExceeded:
		return "receive maximum exceeded"
	case PacketTooLarge:
		return "packet too large"
	case KeepAliveTimeout:
		return "keep-alive timeout"
	case PacketNotAllowedToSendOffline:
		return "packet not allowed to send offline"
	case PacketNotAllowedToReceive:
		return "packet not allowed to receive"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown error"
	}
}

// ReasonCode is a v5 CONNACK/DISCONNECT/ack reason code. It also doubles
// as a v3.1.1 CONNACK return code for the handful of values both versions
// share (0x00-0x05).
type ReasonCode byte

const (
	ReasonSuccess                           ReasonCode = 0x00
	ReasonNormalDisconnection                ReasonCode = 0x00
	ReasonGrantedQoS0                        ReasonCode = 0x00
	ReasonGrantedQoS1                        ReasonCode = 0x01
	ReasonGrantedQoS2                        ReasonCode = 0x02
	ReasonDisconnectWithWillMessage           ReasonCode = 0x04
	ReasonNoMatchingSubscribers               ReasonCode = 0x10
	ReasonNoSubscriptionExisted               ReasonCode = 0x11
	ReasonContinueAuthentication              ReasonCode = 0x18
	ReasonReAuthenticate                      ReasonCode = 0x19
	ReasonUnspecifiedError                    ReasonCode = 0x80
	ReasonMalformedPacket                     ReasonCode = 0x81
	ReasonProtocolError                       ReasonCode = 0x82
	ReasonImplementationSpecificError         ReasonCode = 0x83
	ReasonUnsupportedProtocolVersion          ReasonCode = 0x84
	ReasonClientIdentifierNotValid            ReasonCode = 0x85
	ReasonBadUserNameOrPassword               ReasonCode = 0x86
	ReasonNotAuthorized                       ReasonCode = 0x87
	ReasonServerUnavailable                   ReasonCode = 0x88
	ReasonServerBusy                          ReasonCode = 0x89
	ReasonBanned                              ReasonCode = 0x8A
	ReasonServerShuttingDown                  ReasonCode = 0x8B
	ReasonBadAuthenticationMethod             ReasonCode = 0x8C
	ReasonKeepAliveTimeout                    ReasonCode = 0x8D
	ReasonSessionTakenOver                    ReasonCode = 0x8E
	ReasonTopicFilterInvalid                  ReasonCode = 0x8F
	ReasonTopicNameInvalid                    ReasonCode = 0x90
	ReasonPacketIdentifierInUse               ReasonCode = 0x91
	ReasonPacketIdentifierNotFound             ReasonCode = 0x92
	ReasonReceiveMaximumExceeded               ReasonCode = 0x93
	ReasonTopicAliasInvalid                    ReasonCode = 0x94
	ReasonPacketTooLarge                       ReasonCode = 0x95
	ReasonMessageRateTooHigh                   ReasonCode = 0x96
	ReasonQuotaExceeded                        ReasonCode = 0x97
	ReasonAdministrativeAction                 ReasonCode = 0x98
	ReasonPayloadFormatInvalid                 ReasonCode = 0x99
	ReasonRetainNotSupported                   ReasonCode = 0x9A
	ReasonQoSNotSupported                      ReasonCode = 0x9B
	ReasonUseAnotherServer                     ReasonCode = 0x9C
	ReasonServerMoved                          ReasonCode = 0x9D
	ReasonSharedSubscriptionsNotSupported      ReasonCode = 0x9E
	ReasonConnectionRateExceeded               ReasonCode = 0x9F
	ReasonMaximumConnectTime                   ReasonCode = 0xA0
	ReasonSubscriptionIdentifiersNotSupported  ReasonCode = 0xA1
	ReasonWildcardSubscriptionsNotSupported    ReasonCode = 0xA2
)

func (r ReasonCode) Error() string {
	switch r {
	case 0x00:
		return "success"
	case 0x01:
		return "granted qos 1"
	case 0x02:
		return "granted qos 2"
	case 0x04:
		return "disconnect with will message"
	case 0x10:
		return "no matching subscribers"
	case 0x11:
		return "no subscription existed"
	case 0x18:
		return "continue authentication"
	case 0x19:
		return "re-authenticate"
	case 0x80:
		return "unspecified error"
	case 0x81:
		return "malformed packet"
	case 0x82:
		return "protocol error"
	case 0x83:
		return "implementation specific error"
	case 0x84:
		return "unsupported protocol version"
	case 0x85:
		return "client identifier not valid"
	case 0x86:
		return "bad user name or password"
	case 0x87:
		return "not authorized"
	case 0x88:
		return "server not available"
	case 0x89:
		return "server busy"
	case 0x8A:
		return "banned"
	case 0x8B:
		return "server shutting down"
	case 0x8C:
		return "bad authentication method"
	case 0x8D:
		return "keep alive timeout"
	case 0x8E:
		return "session taken over"
	case 0x8F:
		return "topic filter invalid"
	case 0x90:
		return "topic name invalid"
	case 0x91:
		return "packet identifier in use"
	case 0x92:
		return "packet identifier not found"
	case 0x93:
		return "receive maximum exceeded"
	case 0x94:
		return "topic alias invalid"
	case 0x95:
		return "packet too large"
	case 0x96:
		return "message rate too high"
	case 0x97:
		return "quota exceeded"
	case 0x98:
		return "administrative action"
	case 0x99:
		return "payload format invalid"
	case 0x9A:
		return "retain not supported"
	case 0x9B:
		return "qos not supported"
	case 0x9C:
		return "use another server"
	case 0x9D:
		return "server moved"
	case 0x9E:
		return "shared subscriptions not supported"
	case 0x9F:
		return "connection rate exceeded"
	case 0xA0:
		return "maximum connect time"
	case 0xA1:
		return "subscription identifiers not supported"
	case 0xA2:
		return "wildcard subscriptions not supported"
	default:
		return "unknown error"
	}
}
