package mqtt

import (
	"bytes"
	"testing"

	"github.com/mqttcore/sansio/mqtt/packets"
	"github.com/mqttcore/sansio/mqtt/packets/primitives"
	"github.com/mqttcore/sansio/mqtt/storage"
	"github.com/mqttcore/sansio/mqtt/storage/memory"
)

type wireEncodable interface {
	EncodedSize() int
	AppendTo(*primitives.ScatterWriter) error
}

func encodePacket(t *testing.T, p wireEncodable) []byte {
	t.Helper()
	w := &primitives.ScatterWriter{}
	if err := p.AppendTo(w); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var buf bytes.Buffer
	for _, b := range w.Buffers() {
		buf.Write(b)
	}
	return buf.Bytes()
}

func eventsOfKind(events []Event, kind EventKind) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// connectClient drives a client Connection through a successful
// handshake and returns it ready in StateConnected.
func connectClient(t *testing.T, version packets.Version) *Connection {
	t.Helper()
	c := NewConnection(RoleClient, version)
	conn := (&packets.Connect{Version: version, CleanStart: true, ClientID: "dev-1", KeepAlive: 60}).SetClientID("dev-1")
	if _, err := c.Send(conn); err != nil {
		t.Fatalf("send CONNECT: %v", err)
	}
	ack := &packets.Connack{Version: version, SessionPresent: false, ReasonCode: 0}
	raw := encodePacket(t, ack)
	events := c.Recv(raw)
	if c.State() != StateConnected {
		t.Fatalf("state = %v, want StateConnected; events=%+v", c.State(), events)
	}
	return c
}

// connectServer drives a server Connection through a successful
// handshake and returns it ready in StateConnected.
func connectServer(t *testing.T, version packets.Version) *Connection {
	t.Helper()
	c := NewConnection(RoleServer, version)
	conn := &packets.Connect{Version: version, CleanStart: true, ClientID: "dev-1", KeepAlive: 60}
	raw := encodePacket(t, conn)
	c.Recv(raw)
	if c.State() != StateConnected {
		t.Fatalf("state after CONNECT = %v, want StateConnected", c.State())
	}
	ack := &packets.Connack{Version: version, SessionPresent: false, ReasonCode: 0}
	if _, err := c.Send(ack); err != nil {
		t.Fatalf("send CONNACK: %v", err)
	}
	return c
}

// Scenario 1 (§8): QoS1 publish round trip, v5.
func TestScenarioQoS1PublishRoundTrip(t *testing.T) {
	c := connectClient(t, packets.Version5)
	id, err := c.AcquirePacketID()
	if err != nil {
		t.Fatal(err)
	}
	pub := &packets.Publish{Version: packets.Version5, Topic: "a/b", QoS: packets.QoS1, PacketID: id, Payload: []byte{0x68, 0x69}}
	events, err := c.Send(pub)
	if err != nil {
		t.Fatalf("send PUBLISH: %v", err)
	}
	sendEvents := eventsOfKind(events, RequestSendPacket)
	if len(sendEvents) != 1 {
		t.Fatalf("expected exactly one RequestSendPacket, got %d", len(sendEvents))
	}
	raw := encodePacket(t, sendEvents[0].Packet.(*packets.Publish))
	if raw[0] != 0x32 {
		t.Fatalf("fixed header byte = %#x, want 0x32", raw[0])
	}

	puback := packets.NewPubAck(packets.Version5, id)
	events = c.Recv(encodePacket(t, puback))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != NotifyPacketIdReleased || events[0].PacketID != uint32(id) {
		t.Fatalf("events[0] = %+v, want NotifyPacketIdReleased(%d)", events[0], id)
	}
	if events[1].Kind != NotifyPacketReceived || events[1].PacketType != packets.PUBACK {
		t.Fatalf("events[1] = %+v, want NotifyPacketReceived(PUBACK)", events[1])
	}
}

// Scenario 2 (§8): QoS2 duplicate handling.
func TestScenarioQoS2DuplicateHandling(t *testing.T) {
	c := connectServer(t, packets.Version5)

	pub := &packets.Publish{Version: packets.Version5, Topic: "a/b", QoS: packets.QoS2, PacketID: 7}
	events := c.Recv(encodePacket(t, pub))
	sendEvents := eventsOfKind(events, RequestSendPacket)
	if len(sendEvents) != 1 || sendEvents[0].PacketType != packets.PUBREC {
		t.Fatalf("expected one PUBREC, got %+v", sendEvents)
	}
	if len(eventsOfKind(events, NotifyPacketReceived)) != 1 {
		t.Fatalf("expected exactly one NotifyPacketReceived for the first PUBLISH")
	}

	dup := &packets.Publish{Version: packets.Version5, Topic: "a/b", QoS: packets.QoS2, PacketID: 7, Duplicate: true}
	events = c.Recv(encodePacket(t, dup))
	sendEvents = eventsOfKind(events, RequestSendPacket)
	if len(sendEvents) != 1 || sendEvents[0].PacketType != packets.PUBREC {
		t.Fatalf("duplicate PUBLISH should still be PUBREC-acked, got %+v", sendEvents)
	}
	if len(eventsOfKind(events, NotifyPacketReceived)) != 0 {
		t.Fatalf("duplicate PUBLISH must not be redelivered to the host")
	}

	pubrel := packets.NewPubRel(packets.Version5, 7)
	events = c.Recv(encodePacket(t, pubrel))
	sendEvents = eventsOfKind(events, RequestSendPacket)
	if len(sendEvents) != 1 || sendEvents[0].PacketType != packets.PUBCOMP {
		t.Fatalf("expected one PUBCOMP, got %+v", sendEvents)
	}
	if _, stillPending := c.qos.incomingQoS2[7]; stillPending {
		t.Fatal("id 7 should be removed from the incoming QoS2 set after PUBREL")
	}
}

// Scenario 3 (§8): malformed CONNECT on server.
func TestScenarioMalformedConnectOnServer(t *testing.T) {
	c := NewConnection(RoleServer, packets.Version5)
	// Fixed header: CONNECT type, remaining length 12. Body: a protocol
	// name whose u16 length prefix claims 100 bytes, but only a handful
	// follow - a length-prefixed field lying about its size, not an
	// incomplete frame.
	raw := []byte{
		0x10, 12, // CONNECT, remaining length 12 (fully buffered below)
		0x00, 100, // protocol name length = 100 (impossible within 12 bytes)
		'M', 'Q', 'T', 'T', 0, 0, 0, 0, 0, 0,
	}
	events := c.Recv(raw)

	errs := eventsOfKind(events, NotifyError)
	if len(errs) != 1 || errs[0].Err != MalformedPacket {
		t.Fatalf("expected one MalformedPacket error, got %+v", errs)
	}
	sendEvents := eventsOfKind(events, RequestSendPacket)
	if len(sendEvents) != 1 || sendEvents[0].PacketType != packets.CONNACK {
		t.Fatalf("expected a CONNACK, got %+v", sendEvents)
	}
	ack := sendEvents[0].Packet.(*packets.Connack)
	if ack.SessionPresent {
		t.Fatal("session-present must be false, and must be explicitly populated (no panic on the zero value)")
	}
	if ack.ReasonCode != byte(ReasonMalformedPacket) {
		t.Fatalf("reason code = %#x, want 0x81", ack.ReasonCode)
	}
	if len(eventsOfKind(events, RequestClose)) != 1 {
		t.Fatal("expected RequestClose")
	}
}

// Scenario 4 (§8): keep-alive timeout.
func TestScenarioKeepAliveTimeout(t *testing.T) {
	c := NewConnection(RoleClient, packets.Version5)
	conn := (&packets.Connect{Version: packets.Version5, CleanStart: true, ClientID: "dev-1", KeepAlive: 60})
	if _, err := c.Send(conn); err != nil {
		t.Fatal(err)
	}
	c.SetPingrespRecvTimeout(5000)

	ack := &packets.Connack{Version: packets.Version5, ReasonCode: 0}
	ack.Properties.SetUint16(packets.PropServerKeepAlive, 10)
	events := c.Recv(encodePacket(t, ack))

	resets := eventsOfKind(events, RequestTimerReset)
	if len(resets) != 1 || resets[0].Timer != PingreqSend || resets[0].DurationMS != 10000 {
		t.Fatalf("expected RequestTimerReset{PingreqSend,10000}, got %+v", resets)
	}

	events = c.NotifyTimerFired(PingreqSend)
	sends := eventsOfKind(events, RequestSendPacket)
	if len(sends) != 1 || sends[0].PacketType != packets.PINGREQ {
		t.Fatalf("expected a PINGREQ send, got %+v", sends)
	}
	resets = eventsOfKind(events, RequestTimerReset)
	if len(resets) != 2 {
		t.Fatalf("expected two timer resets (send cadence + pingresp wait), got %+v", resets)
	}

	events = c.NotifyTimerFired(PingrespRecv)
	errs := eventsOfKind(events, NotifyError)
	if len(errs) != 1 || errs[0].Err != KeepAliveTimeout {
		t.Fatalf("expected KeepAliveTimeout, got %+v", errs)
	}
	sends = eventsOfKind(events, RequestSendPacket)
	if len(sends) != 1 || sends[0].PacketType != packets.DISCONNECT {
		t.Fatalf("expected a DISCONNECT on keep-alive timeout (v5), got %+v", sends)
	}
	disc := sends[0].Packet.(*packets.Disconnect)
	if disc.ReasonCode != byte(ReasonKeepAliveTimeout) {
		t.Fatalf("reason code = %#x, want 0x8D", disc.ReasonCode)
	}
	if len(eventsOfKind(events, RequestClose)) != 1 {
		t.Fatal("expected RequestClose")
	}
}

// Scenario 5 (§8): TopicAlias extraction.
func TestScenarioTopicAliasExtraction(t *testing.T) {
	c := connectClient(t, packets.Version5)
	c.recvAlias = newAliasMap(5)

	first := &packets.Publish{Version: packets.Version5, Topic: "sensors/t1", QoS: packets.QoS0}
	first.Properties.SetUint16(packets.PropTopicAlias, 3)
	events := c.Recv(encodePacket(t, first))
	delivered := eventsOfKind(events, NotifyPacketReceived)
	if len(delivered) != 1 {
		t.Fatalf("expected one delivery, got %+v", delivered)
	}
	p1 := delivered[0].Packet.(packets.Publish)
	if p1.TopicNameExtracted {
		t.Fatal("the first PUBLISH carried its own topic; it should not be marked extracted")
	}

	second := &packets.Publish{Version: packets.Version5, Topic: "", QoS: packets.QoS0}
	second.Properties.SetUint16(packets.PropTopicAlias, 3)
	events = c.Recv(encodePacket(t, second))
	delivered = eventsOfKind(events, NotifyPacketReceived)
	if len(delivered) != 1 {
		t.Fatalf("expected one delivery, got %+v", delivered)
	}
	p2 := delivered[0].Packet.(packets.Publish)
	if p2.Topic != "sensors/t1" {
		t.Fatalf("topic = %q, want sensors/t1", p2.Topic)
	}
	if !p2.TopicNameExtracted {
		t.Fatal("expected TopicNameExtracted = true")
	}
}

func TestScenarioTopicAliasInvalidClosesConnection(t *testing.T) {
	c := connectClient(t, packets.Version5)
	c.recvAlias = newAliasMap(5)

	p := &packets.Publish{Version: packets.Version5, Topic: "", QoS: packets.QoS0}
	p.Properties.SetUint16(packets.PropTopicAlias, 3) // never registered
	events := c.Recv(encodePacket(t, p))

	errs := eventsOfKind(events, NotifyError)
	if len(errs) != 1 || errs[0].Err != TopicAliasInvalid {
		t.Fatalf("expected TopicAliasInvalid, got %+v", errs)
	}
	if len(eventsOfKind(events, RequestClose)) != 1 {
		t.Fatal("expected RequestClose")
	}
}

// Scenario 6 (§8): packet-ID exhaustion, W=16, exercised at the
// Connection level via AcquirePacketID/ReleasePacketID.
func TestScenarioPacketIDExhaustion(t *testing.T) {
	c := NewConnection(RoleClient, packets.Version5)
	for i := uint32(1); i <= 65535; i++ {
		if err := c.RegisterPacketID(uint16(i)); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	if _, err := c.AcquirePacketID(); err != ErrPacketIdentifiersExhausted {
		t.Fatalf("expected ErrPacketIdentifiersExhausted, got %v", err)
	}
	c.ReleasePacketID(42)
	got, err := c.AcquirePacketID()
	if err != nil || got != 42 {
		t.Fatalf("acquire after release(42) = %d, %v", got, err)
	}
}

func TestOfflineSendBuffersQoS1ForReplay(t *testing.T) {
	c := NewConnection(RoleClient, packets.Version311)
	pub := &packets.Publish{Version: packets.Version311, Topic: "a/b", QoS: packets.QoS1, PacketID: 1}
	events, err := c.Send(pub)
	if err != nil {
		t.Fatalf("offline QoS1 send should be buffered, not rejected: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("buffered offline send should produce no RequestSendPacket, got %+v", events)
	}
	if c.qos.inflightCount() != 1 {
		t.Fatal("the PUBLISH should be tracked as inflight, pending replay")
	}
}

func TestOfflineSendRejectsNonStorablePacket(t *testing.T) {
	c := NewConnection(RoleClient, packets.Version311)
	if _, err := c.Send(&packets.Subscribe{Version: packets.Version311, PacketID: 1}); err != ErrPacketNotAllowedToSendOffline {
		t.Fatalf("expected ErrPacketNotAllowedToSendOffline, got %v", err)
	}
}

func TestRetransmitMarksDupAfterReconnect(t *testing.T) {
	c := NewConnection(RoleClient, packets.Version311)
	pub := &packets.Publish{Version: packets.Version311, Topic: "a/b", QoS: packets.QoS1, PacketID: 1}
	if _, err := c.Send(pub); err != nil {
		t.Fatal(err)
	}
	events := c.Retransmit()
	sends := eventsOfKind(events, RequestSendPacket)
	if len(sends) != 1 {
		t.Fatalf("expected one retransmitted PUBLISH, got %+v", sends)
	}
	replayed := sends[0].Packet.(*packets.Publish)
	if !replayed.Duplicate {
		t.Fatal("retransmitted PUBLISH should have Duplicate set")
	}
}

func TestReceiveMaximumExceededOnSend(t *testing.T) {
	c := connectClient(t, packets.Version5)
	c.SetReceiveMaximum(1)
	id1, _ := c.AcquirePacketID()
	if _, err := c.Send(&packets.Publish{Version: packets.Version5, Topic: "a", QoS: packets.QoS1, PacketID: id1}); err != nil {
		t.Fatal(err)
	}
	id2, _ := c.AcquirePacketID()
	if _, err := c.Send(&packets.Publish{Version: packets.Version5, Topic: "b", QoS: packets.QoS1, PacketID: id2}); err != ErrReceiveMaximumExceeded {
		t.Fatalf("expected ErrReceiveMaximumExceeded, got %v", err)
	}
}

func TestOutOfStatePacketIsProtocolError(t *testing.T) {
	c := NewConnection(RoleServer, packets.Version5)
	// A PUBLISH before any CONNECT is out of state for a disconnected
	// server.
	pub := &packets.Publish{Version: packets.Version5, Topic: "a/b", QoS: packets.QoS0}
	events := c.Recv(encodePacket(t, pub))
	errs := eventsOfKind(events, NotifyError)
	if len(errs) != 1 || errs[0].Err != ProtocolError {
		t.Fatalf("expected ProtocolError, got %+v", errs)
	}
	if len(eventsOfKind(events, RequestClose)) != 1 {
		t.Fatal("expected RequestClose")
	}
}

func TestAutoPingResponseCanBeDisabled(t *testing.T) {
	c := connectServer(t, packets.Version5)
	c.SetAutoPingResponse(false)
	events := c.Recv(encodePacket(t, packets.PingReq{}))
	if len(eventsOfKind(events, RequestSendPacket)) != 0 {
		t.Fatal("PINGRESP should not be auto-sent once disabled")
	}
	if len(eventsOfKind(events, NotifyPacketReceived)) != 1 {
		t.Fatal("the PINGREQ should still be surfaced to the host")
	}
}

// §4.H: "Every packet sent resets the timer" — a data packet sent mid-
// interval must re-issue RequestTimerReset{PingreqSend}, not just the
// initial arm-on-CONNACK and the re-arm-on-fire paths.
func TestSendResetsPingreqTimer(t *testing.T) {
	c := connectClient(t, packets.Version5)
	c.keepAlive.sendIntervalMS = 10000 // as if CONNACK had carried ServerKeepAlive=10

	id, err := c.AcquirePacketID()
	if err != nil {
		t.Fatal(err)
	}
	var topic packets.Topic
	topic.SetFilter("a/b")
	sub := &packets.Subscribe{Version: packets.Version5, PacketID: id}
	sub.AddTopic(topic)
	events, err := c.Send(sub)
	if err != nil {
		t.Fatalf("send SUBSCRIBE: %v", err)
	}
	resets := eventsOfKind(events, RequestTimerReset)
	if len(resets) != 1 || resets[0].Timer != PingreqSend || resets[0].DurationMS != 10000 {
		t.Fatalf("expected a mid-interval RequestTimerReset{PingreqSend,10000}, got %+v", resets)
	}
}

// Offline buffering (no RequestSendPacket actually emitted) must not
// re-arm a timer that wasn't actually touched.
func TestOfflineSendDoesNotResetPingreqTimer(t *testing.T) {
	c := NewConnection(RoleClient, packets.Version311)
	c.keepAlive.sendIntervalMS = 10000
	pub := &packets.Publish{Version: packets.Version311, Topic: "a/b", QoS: packets.QoS1, PacketID: 1}
	events, err := c.Send(pub)
	if err != nil {
		t.Fatal(err)
	}
	if len(eventsOfKind(events, RequestTimerReset)) != 0 {
		t.Fatalf("a buffered offline send must not reset a timer, got %+v", events)
	}
}

// SetSessionStore must actually be exercised: a tracked outgoing
// PublishRecord is mirrored on send and dropped on terminal ack.
func TestSessionStoreMirrorsOutgoingPublishRecords(t *testing.T) {
	c := connectClient(t, packets.Version5)
	store := memory.NewStorage()
	c.SetSessionStore(store)

	id, err := c.AcquirePacketID()
	if err != nil {
		t.Fatal(err)
	}
	pub := &packets.Publish{Version: packets.Version5, Topic: "a/b", QoS: packets.QoS1, PacketID: id}
	if _, err := c.Send(pub); err != nil {
		t.Fatalf("send PUBLISH: %v", err)
	}
	if _, err := store.Get(id); err != nil {
		t.Fatalf("expected PublishRecord mirrored into the session store, got: %v", err)
	}

	puback := packets.NewPubAck(packets.Version5, id)
	c.Recv(encodePacket(t, puback))
	if _, err := store.Get(id); err != storage.ErrNoEntry {
		t.Fatalf("expected the record dropped from the session store after PUBACK, got: %v", err)
	}
}

func TestV3ConnackErrorClosesConnectionToo(t *testing.T) {
	c := NewConnection(RoleClient, packets.Version311)
	if _, err := c.Send(&packets.Connect{Version: packets.Version311, ClientID: "x"}); err != nil {
		t.Fatal(err)
	}
	ack := &packets.Connack{Version: packets.Version311, ReasonCode: 0x05} // not authorized
	events := c.Recv(encodePacket(t, ack))
	if len(eventsOfKind(events, RequestClose)) != 1 {
		t.Fatal("a v3.1.1 CONNACK error should also auto-close, mirroring v5 (Open Question #1)")
	}
	if c.State() != StateDisconnected {
		t.Fatalf("state = %v, want StateDisconnected", c.State())
	}
}
