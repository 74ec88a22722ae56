package packets

import (
	"bytes"
	"testing"

	"github.com/mqttcore/sansio/mqtt/packets/primitives"
)

func encode(t *testing.T, p interface {
	EncodedSize() int
	AppendTo(*primitives.ScatterWriter) error
}) []byte {
	t.Helper()
	w := &primitives.ScatterWriter{}
	if err := p.AppendTo(w); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var buf bytes.Buffer
	for _, b := range w.Buffers() {
		buf.Write(b)
	}
	if buf.Len() != p.EncodedSize() {
		t.Fatalf("EncodedSize()=%d, actual encoded=%d", p.EncodedSize(), buf.Len())
	}
	return buf.Bytes()
}

func decodeOne(t *testing.T, raw []byte) (FixedHeader, *primitives.Reader) {
	t.Helper()
	r := primitives.NewReader(raw)
	fh, err := DecodeFixedHeader(r)
	if err != nil {
		t.Fatalf("decode fixed header: %v", err)
	}
	body := primitives.NewReader(raw[r.Pos():])
	return fh, body
}

func TestPublishQoS1RoundTripV5(t *testing.T) {
	p := &Publish{
		Version:  Version5,
		Topic:    "a/b",
		QoS:      QoS1,
		PacketID: 1,
		Payload:  []byte("hi"),
	}
	raw := encode(t, p)
	if raw[0] != 0x32 {
		t.Fatalf("fixed header byte = %#x, want 0x32", raw[0])
	}
	fh, body := decodeOne(t, raw)
	got, err := DecodePublish(fh, Version5, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Topic != p.Topic || got.QoS != p.QoS || got.PacketID != p.PacketID || !bytes.Equal(got.Payload, p.Payload) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestPublishQoS0NoPacketID(t *testing.T) {
	p := &Publish{Version: Version311, Topic: "x", QoS: QoS0}
	if err := p.Validate(); err != nil {
		t.Fatalf("qos0 with no packet id should validate: %v", err)
	}
	p.PacketID = 7
	if err := p.Validate(); err == nil {
		t.Fatal("qos0 with a packet id should fail validation")
	}
}

func TestPublishRequiresTopicOrAlias(t *testing.T) {
	p := &Publish{Version: Version5, QoS: QoS0}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for empty topic with no alias")
	}
	p.Properties.SetUint16(PropTopicAlias, 3)
	if err := p.Validate(); err != nil {
		t.Fatalf("topic alias should satisfy the topic requirement: %v", err)
	}
}

func TestConnectRoundTripV5WithWill(t *testing.T) {
	c := &Connect{
		Version:    Version5,
		CleanStart: true,
		KeepAlive:  30,
		ClientID:   "dev-1",
	}
	c.SetWill("status/dev-1", []byte("offline"), QoS1, true)
	c.Properties.SetUint32(PropSessionExpiryInterval, 3600)

	raw := encode(t, c)
	fh, body := decodeOne(t, raw)
	got, err := DecodeConnect(fh, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ClientID != c.ClientID || got.KeepAlive != c.KeepAlive || !got.CleanStart {
		t.Fatalf("mismatch: %+v", got)
	}
	if !got.HasWill || got.WillTopic != c.WillTopic || !bytes.Equal(got.WillPayload, c.WillPayload) || got.WillQoS != QoS1 || !got.WillRetain {
		t.Fatalf("will mismatch: %+v", got)
	}
	if v, ok := got.Properties.GetUint32(PropSessionExpiryInterval); !ok || v != 3600 {
		t.Fatalf("session expiry interval missing or wrong: %v %v", v, ok)
	}
}

func TestConnectRejectsWrongProtocolName(t *testing.T) {
	c := &Connect{Version: Version311, ClientID: "x"}
	raw := encode(t, c)
	i := bytes.Index(raw, []byte("MQTT"))
	if i < 0 {
		t.Fatal("encoded CONNECT does not contain the protocol name literal")
	}
	raw[i] = 'X' // "MQTT" -> "XQTT"
	fh, body := decodeOne(t, raw)
	if _, err := DecodeConnect(fh, body); err != ErrMalformedHeader {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestConnackSessionPresentAlwaysEncoded(t *testing.T) {
	c := &Connack{Version: Version5, SessionPresent: false, ReasonCode: byte(0x81)}
	raw := encode(t, c)
	fh, body := decodeOne(t, raw)
	got, err := DecodeConnack(fh, Version5, body)
	if err != nil {
		t.Fatal(err)
	}
	if got.SessionPresent {
		t.Fatal("session present should be false")
	}
	if got.ReasonCode != 0x81 {
		t.Fatalf("reason code = %#x", got.ReasonCode)
	}
}

func TestPubAckFamilyRoundTrip(t *testing.T) {
	for _, ctor := range []func(Version, uint16) *PubAck{NewPubAck, NewPubRec, NewPubRel, NewPubComp} {
		p := ctor(Version5, 42)
		raw := encode(t, p)
		fh, body := decodeOne(t, raw)
		got, err := DecodePubAck(fh, p.Type, Version5, body)
		if err != nil {
			t.Fatalf("decode %v: %v", p.Type, err)
		}
		if got.PacketID != 42 {
			t.Fatalf("packet id mismatch for %v: %d", p.Type, got.PacketID)
		}
		if fh.Remaining != 2 {
			t.Fatalf("success PubAck with no properties should have remaining length 2, got %d", fh.Remaining)
		}
	}
}

func TestPubRelReservedFlags(t *testing.T) {
	p := NewPubRel(Version311, 5)
	raw := encode(t, p)
	if raw[0]&0x0F != 0x02 {
		t.Fatalf("PUBREL flags = %#x, want 0x02", raw[0]&0x0F)
	}
}

func TestSubscribeSuback(t *testing.T) {
	s := &Subscribe{Version: Version5, PacketID: 9}
	topic := Topic{}
	topic.SetFilter("a/+").SetQoS(QoS1)
	s.AddTopic(topic)

	raw := encode(t, s)
	fh, body := decodeOne(t, raw)
	got, err := DecodeSubscribe(fh, Version5, body)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Topics) != 1 || got.Topics[0].Filter() != "a/+" || got.Topics[0].QoS() != QoS1 {
		t.Fatalf("mismatch: %+v", got)
	}

	ack := &Suback{Version: Version5, PacketID: 9, ReasonCodes: []byte{0x01}} // Granted QoS 1
	raw = encode(t, ack)
	fh, body = decodeOne(t, raw)
	gotAck, err := DecodeSuback(fh, Version5, body)
	if err != nil {
		t.Fatal(err)
	}
	if gotAck.PacketID != 9 || len(gotAck.ReasonCodes) != 1 || gotAck.ReasonCodes[0] != 0x01 {
		t.Fatalf("mismatch: %+v", gotAck)
	}
}

func TestSubscribeRejectsEmptyTopicList(t *testing.T) {
	s := &Subscribe{Version: Version5, PacketID: 1}
	w := &primitives.ScatterWriter{}
	if err := s.AppendTo(w); err == nil {
		t.Fatal("expected error for empty topic list")
	}
}

func TestUnsubscribeUnsuback(t *testing.T) {
	u := &Unsubscribe{Version: Version5, PacketID: 11}
	topic := Topic{}
	topic.SetFilter("a/b")
	u.AddTopic(topic)
	raw := encode(t, u)
	fh, body := decodeOne(t, raw)
	got, err := DecodeUnsubscribe(fh, Version5, body)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Topics) != 1 || got.Topics[0].Filter() != "a/b" {
		t.Fatalf("mismatch: %+v", got)
	}

	ack := &Unsuback{Version: Version5, PacketID: 11, ReasonCodes: []byte{0x00}}
	raw = encode(t, ack)
	fh, body = decodeOne(t, raw)
	gotAck, err := DecodeUnsuback(fh, Version5, body)
	if err != nil {
		t.Fatal(err)
	}
	if gotAck.PacketID != 11 {
		t.Fatalf("mismatch: %+v", gotAck)
	}
}

func TestDisconnectOmitsBodyOnSuccess(t *testing.T) {
	d := &Disconnect{Version: Version5}
	raw := encode(t, d)
	if len(raw) != 2 {
		t.Fatalf("expected a 2-byte frame (header+remaining=0), got %d bytes", len(raw))
	}
	fh, body := decodeOne(t, raw)
	got, err := DecodeDisconnect(fh, Version5, body)
	if err != nil {
		t.Fatal(err)
	}
	if got.ReasonCode != 0 {
		t.Fatalf("reason code = %d", got.ReasonCode)
	}
}

func TestDisconnectWithReasonCode(t *testing.T) {
	d := &Disconnect{Version: Version5, ReasonCode: 0x8D} // Keep Alive timeout
	raw := encode(t, d)
	fh, body := decodeOne(t, raw)
	got, err := DecodeDisconnect(fh, Version5, body)
	if err != nil {
		t.Fatal(err)
	}
	if got.ReasonCode != 0x8D {
		t.Fatalf("reason code = %#x", got.ReasonCode)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	a := &Auth{ReasonCode: 0x18} // Continue authentication
	a.Properties.SetString(PropAuthenticationMethod, "SCRAM-SHA-1")
	raw := encode(t, a)
	fh, body := decodeOne(t, raw)
	got, err := DecodeAuth(fh, body)
	if err != nil {
		t.Fatal(err)
	}
	if got.ReasonCode != a.ReasonCode {
		t.Fatalf("reason code mismatch")
	}
	if v, ok := got.Properties.GetString(PropAuthenticationMethod); !ok || v != "SCRAM-SHA-1" {
		t.Fatalf("auth method missing: %v %v", v, ok)
	}
}

func TestPingReqPingResp(t *testing.T) {
	raw := encode(t, PingReq{})
	if raw[0]>>4 != byte(PINGREQ) || len(raw) != 2 {
		t.Fatalf("pingreq encoding wrong: % x", raw)
	}
	raw = encode(t, PingResp{})
	if raw[0]>>4 != byte(PINGRESP) || len(raw) != 2 {
		t.Fatalf("pingresp encoding wrong: % x", raw)
	}
}

func TestTopicFilterValidation(t *testing.T) {
	valid := []string{"a/b", "a/+/c", "a/#", "+", "#", "$share/g/a/b"}
	for _, f := range valid {
		if !ValidTopicFilter(f) {
			t.Errorf("expected %q to be valid", f)
		}
	}
	invalid := []string{"", "a/#/b", "a/b#", "$share//a"}
	for _, f := range invalid {
		if ValidTopicFilter(f) {
			t.Errorf("expected %q to be invalid", f)
		}
	}
}

func TestMatchTopic(t *testing.T) {
	cases := []struct {
		filter, name string
		want         bool
	}{
		{"a/b", "a/b", true},
		{"a/+", "a/b", true},
		{"a/+", "a/b/c", false},
		{"a/#", "a/b/c", true},
		{"#", "$SYS/uptime", false},
		{"$SYS/#", "$SYS/uptime", true},
	}
	for _, c := range cases {
		if got := MatchTopic(c.filter, c.name); got != c.want {
			t.Errorf("MatchTopic(%q, %q) = %v, want %v", c.filter, c.name, got, c.want)
		}
	}
}
