package mqtt

import (
	"testing"

	"github.com/mqttcore/sansio/mqtt/packets"
)

func TestQoS1ExchangeReleasesOnPuback(t *testing.T) {
	tr := newQoSTracker()
	rec := &PublishRecord{PacketID: 1, QoS: packets.QoS1}
	if err := tr.trackOutgoing(rec); err != nil {
		t.Fatal(err)
	}
	got, ok := tr.onPuback(1)
	if !ok || got.PacketID != 1 {
		t.Fatalf("onPuback: %v %v", got, ok)
	}
	if tr.inflightCount() != 0 {
		t.Fatalf("record should be removed, inflight=%d", tr.inflightCount())
	}
	// Second PUBACK for the same id is not a second completion.
	if _, ok := tr.onPuback(1); ok {
		t.Fatal("a repeated PUBACK should not find a record")
	}
}

func TestQoS2ExchangePubrecThenPubcomp(t *testing.T) {
	tr := newQoSTracker()
	rec := &PublishRecord{PacketID: 2, QoS: packets.QoS2, Phase: phaseAwaitingPubrec}
	if err := tr.trackOutgoing(rec); err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.onPubrec(2); !ok {
		t.Fatal("onPubrec should find the record")
	}
	if rec.Phase != phaseAwaitingPubcomp {
		t.Fatalf("phase = %v, want phaseAwaitingPubcomp", rec.Phase)
	}
	if tr.inflightCount() != 1 {
		t.Fatal("record should still be inflight after PUBREC")
	}
	if _, ok := tr.onPubcomp(2); !ok {
		t.Fatal("onPubcomp should find the record")
	}
	if tr.inflightCount() != 0 {
		t.Fatal("record should be removed after PUBCOMP")
	}
}

func TestIncomingQoS2DuplicateNotRedelivered(t *testing.T) {
	tr := newQoSTracker()
	if isNew := tr.recordIncomingQoS2(7); !isNew {
		t.Fatal("first PUBLISH for id 7 should be new")
	}
	if isNew := tr.recordIncomingQoS2(7); isNew {
		t.Fatal("duplicate PUBLISH for id 7 should not be new")
	}
	tr.releaseIncomingQoS2(7)
	if isNew := tr.recordIncomingQoS2(7); !isNew {
		t.Fatal("id 7 should be treated as new again after PUBREL released it")
	}
}

func TestReceiveMaximumBoundsInflight(t *testing.T) {
	tr := newQoSTracker()
	tr.setReceiveMaximum(2)
	if err := tr.trackOutgoing(&PublishRecord{PacketID: 1, QoS: packets.QoS1}); err != nil {
		t.Fatal(err)
	}
	if err := tr.trackOutgoing(&PublishRecord{PacketID: 2, QoS: packets.QoS1}); err != nil {
		t.Fatal(err)
	}
	if err := tr.trackOutgoing(&PublishRecord{PacketID: 3, QoS: packets.QoS1}); err != ErrReceiveMaximumExceeded {
		t.Fatalf("expected ErrReceiveMaximumExceeded, got %v", err)
	}
}

func TestReceiveMaximumZeroMeansDefault(t *testing.T) {
	tr := newQoSTracker()
	tr.setReceiveMaximum(0)
	if tr.receiveMax != 65535 {
		t.Fatalf("receiveMax = %d, want 65535", tr.receiveMax)
	}
}

func TestRetransmitMarksDupInOrder(t *testing.T) {
	tr := newQoSTracker()
	_ = tr.trackOutgoing(&PublishRecord{PacketID: 1, QoS: packets.QoS1})
	_ = tr.trackOutgoing(&PublishRecord{PacketID: 2, QoS: packets.QoS2})
	recs := tr.retransmit()
	if len(recs) != 2 || recs[0].PacketID != 1 || recs[1].PacketID != 2 {
		t.Fatalf("retransmit order wrong: %+v", recs)
	}
	for _, r := range recs {
		if !r.Dup {
			t.Fatalf("record %d should be marked Dup", r.PacketID)
		}
	}
}
