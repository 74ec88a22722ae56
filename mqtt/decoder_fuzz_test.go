package mqtt

import (
	"testing"

	"github.com/mqttcore/sansio/mqtt/packets"
)

// FuzzDecoderNext feeds arbitrary bytes through the streaming decoder in
// one chunk and calls next until it reports an error (errIncomplete once
// the buffer is drained, or a decode error), checking that no input makes
// it panic.
func FuzzDecoderNext(f *testing.F) {
	f.Add([]byte{0x10, 0x00})
	f.Add([]byte{0x20, 0x02, 0x00, 0x00})
	f.Add([]byte{0x30, 0x00})
	f.Add([]byte{0xc0, 0x00})
	f.Add([]byte{0xd0, 0x00})
	f.Add([]byte{0xe0, 0x00})
	f.Add([]byte{0x10, 12, 0x00, 100, 'M', 'Q', 'T', 'T', 0, 0, 0, 0, 0, 0})

	f.Fuzz(func(t *testing.T, data []byte) {
		d := &decoder{version: packets.Version5}
		d.feed(data)
		for {
			_, _, err := d.next()
			if err != nil {
				return
			}
		}
	})
}
