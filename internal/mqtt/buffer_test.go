package mqtt

import (
	"testing"

	"github.com/rs/zerolog"
)

func payloads(msgs []Message) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.Payload[0])
	}
	return out
}

func fill(rb *ringBuffer, from, to int) {
	for i := from; i < to; i++ {
		rb.push(Message{Topic: "t", Payload: []byte{byte(i)}})
	}
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10, zerolog.Nop())
	got, dropped := rb.drain()
	if got != nil || dropped != 0 {
		t.Errorf("expected nil and 0 from empty drain, got %d items, %d dropped", len(got), dropped)
	}
}

func TestRingBufferKeepsOrder(t *testing.T) {
	tests := []struct {
		name        string
		capacity    int
		pushed      int
		wantFirst   byte
		wantDropped int
	}{
		{"partial", 10, 5, 0, 0},
		{"exactly full", 10, 10, 0, 0},
		{"overflow by three", 5, 8, 3, 3},
		{"overflow twice around", 4, 11, 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newRingBuffer(tt.capacity, zerolog.Nop())
			fill(rb, 0, tt.pushed)

			got, dropped := rb.drain()
			wantLen := tt.pushed
			if wantLen > tt.capacity {
				wantLen = tt.capacity
			}
			if len(got) != wantLen {
				t.Fatalf("expected %d items, got %d", wantLen, len(got))
			}
			for i, p := range payloads(got) {
				if want := tt.wantFirst + byte(i); p != want {
					t.Errorf("item %d: expected payload %d, got %d", i, want, p)
				}
			}
			if dropped != tt.wantDropped {
				t.Errorf("dropped: got %d, want %d", dropped, tt.wantDropped)
			}
		})
	}
}

func TestRingBufferReusableAfterDrain(t *testing.T) {
	rb := newRingBuffer(5, zerolog.Nop())

	fill(rb, 0, 7)
	if _, dropped := rb.drain(); dropped != 2 {
		t.Fatalf("cycle 1: expected 2 dropped, got %d", dropped)
	}

	fill(rb, 10, 14)
	got, dropped := rb.drain()
	if dropped != 0 {
		t.Errorf("cycle 2: drop count not reset, got %d", dropped)
	}
	if string(payloads(got)) != string([]byte{10, 11, 12, 13}) {
		t.Errorf("cycle 2: got %v", payloads(got))
	}
	if rb.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", rb.len())
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(10, zerolog.Nop())
	rb.push(Message{
		Topic:    TopicSystem,
		Payload:  []byte(`{"test":true}`),
		QoS:      1,
		Retained: true,
	})

	got, _ := rb.drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].Topic != TopicSystem {
		t.Errorf("topic: got %s, want %s", got[0].Topic, TopicSystem)
	}
	if string(got[0].Payload) != `{"test":true}` {
		t.Errorf("payload: got %s", got[0].Payload)
	}
	if got[0].QoS != 1 || !got[0].Retained {
		t.Errorf("qos/retained not preserved: %+v", got[0])
	}
}
