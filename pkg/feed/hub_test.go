package feed

import (
	"testing"
	"time"

	"github.com/kairosvoice/attune/pkg/emotion"
)

func TestPublishReachesSubscriber(t *testing.T) {
	h := NewHub()
	sub := h.register(nil)
	if sub == nil {
		t.Fatalf("expected subscriber")
	}

	h.Publish(Update{
		ConversationID: "conv-1",
		Result:         emotion.New(emotion.Happy, 0.9, 0.7, time.Now()),
		Dominant:       emotion.Happy,
	})

	select {
	case u := <-sub.ch:
		if u.ConversationID != "conv-1" || u.Result.Label != emotion.Happy {
			t.Fatalf("unexpected update: %+v", u)
		}
		if u.Time.IsZero() {
			t.Fatalf("publish should stamp the update time")
		}
	case <-time.After(time.Second):
		t.Fatalf("update not delivered")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	sub := h.register(nil)
	for i := 0; i < 200; i++ {
		h.Publish(Update{ConversationID: "c"})
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops once the buffer filled")
	}
	if len(sub.ch) != cap(sub.ch) {
		t.Fatalf("buffer should be full, have %d", len(sub.ch))
	}
}

func TestCloseRejectsFurtherPublishes(t *testing.T) {
	h := NewHub()
	sub := h.register(nil)
	h.Close()
	if h.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers after close")
	}
	h.Publish(Update{ConversationID: "c"})
	if _, ok := <-sub.ch; ok {
		t.Fatalf("subscriber channel should be closed")
	}
	if h.register(nil) != nil {
		t.Fatalf("closed hub must reject new subscribers")
	}
}
