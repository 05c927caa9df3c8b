package session

import "testing"

func TestFeedFanOut(t *testing.T) {
	f := newFeed()
	ch1, cancel1 := f.Subscribe()
	ch2, cancel2 := f.Subscribe()
	defer cancel2()

	f.publish(Event{Type: EventTick, Remaining: 7})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventTick || ev.Remaining != 7 {
				t.Fatalf("subscriber %d got %+v", i, ev)
			}
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
	}

	// Cancel closes the channel and detaches the subscriber.
	cancel1()
	if _, open := <-ch1; open {
		t.Fatal("expected closed channel after cancel")
	}
	f.publish(Event{Type: EventTick})
}

func TestFeedSlowConsumerDropsEvents(t *testing.T) {
	f := newFeed()
	ch, cancel := f.Subscribe()
	defer cancel()

	// Overfill the buffer; publish must never block.
	for i := 0; i < 100; i++ {
		f.publish(Event{Type: EventTick, Remaining: i})
	}

	drained := 0
	for {
		select {
		case <-ch:
			drained++
			continue
		default:
		}
		break
	}
	if drained != 64 {
		t.Fatalf("drained = %d, want buffer capacity 64", drained)
	}
}
