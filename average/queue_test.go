package average

import "testing"

func TestRingFIFO(t *testing.T) {
	r := NewRing(2)
	for i := 0; i < 5; i++ {
		r.PushBack(Event{Time: uint64(i), Value: float64(i)})
	}
	if r.Len() != 5 {
		t.Fatalf("got len %d, wanted 5", r.Len())
	}
	if r.Front().Time != 0 || r.Back().Time != 4 {
		t.Errorf("got front %d back %d, wanted 0 and 4", r.Front().Time, r.Back().Time)
	}

	for i := 0; i < 3; i++ {
		if e := r.PopFront(); e.Time != uint64(i) {
			t.Errorf("got %d, wanted %d", e.Time, i)
		}
	}

	// Wrap around the end of the buffer without growing.
	capBefore := r.Cap()
	r.PushBack(Event{Time: 5})
	r.PushBack(Event{Time: 6})
	if r.Cap() != capBefore {
		t.Errorf("got capacity %d, wanted %d", r.Cap(), capBefore)
	}

	var got []uint64
	for r.Len() > 0 {
		got = append(got, r.PopFront().Time)
	}
	want := []uint64{3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v, wanted %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, wanted %v", got, want)
			break
		}
	}
}

func TestRingZeroCapacity(t *testing.T) {
	r := NewRing(0)
	r.PushBack(Event{Time: 1})
	r.PushBack(Event{Time: 2})
	if r.Front().Time != 1 || r.Back().Time != 2 {
		t.Errorf("got front %d back %d, wanted 1 and 2", r.Front().Time, r.Back().Time)
	}
}

func TestRingPopEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	NewRing(4).PopFront()
}
