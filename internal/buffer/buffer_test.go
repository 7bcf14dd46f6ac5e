package buffer

import "testing"

func TestAppendAndBytes(t *testing.T) {
	b := New(nil)
	b.AppendByte(1)
	b.Append([]byte{2, 3})
	b.AppendString("xy")
	want := []byte{1, 2, 3, 'x', 'y'}
	if got := b.Bytes(); string(got) != string(want) {
		t.Fatalf("Bytes() = %v, want %v", got, want)
	}
}

func TestNextAdvancesCursor(t *testing.T) {
	b := New([]byte{1, 2, 3, 4})
	got, ok := b.Next(2)
	if !ok || string(got) != string([]byte{1, 2}) {
		t.Fatalf("Next(2) = %v, %v", got, ok)
	}
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	got, ok = b.Next(3)
	if ok {
		t.Fatalf("Next(3) past end should return ok=false")
	}
	if string(got) != string([]byte{3, 4}) {
		t.Fatalf("Next(3) past end = %v, want remaining bytes", got)
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	b := New([]byte{9, 8, 7})
	got, ok := b.Peek(2)
	if !ok || string(got) != string([]byte{9, 8}) {
		t.Fatalf("Peek(2) = %v, %v", got, ok)
	}
	if b.Len() != 3 {
		t.Fatalf("Peek must not advance cursor, Len() = %d", b.Len())
	}
}

func TestSkipClampsToLen(t *testing.T) {
	b := New([]byte{1, 2})
	b.Skip(10)
	if b.Len() != 0 {
		t.Fatalf("Len() after over-skip = %d, want 0", b.Len())
	}
}

func TestResetKeepsCapacity(t *testing.T) {
	b := New(make([]byte, 0, 64))
	b.Append(make([]byte, 32))
	capBefore := b.Cap()
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}
	if b.Cap() != capBefore {
		t.Fatalf("Reset must not release capacity: got %d, want %d", b.Cap(), capBefore)
	}
}

func TestGrowDoublesAndNeverShrinks(t *testing.T) {
	b := New(make([]byte, 0, 4))
	lenBefore := len(b.Bytes())
	b.Grow(100)
	if b.Cap() < 100 {
		t.Fatalf("Grow(100): Cap() = %d, want >= 100", b.Cap())
	}
	if len(b.Bytes()) != lenBefore {
		t.Fatalf("Grow must not change Len")
	}
}

func TestDetach(t *testing.T) {
	b := New([]byte{1, 2, 3})
	out := b.Detach()
	if string(out) != string([]byte{1, 2, 3}) {
		t.Fatalf("Detach() = %v", out)
	}
	if b.Len() != 0 {
		t.Fatalf("buffer must be empty after Detach")
	}
}
