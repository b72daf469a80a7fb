package fm

import "testing"

func TestAllocatorUsesEveryVoiceBeforeReuse(t *testing.T) {
	a := NewVoiceAllocator(make([]*Voice, 4))
	seen := map[int]bool{}
	for n := 0; n < 4; n++ {
		i, _ := a.Next(float64(n + 1))
		if seen[i] {
			t.Fatalf("voice %d reused at trigger %d", i, n)
		}
		seen[i] = true
	}
	if i, _ := a.Next(5); i != 0 {
		t.Fatalf("expected oldest voice 0, got %d", i)
	}
	if i, _ := a.Next(6); i != 1 {
		t.Fatalf("expected oldest voice 1, got %d", i)
	}
}

func TestAllocatorPicksUntouchedVoice(t *testing.T) {
	a := NewVoiceAllocator(make([]*Voice, 2))
	if i, _ := a.Next(1.0); i != 0 {
		t.Fatalf("expected voice 0, got %d", i)
	}
	// still decaying, but voice 1 is older
	if i, _ := a.Next(1.2); i != 1 {
		t.Fatalf("expected voice 1, got %d", i)
	}
	if i, _ := a.Next(1.3); i != 0 {
		t.Fatalf("expected voice 0 to be stolen, got %d", i)
	}
}

func TestAllocatorUnusedBeatsTimeZero(t *testing.T) {
	a := NewVoiceAllocator(make([]*Voice, 3))
	if i, _ := a.Next(0); i != 0 {
		t.Fatalf("expected voice 0, got %d", i)
	}
	if i, _ := a.Next(0); i != 1 {
		t.Fatalf("expected unused voice 1, got %d", i)
	}
	if _, ok := a.LastUsed(2); ok {
		t.Fatalf("expected voice 2 unused")
	}
	if ts, ok := a.LastUsed(0); !ok || ts != 0 {
		t.Fatalf("expected voice 0 used at 0, got %v %v", ts, ok)
	}
}

func TestAllocatorTiesGoToLowestIndex(t *testing.T) {
	a := NewVoiceAllocator(make([]*Voice, 3))
	a.Next(2)
	a.Next(1)
	a.Next(1)
	// voices 1 and 2 share the oldest time
	if i, _ := a.Next(3); i != 1 {
		t.Fatalf("expected voice 1, got %d", i)
	}
}
