package ecs

import "testing"

func TestMaskSetClearHas(t *testing.T) {
	var m Mask
	if !m.IsEmpty() {
		t.Fatalf("zero mask should be empty")
	}
	m.Set(0)
	m.Set(5)
	m.Set(63)
	for _, id := range []TypeID{0, 5, 63} {
		if !m.Has(id) {
			t.Errorf("bit %d should be set", id)
		}
	}
	if m.Has(4) {
		t.Errorf("bit 4 should not be set")
	}
	if m.Count() != 3 {
		t.Errorf("count = %d, want 3", m.Count())
	}
	m.Clear(5)
	if m.Has(5) {
		t.Errorf("bit 5 should be cleared")
	}
}

func TestMaskContainsAll(t *testing.T) {
	cases := []struct {
		name string
		m    []TypeID
		sub  []TypeID
		want bool
	}{
		{"superset", []TypeID{1, 2, 3}, []TypeID{1, 3}, true},
		{"equal", []TypeID{1, 2}, []TypeID{1, 2}, true},
		{"missing_bit", []TypeID{1, 2}, []TypeID{1, 4}, false},
		{"empty_sub", []TypeID{7}, nil, true},
		{"empty_mask", nil, []TypeID{0}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var m, sub Mask
			for _, id := range c.m {
				m.Set(id)
			}
			for _, id := range c.sub {
				sub.Set(id)
			}
			if got := m.ContainsAll(sub); got != c.want {
				t.Fatalf("ContainsAll = %v, want %v", got, c.want)
			}
		})
	}
}

func TestMaskBits(t *testing.T) {
	var m Mask
	m.Set(3)
	m.Set(0)
	m.Set(17)
	bits := m.Bits()
	want := []TypeID{0, 3, 17}
	if len(bits) != len(want) {
		t.Fatalf("bits = %v, want %v", bits, want)
	}
	for i := range want {
		if bits[i] != want[i] {
			t.Fatalf("bits = %v, want %v", bits, want)
		}
	}
}
