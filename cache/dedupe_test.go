package cache

import "testing"

func TestDeduper(t *testing.T) {
	d := NewDeduper(2)
	cases := []struct {
		line string
		pass bool
	}{
		{`{"a":1}`, true},
		{`{"a":1}`, false},
		{`{"a":2}`, true},
		{`{"a":3}`, true},
		// Evicted.
		{`{"a":1}`, true},
		{`{"a":3}`, false},
	}
	for i, c := range cases {
		if got := d.PassBytes([]byte(c.line)); got != c.pass {
			t.Errorf("case %d %s: got %v, want %v", i, c.line, got, c.pass)
		}
	}
	if d.Len() != 2 {
		t.Errorf("expected 2 remembered, got %d", d.Len())
	}
}
