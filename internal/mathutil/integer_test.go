package mathutil

import "testing"

func TestParseUint64(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{"", 0, true},
		{"0", 0, true},
		{"42", 42, true},
		{"0x2a", 42, true},
		{"0X2A", 42, true},
		{"not-a-number", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseUint64(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ParseUint64(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestSafeAddMul(t *testing.T) {
	if sum, overflow := SafeAdd(1, 2); overflow || sum != 3 {
		t.Fatalf("SafeAdd(1,2) = (%d, %v)", sum, overflow)
	}
	if _, overflow := SafeAdd(^uint64(0), 1); !overflow {
		t.Fatal("SafeAdd should report overflow at the uint64 boundary")
	}
	if prod, overflow := SafeMul(3, 4); overflow || prod != 12 {
		t.Fatalf("SafeMul(3,4) = (%d, %v)", prod, overflow)
	}
	if _, overflow := SafeMul(^uint64(0), 2); !overflow {
		t.Fatal("SafeMul should report overflow at the uint64 boundary")
	}
}

func TestCeilDiv(t *testing.T) {
	cases := []struct{ x, y, want int }{
		{0, 4, 0},
		{1, 4, 1},
		{4, 4, 1},
		{5, 4, 2},
		{7, 0, 0},
	}
	for _, c := range cases {
		if got := CeilDiv(c.x, c.y); got != c.want {
			t.Errorf("CeilDiv(%d,%d) = %d, want %d", c.x, c.y, got, c.want)
		}
	}
}

func TestNextPow2(t *testing.T) {
	cases := []struct{ n, want int }{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{255, 256},
		{256, 256},
	}
	for _, c := range cases {
		if got := NextPow2(c.n); got != c.want {
			t.Errorf("NextPow2(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestCheckedOffset(t *testing.T) {
	if end, err := CheckedOffset(10, 20, 100); err != nil || end != 30 {
		t.Fatalf("CheckedOffset(10,20,100) = (%d, %v), want (30, nil)", end, err)
	}
	if _, err := CheckedOffset(10, 100, 50); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if _, err := CheckedOffset(^uint64(0), 1, 100); err == nil {
		t.Fatal("expected overflow error")
	}
}
