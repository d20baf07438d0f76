package services

import "testing"

func TestWhitelistContains(t *testing.T) {
	w := NewWhitelist([]string{"127.0.0.1", "::1", "10.0.0.0/8", "2001:db8::/32"})

	cases := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.0.0.1", true},
		{"10.255.255.254", true},
		{"11.0.0.1", false},
		{"2001:db8::1", true},
		{"2001:db9::1", false},
		{"203.0.113.9", false},
		{"not-an-ip", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := w.Contains(tc.addr); got != tc.want {
			t.Errorf("Contains(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func TestWhitelistNormalizesAddresses(t *testing.T) {
	// Equivalent textual forms of the same address must match.
	w := NewWhitelist([]string{"::ffff:192.0.2.1"})
	if !w.Contains("192.0.2.1") {
		t.Error("IPv4-mapped entry did not match the plain IPv4 form")
	}

	w = NewWhitelist([]string{"0:0:0:0:0:0:0:1"})
	if !w.Contains("::1") {
		t.Error("expanded IPv6 entry did not match the compressed form")
	}
}

func TestWhitelistSkipsInvalidEntries(t *testing.T) {
	w := NewWhitelist([]string{"127.0.0.1", "garbage", "10.0.0.0/99", "", "  "})
	if got := w.Size(); got != 1 {
		t.Fatalf("Size = %d, want 1 (invalid entries skipped)", got)
	}
	if !w.Contains("127.0.0.1") {
		t.Error("valid entry lost")
	}
}

func TestWhitelistEmpty(t *testing.T) {
	w := NewWhitelist(nil)
	if w.Contains("127.0.0.1") {
		t.Error("empty whitelist matched an address")
	}
	if got := w.Size(); got != 0 {
		t.Errorf("Size = %d, want 0", got)
	}
}
