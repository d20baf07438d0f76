package system

import "testing"

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"WARNING", LevelWarn},
		{"WARN", LevelWarn},
		{"ERROR", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLogLevel(tc.in); got != tc.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0.0 B"},
		{512, "512.0 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}
	for _, tc := range cases {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsVirtualInterface(t *testing.T) {
	virtual := []string{"lo", "docker0", "veth1234", "br-abc", "virbr0", "wg0"}
	for _, name := range virtual {
		if !isVirtualInterface(name) {
			t.Errorf("isVirtualInterface(%q) = false, want true", name)
		}
	}
	physical := []string{"eth0", "en0", "wlan0", "enp3s0"}
	for _, name := range physical {
		if isVirtualInterface(name) {
			t.Errorf("isVirtualInterface(%q) = true, want false", name)
		}
	}
}

func TestMockExecutorNeverFails(t *testing.T) {
	exec := NewExecutor(true)
	out, err := exec.Execute("iptables", "-A", "INPUT", "-s", "203.0.113.9", "-j", "DROP")
	if err != nil {
		t.Fatalf("mock executor returned error: %v", err)
	}
	if out == "" {
		t.Error("mock executor returned empty output")
	}
	if exec.GetOS() == "" {
		t.Error("GetOS returned empty string")
	}
}
