package system

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
)

// HasRootPrivileges reports whether the process can capture packets and
// manage firewall rules. On Windows the euid check is meaningless, so we
// probe for administrator rights by opening the physical drive.
func HasRootPrivileges() bool {
	if runtime.GOOS == "windows" {
		f, err := os.Open(`\\.\PHYSICALDRIVE0`)
		if err != nil {
			return false
		}
		f.Close()
		return true
	}
	return os.Geteuid() == 0
}

// GetDefaultInterface returns the first physical interface that is up,
// preferring wired names over wireless, falling back to eth0.
func GetDefaultInterface() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "eth0"
	}

	var physical []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if isVirtualInterface(iface.Name) {
			continue
		}
		physical = append(physical, iface.Name)
	}

	for _, name := range physical {
		if strings.HasPrefix(name, "eth") || strings.HasPrefix(name, "en") {
			return name
		}
	}
	for _, name := range physical {
		if strings.HasPrefix(name, "wl") {
			return name
		}
	}
	if len(physical) > 0 {
		return physical[0]
	}
	return "eth0"
}

func isVirtualInterface(name string) bool {
	for _, prefix := range []string{"lo", "docker", "veth", "br-", "virbr", "wg"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// FormatBytes renders a byte count in human readable units.
func FormatBytes(n int64) string {
	value := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if value < 1024.0 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", value)
}
