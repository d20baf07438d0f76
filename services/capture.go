package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"sentryfw/system"
)

// Protocol is the coarse protocol family of a captured packet.
type Protocol int

const (
	ProtoOther Protocol = iota
	ProtoTCP
	ProtoUDP
	ProtoICMP
)

func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "TCP"
	case ProtoUDP:
		return "UDP"
	case ProtoICMP:
		return "ICMP"
	default:
		return "other"
	}
}

// PacketInfo is the decoded subset of a captured packet the detection
// engine needs. SrcIP is empty when no usable source address was found.
type PacketInfo struct {
	SrcIP    string
	Protocol Protocol
	SYN      bool
	DstPort  uint16
	Length   int
}

// PacketSource delivers decoded packets from a capture device. The channel
// is closed when the source stops or the device disappears.
type PacketSource interface {
	Packets() <-chan PacketInfo
	Stop()
}

// PCAPSource captures live traffic from one interface via libpcap.
type PCAPSource struct {
	handle   *pcap.Handle
	packets  chan PacketInfo
	stopOnce sync.Once
	done     chan struct{}
}

// OpenCapture opens the interface in promiscuous mode and starts decoding.
func OpenCapture(iface string) (*PCAPSource, error) {
	handle, err := pcap.OpenLive(iface, 65535, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("opening capture on %s: %w", iface, err)
	}

	s := &PCAPSource{
		handle:  handle,
		packets: make(chan PacketInfo, 1024),
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *PCAPSource) run() {
	defer close(s.packets)

	source := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	source.NoCopy = true

	for packet := range source.Packets() {
		info := decodePacket(packet)
		select {
		case s.packets <- info:
		case <-s.done:
			return
		}
	}
}

// Packets returns the decoded packet stream.
func (s *PCAPSource) Packets() <-chan PacketInfo {
	return s.packets
}

// Stop closes the capture handle. Safe to call more than once.
func (s *PCAPSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.handle.Close()
	})
}

// decodePacket extracts the fields the detector cares about. Packets without
// a network layer come back with an empty SrcIP; they are counted but
// excluded from detection.
func decodePacket(packet gopacket.Packet) PacketInfo {
	info := PacketInfo{Length: len(packet.Data())}
	if md := packet.Metadata(); md != nil && md.Length > 0 {
		info.Length = md.Length
	}

	if layer := packet.Layer(layers.LayerTypeIPv4); layer != nil {
		info.SrcIP = layer.(*layers.IPv4).SrcIP.String()
	} else if layer := packet.Layer(layers.LayerTypeIPv6); layer != nil {
		info.SrcIP = layer.(*layers.IPv6).SrcIP.String()
	}

	if layer := packet.Layer(layers.LayerTypeTCP); layer != nil {
		tcp := layer.(*layers.TCP)
		info.Protocol = ProtoTCP
		info.SYN = tcp.SYN
		info.DstPort = uint16(tcp.DstPort)
	} else if layer := packet.Layer(layers.LayerTypeUDP); layer != nil {
		info.Protocol = ProtoUDP
		info.DstPort = uint16(layer.(*layers.UDP).DstPort)
	} else if packet.Layer(layers.LayerTypeICMPv4) != nil || packet.Layer(layers.LayerTypeICMPv6) != nil {
		info.Protocol = ProtoICMP
	}

	return info
}

// ListInterfaces enumerates capture-capable devices, filtering loopback and
// virtual interfaces the way an operator would expect.
func ListInterfaces() ([]string, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("enumerating capture devices: %w", err)
	}

	var names []string
	for _, dev := range devices {
		if isVirtualDevice(dev.Name) || len(dev.Addresses) == 0 {
			continue
		}
		names = append(names, dev.Name)
	}
	if len(names) == 0 {
		system.Warn("No physical capture devices found, falling back to full device list")
		for _, dev := range devices {
			names = append(names, dev.Name)
		}
	}
	return names, nil
}

func isVirtualDevice(name string) bool {
	for _, prefix := range []string{"lo", "docker", "veth", "br-", "virbr"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
