package stimgen

import (
	"fmt"
	"net"
	"os"

	"github.com/stimgen/stimgen/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Protocol selects the traffic pattern for a session.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolDNS   Protocol = "dns"
	ProtocolTCP   Protocol = "tcp" // SYN flood in frame mode, connection churn in stream mode
	ProtocolICMP  Protocol = "icmp"
	ProtocolUDP   Protocol = "udp"
	ProtocolMixed Protocol = "mixed"
)

// Mode is the transport strategy derived from the profile's addressing.
type Mode int

const (
	// ModeStream sends through host sockets, best-effort.
	ModeStream Mode = iota
	// ModeFrame injects raw IP packets on the configured interface.
	ModeFrame
	// ModeFrameL2 injects full Ethernet frames with explicit addressing.
	ModeFrameL2
)

func (m Mode) String() string {
	switch m {
	case ModeFrame:
		return "frame"
	case ModeFrameL2:
		return "frame-l2"
	default:
		return "stream"
	}
}

const (
	defaultDevice            = "eth1"
	defaultFramePayloadSize  = 1400
	defaultStreamPayloadSize = 1024
)

// Profile describes one traffic generation run. Immutable once a
// session has started.
type Profile struct {
	SrcIP       string   `yaml:"src_ip"`
	DstIP       string   `yaml:"dst_ip"`
	DstPort     int      `yaml:"dst_port"`
	SrcMAC      string   `yaml:"src_mac"`
	DstMAC      string   `yaml:"dst_mac"`
	Device      string   `yaml:"device"`
	Protocol    Protocol `yaml:"protocol"`
	Rate        int      `yaml:"rate"`
	Duration    int      `yaml:"duration"`
	PayloadSize int      `yaml:"payload_size"`
}

// Mode picks the transport strategy: both link-layer addresses select
// explicit layer-2 framing, a source IP selects raw IP injection, and
// destination-only addressing falls back to host sockets.
func (p *Profile) Mode() Mode {
	switch {
	case p.SrcMAC != "" && p.DstMAC != "":
		return ModeFrameL2
	case p.SrcIP != "":
		return ModeFrame
	default:
		return ModeStream
	}
}

// ApplyDefaults fills unset fields. Rate defaults follow the protocol's
// natural volume so reporting cadence stays comparable.
func (p *Profile) ApplyDefaults() {
	if p.Device == "" {
		p.Device = defaultDevice
	}
	if p.Protocol == "" {
		p.Protocol = ProtocolHTTP
	}
	if p.Rate == 0 {
		switch p.Protocol {
		case ProtocolDNS:
			p.Rate = 50
		case ProtocolICMP:
			p.Rate = 10
		default:
			p.Rate = 100
		}
	}
	if p.PayloadSize == 0 {
		if p.Mode() == ModeStream {
			p.PayloadSize = defaultStreamPayloadSize
		} else {
			p.PayloadSize = defaultFramePayloadSize
		}
	}
}

var (
	frameProtocols  = map[Protocol]bool{ProtocolHTTP: true, ProtocolDNS: true, ProtocolTCP: true, ProtocolICMP: true, ProtocolUDP: true, ProtocolMixed: true}
	streamProtocols = map[Protocol]bool{ProtocolHTTP: true, ProtocolTCP: true, ProtocolUDP: true, ProtocolMixed: true}
)

// Validate rejects profiles that cannot run. Only IPv4 targets are
// supported.
func (p *Profile) Validate() error {
	if p.DstIP == "" {
		return &ConfigError{Reason: "destination IP is required"}
	}
	if ip := net.ParseIP(p.DstIP); ip == nil || ip.To4() == nil {
		return &ConfigError{Reason: fmt.Sprintf("destination IP %q is not a valid IPv4 address", p.DstIP)}
	}
	if (p.SrcMAC == "") != (p.DstMAC == "") {
		return &ConfigError{Reason: "src-mac and dst-mac must be supplied together"}
	}

	mode := p.Mode()
	if mode == ModeStream {
		if p.DstPort <= 0 || p.DstPort > 65535 {
			return &ConfigError{Reason: "stream transport requires a destination port between 1 and 65535"}
		}
		if !streamProtocols[p.Protocol] {
			return &ConfigError{Reason: fmt.Sprintf("protocol %q is not supported by the stream transport", p.Protocol)}
		}
	} else {
		if ip := net.ParseIP(p.SrcIP); ip == nil || ip.To4() == nil {
			return &ConfigError{Reason: fmt.Sprintf("source IP %q is not a valid IPv4 address", p.SrcIP)}
		}
		if !frameProtocols[p.Protocol] {
			return &ConfigError{Reason: fmt.Sprintf("unknown protocol %q", p.Protocol)}
		}
		if p.Device == "" {
			return &ConfigError{Reason: "frame transport requires a network interface"}
		}
	}
	if mode == ModeFrameL2 {
		if _, err := net.ParseMAC(p.SrcMAC); err != nil {
			return &ConfigError{Reason: fmt.Sprintf("source MAC %q: %v", p.SrcMAC, err)}
		}
		if _, err := net.ParseMAC(p.DstMAC); err != nil {
			return &ConfigError{Reason: fmt.Sprintf("destination MAC %q: %v", p.DstMAC, err)}
		}
	}

	if p.Rate <= 0 {
		return &ConfigError{Reason: "rate must be a positive number of packets per second"}
	}
	if p.Duration < 0 {
		return &ConfigError{Reason: "duration must not be negative"}
	}
	if p.PayloadSize <= 0 {
		return &ConfigError{Reason: "payload size must be positive"}
	}
	if p.DstPort < 0 || p.DstPort > 65535 {
		return &ConfigError{Reason: "destination port must be between 0 and 65535"}
	}
	return nil
}

// LoadProfile reads a profile from a YAML file.
func LoadProfile(path string) (Profile, error) {
	var p Profile
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read profile file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}
	return p, nil
}

// Config carries everything a generator run needs.
type Config struct {
	LoggerConfig logger.Config

	Profile     Profile
	MetricsAddr string
}
