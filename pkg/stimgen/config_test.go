package stimgen

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validFrameProfile() Profile {
	return Profile{
		SrcIP:       "10.50.88.80",
		DstIP:       "10.50.88.156",
		Device:      "eth1",
		Protocol:    ProtocolHTTP,
		Rate:        100,
		Duration:    10,
		PayloadSize: 1400,
	}
}

func validStreamProfile() Profile {
	return Profile{
		DstIP:       "10.50.88.156",
		DstPort:     5555,
		Protocol:    ProtocolUDP,
		Rate:        100,
		Duration:    10,
		PayloadSize: 1024,
	}
}

func TestProfileMode(t *testing.T) {
	tests := []struct {
		name string
		p    Profile
		want Mode
	}{
		{"dst only", Profile{DstIP: "10.0.0.2", DstPort: 80}, ModeStream},
		{"src ip set", Profile{SrcIP: "10.0.0.1", DstIP: "10.0.0.2"}, ModeFrame},
		{"both macs", Profile{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", SrcMAC: "02:00:00:00:00:01", DstMAC: "02:00:00:00:00:02"}, ModeFrameL2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Mode(); got != tt.want {
				t.Fatalf("Mode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		base    func() Profile
		wantErr bool
	}{
		{"valid frame", func(p *Profile) {}, validFrameProfile, false},
		{"valid stream", func(p *Profile) {}, validStreamProfile, false},
		{"missing dst", func(p *Profile) { p.DstIP = "" }, validFrameProfile, true},
		{"bad dst", func(p *Profile) { p.DstIP = "not-an-ip" }, validFrameProfile, true},
		{"ipv6 dst", func(p *Profile) { p.DstIP = "::1" }, validFrameProfile, true},
		{"bad src", func(p *Profile) { p.SrcIP = "nope" }, validFrameProfile, true},
		{"zero rate", func(p *Profile) { p.Rate = 0 }, validFrameProfile, true},
		{"negative rate", func(p *Profile) { p.Rate = -5 }, validFrameProfile, true},
		{"negative duration", func(p *Profile) { p.Duration = -1 }, validFrameProfile, true},
		{"zero duration ok", func(p *Profile) { p.Duration = 0 }, validFrameProfile, false},
		{"zero payload", func(p *Profile) { p.PayloadSize = 0 }, validFrameProfile, true},
		{"unknown protocol", func(p *Profile) { p.Protocol = "gopher" }, validFrameProfile, true},
		{"stream missing port", func(p *Profile) { p.DstPort = 0 }, validStreamProfile, true},
		{"stream port too big", func(p *Profile) { p.DstPort = 70000 }, validStreamProfile, true},
		{"stream rejects dns", func(p *Profile) { p.Protocol = ProtocolDNS }, validStreamProfile, true},
		{"stream rejects icmp", func(p *Profile) { p.Protocol = ProtocolICMP }, validStreamProfile, true},
		{"single mac", func(p *Profile) { p.SrcMAC = "02:00:00:00:00:01" }, validFrameProfile, true},
		{"bad mac", func(p *Profile) {
			p.SrcMAC = "02:00:00:00:00:01"
			p.DstMAC = "zz:00:00:00:00:02"
		}, validFrameProfile, true},
		{"valid l2", func(p *Profile) {
			p.SrcMAC = "02:00:00:00:00:01"
			p.DstMAC = "02:00:00:00:00:02"
		}, validFrameProfile, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.base()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("Validate() = %v, want *ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name     string
		p        Profile
		wantRate int
		wantSize int
	}{
		{"frame http", Profile{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Protocol: ProtocolHTTP}, 100, 1400},
		{"frame dns", Profile{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Protocol: ProtocolDNS}, 50, 1400},
		{"frame icmp", Profile{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Protocol: ProtocolICMP}, 10, 1400},
		{"stream udp", Profile{DstIP: "10.0.0.2", DstPort: 5555, Protocol: ProtocolUDP}, 100, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.p.ApplyDefaults()
			if tt.p.Rate != tt.wantRate {
				t.Errorf("Rate = %d, want %d", tt.p.Rate, tt.wantRate)
			}
			if tt.p.PayloadSize != tt.wantSize {
				t.Errorf("PayloadSize = %d, want %d", tt.p.PayloadSize, tt.wantSize)
			}
			if tt.p.Device != defaultDevice {
				t.Errorf("Device = %q, want %q", tt.p.Device, defaultDevice)
			}
		})
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	p := Profile{DstIP: "10.0.0.2", DstPort: 80, Protocol: ProtocolHTTP, Rate: 7, PayloadSize: 99, Device: "lo"}
	p.ApplyDefaults()
	if p.Rate != 7 || p.PayloadSize != 99 || p.Device != "lo" {
		t.Fatalf("defaults overwrote explicit values: %+v", p)
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := []byte("dst_ip: 10.50.88.156\ndst_port: 5555\nprotocol: udp\nrate: 200\nduration: 30\npayload_size: 512\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error: %v", err)
	}
	if p.DstIP != "10.50.88.156" || p.DstPort != 5555 || p.Protocol != ProtocolUDP {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.Rate != 200 || p.Duration != 30 || p.PayloadSize != 512 {
		t.Fatalf("unexpected profile numbers: %+v", p)
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadProfile() = nil, want error")
	}
}
