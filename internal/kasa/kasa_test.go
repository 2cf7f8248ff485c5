package kasa

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestCipherRoundTrip(t *testing.T) {
	tests := []string{
		`{"system":{"get_sysinfo":{}}}`,
		`{"emeter":{"get_realtime":{}}}`,
		"",
		"a",
	}
	for _, plain := range tests {
		got := string(decrypt(encrypt([]byte(plain))))
		if got != plain {
			t.Errorf("decrypt(encrypt(%q)) = %q", plain, got)
		}
	}
}

func TestEncryptKnownVector(t *testing.T) {
	// First byte XORs against the fixed initial key.
	out := encrypt([]byte{0x00})
	if out[0] != 171 {
		t.Errorf("encrypt first byte = %d, want 171", out[0])
	}
}

func TestNewClientAddsDefaultPort(t *testing.T) {
	if got := NewClient("192.168.1.40").Addr(); got != "192.168.1.40:9999" {
		t.Errorf("Addr() = %q, want default port appended", got)
	}
	if got := NewClient("192.168.1.40:1234").Addr(); got != "192.168.1.40:1234" {
		t.Errorf("Addr() = %q, want explicit port kept", got)
	}
}

// fakeDevice answers one framed request with a canned JSON response over an
// in-memory pipe.
func fakeDevice(t *testing.T, response string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	t.Helper()
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			defer func() { _ = server.Close() }()

			var lenBuf [4]byte
			if _, err := readFull(server, lenBuf[:]); err != nil {
				return
			}
			req := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
			if _, err := readFull(server, req); err != nil {
				return
			}
			if !json.Valid(decrypt(req)) {
				return
			}

			payload := encrypt([]byte(response))
			var out bytes.Buffer
			_ = binary.Write(&out, binary.BigEndian, uint32(len(payload)))
			out.Write(payload)
			_, _ = server.Write(out.Bytes())
		}()
		return client, nil
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestCurrentPower(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
		wantErr  bool
	}{
		{
			name:     "milliwatt firmware",
			response: `{"emeter":{"get_realtime":{"power_mw":423500,"err_code":0}}}`,
			want:     423.5,
		},
		{
			name:     "watt firmware",
			response: `{"emeter":{"get_realtime":{"power":12.25,"err_code":0}}}`,
			want:     12.25,
		},
		{
			name:     "device error code",
			response: `{"emeter":{"get_realtime":{"err_code":-1}}}`,
			wantErr:  true,
		},
		{
			name:     "no reading",
			response: `{"emeter":{"get_realtime":{"err_code":0}}}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient("10.0.0.1",
				WithTimeout(2*time.Second),
				WithDialer(fakeDevice(t, tt.response)))

			got, err := client.CurrentPower(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CurrentPower() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CurrentPower() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CurrentPower() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSysInfo(t *testing.T) {
	client := NewClient("10.0.0.1",
		WithTimeout(2*time.Second),
		WithDialer(fakeDevice(t, `{"system":{"get_sysinfo":{"alias":"Washer plug","model":"HS110(US)","feature":"TIM:ENE"}}}`)))

	info, err := client.GetSysInfo(context.Background())
	if err != nil {
		t.Fatalf("GetSysInfo() error: %v", err)
	}
	if info.Alias != "Washer plug" || info.Model != "HS110(US)" {
		t.Errorf("info = %+v", info)
	}
	if !info.HasEmeter() {
		t.Error("HasEmeter() = false, want true for TIM:ENE")
	}
	if (SysInfo{Feature: "TIM"}).HasEmeter() {
		t.Error("HasEmeter() = true for TIM-only device")
	}
}

func TestExpandCIDR(t *testing.T) {
	hosts, err := ExpandCIDR("192.168.1.0/30")
	if err != nil {
		t.Fatalf("ExpandCIDR() error: %v", err)
	}
	want := []string{"192.168.1.1", "192.168.1.2"}
	if len(hosts) != len(want) {
		t.Fatalf("hosts = %v, want %v", hosts, want)
	}
	for i := range want {
		if hosts[i] != want[i] {
			t.Errorf("hosts[%d] = %q, want %q", i, hosts[i], want[i])
		}
	}

	if _, err := ExpandCIDR("192.168.1.0/16"); err == nil {
		t.Error("expected error for oversized range")
	}
	if _, err := ExpandCIDR("nonsense"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}
