// Package kasa speaks the TP-Link Kasa local protocol: JSON commands over
// TCP port 9999, obfuscated with the vendor's autokey XOR cipher and
// framed by a 4-byte big-endian length prefix.
package kasa

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// DefaultPort is the plaintext control port every Kasa device listens on.
const DefaultPort = "9999"

const initialKey = 171

// encrypt applies the autokey XOR cipher. Each output byte becomes the key
// for the next input byte.
func encrypt(plain []byte) []byte {
	out := make([]byte, len(plain))
	key := byte(initialKey)
	for i, b := range plain {
		out[i] = b ^ key
		key = out[i]
	}
	return out
}

// decrypt reverses encrypt. The ciphertext byte itself keys the next one.
func decrypt(cipher []byte) []byte {
	out := make([]byte, len(cipher))
	key := byte(initialKey)
	for i, b := range cipher {
		out[i] = b ^ key
		key = b
	}
	return out
}

// SysInfo is the subset of the device's system report the monitor uses.
type SysInfo struct {
	Alias   string `json:"alias"`
	Model   string `json:"model"`
	Feature string `json:"feature"`
}

// HasEmeter reports whether the device advertises an energy meter.
func (s SysInfo) HasEmeter() bool {
	return strings.Contains(s.Feature, "ENE")
}

// Client talks to a single Kasa device. Every call opens a fresh
// connection; the devices drop idle sockets quickly anyway.
type Client struct {
	addr    string
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

// Option mutates a Client during construction.
type Option func(*Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithDialer overrides the TCP dialer, used by tests.
func WithDialer(dial func(ctx context.Context, network, addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.dial = dial }
}

// NewClient targets a device address. A bare host gets the default port.
func NewClient(addr string, opts ...Option) *Client {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultPort)
	}
	c := &Client{
		addr:    addr,
		timeout: 10 * time.Second,
		dial:    (&net.Dialer{}).DialContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr returns the resolved host:port this client targets.
func (c *Client) Addr() string { return c.addr }

// CurrentPower queries the energy meter and returns the load in watts.
// Newer firmware reports power_mw; older firmware reports fractional
// power. Either shape is accepted.
func (c *Client) CurrentPower(ctx context.Context) (float64, error) {
	var resp struct {
		Emeter struct {
			GetRealtime struct {
				PowerMw *float64 `json:"power_mw"`
				Power   *float64 `json:"power"`
				ErrCode int      `json:"err_code"`
			} `json:"get_realtime"`
		} `json:"emeter"`
	}
	if err := c.query(ctx, `{"emeter":{"get_realtime":{}}}`, &resp); err != nil {
		return 0, err
	}

	rt := resp.Emeter.GetRealtime
	if rt.ErrCode != 0 {
		return 0, fmt.Errorf("device %s emeter error code %d", c.addr, rt.ErrCode)
	}
	switch {
	case rt.PowerMw != nil:
		return *rt.PowerMw / 1000.0, nil
	case rt.Power != nil:
		return *rt.Power, nil
	default:
		return 0, fmt.Errorf("device %s returned no power reading", c.addr)
	}
}

// GetSysInfo fetches the device identity block.
func (c *Client) GetSysInfo(ctx context.Context) (SysInfo, error) {
	var resp struct {
		System struct {
			GetSysinfo SysInfo `json:"get_sysinfo"`
		} `json:"system"`
	}
	if err := c.query(ctx, `{"system":{"get_sysinfo":{}}}`, &resp); err != nil {
		return SysInfo{}, err
	}
	return resp.System.GetSysinfo, nil
}

func (c *Client) query(ctx context.Context, command string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to device %s: %w", c.addr, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("failed to set deadline on %s: %w", c.addr, err)
		}
	}

	payload := encrypt([]byte(command))
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("failed to send command to %s: %w", c.addr, err)
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return fmt.Errorf("failed to read response header from %s: %w", c.addr, err)
	}
	size := binary.BigEndian.Uint32(lenBuf[:])
	if size == 0 || size > 1<<20 {
		return fmt.Errorf("device %s sent implausible response length %d", c.addr, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return fmt.Errorf("failed to read response from %s: %w", c.addr, err)
	}

	if err := json.Unmarshal(decrypt(body), out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", c.addr, err)
	}
	return nil
}

// Discover probes each host for a Kasa device and reports the ones that
// answer a sysinfo query within the timeout. Probes run sequentially;
// discovery is an interactive one-shot, not a hot path.
func Discover(ctx context.Context, hosts []string, timeout time.Duration) []Found {
	var found []Found
	for _, host := range hosts {
		if ctx.Err() != nil {
			break
		}
		client := NewClient(host, WithTimeout(timeout))
		info, err := client.GetSysInfo(ctx)
		if err != nil {
			continue
		}
		found = append(found, Found{Addr: client.Addr(), Info: info})
	}
	return found
}

// Found is one device located by Discover.
type Found struct {
	Addr string
	Info SysInfo
}

// ExpandCIDR lists the usable host addresses of an IPv4 CIDR block.
func ExpandCIDR(cidr string) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	ip = ip.Mask(ipnet.Mask).To4()
	if ip == nil {
		return nil, fmt.Errorf("only IPv4 ranges are supported, got %q", cidr)
	}

	var hosts []string
	for addr := ip; ipnet.Contains(addr); addr = nextIP(addr) {
		hosts = append(hosts, addr.String())
		if len(hosts) > 1024 {
			return nil, fmt.Errorf("range %q is too large to scan", cidr)
		}
	}
	// Drop network and broadcast addresses for ranges big enough to have them.
	if len(hosts) > 2 {
		hosts = hosts[1 : len(hosts)-1]
	}
	return hosts, nil
}

func nextIP(ip net.IP) net.IP {
	next := make(net.IP, len(ip))
	copy(next, ip)
	for i := len(next) - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			break
		}
	}
	return next
}
