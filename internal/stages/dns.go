package stages

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

const dnsTimeout = 10 * time.Second

// DNSStage resolves the target hostname and optionally verifies that a
// specific address is among the answers.
type DNSStage struct {
	expectedIP string
}

func newDNSStage(opts map[string]any) (Stage, error) {
	expected := optString(opts, "expected_ip", "")
	if expected != "" && net.ParseIP(expected) == nil {
		return nil, fmt.Errorf("expected_ip is not a valid IP address")
	}
	return &DNSStage{expectedIP: expected}, nil
}

func (s *DNSStage) Name() string           { return "dns" }
func (s *DNSStage) Description() string    { return "Check DNS resolution" }
func (s *DNSStage) IsNetworkStage() bool   { return true }
func (s *DNSStage) Timeout() time.Duration { return dnsTimeout }

func (s *DNSStage) Check(ctx context.Context, rawURL string, verbose bool, cc *uptimer.CheckContext) *Result {
	host, _, err := hostPort(rawURL, "443")
	if err != nil {
		return down("invalid URL: no hostname", map[string]any{"error": err.Error()})
	}

	start := time.Now()
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	elapsedMS := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return &Result{
			Status:    uptimer.StatusDown,
			Message:   fmt.Sprintf("DNS resolution failed: %v", err),
			ElapsedMS: elapsedMS,
			Details:   map[string]any{"hostname": host, "error": err.Error()},
		}
	}

	var ipv4, ipv6 []string
	for _, ip := range ips {
		if ip.IP.To4() != nil {
			ipv4 = append(ipv4, ip.IP.String())
		} else {
			ipv6 = append(ipv6, ip.IP.String())
		}
	}

	details := map[string]any{
		"hostname":        host,
		"ipv4":            ipv4,
		"ipv6":            ipv6,
		"resolve_time_ms": elapsedMS,
	}
	if len(ipv4) > 0 {
		cc.Store("resolved_ip", ipv4[0])
	} else if len(ipv6) > 0 {
		cc.Store("resolved_ip", ipv6[0])
	}

	if s.expectedIP != "" {
		for _, ip := range ips {
			if ip.IP.String() == s.expectedIP {
				return &Result{
					Status:    uptimer.StatusUp,
					Message:   fmt.Sprintf("resolved to %s (expected)", s.expectedIP),
					ElapsedMS: elapsedMS,
					Details:   details,
				}
			}
		}
		return &Result{
			Status:    uptimer.StatusDegraded,
			Message:   fmt.Sprintf("expected %s, got %v", s.expectedIP, append(ipv4, ipv6...)),
			ElapsedMS: elapsedMS,
			Details:   details,
		}
	}

	primary := "unknown"
	if len(ipv4) > 0 {
		primary = ipv4[0]
	} else if len(ipv6) > 0 {
		primary = ipv6[0]
	}
	return &Result{
		Status:    uptimer.StatusUp,
		Message:   fmt.Sprintf("resolved to %s", primary),
		ElapsedMS: elapsedMS,
		Details:   details,
	}
}

func registerDNS(r *Registry) {
	r.Register(Info{
		Type:           "dns",
		Name:           "DNS",
		Description:    "Check DNS resolution",
		IsNetworkStage: true,
		Options: []Option{
			{Name: "expected_ip", Label: "Expected IP", Type: "string", Description: "Report degraded unless this address is among the answers"},
		},
	}, newDNSStage)
}
