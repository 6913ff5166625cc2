package stages

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

const defaultSSLTimeout = 10 * time.Second

// SSLStage connects to the target host and inspects the peer certificate.
type SSLStage struct {
	warnDays int
	timeout  time.Duration
}

func newSSLStage(opts map[string]any) (Stage, error) {
	warnDays := optInt(opts, "warn_days", 30)
	if warnDays < 0 {
		return nil, fmt.Errorf("warn_days must not be negative")
	}
	timeout := time.Duration(optFloat(opts, "timeout", defaultSSLTimeout.Seconds()) * float64(time.Second))
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}
	if timeout > maxStageTimeout {
		timeout = maxStageTimeout
	}
	return &SSLStage{warnDays: warnDays, timeout: timeout}, nil
}

func (s *SSLStage) Name() string           { return "ssl" }
func (s *SSLStage) Description() string    { return "Check SSL certificate validity and expiration" }
func (s *SSLStage) IsNetworkStage() bool   { return true }
func (s *SSLStage) Timeout() time.Duration { return s.timeout }

func (s *SSLStage) Check(ctx context.Context, rawURL string, verbose bool, cc *uptimer.CheckContext) *Result {
	host, port, err := hostPort(rawURL, "443")
	if err != nil {
		return down("invalid URL: no hostname", map[string]any{"error": err.Error()})
	}

	dialer := &net.Dialer{Timeout: s.timeout}
	start := time.Now()
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, port), &tls.Config{ServerName: host})
	elapsedMS := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return &Result{
			Status:    uptimer.StatusDown,
			Message:   fmt.Sprintf("connection failed: %v", err),
			ElapsedMS: elapsedMS,
			Details:   map[string]any{"hostname": host, "port": port, "error": err.Error()},
		}
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return down("no certificate returned", map[string]any{"hostname": host, "port": port})
	}
	cert := certs[0]

	now := time.Now().UTC()
	daysRemaining := int(cert.NotAfter.Sub(now).Hours() / 24)

	details := map[string]any{
		"hostname":       host,
		"port":           port,
		"subject":        cert.Subject.CommonName,
		"issuer":         cert.Issuer.CommonName,
		"not_before":     cert.NotBefore.UTC().Format(time.RFC3339),
		"not_after":      cert.NotAfter.UTC().Format(time.RFC3339),
		"days_remaining": daysRemaining,
		"serial_number":  cert.SerialNumber.String(),
	}

	cc.Store("ssl_days_remaining", float64(daysRemaining))

	status, message := classifyCertExpiry(daysRemaining, s.warnDays)
	return &Result{
		Status:    status,
		Message:   message,
		ElapsedMS: elapsedMS,
		Details:   details,
	}
}

// classifyCertExpiry maps remaining certificate lifetime to a verdict:
// expired is down, inside the warning window is degraded, otherwise up.
func classifyCertExpiry(daysRemaining, warnDays int) (uptimer.Status, string) {
	switch {
	case daysRemaining < 0:
		return uptimer.StatusDown, fmt.Sprintf("certificate expired %d days ago", -daysRemaining)
	case daysRemaining <= warnDays:
		return uptimer.StatusDegraded, fmt.Sprintf("certificate expires in %d days", daysRemaining)
	default:
		return uptimer.StatusUp, fmt.Sprintf("valid, expires in %d days", daysRemaining)
	}
}

// hostPort extracts host and port from a monitor URL, defaulting the scheme
// to https and the port to defPort.
func hostPort(rawURL, defPort string) (string, string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	host := parsed.Hostname()
	if host == "" {
		return "", "", fmt.Errorf("could not parse hostname from URL")
	}
	port := parsed.Port()
	if port == "" {
		port = defPort
	}
	return host, port, nil
}

func registerSSL(r *Registry) {
	r.Register(Info{
		Type:           "ssl",
		Name:           "SSL Certificate",
		Description:    "Check SSL certificate validity and expiration",
		IsNetworkStage: true,
		Options: []Option{
			{Name: "warn_days", Label: "Warning Days", Type: "number", Default: 30, Description: "Days before expiry to report degraded"},
			{Name: "timeout", Label: "Timeout", Type: "number", Default: 10, Description: "Connection timeout in seconds"},
		},
	}, newSSLStage)
}
