package stages

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

const tcpConnectTimeout = 5 * time.Second

// TCPStage opens a plain TCP connection to the target host on a given port.
type TCPStage struct {
	port int
}

func newTCPStage(opts map[string]any) (Stage, error) {
	port := optInt(opts, "port", 0)
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("port is required and must be between 1 and 65535")
	}
	return &TCPStage{port: port}, nil
}

func (s *TCPStage) Name() string           { return "tcp" }
func (s *TCPStage) Description() string    { return "Check TCP port connectivity" }
func (s *TCPStage) IsNetworkStage() bool   { return true }
func (s *TCPStage) Timeout() time.Duration { return tcpConnectTimeout }

func (s *TCPStage) Check(ctx context.Context, rawURL string, verbose bool, cc *uptimer.CheckContext) *Result {
	host, _, err := hostPort(rawURL, "443")
	if err != nil {
		return down("invalid URL: no hostname", map[string]any{"error": err.Error()})
	}

	addr := net.JoinHostPort(host, strconv.Itoa(s.port))
	dialer := &net.Dialer{Timeout: tcpConnectTimeout}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	elapsedMS := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return &Result{
			Status:    uptimer.StatusDown,
			Message:   fmt.Sprintf("connection failed: %v", err),
			ElapsedMS: elapsedMS,
			Details:   map[string]any{"hostname": host, "port": s.port, "error": err.Error()},
		}
	}
	defer conn.Close()

	return &Result{
		Status:    uptimer.StatusUp,
		Message:   fmt.Sprintf("connected to %s", addr),
		ElapsedMS: elapsedMS,
		Details:   map[string]any{"hostname": host, "port": s.port},
	}
}

func registerTCP(r *Registry) {
	r.Register(Info{
		Type:           "tcp",
		Name:           "TCP Port",
		Description:    "Check TCP port connectivity",
		IsNetworkStage: true,
		Options: []Option{
			{Name: "port", Label: "Port", Type: "number", Required: true, Description: "TCP port to connect to"},
		},
	}, newTCPStage)
}
