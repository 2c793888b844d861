package health

import (
	"context"
	"net"
	"os"
	"testing"
	"time"
)

func TestMonitor_RunReportsTransitions(t *testing.T) {
	orig := dialFunc
	t.Cleanup(func() { dialFunc = orig })

	dialErr := &net.OpError{Op: "dial", Err: os.ErrDeadlineExceeded}
	calls := 0
	dialFunc = func(network, address string, timeout time.Duration) (net.Conn, error) {
		calls++
		if calls == 1 {
			return nil, dialErr
		}
		return nil, nil
	}

	var seen []bool
	m := NewMonitor(5*time.Millisecond, func(online bool) {
		seen = append(seen, online)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	if len(seen) == 0 {
		t.Fatal("onChange was never called")
	}
	if seen[0] != false {
		t.Errorf("first reported state = %v, want false (offline)", seen[0])
	}
}

func TestMonitor_Online_DefaultsFalse(t *testing.T) {
	m := NewMonitor(time.Minute, nil)
	if m.Online() {
		t.Error("Online() = true before first probe, want false")
	}
}
