package acquire

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	// DefaultGPSDTimeout bounds one device fix attempt.
	DefaultGPSDTimeout = 10 * time.Second

	// DefaultFixMaxAge is how long a fix is reused before asking again.
	DefaultFixMaxAge = 5 * time.Minute

	gpsdWatch = `?WATCH={"enable":true,"json":true};` + "\n"

	// gpsd TPV modes: 2 is a 2D fix, 3 a 3D fix.
	minFixMode = 2
)

// GPSD reads device position from a gpsd daemon over its JSON socket.
type GPSD struct {
	addr    string
	timeout time.Duration
	maxAge  time.Duration
	now     func() time.Time

	mu     sync.Mutex
	last   Coordinates
	lastAt time.Time
}

// GPSDOption configures a GPSD client.
type GPSDOption func(*GPSD)

// WithGPSDTimeout bounds how long Locate waits for a fix.
func WithGPSDTimeout(d time.Duration) GPSDOption {
	return func(g *GPSD) {
		g.timeout = d
	}
}

// WithFixMaxAge sets how long a previous fix may be reused.
func WithFixMaxAge(d time.Duration) GPSDOption {
	return func(g *GPSD) {
		g.maxAge = d
	}
}

// NewGPSD creates a client for the gpsd at addr (host:port). An empty
// address disables device location.
func NewGPSD(addr string, opts ...GPSDOption) *GPSD {
	g := &GPSD{
		addr:    addr,
		timeout: DefaultGPSDTimeout,
		maxAge:  DefaultFixMaxAge,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type gpsdReport struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// Locate returns a recent fix or waits for a new one.
func (g *GPSD) Locate(ctx context.Context) (Coordinates, error) {
	if g.addr == "" {
		return Coordinates{}, fmt.Errorf("gpsd: no address configured: %w", ErrUnavailable)
	}

	g.mu.Lock()
	if !g.lastAt.IsZero() && g.now().Sub(g.lastAt) < g.maxAge {
		c := g.last
		g.mu.Unlock()
		return c, nil
	}
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		return Coordinates{}, fmt.Errorf("gpsd: dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := conn.Write([]byte(gpsdWatch)); err != nil {
		return Coordinates{}, fmt.Errorf("gpsd: watch: %w", err)
	}

	dec := json.NewDecoder(bufio.NewReader(conn))
	for {
		var r gpsdReport
		if err := dec.Decode(&r); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Coordinates{}, fmt.Errorf("gpsd: no fix: %w", ctxErr)
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return Coordinates{}, fmt.Errorf("gpsd: no fix: %w", context.DeadlineExceeded)
			}
			return Coordinates{}, fmt.Errorf("gpsd: read: %w", err)
		}
		if r.Class != "TPV" || r.Mode < minFixMode {
			continue
		}

		c := Coordinates{Lat: r.Lat, Lon: r.Lon}
		g.mu.Lock()
		g.last, g.lastAt = c, g.now()
		g.mu.Unlock()
		return c, nil
	}
}
