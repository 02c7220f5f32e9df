// Package stress generates submission load against a running numberlog server.
package stress

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/prom"
	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
)

// numbers at or above this no longer fit in 9 digits
const fixedWidthLimit = 1_000_000_000

var ErrInvalidMaxValue = errors.New("max value must be greater than zero")

// Client sends 9 digit zero padded numbers over one connection.
type Client struct {
	addr string
	conn net.Conn
	w    *bufio.Writer
}

func NewClient(addr string) *Client {
	return &Client{addr: addr}
}

func (c *Client) Connect() error {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", c.addr, err)
	}
	c.conn = conn
	c.w = bufio.NewWriter(conn)
	return nil
}

// Send buffers one number, call Flush to push buffered numbers to the server.
func (c *Client) Send(v uint32) error {
	_, err := fmt.Fprintf(c.w, "%09d\n", v)
	return err
}

func (c *Client) Flush() error {
	return c.w.Flush()
}

func (c *Client) Close() error {
	if err := c.w.Flush(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}

type Options struct {
	Target      string
	Connections int
	MaxValue    uint32
	Seed        int64
	// stop after this many numbers per connection, 0 to run until cancelled
	PerConnection int
	// how often throughput is printed
	Interval time.Duration
	Out      io.Writer
}

// Run opens the connections and sends random numbers until ctx is done, a connection
// fails or every connection has sent PerConnection numbers. Returns the total sent.
// Values stay below both MaxValue and 1e9 so every line is exactly 9 digits.
func Run(ctx context.Context, opts Options) (uint64, error) {
	if opts.MaxValue == 0 {
		return 0, ErrInvalidMaxValue
	}
	bound := int64(min(opts.MaxValue, fixedWidthLimit))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var sent atomic.Uint64
	var window atomic.Uint64
	var wg sync.WaitGroup
	errs := make(chan error, opts.Connections)
	// the first failure stops every other connection
	fail := func(err error) {
		errs <- err
		cancel()
	}

	if opts.Interval > 0 {
		go func() {
			ticker := time.NewTicker(opts.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					n := window.Swap(0)
					fmt.Fprintf(opts.Out, "Current throughput is %d numbers/s\n", uint64(float64(n)/opts.Interval.Seconds()))
				}
			}
		}()
	}

	for i := 0; i < opts.Connections; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			c := NewClient(opts.Target)
			if err := c.Connect(); err != nil {
				fail(err)
				return
			}
			defer c.Close()
			r := rand.New(rand.NewSource(opts.Seed + int64(idx)))
			for n := 0; opts.PerConnection == 0 || n < opts.PerConnection; n++ {
				if ctx.Err() != nil {
					return
				}
				if err := c.Send(uint32(r.Int63n(bound))); err != nil {
					fail(err)
					return
				}
				sent.Add(1)
				window.Add(1)
				prom.StressSent.Inc()
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		st.Logger.Warn().Err(err).Msg("stress connection failed")
		return sent.Load(), err
	}
	return sent.Load(), nil
}
