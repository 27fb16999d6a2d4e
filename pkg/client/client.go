// Package client implements the auction house wire protocol from the
// client side: unframed request/response messages over a TCP stream, with
// success distinguished from failure by the "Successfully" reply prefix.
package client

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const greetingPrefix = "Welcome to Sundris Auction House, stranger!"

// successPrefix is reserved by the server for successful replies; every
// failure reply starts differently.
const successPrefix = "Successfully"

// Client is one connection to the auction house server.
type Client struct {
	conn   net.Conn
	buffer [1024]byte
}

// Connect dials the server, retrying with exponential backoff for up to
// maxElapsed. Pass 0 to try exactly once.
func Connect(addr string, maxElapsed time.Duration) (*Client, error) {
	var conn net.Conn
	dial := func() (err error) {
		conn, err = net.Dial("tcp", addr)
		return err
	}

	if maxElapsed == 0 {
		if err := dial(); err != nil {
			return nil, fmt.Errorf("connect to %s: %w", addr, err)
		}
	} else {
		policy := backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(maxElapsed))
		if err := backoff.Retry(dial, policy); err != nil {
			return nil, fmt.Errorf("connect to %s: %w", addr, err)
		}
	}
	return &Client{conn: conn}, nil
}

// Login consumes the greeting and authenticates as name.
func (c *Client) Login(name string) error {
	greeting, err := c.Read()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(greeting, greetingPrefix) {
		return fmt.Errorf("unexpected greeting: %s", greeting)
	}
	return c.Execute(name)
}

// Execute sends a command and waits for the reply, failing unless the
// server reports success.
func (c *Client) Execute(command string) error {
	reply, err := c.Call(command)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(reply, successPrefix) {
		return fmt.Errorf("command failed with error: %s", reply)
	}
	return nil
}

// Call sends a command and returns the raw reply.
func (c *Client) Call(command string) (string, error) {
	if err := c.Send(command); err != nil {
		return "", err
	}
	return c.Read()
}

// Send writes a command without waiting for the reply. For callers that
// read the stream from a separate goroutine.
func (c *Client) Send(command string) error {
	if _, err := c.conn.Write([]byte(command)); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// Read returns the next server message.
func (c *Client) Read() (string, error) {
	n, err := c.conn.Read(c.buffer[:])
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return string(c.buffer[:n]), nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
