package client

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts one connection and answers each message from the
// replies map, greeting the client first.
func fakeServer(t *testing.T, replies map[string]string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		if _, err := conn.Write([]byte("Welcome to Sundris Auction House, stranger! How can I call you?")); err != nil {
			return
		}
		buffer := make([]byte, 1024)
		for {
			n, err := conn.Read(buffer)
			if err != nil {
				return
			}
			reply, ok := replies[string(buffer[:n])]
			if !ok {
				reply = "Failed to process request: Unknown command '" + string(buffer[:n]) + "'"
			}
			if _, err := conn.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String()
}

func TestClient_LoginAndExecute(t *testing.T) {
	addr := fakeServer(t, map[string]string{
		"alice":           "Successfully logged in as alice",
		"deposit arrow 5": "Successfully deposited 5 arrow(s)",
		"ping":            "pong",
	})

	c, err := Connect(addr, 0)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Login("alice"))
	require.NoError(t, c.Execute("deposit arrow 5"))

	// "pong" is a success reply for Call but not for Execute
	reply, err := c.Call("ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)
	assert.Error(t, c.Execute("ping"))

	err = c.Execute("withdraw arrow 5")
	assert.EqualError(t, err, "command failed with error: Failed to process request: Unknown command 'withdraw arrow 5'")
}

func TestConnect_RefusedWithoutRetry(t *testing.T) {
	// grab a free port and close it again so the dial is refused
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Connect(addr, 0)
	assert.Error(t, err)
}

func TestConnect_RetriesUntilServerIsUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	// bring the listener back while the client is already retrying
	go func() {
		time.Sleep(100 * time.Millisecond)
		relisten, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}
		defer relisten.Close()
		conn, err := relisten.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	c, err := Connect(addr, 5*time.Second)
	require.NoError(t, err)
	c.Close()
}
