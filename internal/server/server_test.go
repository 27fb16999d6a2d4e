package server_test

import (
	"context"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundris/auctionhouse/internal/repository"
	"github.com/sundris/auctionhouse/internal/server"
	"github.com/sundris/auctionhouse/internal/service"
	"github.com/sundris/auctionhouse/pkg/client"
	"github.com/sundris/auctionhouse/pkg/database"
)

// startTestServer runs a server over a fresh in-memory engine on an
// ephemeral port and returns its address.
func startTestServer(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := database.Open(ctx, database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fundsItemID, err := repository.EnsureSchema(ctx, db)
	require.NoError(t, err)

	engine := service.NewAuctionService(
		db,
		repository.NewUserRepository(),
		repository.NewItemRepository(),
		repository.NewOrderRepository(),
		fundsItemID,
	)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := server.New(engine, 5*time.Minute)
	go func() { _ = srv.Serve(ctx, ln) }()

	return ln.Addr().String()
}

func login(t *testing.T, addr, name string) *client.Client {
	t.Helper()

	c, err := client.Connect(addr, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Login(name))
	return c
}

func TestServer_Session(t *testing.T) {
	addr := startTestServer(t)
	c := login(t, addr, "alice")

	reply, err := c.Call("ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)

	reply, err = c.Call("whoami")
	require.NoError(t, err)
	assert.Equal(t, "alice", reply)

	require.NoError(t, c.Execute("deposit funds 100"))
	require.NoError(t, c.Execute("deposit arrow 5"))

	reply, err = c.Call("view_items")
	require.NoError(t, err)
	assert.Equal(t, `Items: [("funds", 100), ("arrow", 5)]`, reply)

	reply, err = c.Call("withdraw arrow 5")
	require.NoError(t, err)
	assert.Equal(t, "Successfully withdrawed 5 arrow(s)", reply)

	reply, err = c.Call("withdraw arrow 5")
	require.NoError(t, err)
	assert.Equal(t, "Failed to process request: Failed to withdraw 5 arrow(s): Not enough arrow(s) to withdraw", reply)

	reply, err = c.Call("jump")
	require.NoError(t, err)
	assert.Equal(t, "Failed to process request: Unknown command 'jump'", reply)
}

// A failed login does not end the session; the client may retry with a
// different username.
func TestServer_LoginRetry(t *testing.T) {
	addr := startTestServer(t)

	c, err := client.Connect(addr, 0)
	require.NoError(t, err)
	defer c.Close()

	greeting, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Sundris Auction House, stranger! How can I call you?", greeting)

	// whitespace-only trims down to an empty username
	reply, err := c.Call("   ")
	require.NoError(t, err)
	assert.Equal(t, "Failed to process request: Username cannot be empty", reply)

	reply, err = c.Call("bob")
	require.NoError(t, err)
	assert.Equal(t, "Successfully logged in as bob", reply)

	reply, err = c.Call("whoami")
	require.NoError(t, err)
	assert.Equal(t, "bob", reply)
}

func TestServer_SellAndBuyAcrossClients(t *testing.T) {
	addr := startTestServer(t)

	alice := login(t, addr, "alice")
	require.NoError(t, alice.Execute("deposit funds 10"))
	require.NoError(t, alice.Execute("deposit arrow 5"))

	reply, err := alice.Call("sell arrow 5 10")
	require.NoError(t, err)
	assert.Equal(t, "Successfully placed immediate sell order for 5 arrow(s)", reply)

	reply, err = alice.Call("view_sell_orders")
	require.NoError(t, err)
	assert.Regexp(t,
		regexp.MustCompile(`^Sell orders:\n- #1: alice is selling 5 arrow\(s\) for 10 funds until \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`),
		reply)

	bob := login(t, addr, "bob")
	require.NoError(t, bob.Execute("deposit funds 10"))

	reply, err = bob.Call("buy 1")
	require.NoError(t, err)
	assert.Equal(t, "Successfully executed immediate sell order #1", reply)

	reply, err = bob.Call("view_items")
	require.NoError(t, err)
	assert.Equal(t, `Items: [("funds", 0), ("arrow", 5)]`, reply)

	// fee was 10/20 + 1 = 1, so alice nets 9 + the 10 funds sale price
	reply, err = alice.Call("view_items")
	require.NoError(t, err)
	assert.Equal(t, `Items: [("funds", 19)]`, reply)

	reply, err = bob.Call("buy 1")
	require.NoError(t, err)
	assert.Equal(t, "Failed to process request: Failed to executed immediate sell order #1: No such sell order", reply)
}

func TestServer_AuctionBidding(t *testing.T) {
	addr := startTestServer(t)

	alice := login(t, addr, "alice")
	require.NoError(t, alice.Execute("deposit funds 10"))
	require.NoError(t, alice.Execute("deposit holy sword 1"))

	reply, err := alice.Call("sell auction holy sword 1 50")
	require.NoError(t, err)
	assert.Equal(t, "Successfully placed auction sell order for 1 holy sword(s)", reply)

	reply, err = alice.Call("view_sell_orders")
	require.NoError(t, err)
	assert.Regexp(t,
		regexp.MustCompile(`^Sell orders:\n- #1: alice is selling a holy sword for 50 funds on auction until \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`),
		reply)

	bob := login(t, addr, "bob")
	require.NoError(t, bob.Execute("deposit funds 100"))

	reply, err = bob.Call("buy 1 50")
	require.NoError(t, err)
	assert.Equal(t, "Failed to process request: Failed to place bid on sell order #1: Bid must be higher than the current price", reply)

	reply, err = bob.Call("buy 1 60")
	require.NoError(t, err)
	assert.Equal(t, "Successfully placed bid on sell order #1", reply)

	// an auction order cannot be bought outright
	reply, err = bob.Call("buy 1")
	require.NoError(t, err)
	assert.Equal(t, "Failed to process request: Failed to executed immediate sell order #1: Not an immediate sell order, place a bid instead", reply)

	reply, err = bob.Call("view_items")
	require.NoError(t, err)
	assert.Equal(t, `Items: [("funds", 40)]`, reply)
}
