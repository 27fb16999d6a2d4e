// Benchmark harness for a running auction house server. Success and
// failure are distinguished purely by the "Successfully" reply prefix, so
// the numbers include the full command round trip.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sundris/auctionhouse/pkg/client"
)

const (
	pairsPerRun       = 100_000
	concurrentClients = 10
)

func main() {
	cmd := &cobra.Command{
		Use:          "auction-bench <addr:port>",
		Short:        "Sundris Auction House deposit/withdraw benchmark",
		Example:      "  auction-bench localhost:3000",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr string) error {
	if err := singleClient(addr); err != nil {
		return err
	}
	if err := singleClientAdditional(addr); err != nil {
		return err
	}
	return concurrent(addr)
}

// Deposit/withdraw pairs on a fresh holding: every withdraw drops the row
// to zero and deletes it, every deposit recreates it.
func singleClient(addr string) error {
	fmt.Println("Executing 100k single client deposit/withdraw benchmark...")

	miner, err := newLoggedInClient(addr, "Miner")
	if err != nil {
		return err
	}
	defer miner.Close()

	begin := time.Now()
	if err := depositWithdraw(miner, pairsPerRun); err != nil {
		return err
	}
	report("deposit/withdraw 100_000 times", begin, 2*pairsPerRun)
	return nil
}

// Same workload on top of one pre-existing unit, so the holding row is
// updated in place instead of being deleted and recreated.
func singleClientAdditional(addr string) error {
	fmt.Println("Executing 100k single client deposit/withdraw (additional) benchmark...")

	miner, err := newLoggedInClient(addr, "Miner")
	if err != nil {
		return err
	}
	defer miner.Close()

	if err := miner.Execute("deposit ore 1"); err != nil {
		return err
	}

	begin := time.Now()
	if err := depositWithdraw(miner, pairsPerRun); err != nil {
		return err
	}
	report("deposit/withdraw additional 100_000 times", begin, 2*pairsPerRun)
	return nil
}

func concurrent(addr string) error {
	fmt.Printf("Executing 100k %d client deposit/withdraw benchmark...\n", concurrentClients)

	begin := time.Now()
	var g errgroup.Group
	for i := 0; i < concurrentClients; i++ {
		c, err := newLoggedInClient(addr, fmt.Sprintf("Client%d", i))
		if err != nil {
			return err
		}
		defer c.Close()
		g.Go(func() error {
			return depositWithdraw(c, pairsPerRun/concurrentClients)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	report(fmt.Sprintf("deposit/withdraw 100_000 times with %d clients", concurrentClients), begin, 2*pairsPerRun)
	return nil
}

func newLoggedInClient(addr, name string) (*client.Client, error) {
	c, err := client.Connect(addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	if err := c.Login(name); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func depositWithdraw(c *client.Client, pairs int) error {
	for i := 0; i < pairs; i++ {
		if err := c.Execute("deposit ore 10"); err != nil {
			return err
		}
		if err := c.Execute("withdraw ore 10"); err != nil {
			return err
		}
	}
	return nil
}

func report(what string, begin time.Time, requests int) {
	elapsed := time.Since(begin).Seconds()
	fmt.Printf("%s took: %.3f seconds with %.0f rps\n", what, elapsed, float64(requests)/elapsed)
}
