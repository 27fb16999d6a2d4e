// Interactive auction house client: prints every server message and
// forwards stdin lines as requests.
package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sundris/auctionhouse/pkg/client"
)

func main() {
	cmd := &cobra.Command{
		Use:          "auction-client <addr:port>",
		Short:        "Interactive Sundris Auction House client",
		Example:      "  auction-client localhost:3000",
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
	c, err := client.Connect(addr, 5*time.Second)
	if err != nil {
		return err
	}
	defer c.Close()

	// Reader goroutine: print everything the server sends, exit the process
	// when it closes the stream.
	go func() {
		for {
			message, err := c.Read()
			if err != nil {
				fmt.Println("Connection closed by server")
				os.Exit(0)
			}
			fmt.Printf("> %s\n", message)
		}
	}()

	// Replies are printed by the reader goroutine; this loop only writes.
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := c.Send(scanner.Text()); err != nil {
			fmt.Println("Connection closed by server")
			return nil
		}
	}
	return scanner.Err()
}
