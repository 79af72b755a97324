package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [name]",
		Short: "Print one entry, or the whole table with no argument",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := connect(ctx, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			if len(args) == 1 {
				e, ok := c.GetEntry(args[0])
				if !ok {
					return fmt.Errorf("no entry named %q", args[0])
				}
				fmt.Println(e.Value)
				return nil
			}

			for _, e := range c.Entries() {
				fmt.Printf("%-40s %-12s %s\n", e.Name, e.Type, e.Value)
			}
			return nil
		},
	}
}
