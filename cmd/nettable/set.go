package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func setCmd() *cobra.Command {
	var typ string
	var persistent bool

	cmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Write one entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(typ, args[1])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := connect(ctx, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Set(args[0], value, 0); err != nil {
				return err
			}
			if persistent {
				// The flag can only follow the server's id assignment;
				// best effort when the entry already exists.
				if err := c.SetPersistent(args[0], true); err != nil {
					cmd.PrintErrf("persist flag not applied: %s\n", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "string",
		"value type: boolean, double, string, raw, boolean[], double[], string[]")
	cmd.Flags().BoolVarP(&persistent, "persistent", "p", false,
		"ask the server to persist the entry")
	return cmd
}
