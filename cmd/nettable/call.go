package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nettable-dev/nettable/pkg/protocol"
)

func callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <name> [arg...]",
		Short: "Invoke a server-defined remote procedure",
		Long: `Invoke the RPC definition stored under the given entry name.

Each argument is coerced to the type the definition declares for the
corresponding parameter. Omitted trailing arguments fall back to the
definition's default values.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := connect(ctx, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			e, ok := c.GetEntry(args[0])
			if !ok {
				return fmt.Errorf("no entry named %q", args[0])
			}
			if e.Type != protocol.TypeRpc || e.Value.Rpc == nil {
				return fmt.Errorf("entry %q is not an rpc definition", args[0])
			}
			def := e.Value.Rpc

			raw := args[1:]
			if len(raw) > len(def.Params) {
				return fmt.Errorf("%q takes at most %d arguments", def.Name, len(def.Params))
			}

			params := make([]protocol.Value, len(def.Params))
			for i, p := range def.Params {
				if i < len(raw) {
					v, err := coerceValue(p.Type, raw[i])
					if err != nil {
						return err
					}
					params[i] = v
				} else {
					params[i] = p.Default
				}
			}

			results, err := c.Call(ctx, args[0], params)
			if err != nil {
				return err
			}
			for i, r := range results {
				name := fmt.Sprintf("result[%d]", i)
				if i < len(def.Results) {
					name = def.Results[i].Name
				}
				fmt.Printf("%s = %s\n", name, r)
			}
			return nil
		},
	}
}
