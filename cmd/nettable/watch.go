package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nettable-dev/nettable/pkg/client"
	"github.com/nettable-dev/nettable/pkg/protocol"
	"github.com/nettable-dev/nettable/pkg/table"
)

// watchHandler prints table events as they arrive.
type watchHandler struct {
	client.BaseHandler
}

func (watchHandler) ConnStateChanged(s client.ConnState) {
	fmt.Printf("# connection %s\n", s)
}

func (watchHandler) EntryAssigned(e table.Entry) {
	fmt.Printf("+ %s [%s id=%d seq=%d] = %s\n", e.Name, e.Type, e.ID, e.Seq, e.Value)
}

func (watchHandler) EntryUpdated(e table.Entry, prev protocol.Value) {
	fmt.Printf("~ %s = %s (was %s)\n", e.Name, e.Value, prev)
}

func (watchHandler) EntryFlagsUpdated(e table.Entry) {
	fmt.Printf("* %s persistent=%t\n", e.Name, e.Persistent())
}

func (watchHandler) EntryDeleted(id uint16, name string) {
	fmt.Printf("- %s [id=%d]\n", name, id)
}

func (watchHandler) EntriesCleared() {
	fmt.Println("# all entries cleared")
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream table changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := connect(ctx, watchHandler{})
			if err != nil {
				return err
			}
			defer c.Close()

			<-ctx.Done()
			return nil
		},
	}
}
