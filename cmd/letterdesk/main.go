package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/di"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == hashKeyCommand {
		if err := hashKey(os.Stdout, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", hashKeyCommand, err)
			os.Exit(2)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := fx.New(
		fx.Provide(func() context.Context { return ctx }),
		di.Module(),
	)

	run(ctx, app)
}
