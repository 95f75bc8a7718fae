package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/pkg/auth"
)

const hashKeyCommand = "hash-key"

func run(ctx context.Context, app *fx.App) {
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start application: %v\n", err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop application: %v\n", err)
		os.Exit(1)
	}
}

// hashKey prints the SYSTEM_KEY_HASH value for the key given as the only argument.
func hashKey(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: letterdesk hash-key <system-key>")
	}
	hash, err := auth.HashKey(args[0], 0)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}
