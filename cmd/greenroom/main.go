// Package main is the entry point for greenroom.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/greenroom/cmd/greenroom/commands"
	"go.trai.ch/greenroom/internal/app"
	"go.trai.ch/greenroom/internal/core/domain"
	_ "go.trai.ch/greenroom/internal/wiring"
)

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr, provideComponents))
}

func provideComponents(ctx context.Context) (*app.Components, func(), error) {
	c, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		return nil, func() {}, err
	}
	return c, func() {
		if closer, ok := c.Logger.(io.Closer); ok {
			_ = closer.Close()
		}
	}, nil
}

func run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout, stderr io.Writer,
	provider ComponentProvider,
) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, cleanup, err := provider(ctx)
	if err != nil {
		// The logger may be the component that failed.
		_, _ = fmt.Fprintf(stderr, "%s: %+v\n", domain.AppName, err)
		return 1
	}
	defer cleanup()

	// 2. Interface - CLI
	cli := commands.New(components.App)
	cli.SetArgs(args)
	cli.SetInput(stdin)
	cli.SetOutput(stdout, stderr)

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		_, _ = fmt.Fprintf(stderr, "%s: %+v\n", domain.AppName, err)
		return 1
	}
	return cli.ExitCode()
}
