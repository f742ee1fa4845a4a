package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/plugstack/app"
	"github.com/vk/plugstack/hclopts"
	"github.com/vk/plugstack/internal/cli"
	"github.com/vk/plugstack/plugins/chainplug"
	"github.com/vk/plugstack/plugins/healthplug"
	"github.com/vk/plugstack/plugins/netplug"
	"github.com/vk/plugstack/plugins/rpcplug"
)

const version = "0.1.0"

// main is the entrypoint for the stackd demo daemon.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling.
func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}
	if opts.ShowVersion {
		fmt.Fprintln(outW, version)
		return nil
	}

	// Contract violations in the plugin wiring panic; recover here to give
	// the operator a clean exit message instead of a stack trace.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(outW, "A critical startup error occurred: %v\n", r)
			os.Exit(1)
		}
	}()

	opts.App.Version = version
	loader := hclopts.NewLoader(opts.ConfigPath, opts.Overrides)

	stack, err := app.New(outW, opts.App, loader,
		netplug.Descriptor,
		chainplug.Descriptor,
		rpcplug.Descriptor,
		healthplug.Descriptor,
	)
	if err != nil {
		return err
	}

	// rpc pulls in chain and net transitively; health stands alone.
	rpc, _ := stack.Lookup(rpcplug.Descriptor.Name)
	health, _ := stack.Lookup(healthplug.Descriptor.Name)

	return stack.Run(context.Background(), rpc, health)
}
