package main

import (
	"bufio"
	"context"
	"io"

	"github.com/fsandov/klipper-gotify/pkg/gcode"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Read G-code commands from stdin and answer like the printer console",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, _, err := newRuntime(gcode.NewConsole(cmd.OutOrStdout()))
		if err != nil {
			return err
		}
		return runConsole(cmd.Context(), d, cmd.InOrStdin())
	},
}

func runConsole(ctx context.Context, d *gcode.Dispatcher, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// failures are already on the console, keep reading
		_ = d.Run(ctx, scanner.Text())
	}
	return scanner.Err()
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
