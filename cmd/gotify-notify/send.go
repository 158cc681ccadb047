package main

import (
	"github.com/fsandov/klipper-gotify/pkg/gcode"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single notification, like GOTIFY_NOTIFY MSG=... TITLE=...",
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, _ := cmd.Flags().GetString("msg")
		title, _ := cmd.Flags().GetString("title")

		console := gcode.NewConsole(cmd.OutOrStdout())
		_, g, err := newRuntime(console)
		if err != nil {
			return err
		}
		if _, err := g.Notify(cmd.Context(), title, msg); err != nil {
			console.RespondError(err.Error())
			return err
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringP("msg", "m", "", "notification message; empty prints usage")
	sendCmd.Flags().StringP("title", "t", "", "notification title")
	rootCmd.AddCommand(sendCmd)
}
