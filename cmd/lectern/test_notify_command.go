package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
	"lectern/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if client, dialErr := ipc.Dial(cfg.SocketPath()); dialErr == nil {
				defer client.Close()
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if resp.Message != "" {
					fmt.Fprintln(out, resp.Message)
				} else if resp.Sent {
					fmt.Fprintln(out, "Test notification sent")
				}
				return nil
			}

			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(out, "ntfy topic not configured")
				return nil
			}
			if err := notifications.TestNotification(cmd.Context(), notifications.NewService(cfg)); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	}
}
