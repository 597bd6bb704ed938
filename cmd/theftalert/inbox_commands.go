package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"theftalert/internal/domain"
	"theftalert/internal/inbox"
	"theftalert/internal/store"
)

const timestampLayout = "2006-01-02 15:04:05"

func newInboxCommand(ctx *commandContext) *cobra.Command {
	inboxCmd := &cobra.Command{
		Use:   "inbox",
		Short: "Inspect in-app notifications",
	}

	inboxCmd.AddCommand(newInboxListCommand(ctx))
	inboxCmd.AddCommand(newInboxReadCommand(ctx))

	return inboxCmd
}

func newInboxListCommand(ctx *commandContext) *cobra.Command {
	var unreadOnly bool
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's web notifications, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				items, err := inbox.New(st).List(cmd.Context(), args[0], unreadOnly, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if items == nil {
						items = []domain.WebNotification{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No notifications")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, n := range items {
					rows = append(rows, []string{
						n.ID,
						n.ReportID,
						n.Title,
						yesNo(n.IsRead),
						n.CreatedAt.Local().Format(timestampLayout),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Report", "Title", "Read", "Created"}, rows, nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only show unread notifications")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum notifications to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newInboxReadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				updated, err := inbox.New(st).MarkRead(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !updated {
					return fmt.Errorf("notification %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Notification %s marked read\n", args[0])
				return nil
			})
		},
	}
}
