package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"theftalert/internal/directory"
	"theftalert/internal/domain"
	"theftalert/internal/store"
)

func newDirectoryCommand(ctx *commandContext) *cobra.Command {
	directoryCmd := &cobra.Command{
		Use:   "directory",
		Short: "Manage the local user directory",
	}

	directoryCmd.AddCommand(newDirectoryImportCommand(ctx))
	directoryCmd.AddCommand(newDirectoryListCommand(ctx))
	directoryCmd.AddCommand(newDirectoryRemoveCommand(ctx))

	return directoryCmd
}

func newDirectoryImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <users.yaml>",
		Short: "Validate and store users from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := directory.LoadFixture(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				n, err := directory.Import(cmd.Context(), st, users)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d users\n", n)
				return nil
			})
		},
	}
}

func newDirectoryListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users in the local directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				var users []domain.User
				err := st.ScanUsers(cmd.Context(), func(u domain.User) error {
					users = append(users, u)
					return nil
				})
				if err != nil {
					return err
				}

				if jsonOutput {
					if users == nil {
						users = []domain.User{}
					}
					return writeJSON(cmd, users)
				}
				if len(users) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Directory is empty")
					return nil
				}
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					rows = append(rows, []string{
						u.ID,
						u.DisplayName,
						yesNo(u.Settings.NationalAlerts),
						yesNo(u.Settings.LocalAlerts),
						channelList(u.Settings.Channels),
						strconv.Itoa(len(u.Regions)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "National", "Local", "Channels", "Regions"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newDirectoryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user-id...>",
		Short: "Remove users and their regions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				out := cmd.OutOrStdout()
				for _, id := range args {
					removed, err := st.DeleteUser(cmd.Context(), strings.TrimSpace(id))
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "User %s removed\n", id)
					} else {
						fmt.Fprintf(out, "User %s not found\n", id)
					}
				}
				return nil
			})
		},
	}
}

func channelList(prefs domain.ChannelPreferences) string {
	var channels []string
	if prefs.Email {
		channels = append(channels, string(domain.ChannelEmail))
	}
	if prefs.SMS {
		channels = append(channels, string(domain.ChannelSMS))
	}
	if prefs.WhatsApp {
		channels = append(channels, string(domain.ChannelWhatsApp))
	}
	if len(channels) == 0 {
		return "-"
	}
	return strings.Join(channels, ",")
}
