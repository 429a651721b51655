package application

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/socialnet/internal/core"
	"github.com/JonMunkholm/socialnet/internal/store"
)

// NewRootCommand builds the socialnet command tree. With no subcommand it
// starts the interactive menu.
func NewRootCommand(svc Service, stdin io.Reader, stdout io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "socialnet",
		Short: "Load and manage social network users and statuses",
		Long: `socialnet loads users and their status updates from CSV feeds into a
relational store, and adds, updates, searches and deletes single records.

A feed is loaded all-or-nothing: the first empty cell, unknown column or
invalid value aborts the load and the store is left unchanged.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewApp(svc, cmd.InOrStdin(), cmd.OutOrStdout()).RunMenu(cmd.Context())
		},
	}
	rc.SetIn(stdin)
	rc.SetOut(stdout)

	rc.AddCommand(newMenuCommand(svc))
	rc.AddCommand(newLoadCommand(svc))
	rc.AddCommand(newUserCommand(svc))
	rc.AddCommand(newStatusCommand(svc))
	rc.AddCommand(newHistoryCommand(svc))
	rc.AddCommand(newStatsCommand(svc))
	rc.AddCommand(newResetCommand(svc))

	return rc
}

func app(svc Service, cmd *cobra.Command) *App {
	return NewApp(svc, cmd.InOrStdin(), cmd.OutOrStdout())
}

func newMenuCommand(svc Service) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Start the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app(svc, cmd).RunMenu(cmd.Context())
		},
	}
}

func newLoadCommand(svc Service) *cobra.Command {
	feeds := core.Feeds()
	names := make([]string, len(feeds))
	var long strings.Builder
	long.WriteString("\nLoads a CSV feed. Header names must match exactly. Rows whose key is\nalready stored are skipped.\n\n")
	for i, feed := range feeds {
		names[i] = feed.Collection.String()
		fmt.Fprintf(&long, "  %-10s %s\n", names[i], strings.Join(feed.Columns(), ","))
	}

	return &cobra.Command{
		Use:       "load " + strings.Join(names, "|") + " <file>",
		Short:     "Load a CSV feed into a collection",
		Long:      long.String(),
		Args:      cobra.ExactArgs(2),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := store.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return app(svc, cmd).load(cmd.Context(), c, args[1])
		},
	}
}

func newUserCommand(svc Service) *cobra.Command {
	uc := &cobra.Command{
		Use:   "user",
		Short: "Add, update, search or delete a user",
	}

	userArgs := func(args []string) store.User {
		return store.User{UserID: args[0], Email: args[1], FirstName: args[2], LastName: args[3]}
	}

	uc.AddCommand(
		&cobra.Command{
			Use:   "add <user_id> <email> <name> <lastname>",
			Short: "Add a user",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app(svc, cmd).addUser(cmd.Context(), userArgs(args))
			},
		},
		&cobra.Command{
			Use:   "update <user_id> <email> <name> <lastname>",
			Short: "Replace a user's email and names",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app(svc, cmd).updateUser(cmd.Context(), userArgs(args))
			},
		},
		&cobra.Command{
			Use:   "search <user_id>",
			Short: "Show a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app(svc, cmd).searchUser(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "delete <user_id>",
			Short: "Delete a user and their statuses",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app(svc, cmd).deleteUser(cmd.Context(), args[0])
			},
		},
	)
	return uc
}

func newStatusCommand(svc Service) *cobra.Command {
	sc := &cobra.Command{
		Use:   "status",
		Short: "Add, update, search or delete a status",
	}

	statusArgs := func(args []string) store.Status {
		return store.Status{StatusID: args[0], UserID: args[1], Text: strings.Join(args[2:], " ")}
	}

	sc.AddCommand(
		&cobra.Command{
			Use:   "add <status_id> <user_id> <text>",
			Short: "Add a status",
			Args:  cobra.MinimumNArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app(svc, cmd).addStatus(cmd.Context(), statusArgs(args))
			},
		},
		&cobra.Command{
			Use:   "update <status_id> <user_id> <text>",
			Short: "Replace a status's owner and text",
			Args:  cobra.MinimumNArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app(svc, cmd).updateStatus(cmd.Context(), statusArgs(args))
			},
		},
		&cobra.Command{
			Use:   "search <status_id>",
			Short: "Show a status",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app(svc, cmd).searchStatus(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "delete <status_id>",
			Short: "Delete a status",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app(svc, cmd).deleteStatus(cmd.Context(), args[0])
			},
		},
	)
	return sc
}

func newHistoryCommand(svc Service) *cobra.Command {
	var limit int
	hc := &cobra.Command{
		Use:   "history",
		Short: "List recent loads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("invalid --limit %d", limit)
			}
			return app(svc, cmd).history(cmd.Context(), limit)
		},
	}
	hc.Flags().IntVarP(&limit, "limit", "n", 0, "number of loads to list (default LOAD_HISTORY_LIMIT)")
	return hc
}

func newStatsCommand(svc Service) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of stored users and statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app(svc, cmd).stats(cmd.Context())
		},
	}
}

// errResetNotConfirmed is returned by reset without --yes.
var errResetNotConfirmed = errors.New("reset deletes all data; rerun with --yes to confirm")

func newResetCommand(svc Service) *cobra.Command {
	var yes bool
	rc := &cobra.Command{
		Use:   "reset",
		Short: "Delete all users, statuses and load history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errResetNotConfirmed
			}
			return app(svc, cmd).reset(cmd.Context())
		},
	}
	rc.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return rc
}
