package application

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/socialnet/internal/store"
)

// App runs operations against a Service and prints their outcome to out.
// The interactive menu reads keys from in.
type App struct {
	svc Service
	in  io.Reader
	out io.Writer
}

// NewApp creates an App.
func NewApp(svc Service, in io.Reader, out io.Writer) *App {
	return &App{svc: svc, in: in, out: out}
}

func (a *App) println(msg string) {
	fmt.Fprintln(a.out, msg)
}

/* ----------------------------------------
	LOADS
---------------------------------------- */

func (a *App) load(ctx context.Context, c store.Collection, path string) error {
	noun := c.String()
	result, err := a.svc.LoadFeed(ctx, c, path)
	if err != nil {
		a.println("An error occurred while trying to load " + noun)
		return err
	}
	fmt.Fprintf(a.out, "%s were successfully loaded (%d read, %d inserted, %d skipped)\n",
		capitalize(noun), result.RowsRead, result.Inserted, result.Skipped)
	return nil
}

/* ----------------------------------------
	USERS
---------------------------------------- */

func (a *App) addUser(ctx context.Context, u store.User) error {
	if err := a.svc.AddUser(ctx, u); err != nil {
		a.println("An error occurred while trying to add new user")
		return err
	}
	a.println("New user was successfully added")
	return nil
}

func (a *App) updateUser(ctx context.Context, u store.User) error {
	if err := a.svc.UpdateUser(ctx, u); err != nil {
		a.println("An error occurred while trying to update user")
		return err
	}
	a.println("User was successfully updated")
	return nil
}

func (a *App) searchUser(ctx context.Context, userID string) error {
	u, err := a.svc.SearchUser(ctx, userID)
	if err != nil {
		a.println("ERROR: User does not exist")
		return err
	}
	fmt.Fprintf(a.out, "User ID: %s\nEmail: %s\nName: %s\nLast name: %s\n",
		u.UserID, u.Email, u.FirstName, u.LastName)
	return nil
}

func (a *App) deleteUser(ctx context.Context, userID string) error {
	if err := a.svc.DeleteUser(ctx, userID); err != nil {
		a.println("An error occurred while trying to delete user")
		return err
	}
	a.println("User was successfully deleted")
	return nil
}

/* ----------------------------------------
	STATUSES
---------------------------------------- */

func (a *App) addStatus(ctx context.Context, st store.Status) error {
	if err := a.svc.AddStatus(ctx, st); err != nil {
		a.println("An error occurred while trying to add new status")
		return err
	}
	a.println("New status was successfully added")
	return nil
}

func (a *App) updateStatus(ctx context.Context, st store.Status) error {
	if err := a.svc.UpdateStatus(ctx, st); err != nil {
		a.println("An error occurred while trying to update status")
		return err
	}
	a.println("Status was successfully updated")
	return nil
}

func (a *App) searchStatus(ctx context.Context, statusID string) error {
	st, err := a.svc.SearchStatus(ctx, statusID)
	if err != nil {
		a.println("ERROR: Status does not exist")
		return err
	}
	fmt.Fprintf(a.out, "User ID: %s\nStatus ID: %s\nStatus text: %s\n",
		st.UserID, st.StatusID, st.Text)
	return nil
}

func (a *App) deleteStatus(ctx context.Context, statusID string) error {
	if err := a.svc.DeleteStatus(ctx, statusID); err != nil {
		a.println("An error occurred while trying to delete status")
		return err
	}
	a.println("Status was successfully deleted")
	return nil
}

/* ----------------------------------------
	MAINTENANCE
---------------------------------------- */

func (a *App) stats(ctx context.Context) error {
	counts, err := a.svc.Counts(ctx)
	if err != nil {
		a.println("An error occurred while trying to count records")
		return err
	}
	fmt.Fprintf(a.out, "Users: %d\nStatuses: %d\n", counts.Users, counts.Statuses)
	return nil
}

func (a *App) history(ctx context.Context, limit int) error {
	records, err := a.svc.History(ctx, limit)
	if err != nil {
		a.println("An error occurred while trying to read the load history")
		return err
	}
	if len(records) == 0 {
		a.println("No loads recorded")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOADED AT\tCOLLECTION\tFILE\tSTATUS\tREAD\tINSERTED\tSKIPPED\tDURATION")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.LoadedAt.Local().Format(time.DateTime),
			r.Collection, r.FileName, r.Status,
			r.RowsRead, r.RowsInserted, r.RowsSkipped,
			r.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

func (a *App) reset(ctx context.Context) error {
	if err := a.svc.Reset(ctx); err != nil {
		a.println("An error occurred while trying to reset the database")
		return err
	}
	a.println("All users, statuses and load history were deleted")
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
