package application

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/socialnet/internal/store"
)

/* ----------------------------------------
	MENU TREE
---------------------------------------- */

const (
	backLabel = "Back"
	quitLabel = "Quit"
)

// MenuItem is one numbered choice. Prompts are asked in order and their
// answers handed to Action.
type MenuItem struct {
	Label   string
	Submenu *Menu
	Prompts []string
	Action  func(answers []string) tea.Cmd
}

type Menu struct {
	Title  string
	Items  []MenuItem
	Parent *Menu
}

// outcomeMsg carries what an action printed.
type outcomeMsg string

/* ----------------------------------------
	MENU TREE DEFINITION
---------------------------------------- */

func linkParents(menu *Menu, parent *Menu) {
	menu.Parent = parent

	for i := range menu.Items {
		item := &menu.Items[i]

		if item.Label == backLabel {
			item.Submenu = parent
			continue
		}

		if item.Submenu != nil {
			linkParents(item.Submenu, menu)
		}
	}
}

func (a *App) buildMenuTree(ctx context.Context) *Menu {
	root := &Menu{
		Title: "Main Menu",
		Items: []MenuItem{
			{Label: "Load ->", Submenu: a.loadMenu(ctx)},
			{Label: "Users ->", Submenu: a.userMenu(ctx)},
			{Label: "Statuses ->", Submenu: a.statusMenu(ctx)},
			{Label: "Maintenance ->", Submenu: a.maintenanceMenu(ctx)},
			{Label: quitLabel},
		},
	}

	linkParents(root, nil)

	return root
}

/* ----------------------------------------
	SUBMENUS
---------------------------------------- */

func (a *App) loadMenu(ctx context.Context) *Menu {
	return &Menu{
		Title: "Load",
		Items: []MenuItem{
			a.loadItem(ctx, "Load user feed", store.Users),
			a.loadItem(ctx, "Load status feed", store.Statuses),
			{Label: backLabel},
		},
	}
}

func (a *App) userMenu(ctx context.Context) *Menu {
	return &Menu{
		Title: "Users",
		Items: []MenuItem{
			a.userItem(ctx, "Add user", (*App).addUser),
			a.userItem(ctx, "Update user", (*App).updateUser),
			a.keyItem(ctx, "Search user", "User ID: ", (*App).searchUser),
			a.keyItem(ctx, "Delete user", "User ID: ", (*App).deleteUser),
			{Label: backLabel},
		},
	}
}

func (a *App) statusMenu(ctx context.Context) *Menu {
	return &Menu{
		Title: "Statuses",
		Items: []MenuItem{
			a.statusItem(ctx, "Add status", (*App).addStatus),
			a.statusItem(ctx, "Update status", (*App).updateStatus),
			a.keyItem(ctx, "Search status", "Status ID: ", (*App).searchStatus),
			a.keyItem(ctx, "Delete status", "Status ID: ", (*App).deleteStatus),
			{Label: backLabel},
		},
	}
}

func (a *App) maintenanceMenu(ctx context.Context) *Menu {
	return &Menu{
		Title: "Maintenance",
		Items: []MenuItem{
			{Label: "Show counts", Action: func([]string) tea.Cmd {
				return a.outcome(func(o *App) error { return o.stats(ctx) })
			}},
			{Label: "Show load history", Action: func([]string) tea.Cmd {
				return a.outcome(func(o *App) error { return o.history(ctx, 0) })
			}},
			{
				Label:   "Reset database",
				Prompts: []string{"Delete all users, statuses and load history? Type YES to confirm: "},
				Action: func(answers []string) tea.Cmd {
					if strings.TrimSpace(answers[0]) != "YES" {
						return func() tea.Msg { return outcomeMsg("Reset cancelled") }
					}
					return a.outcome(func(o *App) error { return o.reset(ctx) })
				},
			},
			{Label: backLabel},
		},
	}
}

/* ----------------------------------------
	ACTIONS
---------------------------------------- */

// outcome runs op off the UI loop and returns what it printed as an
// outcomeMsg. Failures have already been printed, so the error is dropped.
func (a *App) outcome(op func(o *App) error) tea.Cmd {
	return func() tea.Msg {
		var buf strings.Builder
		_ = op(&App{svc: a.svc, out: &buf})
		return outcomeMsg(strings.TrimRight(buf.String(), "\n"))
	}
}

func (a *App) loadItem(ctx context.Context, label string, c store.Collection) MenuItem {
	return MenuItem{
		Label:   label,
		Prompts: []string{"Enter filename of " + c.String() + " feed: "},
		Action: func(answers []string) tea.Cmd {
			path := strings.TrimSpace(answers[0])
			return a.outcome(func(o *App) error { return o.load(ctx, c, path) })
		},
	}
}

func (a *App) userItem(ctx context.Context, label string, op func(*App, context.Context, store.User) error) MenuItem {
	return MenuItem{
		Label:   label,
		Prompts: []string{"User ID: ", "User email: ", "User name: ", "User last name: "},
		Action: func(v []string) tea.Cmd {
			u := store.User{UserID: v[0], Email: v[1], FirstName: v[2], LastName: v[3]}
			return a.outcome(func(o *App) error { return op(o, ctx, u) })
		},
	}
}

func (a *App) statusItem(ctx context.Context, label string, op func(*App, context.Context, store.Status) error) MenuItem {
	return MenuItem{
		Label:   label,
		Prompts: []string{"User ID: ", "Status ID: ", "Status text: "},
		Action: func(v []string) tea.Cmd {
			s := store.Status{UserID: v[0], StatusID: v[1], Text: v[2]}
			return a.outcome(func(o *App) error { return op(o, ctx, s) })
		},
	}
}

func (a *App) keyItem(ctx context.Context, label, prompt string, op func(*App, context.Context, string) error) MenuItem {
	return MenuItem{
		Label:   label,
		Prompts: []string{prompt},
		Action: func(v []string) tea.Cmd {
			key := strings.TrimSpace(v[0])
			return a.outcome(func(o *App) error { return op(o, ctx, key) })
		},
	}
}
