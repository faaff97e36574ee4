// Package cli implements the catalog command line: create, list, delete
// and path.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ykanchan/pywebview-tw/internal/catalog"
)

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage: cli [flags] create <name> [description] | list | delete <id> | path <id>")

// Catalog is what the commands operate on.
type Catalog interface {
	Create(ctx context.Context, name, description string) (*catalog.Entry, error)
	List(ctx context.Context) ([]catalog.Entry, error)
	Delete(ctx context.Context, id string) error
	Path(ctx context.Context, id string) (string, error)
}

type App struct {
	catalog Catalog
	out     io.Writer
}

func NewApp(c Catalog, out io.Writer) *App {
	return &App{catalog: c, out: out}
}

// Run executes one command. args are the positional arguments left after
// flags.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "create":
		if len(rest) == 0 {
			return ErrUsage
		}
		return a.create(ctx, rest[0], strings.Join(rest[1:], " "))
	case "list", "ls":
		return a.list(ctx)
	case "delete", "rm":
		if len(rest) != 1 {
			return ErrUsage
		}
		return a.delete(ctx, rest[0])
	case "path":
		if len(rest) != 1 {
			return ErrUsage
		}
		return a.path(ctx, rest[0])
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, ErrUsage)
	}
}

func (a *App) create(ctx context.Context, name, description string) error {
	e, err := a.catalog.Create(ctx, name, description)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, e.ID)
	return nil
}

func (a *App) list(ctx context.Context) error {
	entries, err := a.catalog.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tLAST OPENED")
	for _, e := range entries {
		opened := "-"
		if e.LastOpened != nil {
			opened = *e.LastOpened
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.ID, e.Name, e.FileSize, opened)
	}
	return tw.Flush()
}

func (a *App) delete(ctx context.Context, id string) error {
	if err := a.catalog.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "deleted", id)
	return nil
}

func (a *App) path(ctx context.Context, id string) error {
	p, err := a.catalog.Path(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, p)
	return nil
}
