package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/provider"
	"github.com/roach88/layoutdb/internal/store"
)

// ItemsOptions holds flags for items list.
type ItemsOptions struct {
	*RootOptions
	Container string
	Screen    int64
}

// NewItemsCommand creates the items command group.
func NewItemsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ItemsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List, show and delete item rows",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Long: `List item rows ordered by id.

Example:
  layoutdb items list
  layoutdb items list --container hotseat
  layoutdb items list --container desktop --screen 1
  layoutdb items list --container 12   # contents of folder 12`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				return listItems(ctx, s, f, opts)
			})
		},
	}
	list.Flags().StringVar(&opts.Container, "container", "", "desktop, hotseat or a folder id")
	list.Flags().Int64Var(&opts.Screen, "screen", -1, "only items on this screen")

	get := &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one item",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				return getItem(ctx, s, f, args[0])
			})
		},
	}

	del := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete one item",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				return deleteRow(ctx, s, f, layout.TableItems, args[0])
			})
		},
	}

	cmd.AddCommand(list, get, del)
	return cmd
}

// NewScreensCommand creates the screens command group.
func NewScreensCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screens",
		Short: "List, show and delete screen rows",
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List screens in rank order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, listScreens)
		},
	}

	get := &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one screen",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				return getScreen(ctx, s, f, args[0])
			})
		},
	}

	del := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete one screen",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				return deleteRow(ctx, s, f, layout.TableScreens, args[0])
			})
		},
	}

	cmd.AddCommand(list, get, del)
	return cmd
}

// itemSelection builds the where clause for items list.
func itemSelection(container string, screen int64) (store.Selection, error) {
	var where []string
	var args []any
	switch strings.ToLower(container) {
	case "":
	case "desktop":
		where, args = append(where, store.ColContainer+" = ?"), append(args, layout.ContainerDesktop)
	case "hotseat":
		where, args = append(where, store.ColContainer+" = ?"), append(args, layout.ContainerHotseat)
	default:
		id, err := strconv.ParseInt(container, 10, 64)
		if err != nil {
			return store.Selection{}, fmt.Errorf("container must be desktop, hotseat or a folder id, got %q", container)
		}
		where, args = append(where, store.ColContainer+" = ?"), append(args, id)
	}
	if screen >= 0 {
		where, args = append(where, store.ColScreen+" = ?"), append(args, screen)
	}
	return store.Selection{Where: strings.Join(where, " AND "), Args: args}, nil
}

func listItems(ctx context.Context, s *session, f *OutputFormatter, opts *ItemsOptions) error {
	sel, err := itemSelection(opts.Container, opts.Screen)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeInput, "invalid filter", err)
	}
	items, err := s.store.Items(ctx, sel)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, "cannot list items", err)
	}
	return f.Result(items, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tCONTAINER\tSCREEN\tCELL\tRANK\tTITLE")
		for _, it := range items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d,%d\t%d\t%s\n",
				it.ID, it.ItemType, containerLabel(it.Container), it.Screen, it.CellX, it.CellY, it.Rank, it.Title)
		}
		tw.Flush()
	})
}

func getItem(ctx context.Context, s *session, f *OutputFormatter, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeInput, "invalid id", err)
	}
	it, ok, err := s.store.Item(ctx, id)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, "cannot read item", err)
	}
	if !ok {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("item %d not found", id), nil)
	}
	return f.Result(it, func(w io.Writer) {
		fmt.Fprintf(w, "id:        %d\n", it.ID)
		fmt.Fprintf(w, "type:      %s\n", it.ItemType)
		fmt.Fprintf(w, "title:     %s\n", it.Title)
		fmt.Fprintf(w, "container: %s\n", containerLabel(it.Container))
		fmt.Fprintf(w, "screen:    %d\n", it.Screen)
		fmt.Fprintf(w, "cell:      %d,%d\n", it.CellX, it.CellY)
		fmt.Fprintf(w, "rank:      %d\n", it.Rank)
		switch it.ItemType {
		case layout.ItemTypeAppWidget:
			fmt.Fprintf(w, "widget:    %d %s\n", it.AppWidgetID, it.AppWidgetProvider)
		case layout.ItemTypeApplication, layout.ItemTypeShortcut:
			fmt.Fprintf(w, "intent:    %s\n", it.Intent)
		}
		fmt.Fprintf(w, "profile:   %d\n", it.ProfileID)
		fmt.Fprintf(w, "modified:  %d\n", it.Modified)
	})
}

func listScreens(ctx context.Context, s *session, f *OutputFormatter) error {
	screens, err := s.store.Screens(ctx)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, "cannot list screens", err)
	}
	return f.Result(screens, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tRANK\tMODIFIED")
		for _, sc := range screens {
			fmt.Fprintf(tw, "%d\t%d\t%d\n", sc.ID, sc.Rank, sc.Modified)
		}
		tw.Flush()
	})
}

func getScreen(ctx context.Context, s *session, f *OutputFormatter, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeInput, "invalid id", err)
	}
	path := store.Path{Table: layout.TableScreens, ID: id, HasID: true}
	rows, err := s.provider.Query(ctx, path.String(), store.Selection{})
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, "cannot read screen", err)
	}
	if len(rows) == 0 {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("screen %d not found", id), nil)
	}
	row := rows[0]
	return f.Result(row, func(w io.Writer) {
		fmt.Fprintf(w, "id:       %v\n", row[store.ColID])
		fmt.Fprintf(w, "rank:     %v\n", row[store.ColScreenRank])
		fmt.Fprintf(w, "modified: %v\n", row[store.ColModified])
	})
}

func deleteRow(ctx context.Context, s *session, f *OutputFormatter, table, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeInput, "invalid id", err)
	}
	path := store.Path{Table: table, ID: id, HasID: true}
	n, err := s.provider.Delete(ctx, provider.Owner, path.String(), store.Selection{})
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, "delete failed", err)
	}
	if n == 0 {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("%s not found", path), nil)
	}
	return f.Done(map[string]any{"path": path.String(), "deleted": n}, "deleted %s", path)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a row id", s)
	}
	return id, nil
}

func containerLabel(c int64) string {
	switch c {
	case layout.ContainerDesktop:
		return "desktop"
	case layout.ContainerHotseat:
		return "hotseat"
	default:
		return "folder " + strconv.FormatInt(c, 10)
	}
}
