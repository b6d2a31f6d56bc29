package cli

import (
	"context"
	"sort"

	"github.com/spf13/cobra"

	"crypto-analyzer/internal/market"
	"crypto-analyzer/internal/store"
)

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Manage named symbol lists",
		Long: `Watchlists are named lists of symbols kept in a local SQLite database.
Use them with 'analyzer scan --list <name>' or the /v1/scan API.`,
	}

	cmd.PersistentFlags().StringP("name", "n", store.DefaultList, "watchlist name")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <symbol>...",
		Short: "Add symbols to a watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ws, err := app.Watchlists()
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")

			added := make([]string, 0, len(args))
			for _, arg := range args {
				sym, err := market.NormalizeSymbol(arg)
				if err != nil {
					return err
				}
				if err := ws.AddToWatchlist(cmd.Context(), sym, name); err != nil {
					return err
				}
				added = append(added, sym)
			}

			if output.Structured() {
				return output.Document(map[string]interface{}{"watchlist": name, "added": added})
			}
			output.Success("✓ Added %d symbol(s) to %s", len(added), name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <symbol>...",
		Short: "Remove symbols from a watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ws, err := app.Watchlists()
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")

			for _, arg := range args {
				sym, err := market.NormalizeSymbol(arg)
				if err != nil {
					return err
				}
				if err := ws.RemoveFromWatchlist(cmd.Context(), sym, name); err != nil {
					return err
				}
			}

			if output.Structured() {
				return output.Document(map[string]interface{}{"watchlist": name, "removed": len(args)})
			}
			output.Success("✓ Removed %d symbol(s) from %s", len(args), name)
			return nil
		},
	})

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show watchlists",
		Long:  "Show one watchlist with --name, or every watchlist when --all is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ws, err := app.Watchlists()
			if err != nil {
				return err
			}

			all, _ := cmd.Flags().GetBool("all")
			lists, err := loadWatchlists(cmd.Context(), ws, cmd, all)
			if err != nil {
				return err
			}

			if output.Structured() {
				return output.Document(lists)
			}
			displayWatchlists(output, lists)
			return nil
		},
	}
	showCmd.Flags().Bool("all", false, "show every watchlist")
	cmd.AddCommand(showCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Delete a watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ws, err := app.Watchlists()
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")

			n, err := ws.DeleteWatchlist(cmd.Context(), name)
			if err != nil {
				return err
			}
			if output.Structured() {
				return output.Document(map[string]interface{}{"watchlist": name, "removed": n})
			}
			if n == 0 {
				output.Warning("Watchlist %s is empty or does not exist", name)
				return nil
			}
			output.Success("✓ Deleted %s (%d symbols)", name, n)
			return nil
		},
	})

	return cmd
}

func loadWatchlists(ctx context.Context, ws store.WatchlistStore, cmd *cobra.Command, all bool) (map[string][]string, error) {
	if all {
		return ws.GetAllWatchlists(ctx)
	}
	name, _ := cmd.Flags().GetString("name")
	symbols, err := ws.GetWatchlist(ctx, name)
	if err != nil {
		return nil, err
	}
	return map[string][]string{name: symbols}, nil
}

func displayWatchlists(output *Output, lists map[string][]string) {
	names := make([]string, 0, len(lists))
	for name := range lists {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		symbols := lists[name]
		output.Bold("%s (%d)", name, len(symbols))
		if len(symbols) == 0 {
			output.Dim("  (empty)")
			continue
		}
		for _, s := range symbols {
			output.Printf("  %s\n", s)
		}
	}
}
