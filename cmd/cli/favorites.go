package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/ecoeat/internal/model"
)

var favCmd = &cobra.Command{
	Use:     "fav",
	Aliases: []string{"favorites"},
	Short:   "Manage favorites kept on this device",
}

var favAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a product to favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		return withApp(func(_ context.Context, a *app) error {
			a.favs.Add(id.String())
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to favorites\n", id)
			return nil
		})
	},
}

var favRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a product from favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		return withApp(func(_ context.Context, a *app) error {
			a.favs.Remove(id.String())
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites\n", id)
			return nil
		})
	},
}

var favLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List favorite products that still exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.catalog.Reload(ctx); err != nil {
				return err
			}
			if err := a.favs.Load(ctx); err != nil {
				return err
			}
			favs := joinFavorites(a.favs.List(), a.catalog.Products())
			return printProducts(cmd.OutOrStdout(), favs, func(string) bool { return true })
		})
	},
}

var favClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all favorites",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, a *app) error {
			a.favs.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Favorites cleared")
			return nil
		})
	},
}

func init() {
	favCmd.AddCommand(favAddCmd, favRmCmd, favLsCmd, favClearCmd)
	rootCmd.AddCommand(favCmd)
}

// joinFavorites resolves favorite ids against the catalog in favorite order.
// Ids with no matching product are skipped.
func joinFavorites(ids []string, products []model.Product) []model.Product {
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID.String()] = p
	}
	out := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
