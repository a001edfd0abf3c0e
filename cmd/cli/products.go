package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/and161185/ecoeat/internal/model"
	"github.com/and161185/ecoeat/internal/price"
	"github.com/and161185/ecoeat/internal/search"
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"p"},
	Short:   "Browse and manage products",
}

var (
	listQuery string
	listRisk  string
	listSort  string
	listLang  string
)

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products, optionally filtered and sorted",
	RunE: func(cmd *cobra.Command, args []string) error {
		risk, err := parseRiskFilter(listRisk)
		if err != nil {
			return err
		}
		key, ok := search.ParseSortKey(listSort)
		if !ok {
			return fmt.Errorf("invalid --sort %q (expected name, price, expiry or risk)", listSort)
		}
		tag, err := parseLang(listLang)
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.catalog.Reload(ctx); err != nil {
				return err
			}
			view := search.NewState(a.catalog.Products)
			view.SetQuery(listQuery)
			view.SetRiskFilter(risk)
			view.SetSortKey(key)
			view.SetLang(tag)
			if err := a.favs.Load(ctx); err != nil {
				return err
			}
			return printProducts(cmd.OutOrStdout(), view.Filtered(), a.favs.Contains)
		})
	},
}

var productsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.client.Get(ctx, id)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), p)
			}
			if err := a.favs.Load(ctx); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ID: %s\n", p.ID)
			fmt.Fprintf(w, "Name: %s\n", p.Name)
			fmt.Fprintf(w, "Price: %s\n", p.Price)
			fmt.Fprintf(w, "Expires: %s\n", model.FormatDate(p.ExpiryDate))
			fmt.Fprintf(w, "Waste risk: %s\n", p.WasteRisk)
			fmt.Fprintf(w, "Donation: %s\n", yesNo(p.IsDonation))
			fmt.Fprintf(w, "Favorite: %s\n", yesNo(a.favs.Contains(p.ID.String())))
			return nil
		})
	},
}

var (
	prodName     string
	prodPrice    string
	prodExpiry   string
	prodRisk     string
	prodDonation bool
)

var productsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Publish a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildProductRequest()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.catalog.Create(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added product %s (%s, %s)\n", p.ID, p.Name, p.Price)
			return nil
		})
	},
}

var productsEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a product; only the flags given are updated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		patch, err := buildProductPatch(cmd)
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.catalog.Update(ctx, id, patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated product %s\n", id)
			return nil
		})
	},
}

func donationCmd(use, short string, flag bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				if err := a.catalog.MarkAsDonation(ctx, id, flag); err != nil {
					return err
				}
				if flag {
					fmt.Fprintf(cmd.OutOrStdout(), "Product %s is now a donation\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Product %s is no longer a donation\n", id)
				}
				return nil
			})
		},
	}
}

var productsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.catalog.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted product %s\n", id)
			return nil
		})
	},
}

var donationsCmd = &cobra.Command{
	Use:   "donations",
	Short: "List your donations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if a.session.Current() == nil {
				return errors.New("sign in to see your donations (`ecoeat login`)")
			}
			if err := a.catalog.Reload(ctx); err != nil {
				return err
			}
			if err := a.favs.Load(ctx); err != nil {
				return err
			}
			dons := a.catalog.Donations()
			if err := printProducts(cmd.OutOrStdout(), dons, a.favs.Contains); err != nil {
				return err
			}
			if !jsonOut {
				fmt.Fprintf(cmd.OutOrStdout(), "%d donated item(s)\n", len(dons))
			}
			return nil
		})
	},
}

func init() {
	productsListCmd.Flags().StringVarP(&listQuery, "query", "q", "", "case-insensitive name search")
	productsListCmd.Flags().StringVar(&listRisk, "risk", "", "only this waste risk (low, medium, high)")
	productsListCmd.Flags().StringVar(&listSort, "sort", "", "sort by name, price, expiry or risk")
	productsListCmd.Flags().StringVar(&listLang, "lang", "", "collation language for --sort name (BCP 47, e.g. fr)")

	for _, c := range []*cobra.Command{productsAddCmd, productsEditCmd} {
		c.Flags().StringVar(&prodName, "name", "", "product name")
		c.Flags().StringVar(&prodPrice, "price", "", "price, e.g. 2.50 or 2,50€")
		c.Flags().StringVar(&prodExpiry, "expiry", "", "expiry date, e.g. 2025-12-10")
		c.Flags().StringVar(&prodRisk, "risk", "", "waste risk: low, medium or high")
		c.Flags().BoolVar(&prodDonation, "donation", false, "offer the product for free")
	}
	_ = productsAddCmd.MarkFlagRequired("name")
	_ = productsAddCmd.MarkFlagRequired("expiry")
	_ = productsAddCmd.MarkFlagRequired("risk")

	productsCmd.AddCommand(
		productsListCmd,
		productsShowCmd,
		productsAddCmd,
		productsEditCmd,
		donationCmd("donate", "Mark a product as a donation (its price becomes 0)", true),
		donationCmd("undonate", "Clear the donation flag of a product", false),
		productsRmCmd,
	)
	rootCmd.AddCommand(productsCmd, donationsCmd)
}

func buildProductRequest() (model.ProductRequest, error) {
	name := strings.TrimSpace(prodName)
	if name == "" {
		return model.ProductRequest{}, errors.New("--name must not be empty")
	}
	req := model.ProductRequest{Name: name, Price: model.NewPrice(decimal.Zero), IsDonation: prodDonation}
	if strings.TrimSpace(prodPrice) != "" {
		p, err := price.Parse(prodPrice)
		if err != nil {
			return model.ProductRequest{}, fmt.Errorf("invalid --price %q", prodPrice)
		}
		req.Price = p
	}
	d, err := model.ParseDate(prodExpiry)
	if err != nil {
		return model.ProductRequest{}, fmt.Errorf("invalid --expiry: %w", err)
	}
	req.ExpiryDate = d
	if req.WasteRisk, err = model.ParseWasteRisk(prodRisk); err != nil {
		return model.ProductRequest{}, fmt.Errorf("invalid --risk: %w", err)
	}
	return req, nil
}

func buildProductPatch(cmd *cobra.Command) (model.ProductPatch, error) {
	var patch model.ProductPatch
	fl := cmd.Flags()
	if fl.Changed("name") {
		name := strings.TrimSpace(prodName)
		if name == "" {
			return patch, errors.New("--name must not be empty")
		}
		patch.Name = &name
	}
	if fl.Changed("price") {
		p, err := price.Parse(prodPrice)
		if err != nil {
			return patch, fmt.Errorf("invalid --price %q", prodPrice)
		}
		patch.Price = &p
	}
	if fl.Changed("expiry") {
		d, err := model.ParseDate(prodExpiry)
		if err != nil {
			return patch, fmt.Errorf("invalid --expiry: %w", err)
		}
		patch.ExpiryDate = &d
	}
	if fl.Changed("risk") {
		r, err := model.ParseWasteRisk(prodRisk)
		if err != nil {
			return patch, fmt.Errorf("invalid --risk: %w", err)
		}
		patch.WasteRisk = &r
	}
	if fl.Changed("donation") {
		v := prodDonation
		patch.IsDonation = &v
	}
	if patch.Empty() {
		return patch, errors.New("nothing to update: pass at least one of --name, --price, --expiry, --risk, --donation")
	}
	return patch, nil
}

func parseIDArg(s string) (uuid.UUID, error) {
	id, err := uuid.FromString(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid product id %q", s)
	}
	return id, nil
}

func parseRiskFilter(s string) (*model.WasteRisk, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	r, err := model.ParseWasteRisk(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --risk: %w", err)
	}
	return &r, nil
}

func parseLang(s string) (language.Tag, error) {
	if strings.TrimSpace(s) == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("invalid --lang %q", s)
	}
	return tag, nil
}

func printProducts(w io.Writer, ps []model.Product, favorite func(id string) bool) error {
	if jsonOut {
		return printJSON(w, ps)
	}
	if len(ps) == 0 {
		fmt.Fprintln(w, "No products")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tEXPIRES\tRISK\tDONATION\tFAV")
	for _, p := range ps {
		fav := ""
		if favorite(p.ID.String()) {
			fav = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Price, model.FormatDate(p.ExpiryDate), p.WasteRisk, yesNo(p.IsDonation), fav)
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
