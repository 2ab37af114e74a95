package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bid-cli/internal/fetcher"
	"github.com/sells-group/bid-cli/internal/pricing"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Query and update the material price book",
}

var priceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the price book",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		formatPrices(cmd.OutOrStdout(), env.Prices)
		return nil
	},
}

var priceLookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Price a SKU at a quantity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sku, _ := cmd.Flags().GetString("sku")
		qty, _ := cmd.Flags().GetInt("qty")

		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		unit, err := env.Prices.UnitPrice(sku, qty)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s x%d: $%.4f/unit, $%.2f total\n", sku, qty, unit, unit*float64(qty))
		return nil
	},
}

var priceSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Apply a vendor price file",
	Long: `Apply a vendor price file of SKU,PRICE rows to the price book.

The file comes from --file, --url, or pricing.vendor_url. URLs may be
http(s):// or ftp://.

Examples:
  price sync --vendor graybar --file graybar.csv
  price sync --vendor graybar --url ftp://ftp.graybar.example/prices.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		vendor, _ := cmd.Flags().GetString("vendor")
		path, _ := cmd.Flags().GetString("file")
		rawURL, _ := cmd.Flags().GetString("url")
		if path == "" && rawURL == "" {
			rawURL = cfg.Pricing.VendorURL
		}

		var r io.ReadCloser
		switch {
		case path != "":
			f, err := os.Open(path)
			if err != nil {
				return eris.Wrapf(err, "open %s", path)
			}
			r = f
		case rawURL != "":
			fetch, err := fetcher.ForURL(rawURL, time.Duration(cfg.Pricing.FTPTimeoutSecs)*time.Second)
			if err != nil {
				return err
			}
			r, err = fetch.Download(ctx, rawURL)
			if err != nil {
				return err
			}
		default:
			return eris.New("price sync needs --file, --url or pricing.vendor_url")
		}
		defer r.Close() //nolint:errcheck

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Prices.SyncVendor(ctx, vendor, r)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %d prices from %s\n", n, vendor)
		formatPrices(cmd.OutOrStdout(), env.Prices)
		return nil
	},
}

func init() {
	priceLookupCmd.Flags().String("sku", "", "SKU (required)")
	priceLookupCmd.Flags().Int("qty", 1, "quantity")
	_ = priceLookupCmd.MarkFlagRequired("sku")

	priceSyncCmd.Flags().String("vendor", "", "vendor name (required)")
	priceSyncCmd.Flags().String("file", "", "local price file")
	priceSyncCmd.Flags().String("url", "", "remote price file (http, https or ftp)")
	_ = priceSyncCmd.MarkFlagRequired("vendor")

	priceCmd.AddCommand(priceListCmd, priceLookupCmd, priceSyncCmd)
	rootCmd.AddCommand(priceCmd)
}

func formatPrices(out io.Writer, b *pricing.Book) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SKU\tCATEGORY\tBASE\tCOMMODITY\tUNIT (x1)")
	_, _ = fmt.Fprintln(w, "---\t--------\t----\t---------\t---------")
	for _, e := range b.Entries() {
		unit, _ := b.UnitPrice(e.SKU, 1)
		_, _ = fmt.Fprintf(w, "%s\t%s\t$%.4f\t%t\t$%.4f\n", e.SKU, e.Category, e.BasePrice, e.Commodity, unit)
	}
	_ = w.Flush()
}
