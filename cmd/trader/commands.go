package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/betbot/wfmtrader/internal/services"
	"github.com/betbot/wfmtrader/pkg/secretstore"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every own buy and sell order once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := commandContext(cmd)
			s, err := a.settings.Snapshot(ctx)
			if err != nil {
				return err
			}
			n, err := a.engine.DeleteAllOrders(ctx, s)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d orders\n", n)
			return nil
		},
	}
}

func analyzeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print the current overlap analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := commandContext(cmd)
			s, err := a.settings.Snapshot(ctx)
			if err != nil {
				return err
			}
			inventory, err := a.store.InventoryNames(ctx)
			if err != nil {
				return err
			}
			rows, err := a.analyzer.Run(ctx, services.AnalyticsParams(s), inventory)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ITEM\tMIN SELL\tMAX BUY\tOVERLAP\tCLOSED VOL\tCLOSED AVG\tSHIFT")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t%.1f\t%.1f\t%.1f\t%.1f\n",
					r.Name, r.MinSell, r.MaxBuy, r.Overlap, r.ClosedVol, r.ClosedAvg, r.PriceShift)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")
	return cmd
}

func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Refresh the price history cache from marketplace statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			scraper := services.NewPriceScraper(services.PriceScraperDeps{
				Source:    a.market,
				Sink:      a.store,
				Items:     a.cfg.Scraper.Items,
				Retention: a.cfg.Scraper.Retention,
			})
			res, err := scraper.Run(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Printf("scraped %d items (%d failed), stored %d observations, pruned %d\n",
				res.Items, res.Failed, res.Observations, res.Pruned)
			return nil
		},
	}
}

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the stored marketplace session",
	}

	var jwt, name string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store the JWT cookie and in-game name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jwt == "" || name == "" {
				return fmt.Errorf("--jwt and --name are required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sec, err := openSecrets(cfg, false)
			if err != nil {
				return err
			}
			defer sec.Close()
			if err := sec.SaveSession(secretstore.Session{JWT: jwt, IngameName: name}); err != nil {
				return err
			}
			fmt.Printf("session stored for %s\n", name)
			return nil
		},
	}
	setCmd.Flags().StringVar(&jwt, "jwt", "", "JWT cookie value")
	setCmd.Flags().StringVar(&name, "name", "", "in-game name")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show which account the stored session belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sess, err := session(cfg)
			if err != nil {
				return err
			}
			if sess.JWT == "" {
				fmt.Println("no session")
				return nil
			}
			fmt.Printf("ingame name: %s\n", sess.IngameName)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sec, err := openSecrets(cfg, false)
			if err != nil {
				return err
			}
			defer sec.Close()
			return sec.ClearSession()
		},
	}

	cmd.AddCommand(setCmd, showCmd, clearCmd)
	return cmd
}
