package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/stratum/internal/catalog"
	"github.com/zulandar/stratum/internal/units"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Reference catalog cache commands",
	}

	cmd.AddCommand(newCatalogStatusCmd())
	cmd.AddCommand(newCatalogRefreshCmd())
	cmd.AddCommand(newCatalogInvalidateCmd())
	cmd.AddCommand(newCatalogMaterialsCmd())
	cmd.AddCommand(newCatalogWatchCmd())
	return cmd
}

func newCatalogStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what is cached and when it expires",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, false)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATALOG\tENTRIES\tEXPIRES")
			for _, key := range env.cfg.Cache.Catalogs {
				entries, expires := "-", "not cached"
				if raw, err := env.cache.Peek(ctx, key); err == nil {
					var rows []json.RawMessage
					if json.Unmarshal(raw, &rows) == nil {
						entries = fmt.Sprintf("%d", len(rows))
					}
				}
				if at, ok, err := env.cache.Expiry(ctx, key); err == nil && ok {
					expires = at.Local().Format(time.DateTime)
					if !at.After(time.Now()) {
						expires += " (stale)"
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", key, entries, expires)
			}
			w.Flush()
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newCatalogRefreshCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "refresh [catalog...]",
		Short: "Fetch catalogs now, ignoring their expiry",
		Long:  "Refreshes the named catalogs, or every configured catalog when none is named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, false)
			if err != nil {
				return err
			}
			defer env.Close()

			keys := args
			if len(keys) == 0 {
				keys = env.cfg.Cache.Catalogs
			}
			var failed int
			for _, key := range keys {
				if _, err := env.cache.Refresh(cmd.Context(), key); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", key, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %s\n", key)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d catalogs failed to refresh", failed, len(keys))
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newCatalogInvalidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "invalidate <catalog>",
		Short: "Drop a cached catalog so the next load fetches it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, false)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.cache.Invalidate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s\n", args[0])
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newCatalogMaterialsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "materials",
		Short: "List materials in the current unit system",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, false)
			if err != nil {
				return err
			}
			defer env.Close()

			mats, err := env.cache.Materials(cmd.Context())
			if err != nil {
				return err
			}
			d := env.display
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tNAME\tCATEGORY\tCONDUCTIVITY (%s)\tDENSITY (%s)\tCOLOR\n",
				d.Unit(units.Conductivity), d.Unit(units.Density))
			for _, m := range mats {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					m.ID, m.Name, m.Category,
					d.Format(&m.Conductivity, units.Conductivity),
					d.Format(&m.Density, units.Density),
					m.ARGB.Hex())
			}
			w.Flush()
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newCatalogWatchCmd() *cobra.Command {
	var (
		configPath string
		now        bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh catalogs on the configured schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, false)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sched, err := catalog.NewScheduler(env.cache, env.cfg.Cache.Catalogs, env.cfg.Cache.RefreshSchedule, env.log)
			if err != nil {
				return err
			}
			if now {
				if err := sched.RefreshAll(ctx); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "initial refresh: %v\n", err)
				}
			}
			next, _ := catalog.NextRun(env.cfg.Cache.RefreshSchedule, time.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %d catalogs (%q), next refresh %s\n",
				len(env.cfg.Cache.Catalogs), env.cfg.Cache.RefreshSchedule, next.Local().Format(time.DateTime))

			sched.Start()
			<-ctx.Done()
			<-sched.Stop().Done()
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&now, "now", false, "refresh every catalog once before waiting")
	return cmd
}
