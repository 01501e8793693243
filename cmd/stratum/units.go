package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/stratum/internal/config"
	"github.com/zulandar/stratum/internal/kv"
	"github.com/zulandar/stratum/internal/units"
)

func newUnitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Unit conversion and display system",
	}

	cmd.AddCommand(newUnitsConvertCmd())
	cmd.AddCommand(newUnitsListCmd())
	cmd.AddCommand(newUnitsSystemCmd())
	return cmd
}

func newUnitsConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <value> <from> <to>",
		Short: "Convert a value between two units",
		Long:  "Converts between a directly registered pair of units, e.g. `stratum units convert 90 mm in`.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse value %q: %w", args[0], err)
			}
			out, err := units.Convert(v, units.Unit(args[1]), units.Unit(args[2]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", strconv.FormatFloat(out, 'g', 10, 64), args[2])
			return nil
		},
	}
}

func newUnitsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every supported conversion",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FROM\tTO\tFACTOR")
			for _, p := range units.Pairs() {
				f, _ := units.Convert(1, p[0], p[1])
				fmt.Fprintf(w, "%s\t%s\t%s\n", p[0], p[1], strconv.FormatFloat(f, 'g', 8, 64))
			}
			w.Flush()
			return nil
		},
	}
}

func newUnitsSystemCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "system [SI|IP]",
		Short: "Show or set the display unit system",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := kv.Open(cmd.Context(), kv.Options{
				Backend:   cfg.Cache.Backend,
				Path:      cfg.Cache.Path,
				RedisAddr: cfg.Cache.RedisAddr,
			})
			if err != nil {
				return fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
			}
			defer store.Close()

			prefs := units.NewPreferences(store)
			if len(args) == 1 {
				sys, err := units.ParseSystem(args[0])
				if err != nil {
					return err
				}
				if err := prefs.SetSystem(cmd.Context(), sys); err != nil {
					return err
				}
			}
			sys, err := prefs.System(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unit system: %s\n", sys)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}
