package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/stratum/internal/units"
)

func newLayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layer",
		Short: "Layer management commands",
	}

	cmd.AddCommand(newLayerAddCmd())
	cmd.AddCommand(newLayerDeleteCmd())
	cmd.AddCommand(newLayerResizeCmd())
	return cmd
}

func newLayerAddCmd() *cobra.Command {
	var (
		configPath string
		index      int
		thickness  string
		material   string
	)

	cmd := &cobra.Command{
		Use:   "add <assembly-id>",
		Short: "Insert a layer into an assembly",
		Long: "Inserts a layer at --index (0 is the first layer; past the end appends).\n" +
			"Thickness is read in the current unit system. With --material the layer\n" +
			"starts with one segment of that material.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.assembly(args[0]); err != nil {
				return err
			}
			mm, err := env.display.ParseString(thickness, units.Length)
			if err != nil {
				return err
			}
			l, err := env.session.AddLayer(cmd.Context(), args[0], index, mm, material)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added layer %s at position %d (%s)\n",
				l.ID, l.Order+1, formatLength(env.display, l.ThicknessMM))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVar(&index, "index", 0, "zero-based position of the new layer")
	cmd.Flags().StringVar(&thickness, "thickness", "", "layer thickness (required)")
	cmd.Flags().StringVar(&material, "material", "", "material id of the initial segment")
	cmd.MarkFlagRequired("thickness")
	return cmd
}

func newLayerDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <layer-id>",
		Short: "Delete a layer with its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.layer(args[0]); err != nil {
				return err
			}
			if err := env.session.DeleteLayer(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted layer %s\n", args[0])
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newLayerResizeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resize <layer-id> <thickness>",
		Short: "Change a layer's thickness",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.layer(args[0]); err != nil {
				return err
			}
			mm, err := env.display.ParseString(args[1], units.Length)
			if err != nil {
				return err
			}
			if err := env.session.ResizeLayer(cmd.Context(), args[0], mm); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Layer %s is now %s\n", args[0], formatLength(env.display, mm))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}
