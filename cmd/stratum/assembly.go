package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAssemblyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assembly",
		Aliases: []string{"asm"},
		Short:   "Assembly management commands",
	}

	cmd.AddCommand(newAssemblyListCmd())
	cmd.AddCommand(newAssemblyShowCmd())
	cmd.AddCommand(newAssemblyCreateCmd())
	cmd.AddCommand(newAssemblyRenameCmd())
	cmd.AddCommand(newAssemblyDeleteCmd())
	cmd.AddCommand(newAssemblyFlipCmd())
	return cmd
}

func newAssemblyListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the project's assemblies",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			list := env.session.Assemblies()
			if len(list) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No assemblies in project %s.\n", env.cfg.Project)
				return nil
			}
			printAssemblyTable(cmd.OutOrStdout(), env.display, list)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newAssemblyShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <assembly-id>",
		Short: "Show an assembly's layers and segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			a, err := env.assembly(args[0])
			if err != nil {
				return err
			}
			printAssembly(cmd.OutOrStdout(), env.display, env.materials(cmd.Context()), a)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newAssemblyCreateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		typ        string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty assembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, false)
			if err != nil {
				return err
			}
			defer env.Close()

			a, err := env.session.AddAssembly(cmd.Context(), name, typ)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created assembly %s (%s)\n", a.ID, a.Name)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&name, "name", "", "assembly name (required)")
	cmd.Flags().StringVar(&typ, "type", "wall", "assembly type (wall, roof, floor)")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newAssemblyRenameCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rename <assembly-id> <name>",
		Short: "Rename an assembly",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.assembly(args[0]); err != nil {
				return err
			}
			if err := env.session.RenameAssembly(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed assembly %s\n", args[0])
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newAssemblyDeleteCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "delete <assembly-id>",
		Short: "Delete an assembly with all of its layers",
		Long:  "Deletes an assembly. Asks for confirmation on a terminal; pass --yes when scripting.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemblyDelete(cmd, configPath, args[0], yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runAssemblyDelete(cmd *cobra.Command, configPath, id string, yes bool) error {
	env, err := openClient(cmd, configPath, true)
	if err != nil {
		return err
	}
	defer env.Close()

	a, err := env.assembly(id)
	if err != nil {
		return err
	}
	confirmed := yes
	if !confirmed {
		confirmed, err = confirm(cmd, fmt.Sprintf("Delete assembly %q and its %d layers?", a.Name, len(a.Layers)))
		if err != nil {
			return err
		}
	}
	if !confirmed {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}
	if err := env.session.DeleteAssembly(cmd.Context(), id, true); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted assembly %s\n", id)
	return nil
}

var errNotInteractive = errors.New("stdin is not a terminal; pass --yes to confirm")

// confirm asks a yes/no question on an interactive stdin.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	in := cmd.InOrStdin()
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, errNotInteractive
	}
	return ask(in, cmd.OutOrStdout(), prompt)
}

func ask(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func newAssemblyFlipCmd() *cobra.Command {
	var (
		configPath string
		layersOnly bool
	)

	cmd := &cobra.Command{
		Use:   "flip <assembly-id>",
		Short: "Mirror an assembly inside-out",
		Long: "Reverses the layers and the segments within each layer and toggles the orientation.\n" +
			"With --layers only the layer order is reversed.",
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
			if layersOnly {
				err = env.session.FlipLayers(cmd.Context(), args[0])
			} else {
				err = env.session.FlipOrientation(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			a, err := env.assembly(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Flipped assembly %s (%s)\n", a.ID, orientationLabel(a.Orientation))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&layersOnly, "layers", false, "reverse the layer order only")
	return cmd
}
