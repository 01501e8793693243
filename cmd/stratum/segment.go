package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/models"
	"github.com/zulandar/stratum/internal/status"
	"github.com/zulandar/stratum/internal/units"
)

func newSegmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "segment",
		Aliases: []string{"seg"},
		Short:   "Segment management commands",
	}

	cmd.AddCommand(newSegmentAddCmd())
	cmd.AddCommand(newSegmentDeleteCmd())
	cmd.AddCommand(newSegmentResizeCmd())
	cmd.AddCommand(newSegmentSetCmd())
	cmd.AddCommand(newSegmentStatusCmd())
	cmd.AddCommand(newSegmentAttachmentsCmd())
	cmd.AddCommand(newSegmentAttachCmd())
	return cmd
}

func newSegmentAddCmd() *cobra.Command {
	var (
		configPath string
		width      string
		material   string
	)

	cmd := &cobra.Command{
		Use:   "add <anchor-segment-id>",
		Short: "Insert a segment to the right of another",
		Long: "Inserts a segment directly after the anchor. It inherits the anchor's\n" +
			"material unless --material is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.segment(args[0]); err != nil {
				return err
			}
			attrs := assembly.SegmentAttrs{MaterialID: material, WidthMM: env.cfg.Defaults.SegmentWidthMM}
			if width != "" {
				if attrs.WidthMM, err = env.display.ParseString(width, units.Length); err != nil {
					return err
				}
			}
			s, err := env.session.InsertSegmentAfter(cmd.Context(), args[0], attrs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added segment %s at position %d\n", s.ID, s.Order+1)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&width, "width", "", "segment width (defaults to defaults.segment_width_mm)")
	cmd.Flags().StringVar(&material, "material", "", "material id (defaults to the anchor's)")
	return cmd
}

func newSegmentDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <segment-id>",
		Short: "Delete a segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.segment(args[0]); err != nil {
				return err
			}
			if err := env.session.DeleteSegment(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted segment %s\n", args[0])
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newSegmentResizeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resize <segment-id> <width>",
		Short: "Change a segment's width",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.segment(args[0]); err != nil {
				return err
			}
			mm, err := env.display.ParseString(args[1], units.Length)
			if err != nil {
				return err
			}
			if err := env.session.ResizeSegment(cmd.Context(), args[0], mm); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Segment %s is now %s wide\n", args[0], formatLength(env.display, mm))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newSegmentSetCmd() *cobra.Command {
	var (
		configPath string
		material   string
		spacing    string
		noStud     bool
		ci         bool
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "set <segment-id>",
		Short: "Change segment attributes",
		Long: "Submits every given attribute as its own update. Each one succeeds or\n" +
			"is reverted independently.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.segment(args[0]); err != nil {
				return err
			}
			var p models.SegmentPatch
			flags := cmd.Flags()
			if flags.Changed("material") {
				p.MaterialID = &material
			}
			if flags.Changed("stud-spacing") && noStud {
				return fmt.Errorf("--stud-spacing and --no-stud are mutually exclusive")
			}
			if flags.Changed("stud-spacing") {
				mm, err := env.display.ParseString(spacing, units.Length)
				if err != nil {
					return err
				}
				p.SteelStudSpacingMM = models.SetFloat(&mm)
			}
			if noStud {
				p.SteelStudSpacingMM = models.SetFloat(nil)
			}
			if flags.Changed("ci") {
				p.IsContinuousInsulation = &ci
			}
			if flags.Changed("notes") {
				p.Notes = &notes
			}
			if p.Empty() {
				return fmt.Errorf("nothing to change; pass at least one attribute flag")
			}
			if err := env.session.SaveSegment(cmd.Context(), args[0], p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated segment %s\n", args[0])
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&material, "material", "", "material id")
	cmd.Flags().StringVar(&spacing, "stud-spacing", "", "steel stud spacing (marks the segment as steel stud)")
	cmd.Flags().BoolVar(&noStud, "no-stud", false, "clear the steel stud spacing")
	cmd.Flags().BoolVar(&ci, "ci", false, "continuous insulation (--ci=false clears)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text notes (empty clears)")
	return cmd
}

func newSegmentStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status <segment-id> <complete|missing|question|na>",
		Short: "Set a segment's specification status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := status.Parse(args[1])
			if err != nil {
				return err
			}
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.segment(args[0]); err != nil {
				return err
			}
			if err := env.session.SetStatus(cmd.Context(), args[0], st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Segment %s is %s\n", args[0], st.Label())
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newSegmentAttachmentsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "attachments <segment-id>",
		Short: "List a segment's site photos and datasheets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(cmd, configPath, true)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.segment(args[0]); err != nil {
				return err
			}
			att, err := env.session.Attachments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printAttachments(cmd.OutOrStdout(), att)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newSegmentAttachCmd() *cobra.Command {
	var (
		configPath string
		req        models.AttachmentCreate
	)

	cmd := &cobra.Command{
		Use:   "attach <segment-id>",
		Short: "Record a site photo or datasheet on a segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Kind != models.AttachmentSitePhoto && req.Kind != models.AttachmentDatasheet {
				return fmt.Errorf("--kind must be %s or %s", models.AttachmentSitePhoto, models.AttachmentDatasheet)
			}
			env, err := openClient(cmd, configPath, false)
			if err != nil {
				return err
			}
			defer env.Close()

			att, err := env.remote.AddAttachment(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attached %s to segment %s\n", att.Reference, args[0])
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&req.Kind, "kind", models.AttachmentDatasheet, "site_photo or datasheet")
	cmd.Flags().StringVar(&req.Reference, "reference", "", "file reference (required)")
	cmd.Flags().StringVar(&req.ThumbnailURL, "thumbnail-url", "", "thumbnail URL")
	cmd.Flags().StringVar(&req.FullSizeURL, "url", "", "full-size URL")
	cmd.MarkFlagRequired("reference")
	return cmd
}
