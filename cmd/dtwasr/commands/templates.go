package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/dtwasr/pkg/archive"
	"github.com/haivivi/dtwasr/pkg/cli"
	"github.com/haivivi/dtwasr/pkg/templates"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage the template store",
	Long: `Import, list and delete templates in the template store.

The store lives in ~/.dtwasr/templates unless --store or templates.store_dir
is set.`,
}

var templatesImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import recordings from a directory",
	Long: `Import every .wav and .pcm file in a directory. The label is the file name
up to the first dot unless labels.yaml in the same directory maps the file
to a label. Each utterance found in a file becomes one template.

Example:
  dtwasr templates import ./words`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		a, err := archive.Open(getConfig().ArchiveConfig())
		if err != nil {
			return err
		}
		records, err := templates.Import(cmd.Context(), newLoader(a), s, args[0])
		if err != nil {
			return err
		}
		if outputJSON {
			return outputResult(records)
		}
		for _, r := range records {
			fmt.Printf("  %-12s %-24s %4d frames  %s\n", r.Label, r.Source, r.Frames(), r.ID)
		}
		cli.PrintSuccess("Imported %d templates from %s", len(records), args[0])
		return nil
	},
}

var templatesListCmd = &cobra.Command{
	Use:   "list [label]",
	Short: "List labels, or the templates of one label",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if len(args) == 0 {
			labels, err := templates.Labels(ctx, s)
			if err != nil {
				return err
			}
			if labels == nil {
				labels = []templates.LabelCount{}
			}
			return outputResult(labels)
		}

		if err := templates.ValidateLabel(args[0]); err != nil {
			return err
		}
		records := []templates.Record{}
		for r, err := range s.List(ctx, args[0]) {
			if err != nil {
				return err
			}
			records = append(records, r)
		}
		return outputResult(records)
	},
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <label>",
	Short: "Delete every template of a label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.DeleteLabel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("label %q not found", args[0])
		}
		cli.PrintSuccess("Deleted %d templates of %q", n, args[0])
		return nil
	},
}

func init() {
	templatesCmd.AddCommand(templatesImportCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesDeleteCmd)
}
