package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"RequisiteGraph/internal/domain"
	"RequisiteGraph/internal/infrastructure/storage"
)

func newCoursesCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Inspect stored course records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [DEPT]",
		Short: "List stored courses, optionally for one department",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := root.load(cmd)
			repo, err := storage.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer repo.Close()

			var dept string
			if len(args) == 1 {
				dept = args[0]
			}
			records, err := repo.List(cmd.Context(), dept)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show CODE",
		Short: `Show one course, e.g. "CSE 1320"`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := domain.ParseCourseCode(strings.Join(args, " "))
			if err != nil {
				return err
			}

			cfg, _ := root.load(cmd)
			repo, err := storage.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer repo.Close()

			record, err := repo.Get(cmd.Context(), code)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%s is not stored; run resolve for its department first", code)
			}
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), record)
			return nil
		},
	})

	return cmd
}

func printRecords(w io.Writer, records []domain.CourseRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tPREREQUISITES\tCOREQUISITES")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Code, r.Name, joinCodes(r.Prerequisites), joinCodes(r.Corequisites))
	}
	return tw.Flush()
}

func printRecord(w io.Writer, r domain.CourseRecord) {
	fmt.Fprintf(w, "%s  %s\n", r.Code, r.Name)
	fmt.Fprintf(w, "Prerequisites: %s\n", joinCodes(r.Prerequisites))
	fmt.Fprintf(w, "Corequisites:  %s\n", joinCodes(r.Corequisites))
	if !r.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:       %s\n", r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	if r.Description != "" {
		fmt.Fprintf(w, "\n%s\n", r.Description)
	}
}

func joinCodes(set domain.CodeSet) string {
	if set.Len() == 0 {
		return "-"
	}
	return strings.Join(set.Strings(), ", ")
}
