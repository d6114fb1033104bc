package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"folio/internal/category"
	"folio/internal/database"
	"folio/internal/store"
)

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the development account and starter categories",
		Long: fmt.Sprintf(`Create the development account (%s) and the starter category
tree. Rows that already exist are left untouched.`, database.SeedEmail),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return err
			}
			if err := database.Seed(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded; sign in as %s / %s\n", database.SeedEmail, database.SeedPassword)
			return nil
		},
	}
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report orphaned or cyclic categories",
		Long: `Inspect the stored category hierarchy. The command exits non-zero
when a category references a missing parent or is its own ancestor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			all, err := store.NewCategoryStore(db).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			report := category.Inspect(all)
			printReport(cmd.OutOrStdout(), report)
			if !report.Healthy() {
				return fmt.Errorf("category hierarchy has %d orphaned and %d cyclic categories", len(report.Orphans), len(report.InCycle))
			}
			return nil
		},
	}
}

func printReport(w io.Writer, r *category.Report) {
	fmt.Fprintf(w, "%d categories checked\n", r.Total)
	for _, c := range r.Orphans {
		fmt.Fprintf(w, "orphan: %s (%s) references missing parent %s\n", c.Name, c.Slug, c.ParentID)
	}
	for _, c := range r.InCycle {
		fmt.Fprintf(w, "cycle:  %s (%s)\n", c.Name, c.Slug)
	}
	if r.Healthy() {
		fmt.Fprintln(w, "hierarchy ok")
	}
}
