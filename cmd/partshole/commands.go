package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/PartsHole/internal/core"
	"github.com/JonMunkholm/PartsHole/internal/model"
)

func newImportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import invoice files named by their order number (123456.csv, 123456.xlsx)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]core.FileInput, len(args))
			for i, path := range args {
				files[i] = core.PathInput(path)
			}

			batch := c.service().ImportFiles(cmd.Context(), files)

			out := cmd.OutOrStdout()
			for _, inv := range batch.Invoices {
				fmt.Fprintf(out, "imported %d (%s): %d line items, subtotal %s\n",
					inv.OrderNumber, inv.SupplierType, len(inv.LineItems), inv.Subtotal().StringFixed(2))
			}
			for i := range args {
				for _, pe := range batch.ParseErrors[i] {
					fmt.Fprintf(out, "  %s: skipped %v\n", args[i], pe)
				}
			}
			for _, f := range batch.Failures {
				fmt.Fprintf(out, "failed %s: %s\n", f.Name, core.FormatUserError(f.Err))
			}
			for _, i := range batch.Skipped {
				fmt.Fprintf(out, "skipped %s\n", args[i])
			}

			if err := batch.Err(); err != nil {
				return fmt.Errorf("%d of %d files failed", len(batch.Failures), len(args))
			}
			if len(batch.Skipped) > 0 {
				return cmd.Context().Err()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&c.strict, "strict", false, "reject a file on its first bad row")
	return cmd
}

func newSweepCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep [DIR]",
		Short: "Import every invoice in an inbox directory once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.cfg.Inbox.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no inbox directory: pass DIR or set INBOX_DIR")
			}

			res, err := c.service().SweepInbox(cmd.Context(), dir)
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d, failed %d, skipped %d\n",
				len(res.Processed), len(res.Failed), len(res.Skipped))
			for _, name := range res.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed %s (see %s/%s.error.txt)\n", name, core.FailedDir, name)
			}
			return err
		},
	}
}

func newAllocateCmd(c *cli) *cobra.Command {
	var (
		userID      string
		category    int
		subCategory int
	)

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate the next part number in a category for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pn, err := c.service().AllocatePartNumber(cmd.Context(), userID, category, subCategory)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pn)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id (required)")
	cmd.Flags().IntVarP(&category, "category", "c", 0, "category, 0-99")
	cmd.Flags().IntVarP(&subCategory, "subcategory", "s", 0, "subcategory, 0-99")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("subcategory")
	return cmd
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "parse VALUE",
		Short:       "Decode a CCSS-NNNN part number",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			pn, canonical := core.ParsePartNumber(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s category=%d subcategory=%d sequence=%d\n",
				canonical, pn.Category, pn.SubCategory, pn.Sequence)
			return nil
		},
	}
}

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Create and inspect users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Create a user with empty reference lists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.service().CreateUser(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show USER_ID",
		Short: "Print a user with every reference expanded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.service().GetUserData(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	})

	return cmd
}

// newLinkCmd builds "link" or "unlink", which add or remove one id on a
// user's reference list.
func newLinkCmd(c *cli, name string) *cobra.Command {
	var userID string

	short := "Append an id to a user's reference list"
	if name == "unlink" {
		short = "Remove the first occurrence of an id from a user's reference list"
	}

	cmd := &cobra.Command{
		Use:   name + " LIST MODEL_ID",
		Short: short,
		Long:  "LIST is one of parts, invoices, bins or partnumbers.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := model.ParseSelector(args[0])
			if err != nil {
				return err
			}

			op := c.service().AppendReference
			if name == "unlink" {
				op = c.service().RemoveReference
			}
			if err := op(cmd.Context(), userID, args[1], sel); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", name+"ed", sel, args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
