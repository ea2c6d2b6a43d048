package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"costbook/internal/core"
	"costbook/internal/view"
)

// viewFlags are the list filters shared by "item list" and "cost list".
type viewFlags struct {
	min, max string
	sort     string
	locale   string
}

func (f *viewFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.min, "min", "", "lowest value to show (inclusive)")
	cmd.Flags().StringVar(&f.max, "max", "", "highest value to show (inclusive)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "name-asc, name-desc, value-asc, value-desc, date-asc or date-desc (default: newest first)")
	cmd.Flags().StringVar(&f.locale, "locale", "", "BCP 47 locale for name sorting (default: $SORT_LOCALE)")
}

func (f *viewFlags) config() (view.Config, error) {
	locale := language.Und
	if f.locale != "" {
		tag, err := language.Parse(f.locale)
		if err != nil {
			return view.Config{}, fmt.Errorf("invalid locale %q: %w", f.locale, err)
		}
		locale = tag
	}
	return view.ParseConfig(f.min, f.max, f.sort, locale)
}

func newItemCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "item",
		Aliases: []string{"items"},
		Short:   "Manage purchased items",
	}

	var name, cost string
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a purchased item",
		Example: `  costbook item add --name "Sand" --cost 12.50
  costbook item add --name "Gravel" --cost 7,25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := rt.app.Tracker.AddItem(cmd.Context(), name, cost)
			if err != nil {
				return fmt.Errorf("add item: %w", err)
			}
			return rt.printRecord(cmd, "Added item", it)
		},
	}
	add.Flags().StringVar(&name, "name", "", "item name (required)")
	add.Flags().StringVar(&cost, "cost", "", "item cost (required)")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("cost")

	update := &cobra.Command{
		Use:   "update ID",
		Short: "Replace the name and cost of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, found, err := rt.app.Tracker.UpdateItem(cmd.Context(), args[0], name, cost)
			if err != nil {
				return fmt.Errorf("update item: %w", err)
			}
			if !found {
				return fmt.Errorf("item %s not found", args[0])
			}
			return rt.printRecord(cmd, "Updated item", it)
		},
	}
	update.Flags().StringVar(&name, "name", "", "item name (required)")
	update.Flags().StringVar(&cost, "cost", "", "item cost (required)")
	_ = update.MarkFlagRequired("name")
	_ = update.MarkFlagRequired("cost")

	del := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rt.app.Tracker.DeleteItem(cmd.Context(), args[0]) {
				return fmt.Errorf("item %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %s\n", args[0])
			return nil
		},
	}

	var vf viewFlags
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List items, filtered by cost and sorted",
		Example: `  costbook item list
  costbook item list --min 0 --max 100 --sort value-desc
  costbook item list --sort name-asc --locale sv --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := vf.config()
			if err != nil {
				return err
			}
			res := rt.app.Tracker.ItemView(cfg)
			if rt.json {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printTable(cmd.OutOrStdout(), "NAME", res)
			return nil
		},
	}
	vf.bind(list)

	cmd.AddCommand(add, update, del, list)
	return cmd
}

func newCostCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cost",
		Aliases: []string{"costs"},
		Short:   "Manage other project costs",
	}

	var description, amount string
	add := &cobra.Command{
		Use:     "add",
		Short:   "Record a cost",
		Example: `  costbook cost add --description "Crane rental" --amount 150`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.app.Tracker.AddCost(cmd.Context(), description, amount)
			if err != nil {
				return fmt.Errorf("add cost: %w", err)
			}
			return rt.printRecord(cmd, "Added cost", c)
		},
	}
	add.Flags().StringVar(&description, "description", "", "what the cost is for (required)")
	add.Flags().StringVar(&amount, "amount", "", "amount (required)")
	_ = add.MarkFlagRequired("description")
	_ = add.MarkFlagRequired("amount")

	update := &cobra.Command{
		Use:   "update ID",
		Short: "Replace the description and amount of a cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, found, err := rt.app.Tracker.UpdateCost(cmd.Context(), args[0], description, amount)
			if err != nil {
				return fmt.Errorf("update cost: %w", err)
			}
			if !found {
				return fmt.Errorf("cost %s not found", args[0])
			}
			return rt.printRecord(cmd, "Updated cost", c)
		},
	}
	update.Flags().StringVar(&description, "description", "", "what the cost is for (required)")
	update.Flags().StringVar(&amount, "amount", "", "amount (required)")
	_ = update.MarkFlagRequired("description")
	_ = update.MarkFlagRequired("amount")

	del := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a cost",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rt.app.Tracker.DeleteCost(cmd.Context(), args[0]) {
				return fmt.Errorf("cost %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted cost %s\n", args[0])
			return nil
		},
	}

	var vf viewFlags
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List costs, filtered by amount and sorted",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := vf.config()
			if err != nil {
				return err
			}
			res := rt.app.Tracker.CostView(cfg)
			if rt.json {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printTable(cmd.OutOrStdout(), "DESCRIPTION", res)
			return nil
		},
	}
	vf.bind(list)

	cmd.AddCommand(add, update, del, list)
	return cmd
}

func (rt *runtime) printRecord(cmd *cobra.Command, verb string, r core.Record) error {
	if rt.json {
		return writeJSON(cmd.OutOrStdout(), r)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s %s\n", verb, r.Identity(), r.Label(), core.FormatAmount(r.Value()))
	return nil
}
