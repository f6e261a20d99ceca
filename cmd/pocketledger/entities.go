package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/avasilenko/pocketledger/internal/app"
	"github.com/avasilenko/pocketledger/internal/model"
	"github.com/avasilenko/pocketledger/internal/store"
)

var (
	addAmount      string
	addCurrency    string
	addType        string
	addDescription string
	addSource      string
	addTitle       string
	addTotalCost   string
	addMonths      int
	addDueDay      int

	listType  string
	listLimit int
)

var addCmd = &cobra.Command{
	Use:   "add <kind>",
	Short: "Record a new entry in the local ledger",
	Long: `Record a new entry in the local ledger.

The entry is written locally and queued for upload; it syncs to the
remote API as soon as a connection is available.

Kinds: transaction, tag, goal, fixed-expense`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List local entries of a kind",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var removeCmd = &cobra.Command{
	Use:     "remove <kind> <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a local entry and queue the deletion for upload",
	Args:    cobra.ExactArgs(2),
	RunE:    runRemove,
}

func init() {
	addCmd.Flags().StringVar(&addAmount, "amount", "", "monetary amount, e.g. 12.50")
	addCmd.Flags().StringVar(&addCurrency, "currency", "USD", "ISO currency code")
	addCmd.Flags().StringVar(&addType, "type", "EXPENSE", "transaction type (INCOME or EXPENSE)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "free-form description")
	addCmd.Flags().StringVar(&addSource, "source", "", "transaction source")
	addCmd.Flags().StringVar(&addTitle, "title", "", "goal title or tag name")
	addCmd.Flags().StringVar(&addTotalCost, "total-cost", "", "goal total cost")
	addCmd.Flags().IntVar(&addMonths, "months", 12, "goal duration in months")
	addCmd.Flags().IntVar(&addDueDay, "due-day", 1, "day of month a fixed expense is due (1-31)")

	listCmd.Flags().StringVar(&listType, "type", "", "filter transactions by type")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum rows to show (0 = all)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kind, err := app.KindOf(args[0])
	if err != nil {
		return err
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	sess.goOnline(ctx)

	var entity model.Entity
	switch kind {
	case model.KindTransaction:
		amount, err := parseAmount("--amount", addAmount)
		if err != nil {
			return err
		}
		entity = &model.Transaction{
			Amount:      amount,
			Currency:    strings.ToUpper(addCurrency),
			Type:        model.TransactionType(strings.ToUpper(addType)),
			Description: addDescription,
			Source:      addSource,
		}
	case model.KindTag:
		if addTitle == "" {
			return fmt.Errorf("--title is required for tags")
		}
		entity = &model.Tag{Name: addTitle}
	case model.KindGoal:
		if addTitle == "" {
			return fmt.Errorf("--title is required for goals")
		}
		cost, err := parseAmount("--total-cost", addTotalCost)
		if err != nil {
			return err
		}
		monthly := cost
		if addMonths > 0 {
			monthly = cost.DivRound(decimal.NewFromInt(int64(addMonths)), 2)
		}
		entity = &model.Goal{
			Title:          addTitle,
			Description:    addDescription,
			TotalCost:      cost,
			Currency:       strings.ToUpper(addCurrency),
			DurationMonths: addMonths,
			MonthlyAmount:  monthly,
			StartDate:      time.Now().UTC(),
			Deadline:       time.Now().UTC().AddDate(0, addMonths, 0),
		}
	case model.KindFixedExpense:
		amount, err := parseAmount("--amount", addAmount)
		if err != nil {
			return err
		}
		entity = &model.FixedExpense{
			Amount:      amount,
			Currency:    strings.ToUpper(addCurrency),
			Description: addDescription,
			DueDay:      addDueDay,
			IsActive:    true,
		}
	default:
		return fmt.Errorf("unsupported kind: %s", kind)
	}

	saved, err := sess.app.Save(ctx, entity, true)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", kind, err)
	}

	pending, _ := sess.app.PendingCount(ctx)
	fmt.Printf("Saved %s %s (%d operation(s) queued)\n", kind, saved.EntityID(), pending)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kind, err := app.KindOf(args[0])
	if err != nil {
		return err
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	switch kind {
	case model.KindTransaction:
		filter := store.TransactionFilter{Limit: listLimit}
		if listType != "" {
			filter.Type = model.TransactionType(strings.ToUpper(listType))
		}
		txns, err := sess.app.GetTransactions(ctx, filter)
		if err != nil {
			return err
		}
		if len(txns) == 0 {
			fmt.Println("No transactions.")
			return nil
		}
		for _, t := range txns {
			fmt.Printf("%s  %-7s %10s %s  %s%s\n",
				t.OccurredAt.Local().Format("2006-01-02"),
				t.Type, t.Amount.StringFixed(2), t.Currency,
				t.Description, syncMark(t.SyncStatus))
		}
	case model.KindTag:
		tags, err := sess.app.GetTags(ctx)
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Println("No tags.")
			return nil
		}
		for _, tg := range tags {
			fmt.Printf("%s  %s%s\n", tg.ID, tg.Name, syncMark(tg.SyncStatus))
		}
	case model.KindGoal:
		goals, err := sess.app.GetGoals(ctx)
		if err != nil {
			return err
		}
		if len(goals) == 0 {
			fmt.Println("No goals.")
			return nil
		}
		for _, g := range goals {
			fmt.Printf("%s  %-30s %s/%s %s by %s%s\n",
				g.ID, g.Title,
				g.SavedAmount.StringFixed(2), g.TotalCost.StringFixed(2), g.Currency,
				g.Deadline.Local().Format("2006-01-02"),
				syncMark(g.SyncStatus))
		}
	case model.KindFixedExpense:
		expenses, err := sess.app.GetFixedExpenses(ctx)
		if err != nil {
			return err
		}
		if len(expenses) == 0 {
			fmt.Println("No fixed expenses.")
			return nil
		}
		for _, fe := range expenses {
			active := "active"
			if !fe.IsActive {
				active = "inactive"
			}
			fmt.Printf("%s  %10s %s on day %2d (%s)  %s%s\n",
				fe.ID, fe.Amount.StringFixed(2), fe.Currency, fe.DueDay,
				active, fe.Description, syncMark(fe.SyncStatus))
		}
	default:
		return fmt.Errorf("unsupported kind: %s", kind)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kind, err := app.KindOf(args[0])
	if err != nil {
		return err
	}
	id := args[1]

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	sess.goOnline(ctx)

	if err := sess.app.Remove(ctx, kind, id); err != nil {
		return fmt.Errorf("failed to remove %s %s: %w", kind, id, err)
	}

	fmt.Printf("Removed %s %s (deletion queued for upload)\n", kind, id)
	return nil
}

func parseAmount(flag, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%s is required", flag)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

func syncMark(s model.SyncStatus) string {
	if s == model.StatusPending {
		return "  (pending)"
	}
	return ""
}
