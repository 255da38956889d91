package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/api"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/gateway"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/ledger"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/logger"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/recorder"
	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/store"
)

var (
	dbPath     string
	webhookURL string
	ledgerURL  string
)

// examples shown when add is called without text.
var examples = []string{
	"กินก๋วยเตี๋ยว 50 กาแฟ 40",
	"จ่ายค่ารถ 20 บาท",
	"ได้เงินเดือน 15000",
	"ค่าไฟเดือนนี้ 800",
}

func main() {
	home, _ := os.UserHomeDir()
	defaultDB := filepath.Join(home, ".vex", "vex.db")

	rootCmd := &cobra.Command{
		Use:   "vex",
		Short: "Voice expense recording system",
		Long:  "Turns short natural-language sentences into structured ledger entries via a remote parsing webhook.",
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "local database path")
	rootCmd.PersistentFlags().StringVarP(&webhookURL, "webhook", "w", "", "parse webhook URL (or WEBHOOK_URL)")
	rootCmd.PersistentFlags().StringVar(&ledgerURL, "ledger-url", "", "remote ledger URL (or LEDGER_URL)")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(ledgerCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(dbPath)
}

func printNotice(n recorder.Notice) {
	switch n.Kind {
	case recorder.NoticeSuccess:
		fmt.Printf("✅ %s\n", n.Text)
	case recorder.NoticeCommand:
		fmt.Printf("🤖 %s\n", n.Text)
	case recorder.NoticeError:
		fmt.Printf("⚠️  %s\n", n.Text)
	default:
		fmt.Println(n.Text)
	}
}

func addCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Record a transaction from natural-language text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				fmt.Println("Tell me what you spent or earned, for example:")
				for _, ex := range examples {
					fmt.Printf("  vex add \"%s\"\n", ex)
				}
				return nil
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			parser, err := gateway.NewParseClient(webhookURL)
			if err != nil {
				return err
			}

			rec, err := recorder.New(recorder.Config{
				Parser:    parser,
				Snapshots: s,
				Notify:    printNotice,
				Log:       logger.New(),
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			if err := rec.Submit(ctx, text); err != nil {
				return err
			}

			if rec.Status() != domain.StatusConfirming {
				return nil
			}

			draft := rec.Draft()
			fmt.Printf("%s  (%s)\n", strings.ToUpper(string(draft.Type)), draft.OriginalText)
			for i, item := range draft.Items {
				fmt.Printf("  %d. %-30s %-14s %s\n", i+1, item.Description, item.Category, item.Amount.String())
			}
			fmt.Printf("  total: %s\n", draft.Total().String())

			if dryRun {
				rec.Cancel()
				fmt.Println("(dry run, nothing saved)")
				return nil
			}

			return rec.Confirm()
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and show the draft without saving")
	return cmd
}

func ledgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger",
		Short: "Show the ledger (remote when reachable, local otherwise)",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, isLocal, err := loadDisplayEntries(cmd.Context())
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No entries yet. Use 'vex add' to record one.")
				return nil
			}
			if isLocal {
				fmt.Println("(showing local data; remote ledger unavailable or empty)")
			}

			for _, e := range entries {
				sign := "-"
				if e.Type == domain.TypeIncome {
					sign = "+"
				}
				fmt.Printf("%-24s %-10s %-30s %-14s %s%s\n",
					e.ID, e.Date, e.Description, e.Category, sign, e.Amount.String())
			}

			sum := ledger.Summarize(entries)
			fmt.Printf("\nincome %s  expense %s  balance %s\n",
				sum.TotalIncome.String(), sum.TotalExpense.String(), sum.Balance.String())
			return nil
		},
	}
}

func summaryCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals, category breakdown and daily trend",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, _, err := loadDisplayEntries(cmd.Context())
			if err != nil {
				return err
			}

			filtered := ledger.FilterPeriod(entries, ledger.Period(period), time.Now())
			sum := ledger.Summarize(filtered)
			fmt.Printf("period: %s\n", period)
			fmt.Printf("income %s  expense %s  balance %s\n\n",
				sum.TotalIncome.String(), sum.TotalExpense.String(), sum.Balance.String())

			if breakdown := ledger.CategoryBreakdown(filtered); len(breakdown) > 0 {
				fmt.Println("by category:")
				for _, c := range breakdown {
					fmt.Printf("  %-14s %s\n", c.Category, c.Amount.String())
				}
				fmt.Println()
			}

			if trend := ledger.Trend(filtered, ledger.BucketDay); len(trend) > 0 {
				fmt.Println("daily trend:")
				for _, p := range trend {
					fmt.Printf("  %s  -%s  +%s\n", p.Label, p.Expense.String(), p.Income.String())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&period, "period", "p", "month", "today, week, month or all")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a remote ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := gateway.NewLedgerClient(ledgerURL)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			if err := client.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("delete failed (entry kept, retry later): %w", err)
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

// loadDisplayEntries resolves what to show: the remote ledger when it has
// data, the persisted local cache otherwise, then the flattened history.
func loadDisplayEntries(ctx context.Context) ([]domain.LedgerEntry, bool, error) {
	s, err := getStore()
	if err != nil {
		return nil, false, err
	}
	defer s.Close()

	snap, err := s.Load()
	if err != nil {
		return nil, false, err
	}
	transactions, localEntries := snap.Hydrate()

	log := logger.New()
	var remote []domain.LedgerEntry
	if client, err := gateway.NewLedgerClient(ledgerURL); err == nil {
		recon := ledger.NewReconciler(client, log)
		recon.Refresh(ctx)
		remote = recon.Remote()
	} else {
		log.Warn().Err(err).Msg("remote ledger not configured")
	}

	entries, isLocal := ledger.DisplayEntries(remote, localEntries, transactions)
	return entries, isLocal, nil
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the embedded JSON API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New()

			s, err := getStore()
			if err != nil {
				return err
			}
			// Note: don't defer s.Close() as the server runs indefinitely

			parser, err := gateway.NewParseClient(webhookURL)
			if err != nil {
				return err
			}
			ledgerClient, err := gateway.NewLedgerClient(ledgerURL)
			if err != nil {
				return err
			}

			recon := ledger.NewReconciler(ledgerClient, log)

			var server *api.Server
			rec, err := recorder.New(recorder.Config{
				Parser:    parser,
				Snapshots: s,
				Log:       log,
				Notify: func(n recorder.Notice) {
					if server != nil {
						server.Notify(n)
					}
				},
				OnSaved: func() {
					ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					recon.Refresh(ctx)
				},
			})
			if err != nil {
				return err
			}

			server = api.New(rec, recon, ledgerClient, addr, log)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	return cmd
}
