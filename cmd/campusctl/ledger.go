package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fastygo/taskmarket/repository"
	ledgerUC "github.com/fastygo/taskmarket/usecase/ledger"
	taskUC "github.com/fastygo/taskmarket/usecase/task"
)

func init() {
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(openAccountCmd)

	openAccountCmd.Flags().String("email", "", "Contact email")
	openAccountCmd.Flags().String("role", "member", "Account role (member or admin)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check every balance against the sum of its ledger entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store repository.Store) error {
			found, err := ledgerUC.New(store, nil, cfg.Policy.InitialBalance, log).Audit(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "ledger balanced")
				return nil
			}
			for _, d := range found {
				fmt.Fprintf(out, "%s\tbalance=%d\tledger=%d\tdiff=%d\n", d.AccountID, d.Balance, d.LedgerSum, d.Balance-d.LedgerSum)
			}
			return fmt.Errorf("%d account(s) out of balance", len(found))
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Cancel available tasks whose deadline has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store repository.Store) error {
			swept, err := taskUC.New(store, nil, log).SweepExpired(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %d expired task(s)\n", swept)
			return nil
		})
	},
}

var openAccountCmd = &cobra.Command{
	Use:   "open-account USERNAME",
	Short: "Open an account and grant the initial balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		role, _ := cmd.Flags().GetString("role")
		return withStore(cmd.Context(), func(store repository.Store) error {
			account, err := ledgerUC.New(store, nil, cfg.Policy.InitialBalance, log).OpenAccount(cmd.Context(), ledgerUC.OpenAccountInput{
				Username: args[0],
				Email:    email,
				Role:     role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tbalance=%d\n", account.ID, account.Username, account.Balance)
			return nil
		})
	},
}
