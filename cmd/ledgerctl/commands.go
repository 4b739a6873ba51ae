package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/user"
	"strings"

	"hris-timekeeper/internal/app"
	"hris-timekeeper/internal/leaveledger"
	"hris-timekeeper/internal/shared/config"

	"github.com/spf13/cobra"
)

type ledgerOps interface {
	Show(ctx context.Context, employeeID string) (leaveledger.LedgerResponse, error)
	Reset(ctx context.Context, employeeID, operator string) (leaveledger.LedgerResponse, error)
	Close()
}

type opener func() (ledgerOps, error)

func openLedger() (ledgerOps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	ops, err := app.OpenLedgerOps(cfg)
	if err != nil {
		return nil, err
	}
	return ops, nil
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Inspect and reset employee leave ledgers",
		SilenceUsage: true,
	}
	root.AddCommand(newShowCmd(open), newResetCmd(open))
	return root
}

func newShowCmd(open opener) *cobra.Command {
	var employeeID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print an employee's leave balance, creating it with defaults if absent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := open()
			if err != nil {
				return err
			}
			defer ops.Close()

			resp, err := ops.Show(cmd.Context(), employeeID)
			if err != nil {
				return err
			}
			return printLedger(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee", "", "employee id")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}

func newResetCmd(open opener) *cobra.Command {
	var (
		employeeID string
		operator   string
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore an employee's leave balance to the configured defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(operator) == "" {
				operator = currentUser()
			}

			ops, err := open()
			if err != nil {
				return err
			}
			defer ops.Close()

			resp, err := ops.Reset(cmd.Context(), employeeID, operator)
			if err != nil {
				return err
			}
			return printLedger(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee", "", "employee id")
	cmd.Flags().StringVar(&operator, "operator", "", "who requested the reset (defaults to the OS user)")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}

func printLedger(cmd *cobra.Command, resp leaveledger.LedgerResponse) error {
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}
