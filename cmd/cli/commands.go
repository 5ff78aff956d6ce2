package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/infrastructure/auth"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
)

type rootOptions struct {
	baseURL string
	token   string
	timeout time.Duration
	output  string
}

func (o *rootOptions) client() *apiClient {
	return newAPIClient(o.baseURL, o.token, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "bankledger",
		Short:         "BankLedger CLI tool",
		Long:          `A command line interface for interacting with the BankLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("BANKLEDGER_URL", "http://localhost:8080"), "Base URL of the BankLedger API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("BANKLEDGER_TOKEN"), "Bearer token (defaults to $BANKLEDGER_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format: table or json")

	rootCmd.AddCommand(
		newTokenCmd(),
		newMeCmd(opts),
		newAccountsCmd(opts),
		newTransferCmd(opts),
		newHistoryCmd(opts),
		newMigrateCmd(),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newTokenCmd() *cobra.Command {
	var (
		secret string
		issuer string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token USERNAME",
		Short: "Sign a development token for USERNAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret (or $JWT_SECRET) is required")
			}
			token, err := auth.NewJWTManager(secret, issuer, ttl).Generate(args[0], email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret shared with the server")
	cmd.Flags().StringVar(&issuer, "issuer", os.Getenv("JWT_ISSUER"), "Token issuer")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}

func newMeCmd(opts *rootOptions) *cobra.Command {
	meCmd := &cobra.Command{
		Use:   "me",
		Short: "Caller profile operations",
	}

	var email string
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register the token holder as a ledger user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/users/me", dto.RegisterUserRequest{Email: email}, nil)
			if err != nil {
				return err
			}
			return printUser(cmd.OutOrStdout(), opts.output, data)
		},
	}
	registerCmd.Flags().StringVar(&email, "email", "", "Contact email")

	showCmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"get"},
		Short:   "Show the token holder's user record",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/users/me", nil, nil)
			if err != nil {
				return err
			}
			return printUser(cmd.OutOrStdout(), opts.output, data)
		},
	}

	meCmd.AddCommand(registerCmd, showCmd)
	return meCmd
}

func newAccountsCmd(opts *rootOptions) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account", "acc"},
		Short:   "Account operations",
	}

	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Open a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{Name: args[0]}, nil)
			if err != nil {
				return err
			}
			return printAccount(cmd.OutOrStdout(), opts.output, data)
		},
	}

	var (
		nameFilter   string
		numberFilter string
		limit        int
		offset       int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts, optionally filtered by name or number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if nameFilter != "" {
				q.Set("name", nameFilter)
			}
			if numberFilter != "" {
				q.Set("number", numberFilter)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}

			path := "/api/v1/accounts"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			data, err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, nil)
			if err != nil {
				return err
			}
			return printAccountPage(cmd.OutOrStdout(), opts.output, data)
		},
	}
	listCmd.Flags().StringVar(&nameFilter, "name", "", "Case-insensitive name fragment")
	listCmd.Flags().StringVar(&numberFilter, "number", "", "Account number fragment")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	getCmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil, nil)
			if err != nil {
				return err
			}
			return printAccount(cmd.OutOrStdout(), opts.output, data)
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodPut, "/api/v1/accounts/"+url.PathEscape(args[0]), dto.UpdateAccountRequest{Name: args[1]}, nil)
			if err != nil {
				return err
			}
			return printAccount(cmd.OutOrStdout(), opts.output, data)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an empty account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.client().do(cmd.Context(), http.MethodDelete, "/api/v1/accounts/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s deleted\n", args[0])
			return nil
		},
	}

	var depositKey string
	depositCmd := &cobra.Command{
		Use:   "deposit ID AMOUNT",
		Short: "Credit an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodPost,
				"/api/v1/accounts/"+url.PathEscape(args[0])+"/deposits",
				dto.DepositRequest{Amount: args[1]},
				idempotencyHeader(depositKey))
			if err != nil {
				return err
			}
			return printAccount(cmd.OutOrStdout(), opts.output, data)
		},
	}
	depositCmd.Flags().StringVar(&depositKey, "idempotency-key", "", "Idempotency-Key header value")

	accountsCmd.AddCommand(createCmd, listCmd, getCmd, renameCmd, deleteCmd, depositCmd)
	return accountsCmd
}

func newTransferCmd(opts *rootOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "transfer FROM_ID TO_ID AMOUNT",
		Short: "Move money between two of your accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/transactions/transfer", dto.TransferRequest{
				FromAccountID: args[0],
				ToAccountID:   args[1],
				Amount:        args[2],
			}, idempotencyHeader(key))

			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
				var failed dto.TransferFailedResponse
				if json.Unmarshal(apiErr.Body, &failed) == nil && failed.TransactionID != "" {
					return fmt.Errorf("transfer %s FAILED: %s", failed.TransactionID, failed.Reason)
				}
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Transfer completed")
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency-Key header value")

	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history ACCOUNT_ID",
		Short: "List transactions touching an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/transactions/account/"+url.PathEscape(args[0]), nil, nil)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), opts.output, data)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var (
		databaseURL string
		path        string
	)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	migrateCmd.PersistentFlags().StringVar(&path, "path", envOr("MIGRATIONS_PATH", "migrations"), "Migrations directory")

	cliLogger := func(cmd *cobra.Command) zerolog.Logger {
		return logger.New(logger.Config{Level: "info", Format: "console", Output: cmd.ErrOrStderr()})
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return errors.New("--database-url (or $DATABASE_URL) is required")
			}
			return postgres.RunMigrations(databaseURL, path, cliLogger(cmd))
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return errors.New("--database-url (or $DATABASE_URL) is required")
			}
			return postgres.RunMigrationsDown(databaseURL, path, cliLogger(cmd))
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd)
	return migrateCmd
}

func idempotencyHeader(key string) map[string]string {
	if key == "" {
		return nil
	}
	return map[string]string{middleware.IdempotencyKeyHeader: key}
}

func printRaw(w io.Writer, data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		_, err = w.Write(data)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func printUser(w io.Writer, format string, data []byte) error {
	if format == "json" {
		return printRaw(w, data)
	}
	var u dto.UserResponse
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	fmt.Fprintf(w, "ID:       %s\nUsername: %s\nEmail:    %s\n", u.ID, u.Username, u.Email)
	return nil
}

func printAccount(w io.Writer, format string, data []byte) error {
	if format == "json" {
		return printRaw(w, data)
	}
	var a dto.AccountResponse
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tNAME\tBALANCE")
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Number, truncate(a.Name, 32), a.Balance)
	return tw.Flush()
}

func printAccountPage(w io.Writer, format string, data []byte) error {
	if format == "json" {
		return printRaw(w, data)
	}
	var page dto.ListAccountsResponse
	if err := json.Unmarshal(data, &page); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tNAME\tBALANCE")
	for _, a := range page.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Number, truncate(a.Name, 32), a.Balance)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Showing %d of %d\n", len(page.Accounts), page.Total)
	return nil
}

func printHistory(w io.Writer, format string, data []byte) error {
	if format == "json" {
		return printRaw(w, data)
	}
	var records []dto.TransactionResponse
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tID\tFROM\tTO\tAMOUNT\tSTATUS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.TransactionDate.Format(time.RFC3339), r.ID, r.FromAccountID, r.ToAccountID, r.Amount, r.Status)
	}
	return tw.Flush()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
