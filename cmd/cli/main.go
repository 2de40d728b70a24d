package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "commission-cli",
		Short: "Commission engine CLI tool",
		Long:  `A command line interface for interacting with the commission engine API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the commission engine API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(distributeCmd())
	rootCmd.AddCommand(distributionCmd())
	rootCmd.AddCommand(walletCmd())
	rootCmd.AddCommand(ledgerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func distributeCmd() *cobra.Command {
	var (
		transactionID string
		partyID       string
		serviceID     string
		amount        int64
		currency      string
		actorID       string
	)

	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Settle the commission pool for a completed transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"transaction_id":      transactionID,
				"originator_party_id": partyID,
				"service_id":          serviceID,
				"amount":              amount,
				"currency":            currency,
				"actor_id":            actorID,
			}
			return postJSON(cmd, "/api/v1/distributions/", body, "Idempotency-Key", transactionID)
		},
	}

	cmd.Flags().StringVar(&transactionID, "transaction", "", "Transaction ID (required)")
	cmd.Flags().StringVar(&partyID, "party", "", "Originator party ID (required)")
	cmd.Flags().StringVar(&serviceID, "service", "", "Service ID")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Commission pool in minor units (required)")
	cmd.Flags().StringVar(&currency, "currency", "INR", "Currency code")
	cmd.Flags().StringVar(&actorID, "actor", "cli", "Acting admin ID")
	_ = cmd.MarkFlagRequired("transaction")
	_ = cmd.MarkFlagRequired("party")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func distributionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Distribution operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <transaction-id>",
		Short: "Show the earnings recorded for a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(cmd, "/api/v1/distributions/"+args[0])
		},
	})

	return cmd
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <wallet-id>",
		Short: "Show a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(cmd, "/api/v1/wallets/"+args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "entries <wallet-id>",
		Short: "List recent ledger entries for a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(cmd, "/api/v1/wallets/"+args[0]+"/entries")
		},
	})

	cmd.AddCommand(walletAdjustCmd("credit", "Manually credit a wallet"))
	cmd.AddCommand(walletAdjustCmd("debit", "Manually debit a wallet"))

	return cmd
}

func walletAdjustCmd(op, short string) *cobra.Command {
	var (
		amount         int64
		narration      string
		actorID        string
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   op + " <wallet-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"amount":    amount,
				"narration": narration,
				"actor_id":  actorID,
			}
			return postJSON(cmd, "/api/v1/wallets/"+args[0]+"/"+op, body, "Idempotency-Key", idempotencyKey)
		},
	}

	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount in minor units (required)")
	cmd.Flags().StringVar(&narration, "narration", "", "Human readable reason (required)")
	cmd.Flags().StringVar(&actorID, "actor", "cli", "Acting admin ID")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for safe retries")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("narration")

	return cmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check wallet balances against the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConsistency(cmd)
		},
	})

	return cmd
}

func checkConsistency(cmd *cobra.Command) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + "/api/v1/ledger/consistency")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Consistency check FAILED (Status: %d)\n", resp.StatusCode)
		printJSON(result)
		return fmt.Errorf("ledger is inconsistent")
	}

	fmt.Println("Consistency check PASSED")
	printJSON(result)
	return nil
}

func getJSON(cmd *cobra.Command, path string) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func postJSON(cmd *cobra.Command, path string, body any, headerPairs ...string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headerPairs); i += 2 {
		if headerPairs[i+1] != "" {
			req.Header.Set(headerPairs[i], headerPairs[i+1])
		}
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Println(truncate(string(body), 512))
	} else {
		printJSON(result)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to render response: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
