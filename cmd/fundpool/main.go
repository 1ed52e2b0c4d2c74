// fundpool is the command-line interface for the FundPool contribution pool.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fundpool/fundpool/internal/identity"
	"github.com/fundpool/fundpool/pkg/client"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	token     string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fundpool",
	Short: "FundPool CLI",
	Long: `fundpool is the command-line interface for a FundPool server.

It lets you inspect the pool, contribute funds, and (as the owner)
withdraw the accumulated balance.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.fundpool")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if token == "" {
			token = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.fundpool/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "FundPool server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer caller token")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(withdrawCmd)
	rootCmd.AddCommand(contributorsCmd)
	rootCmd.AddCommand(contributionCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)

	withdrawCmd.Flags().Bool("compact", false, "use the storage-compacting withdrawal variant")
	tokenCmd.Flags().String("secret", "", "server auth secret (or FUNDPOOL_SECRET)")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	tokenCmd.Flags().String("issuer", "", "token issuer (must match the server's base URL)")
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithToken(token))
}

// ── status ───────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pool's current state",
	RunE: func(cmd *cobra.Command, args []string) error {
		overview, err := newClient().Overview(context.Background())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "owner:\t%s\n", overview.Owner)
		fmt.Fprintf(w, "balance:\t%s\n", overview.Balance)
		fmt.Fprintf(w, "contributors:\t%d\n", overview.ContributorCount)
		fmt.Fprintf(w, "minimum USD threshold:\t%s\n", overview.MinimumUSDThreshold)
		fmt.Fprintf(w, "funding cycle:\t%d\n", overview.Cycle)
		fmt.Fprintf(w, "oracle schema version:\t%d\n", overview.OracleSchemaVersion)
		return w.Flush()
	},
}

// ── deposit ──────────────────────────────────────────────────────────────────

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Contribute an amount of native units (e.g. 0.1)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().Deposit(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("deposited %s as %s (cumulative: %s)\n", res.Amount, res.Contributor, res.Total)
		return nil
	},
}

// ── withdraw ─────────────────────────────────────────────────────────────────

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Drain the pool to the owner (owner token required)",
	RunE: func(cmd *cobra.Command, args []string) error {
		compact, _ := cmd.Flags().GetBool("compact")
		res, err := newClient().Withdraw(context.Background(), compact)
		if err != nil {
			return err
		}
		fmt.Printf("withdrew %s to %s; funding cycle is now %d\n", res.Payout, res.Owner, res.Cycle)
		return nil
	},
}

// ── contributors ─────────────────────────────────────────────────────────────

var contributorsCmd = &cobra.Command{
	Use:   "contributors",
	Short: "List contributors in first-deposit order",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := newClient().Contributors(context.Background())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("no contributors in the current funding cycle")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tIDENTITY\tAMOUNT")
		for i, row := range rows {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i, row.Identity, row.Amount)
		}
		return w.Flush()
	},
}

// ── contribution ─────────────────────────────────────────────────────────────

var contributionCmd = &cobra.Command{
	Use:   "contribution <identity>",
	Short: "Show an identity's cumulative contribution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := newClient().Contribution(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", args[0], amount)
		return nil
	},
}

// ── token ────────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token <identity>",
	Short: "Mint a caller token for an identity (requires the server secret)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		if secret == "" {
			secret = os.Getenv("FUNDPOOL_SECRET")
		}
		if secret == "" {
			return fmt.Errorf("provide --secret or FUNDPOOL_SECRET")
		}

		issuer, _ := cmd.Flags().GetString("issuer")
		if issuer == "" {
			issuer = serverURL
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")

		signed, err := identity.NewTokenIssuer([]byte(secret), issuer, ttl).Issue(args[0])
		if err != nil {
			return err
		}
		fmt.Println(signed)
		return nil
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("fundpool", version)
	},
}
