// Command solmev runs the real-time opportunity engine, and offers a
// small set of offline validators against the evidence sink.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aerofoil/solmev/internal/evidence"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "solmev",
		Short: "Real-time Solana MEV opportunity engine",
	}

	var configFile string
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")

	root.AddCommand(
		newRunCmd(&configFile),
		newProveDLMML2Cmd(),
		newVerifyEvidenceSchemaCmd(),
		newValidateSandwichCmd(),
	)
	return root
}

func newRunCmd(configFile *string) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot the engine: ingest, decode, simulate, and submit bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			// configFile is dereferenced here, after flag parsing has run.
			return runEngine(cmd, v, *configFile)
		},
	}
	bindRunFlags(cmd, v)
	return cmd
}

func newProveDLMML2Cmd() *cobra.Command {
	var dbPath, session, out string
	var limit, toleranceBps int
	cmd := &cobra.Command{
		Use:   "prove-dlmm-l2",
		Short: "Replay recorded constant-product decisions through the CP kernel and compare with the recorded profit within a tolerance (binned and concentrated rows are skipped)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := proveDLMML2(dbPath, session, limit, toleranceBps, out)
			if err != nil {
				return err
			}
			if !ok {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "evidence sqlite database path")
	cmd.Flags().StringVar(&session, "session", "", "session id to replay")
	cmd.Flags().IntVar(&limit, "limit", 1000, "max rows to replay")
	cmd.Flags().IntVar(&toleranceBps, "tolerance-bps", 5, "allowed deviation, in basis points")
	cmd.Flags().StringVar(&out, "out", "", "path to write the comparison report")
	cmd.MarkFlagRequired("db")
	return cmd
}

func newVerifyEvidenceSchemaCmd() *cobra.Command {
	var dbPath string
	var strict bool
	cmd := &cobra.Command{
		Use:   "verify-evidence-schema",
		Short: "Check the evidence database's schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := evidence.VerifySchema(dbPath, strict); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "evidence sqlite database path")
	cmd.Flags().BoolVar(&strict, "strict", false, "require every expected column to be present")
	cmd.MarkFlagRequired("db")
	return cmd
}

func newValidateSandwichCmd() *cobra.Command {
	var dbPath string
	var limit, toleranceBps int
	cmd := &cobra.Command{
		Use:   "validate-sandwich",
		Short: "Replay recorded sandwich decisions and check predicted-vs-recorded profit within a tolerance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := validateSandwich(dbPath, limit, toleranceBps)
			if err != nil {
				return err
			}
			if !ok {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "evidence sqlite database path")
	cmd.Flags().IntVar(&limit, "limit", 1000, "max rows to replay")
	cmd.Flags().IntVar(&toleranceBps, "tolerance-bps", 5, "allowed deviation, in basis points")
	cmd.MarkFlagRequired("db")
	return cmd
}
