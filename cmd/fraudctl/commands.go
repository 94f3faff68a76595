package main

import (
	"errors"

	"github.com/banking/fraud-analysis/internal/app"
	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/spf13/cobra"
)

var analystContext string

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List customer identifiers in the loaded data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			ids, err := a.Store.ListIDs(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), domain.CustomerList{Customers: ids, TotalCount: len(ids)})
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <customer-id>",
	Short: "Show the structured summary for one customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			summary, err := a.Store.Summarize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <customer-id>",
	Short: "Run the full fraud-risk analysis for one customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			report, err := a.Analysis.AnalyzeCustomer(cmd.Context(), args[0], analystContext)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the loaded customer table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			info, err := a.Store.Info(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		})
	},
}

var checkAICmd = &cobra.Command{
	Use:   "check-ai",
	Short: "Send a minimal request to verify the AI credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if a.LLM == nil {
				return errors.New("AI service not configured")
			}
			status := a.LLM.TestConnection(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), status); err != nil {
				return err
			}
			if status.Status != "success" {
				return errors.New("AI connection test failed")
			}
			return nil
		})
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analystContext, "context", "", "Additional context for the analysis")

	rootCmd.AddCommand(customersCmd, summaryCmd, analyzeCmd, infoCmd, checkAICmd)
}
