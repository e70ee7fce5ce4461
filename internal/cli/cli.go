package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vk/lakeshift/internal/app"
	"github.com/vk/lakeshift/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// NewRootCommand builds the lakeshift command tree. Rendered output goes to
// outW; logs go to errW so machine-readable output stays clean.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	var (
		configPaths []string
		logLevel    string
		logFormat   string
		jsonOut     bool
	)

	root := &cobra.Command{
		Use:   "lakeshift",
		Short: "Plan and lint workspace code migrations",
		Long: `Lakeshift builds the dependency graph of workspace source code, lints it
for migration findings, and linearizes configured jobs into an ordered
migration plan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringSliceVar(&configPaths, "config", []string{"migrate.hcl"}, "Configuration file or directory. Repeatable.")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "Machine-readable JSON output.")

	buildApp := func() (*app.App, error) {
		format := strings.ToLower(logFormat)
		if format != "text" && format != "json" {
			return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
		}
		level := strings.ToLower(logLevel)
		switch level {
		case "debug", "info", "warn", "error":
			// valid
		default:
			return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
		}
		appConfig := &app.Config{
			ConfigPaths: configPaths,
			LogFormat:   format,
			LogLevel:    level,
		}
		return app.NewApp(errW, appConfig, config.NewLoader())
	}

	root.AddCommand(lintCmd(outW, &jsonOut, buildApp))
	root.AddCommand(sequenceCmd(outW, &jsonOut, buildApp))
	root.AddCommand(plansCmd(outW, &jsonOut, buildApp))
	return root
}

func lintCmd(outW io.Writer, jsonOut *bool, buildApp func() (*app.App, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [path]",
		Short: "Analyze workspace code and report migration findings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			advices, err := a.Lint(cmd.Context(), path)
			if err != nil {
				return err
			}
			if *jsonOut {
				return writeJSON(outW, adviceReport(advices))
			}
			renderAdvices(outW, advices)
			return nil
		},
	}
}

func sequenceCmd(outW io.Writer, jsonOut *bool, buildApp func() (*app.App, error)) *cobra.Command {
	var flagSave bool

	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Plan the migration order of all configured jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			result, err := a.Sequence(cmd.Context())
			if err != nil {
				return err
			}

			planID := ""
			if flagSave {
				planID, err = a.SavePlan(a.Model().Workspace.Root, result.Steps)
				if err != nil {
					return err
				}
			}

			if *jsonOut {
				return writeJSON(outW, sequenceReport(result, planID))
			}
			renderProblems(outW, result.Problems)
			renderSteps(outW, result.Steps)
			if planID != "" {
				fmt.Fprintf(outW, "\nSaved as plan %s\n", bold(planID))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagSave, "save", false, "Archive the generated plan in the history store.")
	return cmd
}

func plansCmd(outW io.Writer, jsonOut *bool, buildApp func() (*app.App, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect archived migration plans",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List archived plans, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			summaries, err := a.Plans()
			if err != nil {
				return err
			}
			if *jsonOut {
				return writeJSON(outW, summaries)
			}
			renderSummaries(outW, summaries)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one archived plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			plan, err := a.Plan(args[0])
			if err != nil {
				return err
			}
			if *jsonOut {
				return writeJSON(outW, plan)
			}
			fmt.Fprintf(outW, "Plan %s, created %s\n\n", bold(plan.ID), plan.CreatedAt.Format("2006-01-02 15:04:05"))
			renderSteps(outW, plan.Steps)
			return nil
		},
	})

	return cmd
}
