package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oliverbatey/forager/internal/core/ports/driving"
	"github.com/oliverbatey/forager/internal/core/services"
)

var evalCasesFile string

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Check the agent's tool routing",
	Long: `Sends scripted prompts to the agent and checks that each one leads to
the expected tool call. Tools answer with canned responses, so only the
model's routing is exercised and nothing is fetched or written.

Cases are YAML:
  - name: Knowledge base search
    prompt: What are people saying about Python type hints?
    expect_tool: search_knowledge_base

Exits non-zero when any case fails.`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalCasesFile, "cases", "", "YAML file of cases (default: built-in cases)")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, _ []string) error {
	cases, err := loadEvalCases(evalCasesFile)
	if err != nil {
		return err
	}

	svc, err := getEval()
	if err != nil {
		return err
	}

	results, err := svc.Run(cmd.Context(), cases)
	if err != nil {
		return err
	}

	failed := 0
	for i := range results {
		r := &results[i]
		if r.Passed {
			cmd.Printf("[PASS] %s: called %s\n", r.Case.Name, r.Case.ExpectTool)
			continue
		}
		failed++
		called := make([]string, len(r.Called))
		for j, name := range r.Called {
			called[j] = string(name)
		}
		cmd.Printf("[FAIL] %s: expected %s, called [%s]\n", r.Case.Name, r.Case.ExpectTool, strings.Join(called, ", "))
		if r.Err != nil {
			cmd.Printf("       error: %v\n", r.Err)
		}
	}

	cmd.Printf("\n%d/%d passed\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d of %d eval cases failed", failed, len(results))
	}
	return nil
}

func loadEvalCases(path string) ([]driving.EvalCase, error) {
	if path == "" {
		return services.DefaultEvalCases(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cases: %w", err)
	}
	return services.ParseEvalCases(data)
}
