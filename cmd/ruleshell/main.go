// Command ruleshell is a demo front end for the rule engine: load a
// rule-set fixture, run it to quiescence, and inspect or render the
// result. It is a collaborator, not part of the core engine, in the
// spirit of the teacher's cmd/mdb debugger — but driving an Engine to
// a fixed point instead of single-stepping a state machine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arrowhead-labs/ruleflow/audit"
	"github.com/arrowhead-labs/ruleflow/core"
	"github.com/arrowhead-labs/ruleflow/render"
	"github.com/arrowhead-labs/ruleflow/script"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "ruleshell",
		Short: "Run and inspect rule-set fixtures",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a ruleshell config file")

	root.AddCommand(newRunCmd(), newDescribeCmd(), newRenderCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	switch level {
	case "debug":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}

func newRunCmd() *cobra.Command {
	var auditDB string

	cmd := &cobra.Command{
		Use:   "run FIXTURE",
		Short: "Load a rule-set fixture and run it to quiescence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if auditDB != "" {
				cfg.AuditDB = auditDB
			}

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			runID := uuid.New().String()
			logger.Info("starting run", zap.String("runID", runID), zap.String("fixture", args[0]))

			fixture, err := loadFixture(args[0])
			if err != nil {
				return err
			}

			interp := script.NewInterpreter()
			engine, err := fixture.build(interp)
			if err != nil {
				return err
			}

			runErr := engine.Run()

			logger.Info("run finished",
				zap.String("runID", runID),
				zap.Int("cycles", engine.CycleCount()),
				zap.Error(runErr),
			)

			if fixture.Trace {
				store, err := openAuditStore(cfg.AuditDB)
				if err != nil {
					return err
				}
				defer store.Close()

				ctx := context.Background()
				if err := store.AppendTrace(ctx, runID, engine.GetExecutionTrace()); err != nil {
					return err
				}
				for _, entry := range engine.GetExecutionTrace() {
					fmt.Printf("fired %-30s facts=%v added=%v\n", entry.RuleName, entry.Facts, entry.FactsAdded)
				}
			}

			return runErr
		},
	}

	cmd.Flags().StringVar(&auditDB, "audit-db", "", "bbolt file to persist the execution trace to (overrides config)")

	return cmd
}

func openAuditStore(path string) (audit.Store, error) {
	if path == "" {
		return audit.NullStore{}, nil
	}
	return audit.OpenBoltStore(path)
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe FIXTURE",
		Short: "Print the rules and facts a fixture defines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := loadFixture(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("maxCycles: %d  trace: %v\n", fixture.MaxCycles, fixture.Trace)
			fmt.Printf("%d facts, %d rules\n\n", len(fixture.Facts), len(fixture.Rules))
			for _, r := range fixture.Rules {
				fmt.Printf("rule %s (salience %d) over %s\n", r.Name, r.Salience, r.Type)
				if r.Doc != "" {
					fmt.Printf("  %s\n", r.Doc)
				}
			}
			return nil
		},
	}
}

func newRenderCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "render FIXTURE",
		Short: "Render each rule in a fixture as a Mermaid flowchart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := loadFixture(args[0])
			if err != nil {
				return err
			}

			interp := script.NewInterpreter()
			engine, err := fixture.build(interp)
			if err != nil {
				return err
			}

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			for _, rf := range fixture.Rules {
				for _, r := range rulesByName(engine, rf.Name) {
					if err := render.Mermaid(r, w); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "file to write the diagram to (default stdout)")

	return cmd
}

func rulesByName(e *core.Engine, name string) []*core.Rule {
	var out []*core.Rule
	for _, r := range e.Rules() {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}
