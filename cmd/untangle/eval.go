package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/k-nishimoto/untangle/eval"
)

func evalCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "golden",
			Sources:  cli.EnvVars("UNTANGLE_EVAL_GOLDEN"),
			Usage:    "Path to the golden dataset (JSON array of cases)",
			Required: true,
		},
		&cli.FloatFlag{
			Name:  "atomicity-min",
			Value: eval.DefaultPassThreshold,
			Usage: "Minimum atomicity score for a case to pass",
		},
		&cli.FloatFlag{
			Name:  "temporal-min",
			Value: eval.DefaultPassThreshold,
			Usage: "Minimum temporal awareness score for a case to pass",
		},
		&cli.FloatFlag{
			Name:  "aggregate-min",
			Value: eval.DefaultPassThreshold,
			Usage: "Minimum aggregate score, per case and for the whole run",
		},
		&cli.IntFlag{
			Name:  "workers",
			Value: 1,
			Usage: "Number of cases to evaluate concurrently",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log evaluation progress to stderr",
		},
	}
	flags = append(flags, providerFlags()...)

	return &cli.Command{
		Name:  "eval",
		Usage: "Replay the golden dataset and grade plans with an LLM judge",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cases, err := eval.LoadGolden(cmd.String("golden"))
			if err != nil {
				return err
			}

			agent, err := newLLMClient(ctx, cmd)
			if err != nil {
				return err
			}
			judge, err := newLLMClient(ctx, cmd)
			if err != nil {
				return err
			}

			cfg := eval.Config{
				AtomicityMin: cmd.Float("atomicity-min"),
				TemporalMin:  cmd.Float("temporal-min"),
				AggregateMin: cmd.Float("aggregate-min"),
				Workers:      int(cmd.Int("workers")),
			}

			harness := eval.New(agent, judge,
				eval.WithConfig(cfg),
				eval.WithLogger(newLogger(cmd)),
			)

			report := harness.Run(ctx, cases)

			for _, result := range report.Results {
				status := "PASS"
				if result.Err != nil {
					status = "ERROR"
				} else if !result.Pass {
					status = "FAIL"
				}
				fmt.Fprintf(os.Stdout, "%-5s %s", status, result.Name)
				if result.Verdict != nil {
					fmt.Fprintf(os.Stdout, " (aggregate %.1f)", result.Verdict.Aggregate)
				}
				fmt.Fprintln(os.Stdout)
				if result.Err != nil {
					fmt.Fprintf(os.Stdout, "      %v\n", result.Err)
				} else if result.Verdict != nil && !result.Pass {
					fmt.Fprintf(os.Stdout, "      %s\n", result.Verdict.Justification)
				}
			}
			fmt.Fprintf(os.Stdout, "\n%d passed, %d failed, mean aggregate %.2f\n",
				report.Passed, report.Failed, report.Aggregate)

			if !report.Pass(cfg) {
				return fmt.Errorf("evaluation gate failed")
			}
			return nil
		},
	}
}
