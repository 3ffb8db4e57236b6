package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/k-nishimoto/untangle"
)

func planCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Confirm the proposed plan without prompting",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log pipeline progress to stderr",
		},
	}
	flags = append(flags, providerFlags()...)
	flags = append(flags, storeFlags()...)

	return &cli.Command{
		Name:      "plan",
		Usage:     "Decompose a brain dump, review the plan, then confirm or reject",
		ArgsUsage: "[brain dump text]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if text == "" {
				var err error
				text, err = readBrainDump(os.Stdin)
				if err != nil {
					return err
				}
			}
			if text == "" {
				return fmt.Errorf("nothing to plan: give the brain dump as arguments or on stdin")
			}

			llmClient, err := newLLMClient(ctx, cmd)
			if err != nil {
				return err
			}
			db, err := newStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			coordinator := untangle.New(llmClient, db,
				untangle.WithLogger(newLogger(cmd)),
			)

			plan, err := coordinator.Submit(ctx, untangle.BrainDump{
				Text:    text,
				Context: untangle.TimeContext{Now: time.Now()},
			})
			if err != nil {
				return err
			}

			printPlan(os.Stdout, plan)

			approved := cmd.Bool("yes")
			if !approved {
				approved, err = askConfirmation(os.Stdin, os.Stdout)
				if err != nil {
					return err
				}
			}

			report, err := coordinator.Confirm(ctx, approved)
			if err != nil {
				if report != nil {
					printReport(os.Stdout, report)
				}
				return err
			}
			if !approved {
				fmt.Fprintln(os.Stdout, "Plan rejected. Nothing was scheduled.")
				return nil
			}

			printReport(os.Stdout, report)
			return nil
		},
	}
}

// readBrainDump slurps stdin when no argument is given, so the command
// composes with pipes and heredocs.
func readBrainDump(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func askConfirmation(in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprint(out, "\nSchedule these tasks? [y/N] ")
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func printPlan(out io.Writer, plan *untangle.TaskPlan) {
	fmt.Fprintf(out, "Proposed plan (%d tasks):\n\n", len(plan.Tasks))
	for i, task := range plan.Tasks {
		fmt.Fprintf(out, "  %d. %s\n", i+1, task.Description)
		fmt.Fprintf(out, "     %s, %d min, priority %s", task.Kind, task.DurationMin, task.Priority)
		if task.StartAt != nil {
			fmt.Fprintf(out, ", at %s", task.StartAt.Format("Mon Jan 2 15:04"))
		} else if task.AnchorPhrase != "" {
			fmt.Fprintf(out, ", %q", task.AnchorPhrase)
		}
		fmt.Fprintln(out)
	}
	if len(plan.Conflicts) > 0 {
		fmt.Fprintln(out, "\nConflicts:")
		for _, conflict := range plan.Conflicts {
			fmt.Fprintf(out, "  - %s\n", conflict)
		}
	}
	if plan.Encouragement != "" {
		fmt.Fprintf(out, "\n%s\n", plan.Encouragement)
	}
}

func printReport(out io.Writer, report *untangle.ExecutionReport) {
	fmt.Fprintf(out, "\nScheduled %d of %d tasks.\n", len(report.Committed), len(report.Committed)+len(report.NotAttempted)+boolToInt(report.FailedIndex != nil))
	for _, entry := range report.Entries {
		when := "unscheduled"
		if entry.StartTime != nil {
			when = *entry.StartTime
		}
		fmt.Fprintf(out, "  - %s (%s)\n", entry.Title, when)
	}
	if report.FailedIndex != nil {
		fmt.Fprintf(out, "Task %d failed; tasks %v were not attempted.\n", *report.FailedIndex+1, report.NotAttempted)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
