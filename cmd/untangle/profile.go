package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/k-nishimoto/untangle"
)

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Inspect and edit the user profile used for decomposition",
		Commands: []*cli.Command{
			profileShowCommand(),
			profileSetCommand(),
		},
	}
}

func profileShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the current profile",
		Flags: storeFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := newStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			profile, err := untangle.LoadProfile(ctx, db)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "preferred_active_hours: %s\n", profile.PreferredActiveHours)
			fmt.Fprintf(os.Stdout, "max_subtask_minutes:    %d\n", profile.MaxSubtaskMinutes)
			if profile.Notes != "" {
				fmt.Fprintf(os.Stdout, "notes:                  %s\n", profile.Notes)
			}
			return nil
		},
	}
}

func profileSetCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "active-hours",
			Usage: "Preferred active hours (e.g. \"early bird\", \"night owl\", \"09:00-17:00\")",
		},
		&cli.IntFlag{
			Name:  "max-minutes",
			Usage: "Maximum duration of a single subtask in minutes",
		},
		&cli.StringFlag{
			Name:  "notes",
			Usage: "Free-form notes the planner should respect",
		},
	}
	flags = append(flags, storeFlags()...)

	return &cli.Command{
		Name:  "set",
		Usage: "Update profile fields; unset flags keep their current value",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := newStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			profile, err := untangle.LoadProfile(ctx, db)
			if err != nil {
				return err
			}

			if cmd.IsSet("active-hours") {
				profile.PreferredActiveHours = cmd.String("active-hours")
			}
			if cmd.IsSet("max-minutes") {
				maxMinutes := int(cmd.Int("max-minutes"))
				if maxMinutes < 1 {
					return fmt.Errorf("--max-minutes must be at least 1")
				}
				profile.MaxSubtaskMinutes = maxMinutes
			}
			if cmd.IsSet("notes") {
				profile.Notes = cmd.String("notes")
			}

			if err := untangle.SaveProfile(ctx, db, profile); err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, "Profile updated.")
			return nil
		},
	}
}
