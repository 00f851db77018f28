package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/crewsim/internal/config"
	"github.com/talgya/crewsim/internal/persistence"
)

func newMatchesCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	openDB := func(cmd *cobra.Command) (*persistence.DB, error) {
		if !cmd.Flags().Changed("db") {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			dbPath = cfg.DBPath
		}
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("no archive at %s: %w", dbPath, err)
		}
		return persistence.Open(dbPath)
	}

	cmd := &cobra.Command{
		Use:   "matches",
		Short: "List archived games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			matches, err := db.RecentMatches(limit)
			if err != nil {
				return fmt.Errorf("list matches: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "No archived games.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFINISHED\tWINNER\tROUNDS\tCHORES\tSEED\tREASON")
			for _, m := range matches {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\t%d\t%s\n",
					m.ID[:8], humanize.Time(m.Finished()), m.Winner, m.Rounds,
					m.ChoresDone, m.ChoresTotal, m.Seed, m.Reason)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			counts, err := db.WinCounts()
			if err != nil {
				return fmt.Errorf("win counts: %w", err)
			}
			winners := make([]string, 0, len(counts))
			total := 0
			for w, n := range counts {
				winners = append(winners, w)
				total += n
			}
			slices.Sort(winners)
			fmt.Fprintf(out, "\n%s archived:", humanize.Comma(int64(total)))
			for _, w := range winners {
				fmt.Fprintf(out, " %s %d", w, counts[w])
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "data/crewsim.db", "match archive path")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of games to list")

	show := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one archived game (default: the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			id := ""
			if len(args) == 1 {
				id = args[0]
			} else if id, err = db.GetMeta("last_match"); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return errors.New("no archived games")
				}
				return err
			}

			m, err := db.Match(id)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("no match %s", id)
			}
			if err != nil {
				return err
			}
			roster, err := db.MatchAgents(id)
			if err != nil {
				return err
			}
			events, err := db.MatchEvents(id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s · seed %d · %s rounds · started %s\n",
				m.ID, m.Seed, humanize.Comma(int64(m.Rounds)), humanize.Time(m.Started()))
			fmt.Fprintf(out, "%s: %s\n", m.Winner, m.Reason)
			if m.Recap != "" {
				fmt.Fprintf(out, "\n%s\n", m.Recap)
			}

			fmt.Fprintln(out)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, a := range roster {
				state := "alive"
				if !a.Alive {
					state = a.Cause
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\n", a.Name, a.Role, a.Trait, state, a.ChoresDone, a.ChoresTotal)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			for _, e := range events {
				fmt.Fprintln(out, e.String())
			}
			return nil
		},
	}
	cmd.AddCommand(show)
	return cmd
}
