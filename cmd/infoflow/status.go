package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Luismorlan/infoflow/query"
)

func statusCmd() *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sources, recent jobs and the latest brief",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, components, err := setup(ctx)
			if err != nil {
				return err
			}
			reader := components.Reader
			out := cmd.OutOrStdout()

			stats, err := reader.SourceStats(ctx)
			if err != nil {
				return err
			}
			printSources(out, stats)

			runs, err := reader.RecentJobRuns(ctx, "", jobs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tSTATUS\tSTARTED\tDURATION\tDETAIL")
			for _, run := range runs {
				duration := "-"
				if run.EndedAt != nil {
					duration = run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", run.Kind, run.Status, formatTime(&run.StartedAt), duration, run.Detail)
			}
			w.Flush()

			brief, err := reader.LatestBrief(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			printBrief(out, brief)
			return nil
		},
	}
	cmd.Flags().IntVar(&jobs, "jobs", 10, "number of recent job runs to show")
	return cmd
}

func printSources(out io.Writer, stats []*query.SourceStat) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tPLATFORM\tACTIVE\tITEMS\tLAST FETCH\tLAST STATUS")
	for _, s := range stats {
		status := "-"
		if s.LastRun != nil {
			status = s.LastRun.Status
			if s.LastRun.ErrorMessage != "" {
				status += ": " + s.LastRun.ErrorMessage
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%s\t%s\n", s.Name, s.Platform, s.IsActive, s.Items, formatTime(s.LastFetchAt), status)
	}
	w.Flush()
}

func printBrief(out io.Writer, brief *query.BriefView) {
	if brief == nil {
		fmt.Fprintln(out, "no brief generated yet")
		return
	}
	fmt.Fprintf(out, "latest brief %s (%s): %s\n", brief.BriefDate, brief.Status, brief.Title)
	var channels []string
	for _, d := range brief.Deliveries {
		state := "pending"
		if d.Sent {
			state = "sent"
		}
		channels = append(channels, d.Channel+"="+state)
	}
	if len(channels) > 0 {
		fmt.Fprintf(out, "deliveries: %s\n", strings.Join(channels, ", "))
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
