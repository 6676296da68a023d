package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	collector_builder "github.com/Luismorlan/infoflow/collector/builder"
	"github.com/Luismorlan/infoflow/collector/sink"
	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/panoptic"
	"github.com/Luismorlan/infoflow/panoptic/modules"
)

// runJobs executes jobs in order through an orchestrator without event bus,
// so every run is recorded as a JobRun like a scheduled one. Dependencies are
// not checked, an operator asking for a job gets it.
func runJobs(cmd *cobra.Command, jobs ...*panoptic.JobMessage) error {
	ctx := cmd.Context()
	_, components, err := setup(ctx)
	if err != nil {
		return err
	}
	o := modules.NewOrchestrator(modules.OrchestratorConfig{Name: "cli"}, components.Executor(), components.DB, nil, nil)

	failed := 0
	for _, job := range jobs {
		job.Id = uuid.NewString()
		job.Name = "cli"
		job.ScheduledAt = o.Now()
		res := o.Handle(ctx, job)
		fmt.Fprintf(cmd.OutOrStdout(), "%-15s %-8s %s\n", job.Kind, res.State, res.Detail)
		if res.State != panoptic.JobStateSuccess {
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d jobs did not succeed", failed, len(jobs))
	}
	return nil
}

func fetchCmd() *cobra.Command {
	var force, dryRun bool
	var sourceId string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every due source, or a single one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourceId == "" {
				return runJobs(cmd, &panoptic.JobMessage{Kind: model.JobKindFetchAll, Force: force})
			}
			return fetchOne(cmd, sourceId, dryRun)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "fetch sources whose interval has not elapsed")
	cmd.Flags().StringVar(&sourceId, "source", "", "only fetch this source id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "with --source, log the first page instead of storing it")
	return cmd
}

func fetchOne(cmd *cobra.Command, sourceId string, dryRun bool) error {
	ctx := cmd.Context()
	_, components, err := setup(ctx)
	if err != nil {
		return err
	}
	var source model.Source
	if err := components.DB.WithContext(ctx).First(&source, "id = ?", sourceId).Error; err != nil {
		return errors.Wrapf(err, "unknown source %s", sourceId)
	}
	if dryRun {
		return dryRunFetch(cmd, components.Fetcher.Builder, &source)
	}
	runs, err := components.Fetcher.FetchSource(ctx, &source)
	for _, run := range runs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-8s fetched %d, new %d, updated %d, failed %d %s\n",
			run.Id, run.Status, run.ItemsFetched, run.ItemsNew, run.ItemsUpdated, run.ItemsFailed, run.ErrorMessage)
	}
	return err
}

func scoreCmd() *cobra.Command {
	var recompute bool
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute heat and potential of unscored items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(cmd, &panoptic.JobMessage{Kind: model.JobKindScoreAll, Force: recompute})
		},
	}
	cmd.Flags().BoolVar(&recompute, "recompute", false, "rescore every item")
	return cmd
}

func classifyCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Tag items never classified",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(cmd, &panoptic.JobMessage{Kind: model.JobKindClassifyAll, Force: force})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reclassify every item, manual tags are kept")
	return cmd
}

func briefCmd() *cobra.Command {
	var date string
	var regenerate bool
	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Generate the daily brief, of yesterday by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(cmd, &panoptic.JobMessage{Kind: model.JobKindGenerateBrief, Date: date, Force: regenerate})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "brief date, YYYY-MM-DD")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "replace an existing brief")
	return cmd
}

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Deliver the latest brief to channels that have not accepted it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(cmd, &panoptic.JobMessage{Kind: model.JobKindPublishBrief})
		},
	}
}

func runCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the whole pipeline once, from fetch to publish",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(cmd, pipelineJobs(date)...)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "brief date, YYYY-MM-DD")
	return cmd
}

// pipelineJobs lists one job per kind in dependency order. Scoring follows
// classification, scarcity of potential reads the topic tags.
func pipelineJobs(date string) []*panoptic.JobMessage {
	return []*panoptic.JobMessage{
		{Kind: model.JobKindFetchAll},
		{Kind: model.JobKindClassifyAll},
		{Kind: model.JobKindScoreAll},
		{Kind: model.JobKindGenerateBrief, Date: date},
		{Kind: model.JobKindPublishBrief},
	}
}

// dryRunFetch fetches the first page after the stored cursor and logs it,
// neither items nor cursor are written.
func dryRunFetch(cmd *cobra.Command, builder *collector_builder.CollectorBuilder, source *model.Source) error {
	adapter, err := builder.AdapterFor(source)
	if err != nil {
		return err
	}
	page, err := adapter.Fetch(cmd.Context(), source, source.Cursor)
	if err != nil {
		return err
	}
	counts, err := sink.NormalizeAndPush(cmd.Context(), sink.NewStdErrSink(), adapter, source, page)
	fmt.Fprintf(cmd.OutOrStdout(), "dry run of %s: %d records, %d valid, next cursor %q\n",
		source.Name, len(page.Records), counts.Fetched-counts.Failed, page.NextCursor)
	return err
}
