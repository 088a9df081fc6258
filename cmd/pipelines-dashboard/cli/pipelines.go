package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/davarch/pipelines-dashboard/internal/application"
	"github.com/davarch/pipelines-dashboard/internal/domain"
	"github.com/dustin/go-humanize"
	do "github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var (
	pipelinesFilter domain.PipelineFilter
	pipelinesJSON   bool
)

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "Run one aggregation pass and print pipelines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, inj, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		st, err := do.MustInvoke[domain.SettingsStore](inj).Load(cmd.Context())
		if err != nil {
			return err
		}
		agg := do.MustInvoke[*application.Aggregator](inj)

		sp := newSpinner("fetching pipelines")
		sp.Start()
		batch, err := agg.ListPipelines(cmd.Context(), st)
		sp.Stop()
		if err != nil {
			return err
		}

		items := pipelinesFilter.Apply(batch.Items)
		printFailures(os.Stderr, batch.Failures)

		if pipelinesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		renderPipelines(os.Stdout, items, time.Now())
		return nil
	},
}

func init() {
	f := pipelinesCmd.Flags()
	f.StringVar(&pipelinesFilter.Status, "status", domain.FilterAll, "success|failed|running|pending|other|all")
	f.StringVar(&pipelinesFilter.RepositoryID, "repo", domain.FilterAll, "numeric repository id or all")
	f.StringVar(&pipelinesFilter.Branch, "branch", "", "case-insensitive branch substring")
	f.IntVar(&pipelinesFilter.Limit, "limit", 20, "maximum rows, 0 for no limit")
	f.BoolVar(&pipelinesJSON, "json", false, "print JSON")

	_ = pipelinesCmd.RegisterFlagCompletionFunc("status", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{
			domain.FilterAll,
			string(domain.StatusSuccess),
			string(domain.StatusFailed),
			string(domain.StatusRunning),
			string(domain.StatusPending),
			string(domain.StatusOther),
		}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(pipelinesCmd)
}

func renderPipelines(out io.Writer, ps []domain.Pipeline, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STATUS\tPIPELINE\tREPOSITORY\tREF\tCREATED\tURL")
	for _, p := range ps {
		created := "-"
		if !p.CreatedAt.IsZero() {
			created = humanize.RelTime(p.CreatedAt, now, "ago", "from now")
		}
		repo := p.Repository.PathWithNamespace
		if repo == "" {
			repo = p.Repository.Name
		}
		_, _ = fmt.Fprintf(w, "%s %s\t#%d\t%s\t%s\t%s\t%s\n",
			p.Status.Glyph(), p.Status, p.ID, repo, p.Ref, created, p.WebURL)
	}
	_ = w.Flush()
}

func printFailures(out io.Writer, fs []domain.FetchFailure) {
	for _, f := range fs {
		_, _ = fmt.Fprintf(out, "skipped %s (%s): %s\n", f.Repository, f.Stage, f.Error)
	}
}
