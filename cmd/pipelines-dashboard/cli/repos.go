package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/davarch/pipelines-dashboard/internal/application"
	"github.com/davarch/pipelines-dashboard/internal/domain"
	do "github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var reposJSON bool

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage monitored repositories",
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "Resolve and list configured repositories",
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

		sp := newSpinner("resolving repositories")
		sp.Start()
		batch, err := agg.ListRepositories(cmd.Context(), st)
		sp.Stop()
		if err != nil {
			return err
		}

		printFailures(os.Stderr, batch.Failures)

		if reposJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(batch.Items)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tPATH\tNAME\tURL")
		for _, r := range batch.Items {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.PathWithNamespace, r.Name, r.WebURL)
		}
		_ = w.Flush()
		return nil
	},
}

var reposAddCmd = &cobra.Command{
	Use:   "add <id|namespace/name>",
	Short: "Add a repository identifier to the settings",
	Args:  cobra.MatchAll(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editRepositories(cmd, args[0], addRepository, "added")
	},
}

var reposRemoveCmd = &cobra.Command{
	Use:   "remove <id|namespace/name>",
	Short: "Remove a repository identifier from the settings",
	Args:  cobra.MatchAll(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editRepositories(cmd, args[0], removeRepository, "removed")
	},
}

func init() {
	reposListCmd.Flags().BoolVar(&reposJSON, "json", false, "print JSON")

	reposRemoveCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		_, _, inj, err := bootstrap()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		st, err := do.MustInvoke[domain.SettingsStore](inj).Load(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		var out []string
		for _, id := range domain.ParseRepositoryIDs(st.GitLab.Repositories) {
			if strings.HasPrefix(id, toComplete) {
				out = append(out, id)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}

	reposCmd.AddCommand(reposListCmd, reposAddCmd, reposRemoveCmd)
	rootCmd.AddCommand(reposCmd)
}

func editRepositories(cmd *cobra.Command, id string, edit func(string, string) (string, bool), verb string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty repository identifier", domain.ErrInvalidInput)
	}

	_, log, inj, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store := do.MustInvoke[domain.SettingsStore](inj)
	st, err := store.Load(cmd.Context())
	if err != nil {
		return err
	}

	next, changed := edit(st.GitLab.Repositories, id)
	if !changed {
		fmt.Printf("no change (repository %q)\n", id)
		return nil
	}

	st.GitLab.Repositories = next
	if err := store.Save(cmd.Context(), st); err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", verb, id)
	return nil
}

func addRepository(list, id string) (string, bool) {
	ids := domain.ParseRepositoryIDs(list)
	for _, existing := range ids {
		if existing == id {
			return list, false
		}
	}
	return domain.JoinRepositoryIDs(append(ids, id)), true
}

func removeRepository(list, id string) (string, bool) {
	ids := domain.ParseRepositoryIDs(list)
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	if len(out) == len(ids) {
		return list, false
	}
	return domain.JoinRepositoryIDs(out), true
}
