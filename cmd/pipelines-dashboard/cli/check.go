package cli

import (
	"errors"
	"fmt"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	do "github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the GitLab connection from the current settings",
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
		if st.GitLab.URL == "" || st.GitLab.Token == "" {
			return errors.New("gitlab url and token must be set")
		}

		ok, err := do.MustInvoke[domain.GitlabClient](inj).TestConnection(cmd.Context(), st.GitLab.URL, st.GitLab.Token)
		if err != nil {
			return fmt.Errorf("connection to %s failed: %w", st.GitLab.URL, err)
		}
		if !ok {
			return fmt.Errorf("connection to %s failed: no version reported", st.GitLab.URL)
		}

		fmt.Printf("ok: %s\n", st.GitLab.URL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
