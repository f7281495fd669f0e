package main

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"ci-deployer/src/rpmrepo"
)

var (
	repoSSH      sshFlags
	repoLocalDir string
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Synchronise the RPM repository with a local mirror",
	Long: heredoc.Doc(`
		Pull the published RPM repository into a local directory, or push
		the local directory back. Both directions delete files missing on
		the source side.

		The ssh user and identity default to RPM_REPO_SSH_USER and
		RPM_REPO_SSH_IDENTITY_FILE.
	`),
}

var repoPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Mirror the remote repository locally",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := newRepo()
		if err != nil {
			return err
		}
		return repo.Pull(cmd.Context())
	},
}

var repoPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Publish the local mirror to the remote repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := newRepo()
		if err != nil {
			return err
		}
		return repo.Push(cmd.Context())
	},
}

func newRepo() (*rpmrepo.Repo, error) {
	if repoSSH.user == "" {
		repoSSH.user = appConfig.RepoSSHUser
	}
	if repoSSH.identityFile == "" {
		repoSSH.identityFile = appConfig.RepoIdentityFile
	}
	host, err := repoSSH.newHost()
	if err != nil {
		return nil, err
	}
	return rpmrepo.New(host, repoLocalDir, log), nil
}

func init() {
	repoSSH.register(repoCmd.PersistentFlags(), rpmrepo.DefaultHost)
	repoCmd.PersistentFlags().StringVar(&repoLocalDir, "local-dir", rpmrepo.DefaultLocalDir(), "local mirror directory")

	repoCmd.AddCommand(repoPullCmd, repoPushCmd)
	rootCmd.AddCommand(repoCmd)
}
