package main

import (
	"context"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ci-deployer/src/deploy"
	"ci-deployer/src/logger"
	"ci-deployer/src/pipeline"
	"ci-deployer/src/tui"
)

var (
	scpSSH      sshFlags
	scpDestPath string
	scpRemove   bool
	scpOwner    string
)

var scpToServerCmd = &cobra.Command{
	Use:   "scp-to-server FILE",
	Short: "Copy a local file to a host",
	Long: heredoc.Doc(`
		Copy FILE to --dest-path on the host. The upload goes through a
		temporary file and is moved into place with sudo, so the ssh user
		needs passwordless sudo on the host.
	`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := scpSSH.newHost()
		if err != nil {
			return err
		}
		o := deploy.NewOrchestrator(host, nil, deploy.DefaultSettings(), log)
		return o.CopyToServer(cmd.Context(), args[0], scpDestPath, scpRemove, scpOwner)
	},
}

var (
	localWarSSH      sshFlags
	localWarSettings = newSettingsFlags()
	localWarTUI      bool
)

var deployLocalWarCmd = &cobra.Command{
	Use:   "deploy-local-war FILE",
	Short: "Deploy a local artifact to a host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := localWarSSH.newHost()
		if err != nil {
			return err
		}
		settings, err := localWarSettings.settings()
		if err != nil {
			return err
		}
		req := deploy.Request{LocalPath: args[0]}
		return runDeployment(cmd.Context(), cmd.OutOrStdout(), host, nil, settings, req, localWarTUI)
	},
}

var (
	deployJobFlags      jobFlags
	deployArtifactFlags artifactFlags
	deploySSH           sshFlags
	deploySettings      = newSettingsFlags()
	deployTUI           bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy JOB",
	Short: "Deploy the last successful build of a job to a host",
	Long: heredoc.Doc(`
		Resolve the artifact of the job's last successful build, download it,
		upload it to the host, stop the service, repoint the live symlink at
		the new artifact and start the service again.

		The first failing step aborts the deployment. Steps already done are
		not undone: a failure after the stop leaves the service stopped.
	`),
	Example: heredoc.Doc(`
		$ cideploy deploy -F github-zanata-org -b master zanata-platform -H app.example.org -u deployer
		$ cideploy deploy zanata-platform -H app.example.org -l /tmp/zanata.war --tui
	`),
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsJenkins: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := deploySSH.newHost()
		if err != nil {
			return err
		}
		settings, err := deploySettings.settings()
		if err != nil {
			return err
		}

		// An explicit local artifact skips Jenkins entirely.
		if deployArtifactFlags.localPath != "" {
			req := deploy.Request{LocalPath: deployArtifactFlags.localPath}
			return runDeployment(cmd.Context(), cmd.OutOrStdout(), host, nil, settings, req, deployTUI)
		}

		resolved, err := resolveArtifact(cmd, &deployJobFlags, &deployArtifactFlags, args)
		if err != nil {
			return err
		}
		_, client := newResolver()
		req := deploy.Request{
			DownloadURL: resolved.DownloadURL,
			JobPath:     resolved.Build.Descriptor.JobPath,
			BuildNumber: resolved.Build.Descriptor.Number,
		}
		return runDeployment(cmd.Context(), cmd.OutOrStdout(), host, client, settings, req, deployTUI)
	},
}

// runDeployment deploys req with the journal, metrics and, optionally, the
// progress view attached.
func runDeployment(ctx context.Context, out io.Writer, target deploy.Target, downloader deploy.Downloader, settings deploy.Settings, req deploy.Request, withTUI bool) error {
	backends, err := pipeline.Open(ctx, pipelineConfig(), log)
	if err != nil {
		return err
	}
	defer backends.Close()
	observers := backends.Observers()

	if !withTUI {
		o := deploy.NewOrchestrator(target, downloader, settings, log, observers...)
		result, err := o.Deploy(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deployment %s to %s: %s\n", result.ID, target, result.State)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.NewDeployModel(fmt.Sprintf("Deploying to %s", target), cancel), tea.WithOutput(out))
	observers = append(observers, tui.NewProgramObserver(p))

	// Log lines would tear the progress view.
	o := deploy.NewOrchestrator(target, downloader, settings, logger.NewSilentLogger(), observers...)

	var deployErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, deployErr = o.Deploy(ctx, req)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("progress view: %w", err)
	}
	<-done
	return deployErr
}

func init() {
	scpSSH.register(scpToServerCmd.Flags(), "")
	scpToServerCmd.Flags().StringVar(&scpDestPath, "dest-path", deploy.DefaultSettings().LivePath, "destination path on the host")
	scpToServerCmd.Flags().BoolVar(&scpRemove, "rm-old", false, "remove the destination file before uploading")
	scpToServerCmd.Flags().StringVar(&scpOwner, "chown", "", "user[:group] to give the uploaded file")

	localWarSSH.register(deployLocalWarCmd.Flags(), "")
	localWarSettings.register(deployLocalWarCmd.Flags())
	deployLocalWarCmd.Flags().BoolVar(&localWarTUI, "tui", false, "show a progress view")

	deployJobFlags.register(deployCmd.Flags())
	deployArtifactFlags.register(deployCmd.Flags(), "deploy this local artifact instead of downloading one")
	deploySSH.register(deployCmd.Flags(), "")
	deploySettings.register(deployCmd.Flags())
	deployCmd.Flags().BoolVar(&deployTUI, "tui", false, "show a progress view")

	rootCmd.AddCommand(scpToServerCmd, deployLocalWarCmd, deployCmd)
}
