// Package main provides the cideploy CLI: Jenkins artifact lookup and
// deployment of the resolved artifact to an application host.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"ci-deployer/src/apperr"
	"ci-deployer/src/config"
	"ci-deployer/src/jenkins"
	"ci-deployer/src/logger"
	"ci-deployer/src/pipeline"
	"ci-deployer/src/sanitize"
	"ci-deployer/src/tui"
)

var version = "dev"

// Commands carrying this annotation need the Jenkins connection settings.
const needsJenkins = "jenkins"

var (
	appConfig  *config.Config
	log        logger.Logger = logger.NewSilentLogger()
	configFile string
	verbosity  = logger.NewLevelValue()
	outputFlag string
	format     tui.Format
)

var rootCmd = &cobra.Command{
	Use:   "cideploy",
	Short: "Resolve Jenkins build artifacts and deploy them",
	Long: heredoc.Doc(`
		cideploy looks up the last successful build of a Jenkins job, picks
		the artifact matching a set of patterns and deploys it to an
		application host over ssh.

		Jenkins commands need JENKINS_URL, ZANATA_JENKINS_USER and
		ZANATA_JENKINS_TOKEN. Set POSTGRES_DSN to keep deployment history,
		REDPANDA_BROKERS to publish deployment events and PUSHGATEWAY_URL to
		push deployment metrics.
	`),
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.NewStderrLogger(verbosity.Level())

		var err error
		if format, err = tui.ParseFormat(outputFlag); err != nil {
			return err
		}
		if appConfig, err = config.Load(configFile); err != nil {
			return err
		}
		if cmd.Annotations[needsJenkins] != "" {
			return appConfig.RequireJenkins()
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML config file; environment variables take precedence")
	flags.VarP(verbosity, "verbose", "v", "log level: DEBUG, INFO, WARNING, ERROR, CRITICAL or NONE")
	flags.StringVarP(&outputFlag, "output", "o", string(tui.FormatText), "output format: text, json or yaml")
}

func newResolver() (*jenkins.Resolver, *jenkins.Client) {
	client := jenkins.NewClient(appConfig.JenkinsURL, appConfig.JenkinsUser, appConfig.JenkinsToken)
	return jenkins.NewResolver(client.BaseURL(), client, log), client
}

func pipelineConfig() *pipeline.Config {
	return &pipeline.Config{
		RedpandaBrokers: appConfig.RedpandaBrokers,
		PostgresDSN:     appConfig.PostgresDSN,
		PushgatewayURL:  appConfig.PushgatewayURL,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var secrets []string
		if appConfig != nil {
			secrets = append(secrets, appConfig.JenkinsToken)
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", sanitize.Error(apperr.WrapError(err), secrets...))
		os.Exit(1)
	}
}
