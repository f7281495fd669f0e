package main

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"ci-deployer/src/deploy"
	"ci-deployer/src/jenkins"
	"ci-deployer/src/tui"
)

var showJobFlags jobFlags

var showJobCmd = &cobra.Command{
	Use:         "show-job JOB",
	Short:       "Show a job's metadata",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsJenkins: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := showJobFlags.descriptor(args)
		if err != nil {
			return err
		}
		resolver, _ := newResolver()
		job, err := resolver.LoadJob(cmd.Context(), d)
		if err != nil {
			return err
		}
		return tui.WriteFields(cmd.OutOrStdout(), format, job.Summary())
	},
}

var showBuildFlags jobFlags

var showLastSuccessfulBuildCmd = &cobra.Command{
	Use:         "show-last-successful-build JOB",
	Short:       "Show the last successful build of a job",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsJenkins: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := showBuildFlags.descriptor(args)
		if err != nil {
			return err
		}
		resolver, _ := newResolver()
		_, build, err := resolver.LastSuccessfulBuild(cmd.Context(), d)
		if err != nil {
			return err
		}
		return tui.WriteFields(cmd.OutOrStdout(), format, build.Summary())
	},
}

var (
	linkJobFlags      jobFlags
	linkArtifactFlags artifactFlags
)

var showDownloadLinkCmd = &cobra.Command{
	Use:   "show-download-link JOB",
	Short: "Print the download URL of the matching artifact",
	Long: heredoc.Doc(`
		Print the download URL of the first artifact of the last successful
		build that matches --pattern. Patterns are tried in order and the
		first one with a match wins.
	`),
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsJenkins: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := resolveArtifact(cmd, &linkJobFlags, &linkArtifactFlags, args)
		if err != nil {
			return err
		}
		if format == tui.FormatText {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resolved.DownloadURL)
			return err
		}
		return tui.WriteValue(cmd.OutOrStdout(), format, downloadLink(resolved))
	},
}

var (
	downloadJobFlags      jobFlags
	downloadArtifactFlags artifactFlags
)

var downloadFromJenkinsCmd = &cobra.Command{
	Use:   "download-from-jenkins JOB",
	Short: "Download the matching artifact",
	Long: heredoc.Doc(`
		Download the matching artifact of the last successful build.
		--local-path may name a file or an existing directory; by default the
		artifact goes to the system temporary directory.
	`),
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsJenkins: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := resolveArtifact(cmd, &downloadJobFlags, &downloadArtifactFlags, args)
		if err != nil {
			return err
		}
		_, client := newResolver()
		o := deploy.NewOrchestrator(nil, client, deploy.DefaultSettings(), log)
		written, err := o.Fetch(cmd.Context(), resolved.DownloadURL, downloadArtifactFlags.localPath)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), written)
		return err
	},
}

type linkView struct {
	Job          string `json:"job" yaml:"job"`
	Build        int    `json:"build" yaml:"build"`
	RelativePath string `json:"relativePath" yaml:"relativePath"`
	DownloadURL  string `json:"downloadUrl" yaml:"downloadUrl"`
}

func downloadLink(r *jenkins.ResolvedArtifact) linkView {
	return linkView{
		Job:          r.Build.Descriptor.JobPath,
		Build:        r.Build.Descriptor.Number,
		RelativePath: r.Artifact.RelativePath,
		DownloadURL:  r.DownloadURL,
	}
}

func resolveArtifact(cmd *cobra.Command, jf *jobFlags, af *artifactFlags, args []string) (*jenkins.ResolvedArtifact, error) {
	d, err := jf.descriptor(args)
	if err != nil {
		return nil, err
	}
	patterns, err := jenkins.CompilePatterns(af.patterns)
	if err != nil {
		return nil, err
	}
	resolver, _ := newResolver()
	return resolver.ResolveArtifact(cmd.Context(), d, patterns)
}

func init() {
	showJobFlags.register(showJobCmd.Flags())
	showBuildFlags.register(showLastSuccessfulBuildCmd.Flags())

	linkJobFlags.register(showDownloadLinkCmd.Flags())
	linkArtifactFlags.register(showDownloadLinkCmd.Flags(), "unused; accepted for symmetry with download-from-jenkins")
	_ = showDownloadLinkCmd.Flags().MarkHidden("local-path")

	downloadJobFlags.register(downloadFromJenkinsCmd.Flags())
	downloadArtifactFlags.register(downloadFromJenkinsCmd.Flags(), "destination file or directory")

	rootCmd.AddCommand(showJobCmd, showLastSuccessfulBuildCmd, showDownloadLinkCmd, downloadFromJenkinsCmd)
}
