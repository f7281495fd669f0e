package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"ci-deployer/src/apperr"
	"ci-deployer/src/broker"
	"ci-deployer/src/contracts"
	"ci-deployer/src/pipeline"
	"ci-deployer/src/tui"
)

var (
	historyHost  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history [DEPLOYMENT-ID]",
	Short: "List past deployments, or the steps of one",
	Long: heredoc.Doc(`
		List recent deployments, newest first. With a deployment ID, print
		that deployment's recorded transitions instead.

		History is kept in Postgres; without POSTGRES_DSN only deployments
		made by this process are known, which is none.
	`),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		backends, err := pipeline.Open(ctx, pipelineConfig(), log)
		if err != nil {
			return err
		}
		defer backends.Close()
		if !backends.Persistent {
			fmt.Fprintln(cmd.ErrOrStderr(), "Note: POSTGRES_DSN is not set; deployment history is not persisted.")
		}

		if len(args) == 1 {
			events, err := backends.Store.GetEvents(ctx, args[0])
			if err != nil {
				return err
			}
			return writeEvents(cmd.OutOrStdout(), events)
		}

		deployments, err := backends.Store.ListDeployments(ctx, historyHost, historyLimit)
		if err != nil {
			return err
		}
		return tui.WriteDeployments(cmd.OutOrStdout(), format, deployments)
	},
}

var (
	eventsGroup     string
	eventsFromStart bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow deployment events from Redpanda",
	Long: heredoc.Doc(`
		Print deployment transitions published by any cideploy process as
		they happen. Needs REDPANDA_BROKERS. Stop with Ctrl-C.
	`),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(appConfig.RedpandaBrokers) == 0 {
			return fmt.Errorf("%w: REDPANDA_BROKERS is required to follow events", apperr.ErrConfiguration)
		}
		var opts []broker.RedpandaOption
		if eventsFromStart {
			opts = append(opts, broker.FromStart())
		}
		b, err := broker.NewRedpandaBroker(appConfig.RedpandaBrokers, log, opts...)
		if err != nil {
			return err
		}
		defer b.Close()

		ctx := cmd.Context()
		messages, err := b.Subscribe(ctx, contracts.DeployEventsTopic, eventsGroup)
		if err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-messages:
				if !ok {
					return nil
				}
				var ev contracts.DeploymentEvent
				if err := json.Unmarshal(msg.Value, &ev); err != nil {
					log.Error("Skipping malformed event at offset %d: %v", msg.Offset, err)
					continue
				}
				if err := writeEvents(cmd.OutOrStdout(), []contracts.DeploymentEvent{ev}); err != nil {
					return err
				}
			}
		}
	},
}

func writeEvents(w io.Writer, events []contracts.DeploymentEvent) error {
	if format != tui.FormatText {
		return tui.WriteValue(w, format, events)
	}
	for _, ev := range events {
		if _, err := fmt.Fprintln(w, formatEvent(ev)); err != nil {
			return err
		}
	}
	return nil
}

func formatEvent(ev contracts.DeploymentEvent) string {
	line := fmt.Sprintf("%s %s %s %s -> %s",
		ev.Timestamp.Local().Format(time.DateTime),
		shortID(ev.DeploymentID),
		tui.PadRight(ev.Step, 8),
		ev.From, ev.To)
	if ev.Resource != "" {
		line += " (" + ev.Resource + ")"
	}
	if ev.Failed() {
		line += " FAILED: " + ev.Error
	}
	return line
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.Flags().StringVarP(&historyHost, "host", "H", "", "only deployments to this host (user@host as recorded)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of deployments to list; 0 for all")
	eventsCmd.Flags().StringVar(&eventsGroup, "group", "cideploy-events", "consumer group")
	eventsCmd.Flags().BoolVar(&eventsFromStart, "from-start", false, "replay events published before the group first joined")

	rootCmd.AddCommand(historyCmd, eventsCmd)
}
