package cli

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/inapp/internal/events"
	"github.com/tOgg1/inapp/internal/models"
	"github.com/tOgg1/inapp/internal/poller"
)

// eventWriter writes events as JSON lines. Publishing may happen on the
// poller goroutine, so writes are serialized.
type eventWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

func newEventWriter(out io.Writer) *eventWriter {
	return &eventWriter{enc: json.NewEncoder(out)}
}

func (w *eventWriter) write(event *models.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	w.err = w.enc.Encode(event)
}

func (w *eventWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		types    []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync on an interval and stream analytics events as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.hasFetcher {
				return Exitf(ExitUsage, "no message source: set --payload, --endpoint or fetch.payload_path")
			}

			filter := events.Filter{}
			for _, t := range types {
				filter.EventTypes = append(filter.EventTypes, models.EventType(t))
			}
			writer := newEventWriter(cmd.OutOrStdout())
			if err := a.publisher.Subscribe("watch", filter, writer.write); err != nil {
				return err
			}
			defer a.publisher.Unsubscribe("watch")

			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.Sync.Interval
			}
			p := poller.New(poller.Config{Interval: interval, SyncOnStart: true}, a.manager,
				poller.WithPruner(a.prune))
			if err := p.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			if err := p.Stop(); err != nil {
				return err
			}
			return writer.Err()
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "sync interval (default sync.interval)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "only stream these event types")
	return cmd
}
