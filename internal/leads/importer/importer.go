// Package importer turns spreadsheet exports into reconciler calls. Rows
// are spread over a small worker pool partitioned by external id, so rows
// sharing an identity are reconciled by one worker in sheet order.
package importer

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"sync"
	"time"

	"franchise_crm_backend/internal/events"
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/reconcile"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Import sources, used as the metrics label and on ImportCompleted.
const (
	SourceUpload = "upload"
	SourceCLI    = "cli"
)

// Reconciler is the part of the reconcile service the importer drives.
type Reconciler interface {
	Reconcile(ctx context.Context, externalID string, fields reconcile.Fields, rawLabel string, signals domain.Signals) (reconcile.Result, error)
}

// RowFailure is a row that could not be reconciled. The run goes on.
type RowFailure struct {
	Line       int    `json:"line"`
	ExternalID string `json:"externalId,omitempty"`
	Error      string `json:"error"`
}

// Report summarizes a run.
type Report struct {
	ImportID  uuid.UUID     `json:"importId"`
	Source    string        `json:"source"`
	Total     int           `json:"total"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Failed    []RowFailure  `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Runner reconciles batches of records.
type Runner struct {
	reconciler Reconciler
	workers    int
	eventBus   events.Bus
	log        *logger.Logger
}

// NewRunner creates a runner with the given worker count (at least one).
func NewRunner(reconciler Reconciler, workers int, eventBus events.Bus, log *logger.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{reconciler: reconciler, workers: workers, eventBus: eventBus, log: log}
}

// ImportFile reads a spreadsheet and reconciles every data row.
func (r *Runner) ImportFile(ctx context.Context, reader io.Reader, filename, source string) (Report, error) {
	rows, err := ReadRows(reader, filename)
	if err != nil {
		return Report{}, err
	}
	mapping, err := MapHeader(rows[0])
	if err != nil {
		return Report{}, err
	}
	return r.Run(ctx, source, mapping.Records(rows[1:]))
}

type rowOutcome struct {
	result reconcile.Result
	err    error
}

// Run reconciles records. Per-row errors are collected in the report; only
// context cancellation aborts the run, leaving earlier rows committed.
func (r *Runner) Run(ctx context.Context, source string, records []Record) (Report, error) {
	start := time.Now()
	report := Report{ImportID: uuid.New(), Source: source, Total: len(records)}
	log := r.log.WithContext(ctx).With("importId", report.ImportID, "source", source)

	partitions := make([][]int, r.workers)
	for i, record := range records {
		p := partition(record.ExternalID, r.workers)
		partitions[p] = append(partitions[p], i)
	}

	outcomes := make([]rowOutcome, len(records))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, indexes := range partitions {
		g.Go(func() error {
			for _, i := range indexes {
				if err := gctx.Err(); err != nil {
					return err
				}
				record := records[i]
				result, err := r.reconciler.Reconcile(gctx, record.ExternalID, record.Fields, record.Label, record.Fields.Signals())

				mu.Lock()
				outcomes[i] = rowOutcome{result: result, err: err}
				mu.Unlock()
			}
			return nil
		})
	}
	runErr := g.Wait()

	for i, outcome := range outcomes {
		switch {
		case outcome.err != nil:
			report.Failed = append(report.Failed, RowFailure{
				Line:       records[i].Line,
				ExternalID: records[i].ExternalID,
				Error:      outcome.err.Error(),
			})
		case outcome.result.Created:
			report.Created++
		case outcome.result.Changed:
			report.Updated++
		case outcome.result.Lead.ID != uuid.Nil:
			report.Unchanged++
		}
	}
	report.Duration = time.Since(start)
	metrics.ImportDuration.WithLabelValues(source).Observe(report.Duration.Seconds())

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			log.Warn("import interrupted", "error", runErr)
		}
		return report, runErr
	}

	log.Info("import completed",
		"total", report.Total,
		"created", report.Created,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"failed", len(report.Failed),
		"durationMs", report.Duration.Milliseconds(),
	)
	if r.eventBus != nil {
		r.eventBus.Publish(ctx, events.ImportCompleted{
			BaseEvent: events.NewBaseEvent(),
			ImportID:  report.ImportID,
			Source:    source,
			Total:     report.Total,
			Created:   report.Created,
			Updated:   report.Updated,
			Unchanged: report.Unchanged,
			Failed:    len(report.Failed),
		})
	}

	return report, nil
}

func partition(externalID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(externalID))
	return int(h.Sum32() % uint32(n))
}
