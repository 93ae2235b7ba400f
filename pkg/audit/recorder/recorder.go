// Package recorder enqueues audit records for asynchronous persistence so
// request handlers never block on the audit backend.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clearpath-hq/sentinel/pkg/audit"
)

// Config configures the recorder.
type Config struct {
	// Enabled gates all recording. Default true.
	Enabled bool

	// Buffer is the async channel capacity. Default 1000.
	Buffer int

	// WriteTimeout bounds one storage write. Default 5 seconds.
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes audit records through a buffered channel drained by a
// background worker. When the buffer is full the record is dropped with a
// log line; auditing must never stall the request path.
type Recorder struct {
	storage audit.Storage
	config  *Config
	ch      chan *audit.Record
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(storage audit.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	r := &Recorder{
		storage: storage,
		config:  config,
		ch:      make(chan *audit.Record, config.Buffer),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "audit.recorder"),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// Record assigns the record an ID and timestamp and enqueues it. Returns
// immediately; a full buffer drops the record.
func (r *Recorder) Record(record *audit.Record) {
	if !r.config.Enabled {
		return
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}

	select {
	case r.ch <- record:
	default:
		r.logger.Error("audit buffer full, dropping record",
			"record_id", record.ID, "kind", record.Kind, "firm", record.FirmName)
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for {
		select {
		case record := <-r.ch:
			r.write(record)
		case <-r.done:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case record := <-r.ch:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()
	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to persist audit record",
			"record_id", record.ID, "error", err)
		return
	}
	r.logger.Debug("audit record persisted", "record_id", record.ID, "kind", record.Kind)
}

// Close stops the worker after draining queued records.
func (r *Recorder) Close() {
	close(r.done)
	r.wg.Wait()
}
