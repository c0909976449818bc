// Package pipeline sequences one encounter: capture, transcription,
// persistence and hand-off of the chart for display.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jshclinic/aichart/internal/chart"
	"github.com/jshclinic/aichart/internal/journal"
	"go.uber.org/zap"
)

var (
	ErrBusy         = errors.New("a transcription is already in progress")
	ErrNoArtifact   = errors.New("no recording captured")
	ErrInvalidState = errors.New("operation not allowed in current state")
)

type Transcriber interface {
	Transcribe(ctx context.Context, artifact chart.AudioArtifact, tmpl chart.Template, credentials string) (string, error)
}

type RecordStore interface {
	Append(rec chart.Record) error
}

type Journal interface {
	Write(e journal.Entry) error
}

type Options struct {
	Transcriber Transcriber
	Store       RecordStore
	// Journal is optional.
	Journal     Journal
	Credentials string
	// Service names the transcription backend in journal entries.
	Service string
	Now     func() time.Time
	Logger  *zap.Logger
}

// Snapshot is a copy of the orchestrator state for presentation.
type Snapshot struct {
	State       State
	EncounterID string
	Template    chart.Template
	Chart       string
	Record      chart.Record
	// Err is the transcription failure while Failed.
	Err error
	// PersistErr is set while Completed when the chart could not be saved.
	PersistErr error
}

func (s Snapshot) HasArtifact() bool {
	return s.State == Captured || s.State == Failed
}

// Orchestrator owns the transient state of one encounter. All methods are safe
// for concurrent use; at most one transcription runs at a time.
type Orchestrator struct {
	mu sync.Mutex

	state       State
	encounterID string
	artifact    chart.AudioArtifact
	template    chart.Template
	result      string
	record      chart.Record
	err         error
	persistErr  error

	transcriber Transcriber
	store       RecordStore
	journal     Journal
	credentials string
	service     string
	now         func() time.Time
	logger      *zap.Logger
}

func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		state:       Idle,
		transcriber: opts.Transcriber,
		store:       opts.Store,
		journal:     opts.Journal,
		credentials: opts.Credentials,
		service:     opts.Service,
		now:         now,
		logger:      logger,
	}
}

// Capture holds a freshly recorded artifact, replacing any untranscribed one.
// A captured artifact after a failure is used for the retry.
func (o *Orchestrator) Capture(artifact chart.AudioArtifact) error {
	if artifact.IsZero() {
		return chart.ErrEmptyArtifact
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case Transcribing:
		return ErrBusy
	case Completed:
		return fmt.Errorf("%w: reset before capturing a new encounter", ErrInvalidState)
	case Idle:
		o.encounterID = uuid.NewString()
	case Captured:
		o.logger.Debug("discarding untranscribed recording", zap.String("encounter", o.encounterID))
	}

	o.artifact = artifact
	o.err = nil
	o.state = Captured
	o.logger.Info("recording captured", zap.String("encounter", o.encounterID), zap.Int("bytes", artifact.Len()))
	return nil
}

// Submit transcribes the held artifact with tmpl. A transcription failure
// moves to Failed and is returned. On success the chart is appended to the
// store and the state is Completed; a persistence failure is recorded in the
// snapshot but does not fail Submit.
func (o *Orchestrator) Submit(ctx context.Context, tmpl chart.Template) (Snapshot, error) {
	o.mu.Lock()
	switch o.state {
	case Transcribing:
		o.mu.Unlock()
		return o.Snapshot(), ErrBusy
	case Idle:
		o.mu.Unlock()
		return o.Snapshot(), ErrNoArtifact
	case Completed:
		o.mu.Unlock()
		return o.Snapshot(), fmt.Errorf("%w: chart already generated, reset to start a new encounter", ErrInvalidState)
	}

	artifact := o.artifact
	encounterID := o.encounterID
	o.template = tmpl
	o.err = nil
	o.state = Transcribing
	o.mu.Unlock()

	text, err := o.transcribe(ctx, artifact, tmpl)

	o.mu.Lock()
	if err != nil {
		o.state = Failed
		o.err = err
		o.mu.Unlock()

		o.logger.Warn("encounter failed", zap.String("encounter", encounterID), zap.Stringer("kind", chart.KindOf(err)), zap.Error(err))
		o.writeJournal(journal.Entry{
			EncounterID:     encounterID,
			Event:           journal.EventFailed,
			Service:         o.service,
			Template:        tmpl.Name,
			TemplateVersion: tmpl.Version,
			ErrorKind:       chart.KindOf(err).String(),
		})
		return o.Snapshot(), err
	}

	rec := chart.NewRecord(o.now(), text, tmpl)
	o.state = Completed
	o.result = text
	o.record = rec
	o.artifact = chart.AudioArtifact{}
	o.persistErr = o.persist(rec)
	persisted := o.persistErr == nil
	o.mu.Unlock()

	o.logger.Info("encounter completed", zap.String("encounter", encounterID), zap.String("template", tmpl.ID()), zap.Bool("persisted", persisted))
	o.writeJournal(journal.Entry{
		EncounterID:     encounterID,
		Event:           journal.EventCompleted,
		Service:         o.service,
		Template:        tmpl.Name,
		TemplateVersion: tmpl.Version,
		Date:            rec.Date,
		Time:            rec.Time,
		Persisted:       persisted,
	})
	return o.Snapshot(), nil
}

// Reset clears the encounter and returns to Idle. It is a no-op when Idle.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == Transcribing {
		return ErrBusy
	}

	o.state = Idle
	o.encounterID = ""
	o.artifact = chart.AudioArtifact{}
	o.template = chart.Template{}
	o.result = ""
	o.record = chart.Record{}
	o.err = nil
	o.persistErr = nil
	return nil
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Snapshot{
		State:       o.state,
		EncounterID: o.encounterID,
		Template:    o.template,
		Chart:       o.result,
		Record:      o.record,
		Err:         o.err,
		PersistErr:  o.persistErr,
	}
}

func (o *Orchestrator) transcribe(ctx context.Context, artifact chart.AudioArtifact, tmpl chart.Template) (text string, err error) {
	if o.transcriber == nil {
		return "", chart.NewError(chart.KindServiceError, "transcribe", errors.New("no transcriber configured"))
	}

	defer func() {
		if r := recover(); r != nil {
			err = chart.NewError(chart.KindServiceError, "transcribe", fmt.Errorf("panic: %v", r))
		}
	}()
	return o.transcriber.Transcribe(ctx, artifact, tmpl, o.credentials)
}

func (o *Orchestrator) persist(rec chart.Record) error {
	if o.store == nil {
		return nil
	}
	if err := o.store.Append(rec); err != nil {
		o.logger.Warn("failed to persist chart; chart remains available for copy", zap.Error(err))
		if chart.KindOf(err) != chart.KindPersistence {
			err = chart.NewError(chart.KindPersistence, "append", err)
		}
		return err
	}
	return nil
}

func (o *Orchestrator) writeJournal(e journal.Entry) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Write(e); err != nil {
		o.logger.Warn("failed to write encounter journal", zap.Error(err))
	}
}
