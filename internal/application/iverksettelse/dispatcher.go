package iverksettelse

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/tilbakekreving/backend/internal/domain/iverksettelse"
	"go.uber.org/zap"
)

// DispatcherConfig holds configuration for the dispatch worker
type DispatcherConfig struct {
	BatchSize    int
	PollInterval time.Duration
	GuardTTL     time.Duration
}

// DefaultDispatcherConfig returns default configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:    50,
		PollInterval: 10 * time.Second,
		GuardTTL:     2 * time.Minute,
	}
}

// Dispatcher drains the dispatch queue in the background. Each pending entry
// is sent at most once per poll, gated by the backoff table and the dispatch
// guard; a fatal failure dead-letters the entry for a human to act on.
type Dispatcher struct {
	utsendinger iverksettelse.UtsendingRepository
	klient      iverksettelse.Klient
	vakt        iverksettelse.Sendevakt
	config      DispatcherConfig
	logger      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a new dispatch worker
func NewDispatcher(
	utsendinger iverksettelse.UtsendingRepository,
	klient iverksettelse.Klient,
	vakt iverksettelse.Sendevakt,
	config DispatcherConfig,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		utsendinger: utsendinger,
		klient:      klient,
		vakt:        vakt,
		config:      config,
		logger:      logger,
	}
}

// Start starts the background processing
func (d *Dispatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.processLoop(ctx)

	d.logger.Info("dispatch worker started",
		zap.Int("batch_size", d.config.BatchSize),
		zap.Duration("poll_interval", d.config.PollInterval),
	)

	return nil
}

// Stop gracefully stops the worker
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatch worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// processLoop is the main processing loop
func (d *Dispatcher) processLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch takes one pass over the pending queue. Exposed so tests and
// operational tooling can drive the worker without the ticker.
func (d *Dispatcher) ProcessBatch(ctx context.Context) {
	pending, err := d.utsendinger.FindPending(ctx, d.config.BatchSize)
	if err != nil {
		d.logger.Error("failed to find pending dispatches", zap.Error(err))
		return
	}

	for _, u := range pending {
		d.processEntry(ctx, u)
	}
}

// processEntry attempts a single dispatch
func (d *Dispatcher) processEntry(ctx context.Context, u *iverksettelse.Utsending) {
	if !u.Klar(time.Now()) {
		return
	}

	won, err := d.vakt.Acquire(ctx, u.ID, d.config.GuardTTL)
	if err != nil {
		d.logger.Error("failed to acquire dispatch guard",
			zap.String("utsending_id", u.ID.String()),
			zap.Error(err))
		return
	}
	if !won {
		// Another worker instance is sending this entry right now.
		return
	}
	defer func() {
		if err := d.vakt.Release(ctx, u.ID); err != nil {
			d.logger.Warn("failed to release dispatch guard",
				zap.String("utsending_id", u.ID.String()),
				zap.Error(err))
		}
	}()

	// A previous attempt may have been accepted remotely even though marking
	// the row as sent failed afterwards. A recorded acknowledgement means the
	// decision is already in; only the queue row needs repair.
	if kvitteringID, acked, err := d.vakt.Acked(ctx, u.EksternRef); err != nil {
		d.logger.Warn("failed to consult dispatch acknowledgements",
			zap.String("utsending_id", u.ID.String()),
			zap.String("ekstern_ref", u.EksternRef),
			zap.Error(err))
	} else if acked {
		u.MarkSent(&iverksettelse.Kvittering{EksternKvitteringID: kvitteringID, MottattAt: time.Now()}, time.Now())
		if err := d.utsendinger.Update(ctx, u); err != nil {
			d.logger.Error("failed to mark acknowledged dispatch as sent",
				zap.String("utsending_id", u.ID.String()),
				zap.Error(err))
			return
		}
		d.logger.Info("dispatch already acknowledged, send skipped",
			zap.String("utsending_id", u.ID.String()),
			zap.String("behandling_id", u.BehandlingID.String()),
			zap.String("ekstern_ref", u.EksternRef),
			zap.String("kvittering_id", kvitteringID))
		return
	}

	var oppdrag iverksettelse.Oppdrag
	if err := json.Unmarshal(u.Payload, &oppdrag); err != nil {
		d.fail(ctx, u, iverksettelse.NyDispatchfeil(iverksettelse.FeilSerialisering,
			"queued payload could not be deserialized", err))
		return
	}

	kvittering, err := d.klient.Send(ctx, &oppdrag)
	if err != nil {
		var feil *iverksettelse.Dispatchfeil
		if !errors.As(err, &feil) {
			feil = iverksettelse.NyDispatchfeil(iverksettelse.FeilUkjent, "unclassified send failure", err)
		}
		d.fail(ctx, u, feil)
		return
	}

	// Record the ack before touching the row, so a failed Update still leaves
	// the short-circuit in place for the next pass.
	if err := d.vakt.MarkAcked(ctx, u.EksternRef, kvittering.EksternKvitteringID); err != nil {
		d.logger.Warn("failed to record dispatch acknowledgement",
			zap.String("utsending_id", u.ID.String()),
			zap.String("ekstern_ref", u.EksternRef),
			zap.Error(err))
	}

	u.MarkSent(kvittering, time.Now())
	if err := d.utsendinger.Update(ctx, u); err != nil {
		d.logger.Error("failed to mark dispatch as sent",
			zap.String("utsending_id", u.ID.String()),
			zap.Error(err))
		return
	}

	d.logger.Info("decision dispatched",
		zap.String("utsending_id", u.ID.String()),
		zap.String("behandling_id", u.BehandlingID.String()),
		zap.String("ekstern_ref", u.EksternRef),
		zap.String("kvittering_id", kvittering.EksternKvitteringID))
}

// fail records a classified failure and persists the updated entry
func (d *Dispatcher) fail(ctx context.Context, u *iverksettelse.Utsending, feil *iverksettelse.Dispatchfeil) {
	u.MarkFailed(feil, time.Now())

	if u.ErDead() {
		d.logger.Warn("dispatch dead-lettered",
			zap.String("utsending_id", u.ID.String()),
			zap.String("behandling_id", u.BehandlingID.String()),
			zap.String("kategori", string(feil.Kategori)),
			zap.Int("feil_antall", u.FeilTeller.Count),
			zap.Error(feil))
	} else {
		d.logger.Error("dispatch failed, will retry",
			zap.String("utsending_id", u.ID.String()),
			zap.String("behandling_id", u.BehandlingID.String()),
			zap.String("kategori", string(feil.Kategori)),
			zap.Int("feil_antall", u.FeilTeller.Count),
			zap.Error(feil))
	}

	if err := d.utsendinger.Update(ctx, u); err != nil {
		d.logger.Error("failed to persist dispatch failure",
			zap.String("utsending_id", u.ID.String()),
			zap.Error(err))
	}
}
