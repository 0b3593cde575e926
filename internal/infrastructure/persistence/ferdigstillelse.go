package persistence

import (
	"context"

	"github.com/tilbakekreving/backend/internal/domain/hendelse"
	"github.com/tilbakekreving/backend/internal/domain/iverksettelse"
	"gorm.io/gorm"
)

// TransaksjonellFerdigstillelse appends an approval event and queues the
// resulting dispatch in a single database transaction. A crash between the two
// writes would otherwise finalize a case that is never dispatched, or dispatch
// a case that was never finalized.
type TransaksjonellFerdigstillelse struct {
	db          *gorm.DB
	logg        *GormHendelseLogg
	utsendinger *GormUtsendingRepository
}

// NewTransaksjonellFerdigstillelse creates the atomic finalize helper
func NewTransaksjonellFerdigstillelse(db *gorm.DB, logg *GormHendelseLogg, utsendinger *GormUtsendingRepository) *TransaksjonellFerdigstillelse {
	return &TransaksjonellFerdigstillelse{db: db, logg: logg, utsendinger: utsendinger}
}

// FerdigstillOgKø appends the event at the expected version and queues the
// dispatch. A nil utsending finalizes without queueing, for cases with nothing
// to recover.
func (f *TransaksjonellFerdigstillelse) FerdigstillOgKø(ctx context.Context, h hendelse.Hendelse, expectedVersion int64, utsending *iverksettelse.Utsending) error {
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := f.logg.appendTx(tx, h, expectedVersion); err != nil {
			return err
		}
		if utsending == nil {
			return nil
		}
		return f.utsendinger.SaveTx(tx, utsending)
	})
}
