package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/hendelse"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"github.com/tilbakekreving/backend/internal/infrastructure/event"
	"gorm.io/gorm"
)

// HendelseRow is the storage layout of one event. The unique index on
// (stream_id, versjon) is what makes the optimistic-concurrency guarantee
// hold even under concurrent writers from different processes.
type HendelseRow struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SakID             uuid.UUID  `gorm:"type:uuid;not null;index"`
	StreamID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_hendelser_stream_versjon"`
	Versjon           int64      `gorm:"not null;uniqueIndex:idx_hendelser_stream_versjon"`
	Type              string     `gorm:"not null"`
	Payload           []byte     `gorm:"type:jsonb;not null"`
	ForrigeHendelseID *uuid.UUID `gorm:"type:uuid"`
	Ident             string     `gorm:"not null"`
	CorrelationID     uuid.UUID  `gorm:"type:uuid;not null"`
	Roller            string
	OpprettetAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (HendelseRow) TableName() string {
	return "hendelser"
}

// GormHendelseLogg implements hendelse.Logg on a relational store
type GormHendelseLogg struct {
	db         *gorm.DB
	serializer *event.Serializer
}

// NewGormHendelseLogg creates a new GormHendelseLogg
func NewGormHendelseLogg(db *gorm.DB, serializer *event.Serializer) *GormHendelseLogg {
	return &GormHendelseLogg{db: db, serializer: serializer}
}

// Append implements hendelse.Logg. The version expectation is checked inside
// the insert transaction, and the unique (stream_id, versjon) index backs the
// check up against writers this process never saw.
func (l *GormHendelseLogg) Append(ctx context.Context, h hendelse.Hendelse, expectedVersion int64) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.appendTx(tx, h, expectedVersion)
	})
}

// appendTx appends one event inside an existing transaction
func (l *GormHendelseLogg) appendTx(tx *gorm.DB, h hendelse.Hendelse, expectedVersion int64) error {
	if h.Versjon != expectedVersion+1 {
		return shared.ErrStaleVersion
	}

	payload, err := l.serializer.Serialize(h.Innhold)
	if err != nil {
		return fmt.Errorf("failed to serialize %s event: %w", h.Type(), err)
	}

	row := &HendelseRow{
		ID:                h.ID,
		SakID:             h.SakID,
		StreamID:          h.StreamID,
		Versjon:           h.Versjon,
		Type:              h.Type(),
		Payload:           payload,
		ForrigeHendelseID: h.ForrigeHendelseID,
		Ident:             h.Meta.Ident,
		CorrelationID:     h.Meta.CorrelationID,
		Roller:            strings.Join(h.Meta.Roles, ","),
		OpprettetAt:       h.OpprettetAt,
	}

	var current int64
	if err := tx.Model(&HendelseRow{}).
		Where("stream_id = ?", h.StreamID).
		Select("COALESCE(MAX(versjon), 0)").
		Scan(&current).Error; err != nil {
		return err
	}
	if current != expectedVersion {
		return shared.ErrStaleVersion
	}

	if err := tx.Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent writer after our version read.
			return shared.ErrStaleVersion
		}
		return err
	}
	return nil
}

// ReadStream implements hendelse.Logg
func (l *GormHendelseLogg) ReadStream(ctx context.Context, streamID uuid.UUID) ([]hendelse.Hendelse, error) {
	var rows []HendelseRow
	if err := l.db.WithContext(ctx).
		Where("stream_id = ?", streamID).
		Order("versjon ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return l.toHendelser(rows)
}

// ReadSak implements hendelse.Logg
func (l *GormHendelseLogg) ReadSak(ctx context.Context, sakID uuid.UUID) ([]hendelse.Hendelse, error) {
	var rows []HendelseRow
	if err := l.db.WithContext(ctx).
		Where("sak_id = ?", sakID).
		Order("stream_id ASC, versjon ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return l.toHendelser(rows)
}

func (l *GormHendelseLogg) toHendelser(rows []HendelseRow) ([]hendelse.Hendelse, error) {
	out := make([]hendelse.Hendelse, 0, len(rows))
	for _, row := range rows {
		innhold, err := l.serializer.Deserialize(row.Type, row.Payload)
		if err != nil {
			return nil, fmt.Errorf("stream %s version %d: %w", row.StreamID, row.Versjon, err)
		}
		var roles []string
		if row.Roller != "" {
			roles = strings.Split(row.Roller, ",")
		}
		out = append(out, hendelse.Hendelse{
			ID:                row.ID,
			SakID:             row.SakID,
			StreamID:          row.StreamID,
			Versjon:           row.Versjon,
			OpprettetAt:       row.OpprettetAt,
			ForrigeHendelseID: row.ForrigeHendelseID,
			Meta: shared.Metadata{
				Ident:         row.Ident,
				CorrelationID: row.CorrelationID,
				Roles:         roles,
			},
			Innhold: innhold,
		})
	}
	return out, nil
}
