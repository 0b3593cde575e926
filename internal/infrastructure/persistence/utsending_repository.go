package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/iverksettelse"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// UtsendingRow is the storage layout of one queued dispatch
type UtsendingRow struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	BehandlingID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	EksternRef    string    `gorm:"not null"`
	Payload       []byte    `gorm:"type:jsonb;not null"`
	Status        string    `gorm:"not null;index"`
	FeilAntall    int       `gorm:"not null;default:0"`
	SisteFeilAt   *time.Time
	SisteFeil     string
	SisteKategori string
	KvitteringID  string
	SentAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for GORM
func (UtsendingRow) TableName() string {
	return "utsendinger"
}

// GormUtsendingRepository implements iverksettelse.UtsendingRepository
type GormUtsendingRepository struct {
	db *gorm.DB
}

// NewGormUtsendingRepository creates a new GormUtsendingRepository
func NewGormUtsendingRepository(db *gorm.DB) *GormUtsendingRepository {
	return &GormUtsendingRepository{db: db}
}

// Save implements iverksettelse.UtsendingRepository. The unique index on
// behandling_id keeps finalization idempotent: a second queue attempt for the
// same case is rejected instead of producing a duplicate send.
func (r *GormUtsendingRepository) Save(ctx context.Context, u *iverksettelse.Utsending) error {
	if err := r.db.WithContext(ctx).Create(toUtsendingRow(u)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError("ALREADY_EXISTS",
				"dispatch already queued for behandling "+u.BehandlingID.String())
		}
		return err
	}
	return nil
}

// SaveTx queues a dispatch inside an existing transaction, for callers that
// append the finalize event and the queue entry atomically.
func (r *GormUtsendingRepository) SaveTx(tx *gorm.DB, u *iverksettelse.Utsending) error {
	if err := tx.Create(toUtsendingRow(u)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError("ALREADY_EXISTS",
				"dispatch already queued for behandling "+u.BehandlingID.String())
		}
		return err
	}
	return nil
}

// Update implements iverksettelse.UtsendingRepository
func (r *GormUtsendingRepository) Update(ctx context.Context, u *iverksettelse.Utsending) error {
	result := r.db.WithContext(ctx).Model(&UtsendingRow{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"status":         string(u.Status),
			"feil_antall":    u.FeilTeller.Count,
			"siste_feil_at":  nullableTime(u.FeilTeller.LastFailureAt),
			"siste_feil":     u.SisteFeil,
			"siste_kategori": string(u.SisteKategori),
			"kvittering_id":  u.KvitteringID,
			"sent_at":        u.SentAt,
			"updated_at":     u.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID implements iverksettelse.UtsendingRepository
func (r *GormUtsendingRepository) FindByID(ctx context.Context, id uuid.UUID) (*iverksettelse.Utsending, error) {
	var row UtsendingRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return toUtsending(&row), nil
}

// FindByBehandling implements iverksettelse.UtsendingRepository
func (r *GormUtsendingRepository) FindByBehandling(ctx context.Context, behandlingID uuid.UUID) (*iverksettelse.Utsending, error) {
	var row UtsendingRow
	if err := r.db.WithContext(ctx).Where("behandling_id = ?", behandlingID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return toUtsending(&row), nil
}

// FindPending implements iverksettelse.UtsendingRepository
func (r *GormUtsendingRepository) FindPending(ctx context.Context, limit int) ([]*iverksettelse.Utsending, error) {
	return r.findByStatus(ctx, iverksettelse.UtsendingStatusPending, limit)
}

// FindDead implements iverksettelse.UtsendingRepository
func (r *GormUtsendingRepository) FindDead(ctx context.Context, limit int) ([]*iverksettelse.Utsending, error) {
	return r.findByStatus(ctx, iverksettelse.UtsendingStatusDead, limit)
}

func (r *GormUtsendingRepository) findByStatus(ctx context.Context, status iverksettelse.UtsendingStatus, limit int) ([]*iverksettelse.Utsending, error) {
	var rows []UtsendingRow
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*iverksettelse.Utsending, 0, len(rows))
	for i := range rows {
		out = append(out, toUtsending(&rows[i]))
	}
	return out, nil
}

func toUtsendingRow(u *iverksettelse.Utsending) *UtsendingRow {
	return &UtsendingRow{
		ID:            u.ID,
		BehandlingID:  u.BehandlingID,
		EksternRef:    u.EksternRef,
		Payload:       u.Payload,
		Status:        string(u.Status),
		FeilAntall:    u.FeilTeller.Count,
		SisteFeilAt:   nullableTime(u.FeilTeller.LastFailureAt),
		SisteFeil:     u.SisteFeil,
		SisteKategori: string(u.SisteKategori),
		KvitteringID:  u.KvitteringID,
		SentAt:        u.SentAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toUtsending(row *UtsendingRow) *iverksettelse.Utsending {
	u := &iverksettelse.Utsending{
		ID:            row.ID,
		BehandlingID:  row.BehandlingID,
		EksternRef:    row.EksternRef,
		Payload:       row.Payload,
		Status:        iverksettelse.UtsendingStatus(row.Status),
		SisteFeil:     row.SisteFeil,
		SisteKategori: iverksettelse.Feilkategori(row.SisteKategori),
		KvitteringID:  row.KvitteringID,
		SentAt:        row.SentAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	u.FeilTeller.Count = row.FeilAntall
	if row.SisteFeilAt != nil {
		u.FeilTeller.LastFailureAt = *row.SisteFeilAt
	}
	return u
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
