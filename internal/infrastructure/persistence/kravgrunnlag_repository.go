package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/kravgrunnlag"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// MottakRow is the storage layout of one received claim document
type MottakRow struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EksternID   string     `gorm:"not null;uniqueIndex"`
	Payload     []byte     `gorm:"type:jsonb;not null"`
	MottattAt   time.Time  `gorm:"not null"`
	KonsumertAv *uuid.UUID `gorm:"type:uuid;index"`
	KonsumertAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (MottakRow) TableName() string {
	return "kravgrunnlag_mottak"
}

// GormMottakRepository implements kravgrunnlag.MottakRepository
type GormMottakRepository struct {
	db *gorm.DB
}

// NewGormMottakRepository creates a new GormMottakRepository
func NewGormMottakRepository(db *gorm.DB) *GormMottakRepository {
	return &GormMottakRepository{db: db}
}

// Save implements kravgrunnlag.MottakRepository
func (r *GormMottakRepository) Save(ctx context.Context, m *kravgrunnlag.MottattKravgrunnlag) error {
	row := toMottakRow(m)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError("ALREADY_EXISTS",
				"kravgrunnlag with ekstern_id "+m.EksternID+" already received")
		}
		return err
	}
	return nil
}

// FindByID implements kravgrunnlag.MottakRepository
func (r *GormMottakRepository) FindByID(ctx context.Context, id uuid.UUID) (*kravgrunnlag.MottattKravgrunnlag, error) {
	var row MottakRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return toMottak(&row), nil
}

// FindByEksternID implements kravgrunnlag.MottakRepository
func (r *GormMottakRepository) FindByEksternID(ctx context.Context, eksternID string) (*kravgrunnlag.MottattKravgrunnlag, error) {
	var row MottakRow
	if err := r.db.WithContext(ctx).Where("ekstern_id = ?", eksternID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return toMottak(&row), nil
}

// FindSisteUkonsumerte implements kravgrunnlag.MottakRepository
func (r *GormMottakRepository) FindSisteUkonsumerte(ctx context.Context) (*kravgrunnlag.MottattKravgrunnlag, error) {
	var row MottakRow
	if err := r.db.WithContext(ctx).
		Where("konsumert_av IS NULL").
		Order("mottatt_at DESC").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return toMottak(&row), nil
}

// MarkKonsumert implements kravgrunnlag.MottakRepository. The guard on
// konsumert_av IS NULL makes consumption first-wins under concurrency.
func (r *GormMottakRepository) MarkKonsumert(ctx context.Context, id uuid.UUID, behandlingID uuid.UUID) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&MottakRow{}).
		Where("id = ? AND konsumert_av IS NULL", id).
		Updates(map[string]interface{}{
			"konsumert_av": behandlingID,
			"konsumert_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&MottakRow{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrKravgrunnlagInUse
	}
	return nil
}

func toMottakRow(m *kravgrunnlag.MottattKravgrunnlag) *MottakRow {
	return &MottakRow{
		ID:          m.ID,
		EksternID:   m.EksternID,
		Payload:     m.Payload,
		MottattAt:   m.MottattAt,
		KonsumertAv: m.KonsumertAv,
		KonsumertAt: m.KonsumertAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toMottak(row *MottakRow) *kravgrunnlag.MottattKravgrunnlag {
	return &kravgrunnlag.MottattKravgrunnlag{
		ID:          row.ID,
		EksternID:   row.EksternID,
		Payload:     row.Payload,
		MottattAt:   row.MottattAt,
		KonsumertAv: row.KonsumertAv,
		KonsumertAt: row.KonsumertAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
