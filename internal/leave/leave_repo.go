package leave

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Decision is the set of columns written when a leave is approved or rejected.
type Decision struct {
	Status         string
	ApproverID     uuid.UUID
	ApproverRemark string
	DecidedAt      time.Time
}

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, l *Leave) error
	FindByID(ctx context.Context, id string) (*Leave, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Leave, error)
	// FindAll returns leaves newest first. An empty userID returns every leave.
	FindAll(ctx context.Context, userID string) ([]Leave, error)
	UpdateDecision(ctx context.Context, id string, d Decision) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, l *Leave) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Leave, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var l Leave
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Approver").
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByIDForUpdate locks the leave row until the surrounding transaction ends.
func (r *repository) FindByIDForUpdate(ctx context.Context, id string) (*Leave, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var l Leave
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) FindAll(ctx context.Context, userID string) ([]Leave, error) {
	db := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Approver").
		Order("created_at DESC")

	if userID != "" {
		if _, err := uuid.Parse(userID); err != nil {
			return []Leave{}, nil
		}
		db = db.Scopes(ownedBy(userID))
	}

	var leaves []Leave
	err := db.Find(&leaves).Error
	return leaves, err
}

func ownedBy(userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

func (r *repository) UpdateDecision(ctx context.Context, id string, d Decision) error {
	return r.db.WithContext(ctx).
		Model(&Leave{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          d.Status,
			"approver_id":     d.ApproverID,
			"approver_remark": d.ApproverRemark,
			"decided_at":      d.DecidedAt,
		}).Error
}
