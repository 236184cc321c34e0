package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/studypilot-backend/internal/logger"
  "github.com/yungbote/studypilot-backend/internal/types"
)

type RecommendationRepo interface {
  Create(ctx context.Context, tx *gorm.DB, rows []*types.Recommendation) ([]*types.Recommendation, error)
  Save(ctx context.Context, tx *gorm.DB, row *types.Recommendation) error
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Recommendation, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Recommendation, error)
  GetActiveByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.Recommendation, error)
  GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.Recommendation, error)
}

type recommendationRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewRecommendationRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationRepo {
  repoLog := baseLog.With("repo", "RecommendationRepo")
  return &recommendationRepo{db: db, log: repoLog}
}

func (r *recommendationRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Recommendation) ([]*types.Recommendation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(rows) == 0 {
    return []*types.Recommendation{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
    return nil, err
  }
  return rows, nil
}

func (r *recommendationRepo) Save(ctx context.Context, tx *gorm.DB, row *types.Recommendation) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if row == nil {
    return nil
  }

  if err := transaction.WithContext(ctx).Save(row).Error; err != nil {
    return err
  }
  return nil
}

func (r *recommendationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Recommendation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var result types.Recommendation
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&result).Error; err != nil {
    return nil, err
  }
  return &result, nil
}

func (r *recommendationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Recommendation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Recommendation
  if len(ids) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *recommendationRepo) GetActiveByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.Recommendation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Recommendation
  if studentID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("student_id = ? AND is_active = ?", studentID, true).
    Order("priority ASC").
    Order("impact_score DESC").
    Order("id ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *recommendationRepo) GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.Recommendation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Recommendation
  if studentID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("student_id = ?", studentID).
    Order("generated_at DESC").
    Order("id ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
