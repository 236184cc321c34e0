package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/studypilot-backend/internal/logger"
  "github.com/yungbote/studypilot-backend/internal/types"
)

type StudentRepo interface {
  Create(ctx context.Context, tx *gorm.DB, rows []*types.Student) ([]*types.Student, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Student, error)
}

type studentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
  repoLog := baseLog.With("repo", "StudentRepo")
  return &studentRepo{db: db, log: repoLog}
}

func (r *studentRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Student) ([]*types.Student, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(rows) == 0 {
    return []*types.Student{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
    return nil, err
  }
  return rows, nil
}

func (r *studentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Student, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var result types.Student
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&result).Error; err != nil {
    return nil, err
  }
  return &result, nil
}
