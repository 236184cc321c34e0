package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/studypilot-backend/internal/logger"
  "github.com/yungbote/studypilot-backend/internal/types"
)

type StudyPlanRepo interface {
  CreatePlan(ctx context.Context, tx *gorm.DB, plan *types.StudyPlan) error
  SavePlan(ctx context.Context, tx *gorm.DB, plan *types.StudyPlan) error
  GetPlanByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyPlan, error)
  GetPlansByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.StudyPlan, error)
  GetActivePlanByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) (*types.StudyPlan, error)
  GetDayByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyPlanDay, error)
  SaveDay(ctx context.Context, tx *gorm.DB, day *types.StudyPlanDay) error
  GetItemByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyPlanItem, error)
  SaveItem(ctx context.Context, tx *gorm.DB, item *types.StudyPlanItem) error
  DeletePlan(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type studyPlanRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewStudyPlanRepo(db *gorm.DB, baseLog *logger.Logger) StudyPlanRepo {
  repoLog := baseLog.With("repo", "StudyPlanRepo")
  return &studyPlanRepo{db: db, log: repoLog}
}

func (r *studyPlanRepo) CreatePlan(ctx context.Context, tx *gorm.DB, plan *types.StudyPlan) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if plan == nil {
    return nil
  }

  // Create persists the whole plan graph (days and items) in one pass.
  if err := transaction.WithContext(ctx).Create(plan).Error; err != nil {
    return err
  }
  return nil
}

func (r *studyPlanRepo) SavePlan(ctx context.Context, tx *gorm.DB, plan *types.StudyPlan) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if plan == nil {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Omit("Days").
    Save(plan).Error; err != nil {
    return err
  }
  return nil
}

func withPlanTree(q *gorm.DB) *gorm.DB {
  return q.
    Preload("Days", func(db *gorm.DB) *gorm.DB {
      return db.Order("day_number ASC")
    }).
    Preload("Days.Items", func(db *gorm.DB) *gorm.DB {
      return db.Order("item_order ASC")
    })
}

func (r *studyPlanRepo) GetPlanByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyPlan, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var result types.StudyPlan
  if err := withPlanTree(transaction.WithContext(ctx)).
    Where("id = ?", id).
    First(&result).Error; err != nil {
    return nil, err
  }
  return &result, nil
}

func (r *studyPlanRepo) GetPlansByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.StudyPlan, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.StudyPlan
  if studentID == uuid.Nil {
    return results, nil
  }

  if err := withPlanTree(transaction.WithContext(ctx)).
    Where("student_id = ?", studentID).
    Order("created_at DESC").
    Order("id ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studyPlanRepo) GetActivePlanByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) (*types.StudyPlan, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var result types.StudyPlan
  if err := withPlanTree(transaction.WithContext(ctx)).
    Where("student_id = ? AND status = ?", studentID, types.StudyPlanStatusActive).
    Order("created_at DESC").
    First(&result).Error; err != nil {
    return nil, err
  }
  return &result, nil
}

func (r *studyPlanRepo) GetDayByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyPlanDay, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var result types.StudyPlanDay
  if err := transaction.WithContext(ctx).
    Preload("Items", func(db *gorm.DB) *gorm.DB {
      return db.Order("item_order ASC")
    }).
    Where("id = ?", id).
    First(&result).Error; err != nil {
    return nil, err
  }
  return &result, nil
}

func (r *studyPlanRepo) SaveDay(ctx context.Context, tx *gorm.DB, day *types.StudyPlanDay) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if day == nil {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Omit("Items").
    Save(day).Error; err != nil {
    return err
  }
  return nil
}

func (r *studyPlanRepo) GetItemByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyPlanItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var result types.StudyPlanItem
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&result).Error; err != nil {
    return nil, err
  }
  return &result, nil
}

func (r *studyPlanRepo) SaveItem(ctx context.Context, tx *gorm.DB, item *types.StudyPlanItem) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if item == nil {
    return nil
  }

  if err := transaction.WithContext(ctx).Save(item).Error; err != nil {
    return err
  }
  return nil
}

func (r *studyPlanRepo) DeletePlan(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    var dayIDs []uuid.UUID
    if err := txx.Model(&types.StudyPlanDay{}).
      Where("plan_id = ?", id).
      Pluck("id", &dayIDs).Error; err != nil {
      return err
    }
    if len(dayIDs) > 0 {
      if err := txx.Where("day_id IN ?", dayIDs).Delete(&types.StudyPlanItem{}).Error; err != nil {
        return err
      }
    }
    if err := txx.Where("plan_id = ?", id).Delete(&types.StudyPlanDay{}).Error; err != nil {
      return err
    }
    if err := txx.Where("id = ?", id).Delete(&types.StudyPlan{}).Error; err != nil {
      return err
    }
    return nil
  })
}
