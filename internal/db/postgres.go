package db

import (
  "fmt"
  "gorm.io/driver/postgres"
  "gorm.io/gorm"
  "github.com/yungbote/studypilot-backend/internal/logger"
  "github.com/yungbote/studypilot-backend/internal/types"
  "github.com/yungbote/studypilot-backend/internal/utils"
)

type PostgresService struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  log.Info("Loading environment variables...")
  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "studypilot", log)

  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

  log.Info("Connecting to Postgres...")
  gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    log.Error("Failed to connect to Postgres", "error", err)
    return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
  }

  return &PostgresService{db: gormDB, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating postgres tables...")
  err := s.db.AutoMigrate(
    &types.Student{},
    &types.Recommendation{},
    &types.StudyPlan{},
    &types.StudyPlanDay{},
    &types.StudyPlanItem{},
  )
  if err != nil {
    s.log.Error("Auto migration failed for postgres tables", "error", err)
    return err
  }
  s.log.Info("Configuring foreign key relationships for postgres tables...")
  constraints := []struct {
    name string
    stmt string
  }{
    {
      name: "fk_recommendation_student_id",
      stmt: `ALTER TABLE "recommendation" ADD CONSTRAINT "fk_recommendation_student_id" FOREIGN KEY ("student_id") REFERENCES "student"("id") ON DELETE CASCADE`,
    },
    {
      name: "fk_study_plan_student_id",
      stmt: `ALTER TABLE "study_plan" ADD CONSTRAINT "fk_study_plan_student_id" FOREIGN KEY ("student_id") REFERENCES "student"("id") ON DELETE CASCADE`,
    },
    {
      name: "fk_study_plan_day_plan_id",
      stmt: `ALTER TABLE "study_plan_day" ADD CONSTRAINT "fk_study_plan_day_plan_id" FOREIGN KEY ("plan_id") REFERENCES "study_plan"("id") ON DELETE CASCADE`,
    },
    {
      name: "fk_study_plan_item_day_id",
      stmt: `ALTER TABLE "study_plan_item" ADD CONSTRAINT "fk_study_plan_item_day_id" FOREIGN KEY ("day_id") REFERENCES "study_plan_day"("id") ON DELETE CASCADE`,
    },
  }
  for _, c := range constraints {
    if err := s.db.Exec(fmt.Sprintf(`
      DO $$ BEGIN
        IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
          %s;
        END IF;
      END $$;
    `, c.name, c.stmt)).Error; err != nil {
      return fmt.Errorf("Failed to add %s: %w", c.name, err)
    }
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
