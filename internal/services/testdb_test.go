package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/studypilot-backend/internal/config"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/repos"
	"github.com/yungbote/studypilot-backend/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&types.Student{},
		&types.Recommendation{},
		&types.StudyPlan{},
		&types.StudyPlanDay{},
		&types.StudyPlanItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return log
}

func seedStudent(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	student := &types.Student{
		ID:        uuid.New(),
		Name:      "Test Student",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(student).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return student.ID
}

func seedRecommendation(t *testing.T, db *gorm.DB, studentID uuid.UUID, subject, topic string, priority int, impact float64) *types.Recommendation {
	t.Helper()
	now := time.Now().UTC()
	rec := &types.Recommendation{
		ID:              uuid.New(),
		StudentID:       studentID,
		Priority:        priority,
		SubjectName:     subject,
		Topic:           topic,
		IssueType:       types.IssueTypeWeakSubject,
		Description:     subject + " / " + topic + " needs work",
		ImpactScore:     impact,
		Status:          types.RecommendationStatusActive,
		IsActive:        true,
		GeneratedAt:     now,
		LastConfirmedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("seed recommendation: %v", err)
	}
	return rec
}

func newRecommendationServiceForTest(t *testing.T, db *gorm.DB, cfg *config.Config) RecommendationService {
	t.Helper()
	log := testLogger(t)
	return NewRecommendationService(
		db,
		log,
		cfg,
		repos.NewRecommendationRepo(db, log),
		repos.NewStudentRepo(db, log),
		NewStudentLocker(),
	)
}

func newStudyPlanServiceForTest(t *testing.T, db *gorm.DB, cfg *config.Config) StudyPlanService {
	t.Helper()
	log := testLogger(t)
	return NewStudyPlanService(
		db,
		log,
		cfg,
		repos.NewStudyPlanRepo(db, log),
		repos.NewRecommendationRepo(db, log),
		NewDeterministicAllocator(),
		NewStudentLocker(),
	)
}

func newProgressServiceForTest(t *testing.T, db *gorm.DB, cfg *config.Config) ProgressService {
	t.Helper()
	log := testLogger(t)
	return NewProgressService(
		db,
		log,
		cfg,
		repos.NewStudyPlanRepo(db, log),
		NewStudentLocker(),
	)
}
