package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/types"
	"github.com/okrboard/okrboard-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "okrboard", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Tenant{},
		&types.Objective{},
		&types.KeyResult{},
		&types.Checkin{},
		&types.AlignmentEdge{},
		&types.Membership{},
		&types.KrInsight{},
		&types.ObjectiveInsight{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		name string
		ddl  string
	}{
		{
			name: "fk_key_result_objective_id",
			ddl: `ALTER TABLE "key_result"
				ADD CONSTRAINT "fk_key_result_objective_id"
				FOREIGN KEY ("objective_id") REFERENCES "objective"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_kr_checkin_key_result_id",
			ddl: `ALTER TABLE "kr_checkin"
				ADD CONSTRAINT "fk_kr_checkin_key_result_id"
				FOREIGN KEY ("key_result_id") REFERENCES "key_result"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_kr_insight_key_result_id",
			ddl: `ALTER TABLE "kr_insight"
				ADD CONSTRAINT "fk_kr_insight_key_result_id"
				FOREIGN KEY ("key_result_id") REFERENCES "key_result"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_objective_insight_objective_id",
			ddl: `ALTER TABLE "objective_insight"
				ADD CONSTRAINT "fk_objective_insight_objective_id"
				FOREIGN KEY ("objective_id") REFERENCES "objective"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_objective_member_objective_id",
			ddl: `ALTER TABLE "objective_member"
				ADD CONSTRAINT "fk_objective_member_objective_id"
				FOREIGN KEY ("objective_id") REFERENCES "objective"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_objective_alignment_parent_id",
			ddl: `ALTER TABLE "objective_alignment"
				ADD CONSTRAINT "fk_objective_alignment_parent_id"
				FOREIGN KEY ("parent_objective_id") REFERENCES "objective"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_objective_alignment_child_id",
			ddl: `ALTER TABLE "objective_alignment"
				ADD CONSTRAINT "fk_objective_alignment_child_id"
				FOREIGN KEY ("child_objective_id") REFERENCES "objective"("id")
				ON DELETE CASCADE`,
		},
	}
	for _, c := range constraints {
		ddl := fmt.Sprintf(`DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
				%s;
			END IF;
		END $$;`, c.name, c.ddl)
		if err := s.db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
