package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/config"
	"github.com/projektkevin/smart-attendance/internal/models"
	"github.com/projektkevin/smart-attendance/internal/storage"
	"github.com/projektkevin/smart-attendance/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("db",
		newMigrate(),
		newSeed(),
	)
}

func newMigrate() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Applies the database schema",
		Run: func(_ *cobra.Command, _ []string) {
			withDB(func(ctx context.Context, db *sql.DB) error {
				return storage.Migrate(ctx, db)
			})
		},
	}
}

func newSeed() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Inserts a demo course, students and an auto-managed session",
		Run: func(_ *cobra.Command, _ []string) {
			withDB(seedDemo)
		},
	}
}

func withDB(fn func(ctx context.Context, db *sql.DB) error) {
	cfg := config.DefaultServiceConfigFromEnv()

	db, err := api.NewDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := fn(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Database command failed")
	}
}

func seedDemo(ctx context.Context, db *sql.DB) error {
	statements := []struct {
		query string
		args  []interface{}
	}{
		{`INSERT INTO courses (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			[]interface{}{"course-demo", "Demo Course"}},
		{`INSERT INTO students (id, name) VALUES ($1, $2), ($3, $4), ($5, $6) ON CONFLICT DO NOTHING`,
			[]interface{}{"student-1", "Ada Lovelace", "student-2", "Alan Turing", "student-3", "Grace Hopper"}},
		{`INSERT INTO enrollments (course_id, student_id) VALUES ($1, $2), ($1, $3), ($1, $4) ON CONFLICT DO NOTHING`,
			[]interface{}{"course-demo", "student-1", "student-2", "student-3"}},
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return err
		}
	}

	now := time.Now()
	store := storage.NewPostgres(db)
	err := store.CreateSession(ctx, &models.Session{
		ID:                   "session-demo",
		CourseID:             "course-demo",
		StartsAt:             now.Add(5 * time.Minute),
		EndsAt:               now.Add(65 * time.Minute),
		Location:             "Room 101",
		LateThresholdMinutes: 15,
		Status:               models.SessionStatusPending,
		AutoStart:            true,
		AutoStop:             true,
	})
	if err != nil {
		return err
	}

	log.Info().Msg("Demo fixture seeded")
	return nil
}
