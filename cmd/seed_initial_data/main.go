package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"proficiency-scoring/cmd/seed_initial_data/internal/seedmodels"
	"proficiency-scoring/internal/config"
	"proficiency-scoring/internal/database"
	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/logger"
	"proficiency-scoring/internal/repository"
	"proficiency-scoring/internal/service"
)

const defaultSeedFilePath = "configs/seed_data/question_bank.json"

func main() {
	seedFile := flag.String("file", defaultSeedFilePath, "path to the question bank seed file")
	reviewer := flag.String("reviewer", "", "also print a reviewer token for this reviewer ID")
	tokenTTL := flag.Duration("token-ttl", 12*time.Hour, "lifetime of the printed reviewer token")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		// If logger is not initialized yet, use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	log.Info("Loading seed data from file", zap.String("path", *seedFile))
	byteValue, err := os.ReadFile(*seedFile)
	if err != nil {
		log.Fatal("Failed to read seed file", zap.String("path", *seedFile), zap.Error(err))
	}
	var bank seedmodels.SeedBank
	if err := json.Unmarshal(byteValue, &bank); err != nil {
		log.Fatal("Failed to unmarshal seed data", zap.Error(err))
	}
	log.Info("Successfully unmarshalled seed data",
		zap.Int("questions_loaded", len(bank.Questions)),
		zap.Int("sessions_loaded", len(bank.Sessions)))

	db, err := database.NewSQLXOracleDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Oracle database", zap.Error(err))
	}
	defer db.Close()

	s := &seeder{
		tx:        repository.NewTransactionManagerAdapter(db),
		questions: repository.NewQuestionRepository(db),
		sessions:  repository.NewSessionRepository(db),
		log:       log,
	}
	stats, err := s.Seed(ctx, bank)
	if err != nil {
		log.Fatal("Seeding failed, transaction rolled back", zap.Error(err))
	}
	log.Info("Initial data seeding process completed.",
		zap.Int("questions_created", stats.QuestionsCreated),
		zap.Int("questions_skipped", stats.QuestionsSkipped),
		zap.Int("sessions_created", stats.SessionsCreated))

	if *reviewer != "" {
		authService, err := service.NewAuthService(cfg.Auth.AdminJWTSecret)
		if err != nil {
			log.Fatal("Failed to create AuthService", zap.Error(err))
		}
		token, err := authService.CreateJWT(ctx, *reviewer, *tokenTTL)
		if err != nil {
			log.Fatal("Failed to create reviewer token", zap.Error(err))
		}
		fmt.Println(token)
	}
}

type seedStats struct {
	QuestionsCreated int
	QuestionsSkipped int
	SessionsCreated  int
}

type seeder struct {
	tx        domain.TransactionManager
	questions domain.QuestionRepository
	sessions  domain.SessionRepository
	log       *zap.Logger
}

// Seed inserts every missing question and then the demo sessions in one
// transaction. Questions that already exist are left untouched.
func (s *seeder) Seed(ctx context.Context, bank seedmodels.SeedBank) (seedStats, error) {
	var stats seedStats

	questions := make([]*domain.Question, 0, len(bank.Questions))
	for _, sq := range bank.Questions {
		q, err := toQuestion(sq)
		if err != nil {
			return stats, fmt.Errorf("seed question %s: %w", sq.ID, err)
		}
		questions = append(questions, q)
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, q := range questions {
			_, err := s.questions.GetQuestionByID(ctx, q.ID)
			if err == nil {
				stats.QuestionsSkipped++
				continue
			}
			if !errors.Is(err, domain.ErrQuestionNotFound) {
				return fmt.Errorf("error checking question %s: %w", q.ID, err)
			}
			if err := s.questions.SaveQuestion(ctx, q); err != nil {
				return err
			}
			s.log.Info("Question created", zap.String("id", q.ID), zap.String("module", string(q.Module)))
			stats.QuestionsCreated++
		}

		for _, ss := range bank.Sessions {
			_, err := s.sessions.GetSession(ctx, ss.ID)
			if err == nil {
				s.log.Info("Session already exists, skipping", zap.String("id", ss.ID))
				continue
			}
			if !errors.Is(err, domain.ErrSessionNotFound) {
				return fmt.Errorf("error checking session %s: %w", ss.ID, err)
			}
			if err := s.sessions.CreateSession(ctx, &domain.Session{
				ID:          ss.ID,
				ExamineeID:  ss.ExamineeID,
				QuestionIDs: ss.QuestionIDs,
			}); err != nil {
				return err
			}
			stats.SessionsCreated++
		}
		return nil
	})
	return stats, err
}

func toQuestion(sq seedmodels.SeedQuestion) (*domain.Question, error) {
	if sq.ID == "" {
		return nil, domain.NewInvalidInputError("question id is required")
	}
	module, err := domain.ParseModule(sq.Module)
	if err != nil {
		return nil, err
	}
	key, err := domain.DecodeAnswerKey(sq.Strategy, sq.Key)
	if err != nil {
		return nil, err
	}
	if sq.Points <= 0 {
		return nil, domain.NewInvalidInputError("points must be positive")
	}
	return &domain.Question{
		ID:             sq.ID,
		Module:         module,
		Prompt:         sq.Prompt,
		Key:            key,
		Points:         sq.Points,
		SafetyCritical: sq.SafetyCritical,
	}, nil
}
