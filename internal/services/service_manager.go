package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Al-amen/exam-system/internal/events"
	"github.com/Al-amen/exam-system/internal/repositories"
	"github.com/Al-amen/exam-system/internal/validator"
)

// ServiceManagerConfig holds everything the services depend on
type ServiceManagerConfig struct {
	Repository repositories.Repository
	Logger     *slog.Logger
	Validator  *validator.Validator
	Publisher  events.Publisher
}

type serviceManager struct {
	mu          sync.RWMutex
	initialized bool

	config ServiceManagerConfig

	attempt  AttemptService
	grading  GradingService
	importer ImportService
	exam     ExamService
	question QuestionService
}

// NewServiceManager creates a service manager from an explicit config
func NewServiceManager(config ServiceManagerConfig) (ServiceManager, error) {
	if config.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if config.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if config.Publisher == nil {
		config.Publisher = events.NewMockPublisher()
	}

	return &serviceManager{config: config}, nil
}

// NewDefaultServiceManager creates a service manager with the common wiring
func NewDefaultServiceManager(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, publisher events.Publisher) (ServiceManager, error) {
	return NewServiceManager(ServiceManagerConfig{
		Repository: repo,
		Logger:     logger,
		Validator:  v,
		Publisher:  publisher,
	})
}

// Initialize builds all services and verifies the repository is reachable
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if err := sm.config.Repository.Ping(ctx); err != nil {
		return fmt.Errorf("repository not reachable: %w", err)
	}

	sm.grading = NewGradingService(sm.config.Repository, sm.config.Logger, sm.config.Validator, sm.config.Publisher)
	sm.attempt = NewAttemptService(sm.config.Repository, sm.config.Logger, sm.config.Validator, sm.grading, sm.config.Publisher)
	sm.importer = NewImportService(sm.config.Repository, sm.config.Logger)
	sm.exam = NewExamService(sm.config.Repository, sm.config.Logger, sm.config.Validator)
	sm.question = NewQuestionService(sm.config.Repository, sm.config.Logger, sm.config.Validator)

	sm.initialized = true
	sm.config.Logger.Info("service manager initialized")

	return nil
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attempt
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.grading
}

func (sm *serviceManager) Import() ImportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.importer
}

func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.exam
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.question
}

// HealthCheck verifies the dependencies behind the services
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	return sm.config.Repository.Ping(ctx)
}

// Shutdown releases service resources. The repository and publisher are
// owned by the caller and closed there.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return nil
	}

	sm.initialized = false
	sm.config.Logger.Info("service manager shut down")

	return nil
}
