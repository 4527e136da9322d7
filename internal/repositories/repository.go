package repositories

import "context"

// Repository aggregates all entity repositories behind one interface
type Repository interface {
	Exam() ExamRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
	User() UserRepository

	// WithTransaction executes fn against a repository bound to a single
	// database transaction. The transaction commits when fn returns nil
	// and rolls back otherwise.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager manages the repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
