package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
)

// mockRepository is an in-memory Repository used by the service tests.
// WithTransaction runs the callback against the same store, so everything
// written inside the callback stays visible to assertions.
type mockRepository struct {
	mu sync.Mutex

	users     map[string]*models.User
	exams     map[uuid.UUID]*models.Exam
	questions map[uuid.UUID]*models.Question
	attempts  map[uuid.UUID]*models.ExamAttempt
	answers   map[uuid.UUID]*models.Answer

	createBatchCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:     make(map[string]*models.User),
		exams:     make(map[uuid.UUID]*models.Exam),
		questions: make(map[uuid.UUID]*models.Question),
		attempts:  make(map[uuid.UUID]*models.ExamAttempt),
		answers:   make(map[uuid.UUID]*models.Answer),
	}
}

func (m *mockRepository) Exam() repositories.ExamRepository         { return (*mockExamRepo)(m) }
func (m *mockRepository) Question() repositories.QuestionRepository { return (*mockQuestionRepo)(m) }
func (m *mockRepository) Attempt() repositories.AttemptRepository   { return (*mockAttemptRepo)(m) }
func (m *mockRepository) Answer() repositories.AnswerRepository     { return (*mockAnswerRepo)(m) }
func (m *mockRepository) User() repositories.UserRepository         { return (*mockUserRepo)(m) }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

func (m *mockRepository) addUser(user *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return user
}

func (m *mockRepository) addExam(exam *models.Exam) *models.Exam {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exam.ID == uuid.Nil {
		exam.ID = uuid.New()
	}
	m.exams[exam.ID] = exam
	return exam
}

func (m *mockRepository) addQuestion(question *models.Question) *models.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}
	if question.MaxScore <= 0 {
		question.MaxScore = 1
	}
	m.questions[question.ID] = question
	return question
}

// ===== users =====

type mockUserRepo mockRepository

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*models.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

// ===== exams =====

type mockExamRepo mockRepository

func (m *mockExamRepo) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exam.ID == uuid.Nil {
		exam.ID = uuid.New()
	}
	exam.CreatedAt = time.Now()
	m.exams[exam.ID] = exam
	return nil
}

func (m *mockExamRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return exam, nil
}

func (m *mockExamRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	(*mockRepository)(m).attachQuestions(exam)
	return exam, nil
}

func (m *mockExamRepo) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[exam.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.exams[exam.ID] = exam
	return nil
}

func (m *mockExamRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.exams, id)
	return nil
}

func (m *mockExamRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exams []*models.Exam
	for _, exam := range m.exams {
		if filters.IsPublished != nil && exam.IsPublished != *filters.IsPublished {
			continue
		}
		if filters.CreatedBy != nil && exam.CreatedBy != *filters.CreatedBy {
			continue
		}
		exams = append(exams, exam)
	}
	return exams, int64(len(exams)), nil
}

func (m *mockExamRepo) SetQuestions(ctx context.Context, tx *gorm.DB, examID uuid.UUID, questions []models.ExamQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[examID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range questions {
		if questions[i].ID == uuid.Nil {
			questions[i].ID = uuid.New()
		}
		questions[i].ExamID = examID
		if questions[i].Position == 0 {
			questions[i].Position = i + 1
		}
	}
	exam.Questions = questions
	return nil
}

// ===== questions =====

type mockQuestionRepo mockRepository

func (m *mockQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	(*mockRepository)(m).addQuestion(question)
	return nil
}

func (m *mockQuestionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	m.mu.Lock()
	m.createBatchCalls++
	m.mu.Unlock()
	for _, question := range questions {
		(*mockRepository)(m).addQuestion(question)
	}
	return nil
}

func (m *mockQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	question, ok := m.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (m *mockQuestionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var questions []*models.Question
	for _, id := range ids {
		if question, ok := m.questions[id]; ok {
			questions = append(questions, question)
		}
	}
	return questions, nil
}

func (m *mockQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.questions[question.ID] = question
	return nil
}

func (m *mockQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.questions, id)
	return nil
}

func (m *mockQuestionRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var questions []*models.Question
	for _, question := range m.questions {
		if filters.Type != nil && question.Type != *filters.Type {
			continue
		}
		if filters.Complexity != nil && question.Complexity != *filters.Complexity {
			continue
		}
		questions = append(questions, question)
	}
	return questions, int64(len(questions)), nil
}

// ===== attempts =====

type mockAttemptRepo mockRepository

func (m *mockAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	attempt.CreatedAt = time.Now()
	m.attempts[attempt.ID] = attempt
	return nil
}

func (m *mockAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return attempt, nil
}

func (m *mockAttemptRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if exam, ok := m.exams[attempt.ExamID]; ok {
		(*mockRepository)(m).attachQuestions(exam)
		attempt.Exam = exam
	}
	attempt.Answers = nil
	for _, answer := range m.answers {
		if answer.AttemptID == attempt.ID {
			attempt.Answers = append(attempt.Answers, *answer)
		}
	}
	return attempt, nil
}

func (m *mockAttemptRepo) Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.attempts[attempt.ID] = attempt
	return nil
}

// UpdateAutoSave and Finalize mirror the conditional UPDATE of the real
// store: they only match attempts still in progress.
func (m *mockAttemptRepo) UpdateAutoSave(ctx context.Context, tx *gorm.DB, id uuid.UUID, answers datatypes.JSON) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return repositories.ErrAttemptNotInProgress
	}
	attempt.AutoSavedAnswers = answers
	return nil
}

func (m *mockAttemptRepo) Finalize(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.AttemptStatus, endTime time.Time, totalScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return repositories.ErrAttemptNotInProgress
	}
	attempt.Status = status
	attempt.EndTime = &endTime
	attempt.TotalScore = totalScore
	return nil
}

func (m *mockAttemptRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.AttemptStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	attempt.Status = status
	return nil
}

func (m *mockAttemptRepo) UpdateTotalScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, totalScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	attempt.TotalScore = totalScore
	return nil
}

func (m *mockAttemptRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var attempts []*models.ExamAttempt
	for _, attempt := range m.attempts {
		if filters.StudentID != nil && attempt.StudentID != *filters.StudentID {
			continue
		}
		if filters.ExamID != nil && attempt.ExamID != *filters.ExamID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		attempts = append(attempts, attempt)
	}
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].CreatedAt.Before(attempts[j].CreatedAt)
	})
	return attempts, int64(len(attempts)), nil
}

func (m *mockAttemptRepo) GetActiveAttempt(ctx context.Context, tx *gorm.DB, examID uuid.UUID, studentID string) (*models.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, attempt := range m.attempts {
		if attempt.ExamID == examID && attempt.StudentID == studentID && attempt.Status == models.AttemptStatusInProgress {
			return attempt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ===== answers =====

type mockAnswerRepo mockRepository

// CreateBatch enforces the (attempt, question) unique index of the
// answers table.
func (m *mockAnswerRepo) CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, answer := range answers {
		for _, existing := range m.answers {
			if existing.AttemptID == answer.AttemptID && existing.QuestionID == answer.QuestionID {
				return gorm.ErrDuplicatedKey
			}
		}
		if answer.ID == uuid.Nil {
			answer.ID = uuid.New()
		}
		answer.CreatedAt = time.Now()
		m.answers[answer.ID] = answer
	}
	return nil
}

func (m *mockAnswerRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	answer, ok := m.answers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return answer, nil
}

func (m *mockAnswerRepo) GetByIDWithQuestion(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	answer, ok := m.answers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if question, ok := m.questions[answer.QuestionID]; ok {
		answer.Question = question
	}
	return answer, nil
}

func (m *mockAnswerRepo) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*models.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var answers []*models.Answer
	for _, answer := range m.answers {
		if answer.AttemptID == attemptID {
			answers = append(answers, answer)
		}
	}
	return answers, nil
}

func (m *mockAnswerRepo) Update(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.answers[answer.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.answers[answer.ID] = answer
	return nil
}

// staleReadRepository simulates a lagging attempt read, as a cached row
// can be: every attempt load reports in_progress even after the store
// moved on. Writes still go to the real store, so tests can drive the
// submit/auto-save races the conditional updates have to win.
type staleReadRepository struct {
	repositories.Repository
}

func (r *staleReadRepository) Attempt() repositories.AttemptRepository {
	return &staleAttemptReads{r.Repository.Attempt()}
}

func (r *staleReadRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.Repository.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return fn(&staleReadRepository{txRepo})
	})
}

type staleAttemptReads struct {
	repositories.AttemptRepository
}

func (r *staleAttemptReads) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error) {
	attempt, err := r.AttemptRepository.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	stale := *attempt
	stale.Status = models.AttemptStatusInProgress
	stale.EndTime = nil
	return &stale, nil
}

func (r *staleAttemptReads) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error) {
	attempt, err := r.AttemptRepository.GetByIDWithDetails(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	stale := *attempt
	stale.Status = models.AttemptStatusInProgress
	stale.EndTime = nil
	return &stale, nil
}

// attachQuestions fills the exam's question records from the question
// store and sorts them by position. Callers must hold mu.
func (m *mockRepository) attachQuestions(exam *models.Exam) {
	for i := range exam.Questions {
		if question, ok := m.questions[exam.Questions[i].QuestionID]; ok {
			exam.Questions[i].Question = question
		}
	}
	sort.Slice(exam.Questions, func(i, j int) bool {
		return exam.Questions[i].Position < exam.Questions[j].Position
	})
}
