package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vibecheck-service/internal/domain"
)

// Store is an in-process implementation of the quiz and submission stores, used when no
// database is configured and in tests. Every write happens under one lock, so graph writes
// are all-or-nothing.
type Store struct {
	clock func() time.Time

	mu          sync.RWMutex
	seq         int64
	quizzes     map[string]storedQuiz
	submissions map[string]storedSubmission
	answers     map[string][]domain.Answer
	vibes       map[string]domain.VibeResult
}

type storedQuiz struct {
	quiz domain.Quiz
	seq  int64
}

type storedSubmission struct {
	sub domain.Submission
	seq int64
}

func NewStore() *Store {
	return &Store{
		clock:       time.Now,
		quizzes:     make(map[string]storedQuiz),
		submissions: make(map[string]storedSubmission),
		answers:     make(map[string][]domain.Answer),
		vibes:       make(map[string]domain.VibeResult),
	}
}

func (s *Store) CreateQuizGraph(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	quiz = cloneQuiz(quiz)
	quiz.ID = uuid.NewString()
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = s.clock().UTC()
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		q.ID = uuid.NewString()
		q.QuizID = quiz.ID
		for j := range q.Options {
			q.Options[j].ID = uuid.NewString()
			q.Options[j].QuestionID = q.ID
		}
	}

	s.mu.Lock()
	s.seq++
	s.quizzes[quiz.ID] = storedQuiz{quiz: quiz, seq: s.seq}
	s.mu.Unlock()
	return cloneQuiz(quiz), nil
}

func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(stored.quiz), nil
}

func (s *Store) ListQuizzesByOwner(_ context.Context, ownerID string) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	owned := make([]storedQuiz, 0)
	for _, stored := range s.quizzes {
		if stored.quiz.OwnerID == ownerID {
			owned = append(owned, stored)
		}
	}
	s.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool { return owned[i].seq > owned[j].seq })
	out := make([]domain.QuizSummary, 0, len(owned))
	for _, stored := range owned {
		q := stored.quiz
		out = append(out, domain.QuizSummary{
			ID:          q.ID,
			Title:       q.Title,
			Description: q.Description,
			IsPublic:    q.IsPublic,
			Kind:        q.Kind,
			CreatedAt:   q.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) UpdateQuizContent(_ context.Context, quizID string, edits []domain.QuestionEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	// work on a copy so a failed edit leaves the stored graph untouched
	quiz := cloneQuiz(stored.quiz)
	for _, edit := range edits {
		if edit.ID == "" {
			q := domain.Question{ID: uuid.NewString(), QuizID: quizID, Order: edit.Order, Text: edit.Text}
			for _, oe := range edit.Options {
				q.Options = append(q.Options, newOption(q.ID, oe))
			}
			quiz.Questions = append(quiz.Questions, q)
			continue
		}

		idx := questionIndex(quiz, edit.ID)
		if idx < 0 {
			return domain.ErrQuestionNotFound
		}
		q := &quiz.Questions[idx]
		if edit.Text != "" {
			q.Text = edit.Text
		}
		if edit.Order > 0 {
			q.Order = edit.Order
		}
		for _, oe := range edit.Options {
			if oe.ID == "" {
				q.Options = append(q.Options, newOption(q.ID, oe))
				continue
			}
			oidx := optionIndex(*q, oe.ID)
			if oidx < 0 {
				return domain.ErrOptionNotFound
			}
			opt := &q.Options[oidx]
			if oe.Text != "" {
				opt.Text = oe.Text
			}
			if oe.Order > 0 {
				opt.Order = oe.Order
			}
			if oe.Correct != nil {
				opt.Correct = domain.BoolPtr(*oe.Correct)
			}
			if oe.VibeCategory != "" || oe.VibeValue != "" {
				interp := domain.Interpretation{}
				if opt.Interpretation != nil {
					interp = *opt.Interpretation
				}
				if oe.VibeCategory != "" {
					interp.Category = oe.VibeCategory
				}
				if oe.VibeValue != "" {
					interp.Value = oe.VibeValue
				}
				opt.Interpretation = &interp
			}
		}
		sort.Slice(q.Options, func(i, j int) bool { return q.Options[i].Order < q.Options[j].Order })
	}
	sort.Slice(quiz.Questions, func(i, j int) bool { return quiz.Questions[i].Order < quiz.Questions[j].Order })

	stored.quiz = quiz
	s.quizzes[quizID] = stored
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	for id, stored := range s.submissions {
		if stored.sub.QuizID == quizID {
			s.deleteSubmissionLocked(id)
		}
	}
	return nil
}

func (s *Store) CreateSubmission(_ context.Context, sub domain.Submission, answers []domain.Answer) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[sub.QuizID]; !ok {
		return domain.Submission{}, domain.ErrQuizNotFound
	}
	sub.ID = uuid.NewString()
	if sub.CompletedAt.IsZero() {
		sub.CompletedAt = s.clock().UTC()
	}
	stored := make([]domain.Answer, len(answers))
	for i, a := range answers {
		a.ID = uuid.NewString()
		a.SubmissionID = sub.ID
		stored[i] = a
	}
	s.seq++
	s.submissions[sub.ID] = storedSubmission{sub: sub, seq: s.seq}
	s.answers[sub.ID] = stored
	return sub, nil
}

func (s *Store) GetSubmission(_ context.Context, submissionID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.submissions[submissionID]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return stored.sub, nil
}

func (s *Store) ListAnswers(_ context.Context, submissionID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.submissions[submissionID]; !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	return append([]domain.Answer(nil), s.answers[submissionID]...), nil
}

func (s *Store) ListAttempts(_ context.Context, userID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := make([]storedSubmission, 0)
	for _, stored := range s.submissions {
		if stored.sub.UserID == userID {
			owned = append(owned, stored)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].seq > owned[j].seq })

	attempts := make([]domain.Attempt, 0, len(owned))
	for _, stored := range owned {
		attempt := domain.Attempt{Submission: stored.sub, QuizTitle: "Unknown Quiz", QuizKind: domain.KindScored}
		if quiz, ok := s.quizzes[stored.sub.QuizID]; ok {
			attempt.QuizTitle = quiz.quiz.Title
			attempt.QuizDescription = quiz.quiz.Description
			attempt.QuizKind = quiz.quiz.Kind
		}
		if vibe, ok := s.vibes[stored.sub.ID]; ok {
			attempt.VibeAnalysis = vibe.Analysis
			attempt.VibeCategories = vibe.Categories
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// SaveVibeResult keeps one result per submission; a rerun replaces the earlier one.
func (s *Store) SaveVibeResult(_ context.Context, result domain.VibeResult) (domain.VibeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[result.SubmissionID]; !ok {
		return domain.VibeResult{}, domain.ErrSubmissionNotFound
	}
	if prev, ok := s.vibes[result.SubmissionID]; ok {
		result.ID = prev.ID
	} else {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = s.clock().UTC()
	}
	s.vibes[result.SubmissionID] = result
	return result, nil
}

func (s *Store) DeleteSubmission(_ context.Context, submissionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[submissionID]; !ok {
		return domain.ErrSubmissionNotFound
	}
	s.deleteSubmissionLocked(submissionID)
	return nil
}

func (s *Store) deleteSubmissionLocked(submissionID string) {
	delete(s.submissions, submissionID)
	delete(s.answers, submissionID)
	delete(s.vibes, submissionID)
}

// CountSubmissions counts attempts by every learner.
func (s *Store) CountSubmissions(_ context.Context, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, stored := range s.submissions {
		if stored.sub.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

func newOption(questionID string, edit domain.OptionEdit) domain.Option {
	opt := domain.Option{ID: uuid.NewString(), QuestionID: questionID, Order: edit.Order, Text: edit.Text}
	if edit.Correct != nil {
		opt.Correct = domain.BoolPtr(*edit.Correct)
	}
	if edit.VibeCategory != "" || edit.VibeValue != "" {
		opt.Interpretation = &domain.Interpretation{Category: edit.VibeCategory, Value: edit.VibeValue}
	}
	return opt
}

func questionIndex(quiz domain.Quiz, id string) int {
	for i, q := range quiz.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func optionIndex(q domain.Question, id string) int {
	for i, o := range q.Options {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func cloneQuiz(quiz domain.Quiz) domain.Quiz {
	out := quiz
	out.Questions = make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.Options = make([]domain.Option, len(quiz.Questions[i].Options))
		for j, o := range quiz.Questions[i].Options {
			if o.Correct != nil {
				o.Correct = domain.BoolPtr(*o.Correct)
			}
			if o.Interpretation != nil {
				interp := *o.Interpretation
				o.Interpretation = &interp
			}
			q.Options[j] = o
		}
		out.Questions[i] = q
	}
	return out
}
