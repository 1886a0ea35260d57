package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"vibecheck-service/internal/domain"
)

// CreateSubmission writes the submission and its answers in one transaction.
func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission, answers []domain.Answer) (domain.Submission, error) {
	sub.ID = uuid.NewString()
	if sub.CompletedAt.IsZero() {
		sub.CompletedAt = time.Now().UTC()
	}
	sm := &submissionModel{
		ID:          sub.ID,
		QuizID:      sub.QuizID,
		UserID:      sub.UserID,
		Score:       sub.Score,
		MaxScore:    sub.MaxScore,
		CompletedAt: sub.CompletedAt,
	}
	rows := make([]*answerModel, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, &answerModel{
			ID:               uuid.NewString(),
			SubmissionID:     sub.ID,
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.OptionID,
			IsCorrect:        a.Correct,
		})
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(sm).Exec(ctx); err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Submission{}, err
	}
	return sub, nil
}

func (s *Store) GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error) {
	if _, err := uuid.Parse(submissionID); err != nil {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	sm := new(submissionModel)
	if err := s.db.NewSelect().Model(sm).Where("qs.id = ?", submissionID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Submission{}, domain.ErrSubmissionNotFound
		}
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sm.toDomain(), nil
}

func (s *Store) ListAnswers(ctx context.Context, submissionID string) ([]domain.Answer, error) {
	if _, err := uuid.Parse(submissionID); err != nil {
		return nil, domain.ErrSubmissionNotFound
	}
	var rows []answerModel
	if err := s.db.NewSelect().Model(&rows).Where("ua.submission_id = ?", submissionID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make([]domain.Answer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// ListAttempts joins the learner's submissions with quiz headers and vibe results, newest first.
func (s *Store) ListAttempts(ctx context.Context, userID string) ([]domain.Attempt, error) {
	var subs []submissionModel
	err := s.db.NewSelect().
		Model(&subs).
		Where("qs.user_id = ?", userID).
		Order("qs.completed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if len(subs) == 0 {
		return []domain.Attempt{}, nil
	}

	quizIDs := make([]string, 0, len(subs))
	subIDs := make([]string, 0, len(subs))
	for _, sm := range subs {
		quizIDs = append(quizIDs, sm.QuizID)
		subIDs = append(subIDs, sm.ID)
	}

	var quizzes []quizModel
	if err := s.db.NewSelect().Model(&quizzes).Where("qz.id IN (?)", bun.In(quizIDs)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("load attempt quizzes: %w", err)
	}
	var vibes []vibeResultModel
	if err := s.db.NewSelect().Model(&vibes).Where("vr.submission_id IN (?)", bun.In(subIDs)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("load vibe results: %w", err)
	}

	byQuiz := make(map[string]quizModel, len(quizzes))
	for _, qm := range quizzes {
		byQuiz[qm.ID] = qm
	}
	bySub := make(map[string]vibeResultModel, len(vibes))
	for _, vm := range vibes {
		bySub[vm.SubmissionID] = vm
	}

	attempts := make([]domain.Attempt, 0, len(subs))
	for i := range subs {
		attempt := domain.Attempt{Submission: subs[i].toDomain(), QuizTitle: "Unknown Quiz", QuizKind: domain.KindScored}
		if qm, ok := byQuiz[subs[i].QuizID]; ok {
			attempt.QuizTitle = qm.Title
			attempt.QuizDescription = qm.Description
			attempt.QuizKind = domain.QuizKind(qm.QuizType)
		}
		if vm, ok := bySub[subs[i].ID]; ok {
			attempt.VibeAnalysis = vm.VibeAnalysis
			attempt.VibeCategories = vm.VibeCategories
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// SaveVibeResult upserts the analysis; a rerun replaces the earlier one.
func (s *Store) SaveVibeResult(ctx context.Context, result domain.VibeResult) (domain.VibeResult, error) {
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	categories := result.Categories
	if categories == nil {
		categories = map[string]string{}
	}
	vm := &vibeResultModel{
		ID:             uuid.NewString(),
		SubmissionID:   result.SubmissionID,
		QuizID:         result.QuizID,
		UserID:         result.UserID,
		VibeAnalysis:   result.Analysis,
		VibeCategories: categories,
		AnalyzedBy:     result.AnalyzedBy,
		CreatedAt:      result.CreatedAt,
	}
	_, err := s.db.NewInsert().
		Model(vm).
		On("CONFLICT (submission_id) DO UPDATE").
		Set("vibe_analysis = EXCLUDED.vibe_analysis").
		Set("vibe_categories = EXCLUDED.vibe_categories").
		Set("analyzed_by = EXCLUDED.analyzed_by").
		Set("created_at = EXCLUDED.created_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return domain.VibeResult{}, fmt.Errorf("save vibe result: %w", err)
	}
	result.ID = vm.ID
	return result, nil
}

// DeleteSubmission removes the submission; answers and vibe result cascade.
func (s *Store) DeleteSubmission(ctx context.Context, submissionID string) error {
	if _, err := uuid.Parse(submissionID); err != nil {
		return domain.ErrSubmissionNotFound
	}
	res, err := s.db.NewDelete().Model((*submissionModel)(nil)).Where("id = ?", submissionID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSubmissionNotFound
	}
	return nil
}

// CountSubmissions counts with the service's own credentials; used when no admin pool is configured.
func (s *Store) CountSubmissions(ctx context.Context, quizID string) (int, error) {
	if _, err := uuid.Parse(quizID); err != nil {
		return 0, nil
	}
	n, err := s.db.NewSelect().Model((*submissionModel)(nil)).Where("quiz_id = ?", quizID).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}
