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

// Store persists quiz graphs and submissions with bun. Multi-row writes run in one transaction.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// CreateQuizGraph writes the quiz, its questions, options and interpretations atomically.
func (s *Store) CreateQuizGraph(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.ID = uuid.NewString()
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}
	qm := &quizModel{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		IsPublic:    quiz.IsPublic,
		CreatedBy:   quiz.OwnerID,
		QuizType:    string(quiz.Kind),
		CreatedAt:   quiz.CreatedAt,
	}

	var (
		questions       []*questionModel
		options         []*optionModel
		interpretations []*interpretationModel
	)
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		q.ID = uuid.NewString()
		q.QuizID = quiz.ID
		questions = append(questions, &questionModel{ID: q.ID, QuizID: quiz.ID, OrderNum: q.Order, QuestionText: q.Text})
		for j := range q.Options {
			o := &q.Options[j]
			o.ID = uuid.NewString()
			o.QuestionID = q.ID
			om := &optionModel{ID: o.ID, QuestionID: q.ID, OrderNum: o.Order, OptionText: o.Text}
			if quiz.Kind == domain.KindScored {
				om.IsCorrect = domain.BoolPtr(o.IsCorrect())
			} else {
				o.Correct = nil
			}
			options = append(options, om)
			if o.Interpretation != nil && quiz.Kind == domain.KindVibe {
				interpretations = append(interpretations, &interpretationModel{
					ID:           uuid.NewString(),
					OptionID:     o.ID,
					VibeCategory: o.Interpretation.Category,
					VibeValue:    o.Interpretation.Value,
				})
			}
		}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(qm).Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		if len(questions) > 0 {
			if _, err := tx.NewInsert().Model(&questions).Exec(ctx); err != nil {
				return fmt.Errorf("insert questions: %w", err)
			}
		}
		if len(options) > 0 {
			if _, err := tx.NewInsert().Model(&options).Exec(ctx); err != nil {
				return fmt.Errorf("insert options: %w", err)
			}
		}
		if len(interpretations) > 0 {
			if _, err := tx.NewInsert().Model(&interpretations).Exec(ctx); err != nil {
				return fmt.Errorf("insert interpretations: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// LoadQuiz reads the full graph ordered by question and option order.
func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if _, err := uuid.Parse(quizID); err != nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	qm := new(quizModel)
	err := s.db.NewSelect().
		Model(qm).
		Where("qz.id = ?", quizID).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("qn.order_num ASC")
		}).
		Relation("Questions.Options", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("op.order_num ASC")
		}).
		Relation("Questions.Options.Interpretations").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return qm.toDomain(), nil
}

func (s *Store) ListQuizzesByOwner(ctx context.Context, ownerID string) ([]domain.QuizSummary, error) {
	var rows []quizModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("qz.created_by = ?", ownerID).
		Order("qz.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]domain.QuizSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.QuizSummary{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			IsPublic:    r.IsPublic,
			Kind:        domain.QuizKind(r.QuizType),
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

// UpdateQuizContent applies normalized edits in one transaction. Order uniqueness is checked at
// commit so questions may swap positions.
func (s *Store) UpdateQuizContent(ctx context.Context, quizID string, edits []domain.QuestionEdit) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, edit := range edits {
			questionID := edit.ID
			if questionID == "" {
				questionID = uuid.NewString()
				qm := &questionModel{ID: questionID, QuizID: quizID, OrderNum: edit.Order, QuestionText: edit.Text}
				if _, err := tx.NewInsert().Model(qm).Exec(ctx); err != nil {
					return fmt.Errorf("insert question: %w", err)
				}
			} else if err := updateQuestion(ctx, tx, quizID, edit); err != nil {
				return err
			}

			for _, oe := range edit.Options {
				if oe.ID == "" {
					if err := insertOption(ctx, tx, questionID, oe); err != nil {
						return err
					}
					continue
				}
				if err := updateOption(ctx, tx, questionID, oe); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func updateQuestion(ctx context.Context, tx bun.Tx, quizID string, edit domain.QuestionEdit) error {
	q := tx.NewUpdate().Model((*questionModel)(nil)).
		Where("id = ?", edit.ID).
		Where("quiz_id = ?", quizID)
	changed := false
	if edit.Text != "" {
		q = q.Set("question_text = ?", edit.Text)
		changed = true
	}
	if edit.Order > 0 {
		q = q.Set("order_num = ?", edit.Order)
		changed = true
	}
	if !changed {
		return nil
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func insertOption(ctx context.Context, tx bun.Tx, questionID string, edit domain.OptionEdit) error {
	om := &optionModel{ID: uuid.NewString(), QuestionID: questionID, OrderNum: edit.Order, OptionText: edit.Text, IsCorrect: edit.Correct}
	if _, err := tx.NewInsert().Model(om).Exec(ctx); err != nil {
		return fmt.Errorf("insert option: %w", err)
	}
	if edit.VibeCategory == "" && edit.VibeValue == "" {
		return nil
	}
	im := &interpretationModel{ID: uuid.NewString(), OptionID: om.ID, VibeCategory: edit.VibeCategory, VibeValue: edit.VibeValue}
	if _, err := tx.NewInsert().Model(im).Exec(ctx); err != nil {
		return fmt.Errorf("insert interpretation: %w", err)
	}
	return nil
}

func updateOption(ctx context.Context, tx bun.Tx, questionID string, edit domain.OptionEdit) error {
	q := tx.NewUpdate().Model((*optionModel)(nil)).
		Where("id = ?", edit.ID).
		Where("question_id = ?", questionID)
	changed := false
	if edit.Text != "" {
		q = q.Set("option_text = ?", edit.Text)
		changed = true
	}
	if edit.Order > 0 {
		q = q.Set("order_num = ?", edit.Order)
		changed = true
	}
	if edit.Correct != nil {
		q = q.Set("is_correct = ?", *edit.Correct)
		changed = true
	}
	if changed {
		res, err := q.Exec(ctx)
		if err != nil {
			return fmt.Errorf("update option: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrOptionNotFound
		}
	}
	if edit.VibeCategory == "" && edit.VibeValue == "" {
		return nil
	}

	uq := tx.NewUpdate().Model((*interpretationModel)(nil)).Where("option_id = ?", edit.ID)
	if edit.VibeCategory != "" {
		uq = uq.Set("vibe_category = ?", edit.VibeCategory)
	}
	if edit.VibeValue != "" {
		uq = uq.Set("vibe_value = ?", edit.VibeValue)
	}
	res, err := uq.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update interpretation: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	im := &interpretationModel{ID: uuid.NewString(), OptionID: edit.ID, VibeCategory: edit.VibeCategory, VibeValue: edit.VibeValue}
	if im.VibeCategory == "" {
		im.VibeCategory = domain.FallbackVibeCategory
	}
	if im.VibeValue == "" {
		im.VibeValue = domain.FallbackVibeValue
	}
	if _, err := tx.NewInsert().Model(im).Exec(ctx); err != nil {
		return fmt.Errorf("insert interpretation: %w", err)
	}
	return nil
}

// DeleteQuiz removes the quiz; the schema cascades to questions, options, interpretations and submissions.
func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	if _, err := uuid.Parse(quizID); err != nil {
		return domain.ErrQuizNotFound
	}
	res, err := s.db.NewDelete().Model((*quizModel)(nil)).Where("id = ?", quizID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
