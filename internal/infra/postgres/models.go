package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"vibecheck-service/internal/domain"
)

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID          string           `bun:"id,pk,type:uuid"`
	Title       string           `bun:"title,notnull"`
	Description string           `bun:"description,notnull"`
	IsPublic    bool             `bun:"is_public,notnull"`
	CreatedBy   string           `bun:"created_by,notnull"`
	QuizType    string           `bun:"quiz_type,notnull"`
	CreatedAt   time.Time        `bun:"created_at,notnull"`
	Questions   []*questionModel `bun:"rel:has-many,join:id=quiz_id"`
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID           string         `bun:"id,pk,type:uuid"`
	QuizID       string         `bun:"quiz_id,type:uuid,notnull"`
	OrderNum     int            `bun:"order_num,notnull"`
	QuestionText string         `bun:"question_text,notnull"`
	Options      []*optionModel `bun:"rel:has-many,join:id=question_id"`
}

type optionModel struct {
	bun.BaseModel `bun:"table:options,alias:op"`

	ID              string                 `bun:"id,pk,type:uuid"`
	QuestionID      string                 `bun:"question_id,type:uuid,notnull"`
	OrderNum        int                    `bun:"order_num,notnull"`
	OptionText      string                 `bun:"option_text,notnull"`
	IsCorrect       *bool                  `bun:"is_correct"`
	Interpretations []*interpretationModel `bun:"rel:has-many,join:id=option_id"`
}

type interpretationModel struct {
	bun.BaseModel `bun:"table:option_interpretations,alias:oi"`

	ID           string `bun:"id,pk,type:uuid"`
	OptionID     string `bun:"option_id,type:uuid,notnull"`
	VibeCategory string `bun:"vibe_category,notnull"`
	VibeValue    string `bun:"vibe_value,notnull"`
}

type submissionModel struct {
	bun.BaseModel `bun:"table:quiz_submissions,alias:qs"`

	ID          string    `bun:"id,pk,type:uuid"`
	QuizID      string    `bun:"quiz_id,type:uuid,notnull"`
	UserID      string    `bun:"user_id,notnull"`
	Score       int       `bun:"score,notnull"`
	MaxScore    int       `bun:"max_score,notnull"`
	CompletedAt time.Time `bun:"completed_at,notnull"`
}

type answerModel struct {
	bun.BaseModel `bun:"table:user_answers,alias:ua"`

	ID               string `bun:"id,pk,type:uuid"`
	SubmissionID     string `bun:"submission_id,type:uuid,notnull"`
	QuestionID       string `bun:"question_id,type:uuid,notnull"`
	SelectedOptionID string `bun:"selected_option_id,type:uuid,notnull"`
	IsCorrect        bool   `bun:"is_correct,notnull"`
}

type vibeResultModel struct {
	bun.BaseModel `bun:"table:vibe_results,alias:vr"`

	ID             string            `bun:"id,pk,type:uuid"`
	SubmissionID   string            `bun:"submission_id,type:uuid,notnull"`
	QuizID         string            `bun:"quiz_id,type:uuid,notnull"`
	UserID         string            `bun:"user_id,notnull"`
	VibeAnalysis   string            `bun:"vibe_analysis,notnull"`
	VibeCategories map[string]string `bun:"vibe_categories,type:jsonb,notnull"`
	AnalyzedBy     string            `bun:"analyzed_by,notnull"`
	CreatedAt      time.Time         `bun:"created_at,notnull"`
}

func (m *quizModel) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		IsPublic:    m.IsPublic,
		OwnerID:     m.CreatedBy,
		Kind:        domain.QuizKind(m.QuizType),
		CreatedAt:   m.CreatedAt,
		Questions:   make([]domain.Question, 0, len(m.Questions)),
	}
	for _, qm := range m.Questions {
		question := domain.Question{
			ID:      qm.ID,
			QuizID:  qm.QuizID,
			Order:   qm.OrderNum,
			Text:    qm.QuestionText,
			Options: make([]domain.Option, 0, len(qm.Options)),
		}
		for _, om := range qm.Options {
			opt := domain.Option{
				ID:         om.ID,
				QuestionID: om.QuestionID,
				Order:      om.OrderNum,
				Text:       om.OptionText,
				Correct:    om.IsCorrect,
			}
			if len(om.Interpretations) > 0 {
				// first interpretation wins
				im := om.Interpretations[0]
				opt.Interpretation = &domain.Interpretation{Category: im.VibeCategory, Value: im.VibeValue}
			}
			question.Options = append(question.Options, opt)
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

func (m *submissionModel) toDomain() domain.Submission {
	return domain.Submission{
		ID:          m.ID,
		QuizID:      m.QuizID,
		UserID:      m.UserID,
		Score:       m.Score,
		MaxScore:    m.MaxScore,
		CompletedAt: m.CompletedAt,
	}
}

func (m *answerModel) toDomain() domain.Answer {
	return domain.Answer{
		ID:           m.ID,
		SubmissionID: m.SubmissionID,
		QuestionID:   m.QuestionID,
		OptionID:     m.SelectedOptionID,
		Correct:      m.IsCorrect,
	}
}
