package domain

import (
	"strings"
	"time"
)

// QuizKind distinguishes scored quizzes from personality style vibe checks.
type QuizKind string

const (
	KindScored QuizKind = "scored"
	KindVibe   QuizKind = "vibe"
)

// ParseQuizKind maps raw input to a kind; empty input means scored.
func ParseQuizKind(raw string) (QuizKind, bool) {
	switch QuizKind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", KindScored:
		return KindScored, true
	case KindVibe:
		return KindVibe, true
	}
	return "", false
}

// Difficulty of a generated quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a difficulty label.
func ParseDifficulty(raw string) (Difficulty, bool) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return "", false
}

// Fallback interpretation for vibe options without tags.
const (
	FallbackVibeCategory = "general"
	FallbackVibeValue    = "neutral"
)

// Interpretation is the category/value tag attached to a vibe quiz option.
type Interpretation struct {
	Category string `json:"vibeCategory"`
	Value    string `json:"vibeValue"`
}

// Option represents a possible answer for a question.
// Correct is nil for vibe quizzes.
type Option struct {
	ID             string          `json:"id"`
	QuestionID     string          `json:"questionId"`
	Order          int             `json:"orderNum"`
	Text           string          `json:"text"`
	Correct        *bool           `json:"isCorrect,omitempty"`
	Interpretation *Interpretation `json:"interpretation,omitempty"`
}

// IsCorrect reports the stored correctness flag, treating null as false.
func (o Option) IsCorrect() bool {
	return o.Correct != nil && *o.Correct
}

// Question models an MCQ question; Order is 1-based and contiguous within a quiz.
type Question struct {
	ID      string   `json:"id"`
	QuizID  string   `json:"quizId"`
	Order   int      `json:"orderNum"`
	Text    string   `json:"question"`
	Options []Option `json:"options"`
}

// Option looks up an option of the question by ID.
func (q Question) Option(optionID string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return Option{}, false
}

// Quiz is the root of the quiz graph.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsPublic    bool       `json:"isPublic"`
	OwnerID     string     `json:"createdBy"`
	Kind        QuizKind   `json:"quizType"`
	CreatedAt   time.Time  `json:"createdAt"`
	Questions   []Question `json:"questions"`
}

// Question looks up a question of the quiz by ID.
func (q Quiz) Question(questionID string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == questionID {
			return question, true
		}
	}
	return Question{}, false
}

// Topic recovers the quiz topic from a generated title.
func (q Quiz) Topic() string {
	topic := strings.TrimSuffix(q.Title, " Vibe Check")
	return strings.TrimSuffix(topic, " Quiz")
}

// WithoutAnswers returns a copy with correctness flags removed, for non-owners.
func (q Quiz) WithoutAnswers() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]Option(nil), question.Options...)
		for j := range question.Options {
			question.Options[j].Correct = nil
		}
		out.Questions[i] = question
	}
	return out
}

// QuizSummary is the list view of a quiz.
type QuizSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	IsPublic        bool      `json:"isPublic"`
	Kind            QuizKind  `json:"quizType"`
	CreatedAt       time.Time `json:"createdAt"`
	SubmissionCount int       `json:"submissionCount"`
}

// GenerationRequest describes a quiz the model should produce.
type GenerationRequest struct {
	Topic        string
	NumQuestions int
	Difficulty   Difficulty
	Kind         QuizKind
}

// GenerationStage is reported while a quiz is being generated.
type GenerationStage string

const (
	StagePrompting  GenerationStage = "prompting"
	StageGenerating GenerationStage = "generating"
	StageParsing    GenerationStage = "parsing"
	StagePersisting GenerationStage = "persisting"
)

// Submission records one attempt by one learner.
type Submission struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quizId"`
	UserID      string    `json:"userId"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"maxScore"`
	CompletedAt time.Time `json:"completedAt"`
}

// Answer is a learner's selection; Correct is copied at submission time.
type Answer struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submissionId"`
	QuestionID   string `json:"questionId"`
	OptionID     string `json:"selectedOptionId"`
	Correct      bool   `json:"isCorrect"`
}

// VibeResult stores the generated analysis for a vibe quiz submission.
type VibeResult struct {
	ID           string            `json:"id"`
	SubmissionID string            `json:"submissionId"`
	QuizID       string            `json:"quizId"`
	UserID       string            `json:"userId"`
	Analysis     string            `json:"vibeAnalysis"`
	Categories   map[string]string `json:"vibeCategories"`
	AnalyzedBy   string            `json:"analyzedBy"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// VibeAnalysis is the model's personality summary.
type VibeAnalysis struct {
	Analysis   string            `json:"vibeAnalysis"`
	Categories map[string]string `json:"vibeCategories,omitempty"`
}

// Attempt joins a submission with its quiz and vibe result for history views.
type Attempt struct {
	Submission
	QuizTitle       string            `json:"quizTitle"`
	QuizDescription string            `json:"quizDescription"`
	QuizKind        QuizKind          `json:"quizType"`
	VibeAnalysis    string            `json:"vibeAnalysis,omitempty"`
	VibeCategories  map[string]string `json:"vibeCategories,omitempty"`
}

// AnswerView is the learner-facing review of one answer.
type AnswerView struct {
	Question       string `json:"question"`
	SelectedOption string `json:"selectedOption"`
	Correct        bool   `json:"isCorrect"`
}

// QuestionEdit is an owner edit; empty IDs insert new rows.
type QuestionEdit struct {
	ID      string       `json:"id"`
	Text    string       `json:"question"`
	Order   int          `json:"orderNum"`
	Options []OptionEdit `json:"options"`
}

// OptionEdit is an owner edit of an option. Empty fields leave stored values unchanged.
type OptionEdit struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Correct      *bool  `json:"isCorrect"`
	Order        int    `json:"orderNum"`
	VibeCategory string `json:"vibeCategory,omitempty"`
	VibeValue    string `json:"vibeValue,omitempty"`
}

// BoolPtr is a helper for optional correctness flags.
func BoolPtr(v bool) *bool {
	return &v
}
