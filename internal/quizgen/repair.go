package quizgen

import (
	"errors"
	"fmt"
	"strings"

	"vibecheck-service/internal/domain"
)

// OptionsPerQuestion is the fixed option count of generated questions.
const OptionsPerQuestion = 4

var (
	ErrNoQuestions       = errors.New("the quiz must have at least one question")
	ErrMalformedQuestion = errors.New("is not a question object")
	ErrOptionCount       = fmt.Errorf("must have exactly %d options", OptionsPerQuestion)
	ErrQuestionCount     = errors.New("unexpected number of questions")
)

// RepairKind names a deterministic fix applied to generated content.
type RepairKind string

const (
	RepairTitle         RepairKind = "title"
	RepairQuestionText  RepairKind = "question_text"
	RepairOptionText    RepairKind = "option_text"
	RepairCorrectOption RepairKind = "correct_option"
	RepairVibeTags      RepairKind = "vibe_tags"
)

// Repair records one fix. Question and Option are 1-based; zero means not applicable.
type Repair struct {
	Kind     RepairKind
	Question int
	Option   int
}

func (r Repair) String() string {
	switch {
	case r.Option > 0:
		return fmt.Sprintf("%s (question %d, option %d)", r.Kind, r.Question, r.Option)
	case r.Question > 0:
		return fmt.Sprintf("%s (question %d)", r.Kind, r.Question)
	}
	return string(r.Kind)
}

// Result is a validated quiz plus the repairs that were needed to get there.
// Quiz carries no identities yet; orders are 1-based.
type Result struct {
	Quiz    domain.Quiz
	Repairs []Repair
}

// Parse extracts and validates model output in one step.
func Parse(text string, req domain.GenerationRequest) (Result, error) {
	obj, err := ExtractObject(text)
	if err != nil {
		return Result{}, err
	}
	return Validate(obj, req)
}

// Validate checks a decoded document against the quiz shape and repairs what is recoverable.
// Zero questions, a non-object question or a wrong option count fail the whole document.
func Validate(doc map[string]any, req domain.GenerationRequest) (Result, error) {
	var res Result
	quiz := domain.Quiz{Kind: req.Kind}
	if quiz.Kind == "" {
		quiz.Kind = domain.KindScored
	}

	quiz.Title = nonEmptyString(doc["title"])
	if quiz.Title == "" {
		quiz.Title = DefaultTitle(req.Topic, quiz.Kind)
		res.Repairs = append(res.Repairs, Repair{Kind: RepairTitle})
	}

	rawQuestions, _ := doc["questions"].([]any)
	if len(rawQuestions) == 0 {
		return Result{}, ErrNoQuestions
	}

	quiz.Questions = make([]domain.Question, 0, len(rawQuestions))
	for i, raw := range rawQuestions {
		n := i + 1
		obj, ok := raw.(map[string]any)
		if !ok {
			return Result{}, fmt.Errorf("question %d %w", n, ErrMalformedQuestion)
		}
		question, repairs, err := validateQuestion(obj, n, req.Topic, quiz.Kind)
		if err != nil {
			return Result{}, err
		}
		quiz.Questions = append(quiz.Questions, question)
		res.Repairs = append(res.Repairs, repairs...)
	}

	if req.NumQuestions > 0 && len(quiz.Questions) != req.NumQuestions {
		return Result{}, fmt.Errorf("%w: requested %d, got %d", ErrQuestionCount, req.NumQuestions, len(quiz.Questions))
	}

	res.Quiz = quiz
	return res, nil
}

func validateQuestion(obj map[string]any, n int, topic string, kind domain.QuizKind) (domain.Question, []Repair, error) {
	var repairs []Repair
	question := domain.Question{Order: n, Text: nonEmptyString(obj["question"])}
	if question.Text == "" {
		question.Text = fmt.Sprintf("Question %d about %s", n, topic)
		repairs = append(repairs, Repair{Kind: RepairQuestionText, Question: n})
	}

	rawOptions, _ := obj["options"].([]any)
	if len(rawOptions) != OptionsPerQuestion {
		return domain.Question{}, nil, fmt.Errorf("question %d %w", n, ErrOptionCount)
	}

	correct := 0
	question.Options = make([]domain.Option, len(rawOptions))
	for j, rawOpt := range rawOptions {
		k := j + 1
		opt := domain.Option{Order: k}
		fields, _ := rawOpt.(map[string]any)
		if fields == nil {
			// bare string options carry only text
			opt.Text = nonEmptyString(rawOpt)
		} else {
			opt.Text = nonEmptyString(fields["text"])
		}
		if opt.Text == "" {
			opt.Text = fmt.Sprintf("Option %d", k)
			repairs = append(repairs, Repair{Kind: RepairOptionText, Question: n, Option: k})
		}

		if kind == domain.KindVibe {
			interp := domain.Interpretation{
				Category: nonEmptyString(fields["vibeCategory"]),
				Value:    nonEmptyString(fields["vibeValue"]),
			}
			if interp.Category == "" || interp.Value == "" {
				if interp.Category == "" {
					interp.Category = domain.FallbackVibeCategory
				}
				if interp.Value == "" {
					interp.Value = domain.FallbackVibeValue
				}
				repairs = append(repairs, Repair{Kind: RepairVibeTags, Question: n, Option: k})
			}
			opt.Interpretation = &interp
		} else {
			isCorrect, _ := fields["isCorrect"].(bool)
			if isCorrect {
				correct++
			}
			opt.Correct = domain.BoolPtr(isCorrect)
		}
		question.Options[j] = opt
	}

	if kind == domain.KindScored && correct != 1 {
		for j := range question.Options {
			question.Options[j].Correct = domain.BoolPtr(j == 0)
		}
		repairs = append(repairs, Repair{Kind: RepairCorrectOption, Question: n})
	}
	return question, repairs, nil
}

// DefaultTitle is used when the model omits one.
func DefaultTitle(topic string, kind domain.QuizKind) string {
	if kind == domain.KindVibe {
		return topic + " Vibe Check"
	}
	return topic + " Quiz"
}

func nonEmptyString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
