// Package scoring grades scored submissions and turns vibe answers into a personality analysis.
package scoring

import (
	"github.com/samber/lo"

	"vibecheck-service/internal/domain"
)

// Tally is the outcome of grading a set of selections against a quiz.
type Tally struct {
	Answers  []domain.Answer
	Skipped  []string // question ids whose selection did not resolve
	Score    int
	MaxScore int
}

// ScoreAnswers resolves questionID -> optionID selections against the quiz's current options.
// Correctness is copied onto each answer. Vibe quizzes always score zero.
func ScoreAnswers(quiz domain.Quiz, selections map[string]string) Tally {
	tally := Tally{MaxScore: len(quiz.Questions)}
	for _, question := range quiz.Questions {
		optionID, ok := selections[question.ID]
		if !ok {
			continue
		}
		opt, ok := question.Option(optionID)
		if !ok {
			tally.Skipped = append(tally.Skipped, question.ID)
			continue
		}
		tally.Answers = append(tally.Answers, domain.Answer{
			QuestionID: question.ID,
			OptionID:   opt.ID,
			Correct:    quiz.Kind == domain.KindScored && opt.IsCorrect(),
		})
	}

	known := lo.SliceToMap(quiz.Questions, func(q domain.Question) (string, struct{}) { return q.ID, struct{}{} })
	unknown := lo.Filter(lo.Keys(selections), func(id string, _ int) bool {
		_, ok := known[id]
		return !ok
	})
	tally.Skipped = append(tally.Skipped, lo.Uniq(unknown)...)

	if quiz.Kind == domain.KindScored {
		tally.Score = lo.CountBy(tally.Answers, func(a domain.Answer) bool { return a.Correct })
	}
	return tally
}
