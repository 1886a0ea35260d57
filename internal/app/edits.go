package app

import (
	"fmt"
	"strings"

	"vibecheck-service/internal/domain"
)

// NormalizeEdits checks owner edits against the stored quiz and fills in defaults for new rows.
// Unknown IDs are rejected, question and option orders must stay contiguous from 1, vibe quizzes
// never gain correctness flags, and every edited scored question must end up with exactly one
// correct option.
func NormalizeEdits(quiz domain.Quiz, edits []domain.QuestionEdit) ([]domain.QuestionEdit, error) {
	out := make([]domain.QuestionEdit, 0, len(edits))
	finalOrder := make(map[string]int, len(quiz.Questions)+len(edits))
	for _, q := range quiz.Questions {
		finalOrder[q.ID] = q.Order
	}
	nextOrder := len(quiz.Questions) + 1

	for i, edit := range edits {
		n := i + 1
		edit.Text = strings.TrimSpace(edit.Text)
		key := edit.ID

		var current domain.Question
		if edit.ID != "" {
			q, ok := quiz.Question(edit.ID)
			if !ok {
				return nil, domain.Invalid("Question %s does not belong to this quiz", edit.ID)
			}
			current = q
			if edit.Order == 0 {
				edit.Order = q.Order
			}
		} else {
			if edit.Text == "" {
				return nil, domain.Invalid("Question %d needs text", n)
			}
			if edit.Order == 0 {
				edit.Order = nextOrder
				nextOrder++
			}
			key = fmt.Sprintf("new-%d", n)
		}
		if edit.Order < 1 {
			return nil, domain.Invalid("Question %d has an invalid order", n)
		}
		finalOrder[key] = edit.Order

		options, err := normalizeOptions(quiz.Kind, current, edit.Options, n)
		if err != nil {
			return nil, err
		}
		edit.Options = options
		out = append(out, edit)
	}

	// Orders must end up exactly 1..n.
	seen := make(map[int]bool, len(finalOrder))
	for _, order := range finalOrder {
		if order > len(finalOrder) {
			return nil, domain.Invalid("Question order %d leaves a gap; orders must run from 1 to %d", order, len(finalOrder))
		}
		if seen[order] {
			return nil, domain.Invalid("Question order %d is used twice", order)
		}
		seen[order] = true
	}
	return out, nil
}

func normalizeOptions(kind domain.QuizKind, current domain.Question, edits []domain.OptionEdit, n int) ([]domain.OptionEdit, error) {
	correct := make(map[string]bool, len(current.Options))
	finalOrder := make(map[string]int, len(current.Options)+len(edits))
	for _, opt := range current.Options {
		correct[opt.ID] = opt.IsCorrect()
		finalOrder[opt.ID] = opt.Order
	}
	nextOrder := len(current.Options) + 1
	newCorrect := 0

	out := make([]domain.OptionEdit, 0, len(edits))
	for k, edit := range edits {
		edit.Text = strings.TrimSpace(edit.Text)
		key := edit.ID
		if edit.ID != "" {
			opt, ok := current.Option(edit.ID)
			if !ok {
				return nil, domain.Invalid("Option %s does not belong to question %d", edit.ID, n)
			}
			if edit.Order == 0 {
				edit.Order = opt.Order
			}
		} else {
			if edit.Text == "" {
				return nil, domain.Invalid("Question %d has an option without text", n)
			}
			if edit.Order == 0 {
				edit.Order = nextOrder
				nextOrder++
			}
			key = fmt.Sprintf("new-%d", k)
		}
		finalOrder[key] = edit.Order

		if kind == domain.KindVibe {
			edit.Correct = nil
			edit.VibeCategory = strings.TrimSpace(edit.VibeCategory)
			edit.VibeValue = strings.TrimSpace(edit.VibeValue)
			if edit.ID == "" {
				if edit.VibeCategory == "" {
					edit.VibeCategory = domain.FallbackVibeCategory
				}
				if edit.VibeValue == "" {
					edit.VibeValue = domain.FallbackVibeValue
				}
			}
		} else {
			edit.VibeCategory, edit.VibeValue = "", ""
			if edit.ID == "" && edit.Correct == nil {
				edit.Correct = domain.BoolPtr(false)
			}
			if edit.Correct != nil {
				if edit.ID != "" {
					correct[edit.ID] = *edit.Correct
				} else if *edit.Correct {
					newCorrect++
				}
			}
		}
		out = append(out, edit)
	}

	seen := make(map[int]bool, len(finalOrder))
	for _, order := range finalOrder {
		if order < 1 || order > len(finalOrder) || seen[order] {
			return nil, domain.Invalid("Question %d option orders must run from 1 to %d without gaps", n, len(finalOrder))
		}
		seen[order] = true
	}

	if kind == domain.KindScored && (len(edits) > 0 || current.ID == "") {
		total := newCorrect
		for _, ok := range correct {
			if ok {
				total++
			}
		}
		if total != 1 {
			return nil, domain.Invalid("Question %d must have exactly one correct option", n)
		}
	}
	return out, nil
}
