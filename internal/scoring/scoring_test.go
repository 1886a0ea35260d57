package scoring_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"vibecheck-service/internal/domain"
	"vibecheck-service/internal/llm"
	"vibecheck-service/internal/scoring"
)

func scoredQuiz() domain.Quiz {
	q := func(id string, correct int) domain.Question {
		question := domain.Question{ID: id, Text: "Question " + id}
		for i := 0; i < 4; i++ {
			question.Options = append(question.Options, domain.Option{
				ID:      fmt.Sprintf("%s-o%d", id, i),
				Order:   i + 1,
				Text:    fmt.Sprintf("option %d", i),
				Correct: domain.BoolPtr(i == correct),
			})
		}
		return question
	}
	return domain.Quiz{ID: "quiz-1", Title: "Rivers Quiz", Kind: domain.KindScored, Questions: []domain.Question{q("q1", 1), q("q2", 0), q("q3", 3)}}
}

func vibeQuiz(n int) domain.Quiz {
	quiz := domain.Quiz{ID: "vibe-1", Title: "Coffee Vibe Check", Kind: domain.KindVibe}
	for i := 0; i < n; i++ {
		question := domain.Question{ID: fmt.Sprintf("q%d", i+1), Order: i + 1, Text: fmt.Sprintf("Question %d", i+1)}
		for j := 0; j < 4; j++ {
			question.Options = append(question.Options, domain.Option{
				ID:             fmt.Sprintf("q%d-o%d", i+1, j),
				Order:          j + 1,
				Text:           fmt.Sprintf("choice %d", j),
				Interpretation: &domain.Interpretation{Category: "energy", Value: fmt.Sprintf("level-%d", j)},
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

func TestScoreAnswers(t *testing.T) {
	tally := scoring.ScoreAnswers(scoredQuiz(), map[string]string{
		"q1":      "q1-o1", // correct
		"q2":      "q2-o3", // wrong
		"q3":      "q1-o0", // option of another question
		"missing": "x",
	})
	if tally.Score != 1 || tally.MaxScore != 3 {
		t.Fatalf("expected 1/3, got %d/%d", tally.Score, tally.MaxScore)
	}
	if len(tally.Answers) != 2 {
		t.Fatalf("expected 2 recorded answers, got %+v", tally.Answers)
	}
	if !tally.Answers[0].Correct || tally.Answers[1].Correct {
		t.Fatalf("unexpected correctness flags %+v", tally.Answers)
	}
	if len(tally.Skipped) != 2 {
		t.Fatalf("expected 2 skipped selections, got %v", tally.Skipped)
	}
}

func TestScoreAnswersVibeQuizScoresZero(t *testing.T) {
	tally := scoring.ScoreAnswers(vibeQuiz(2), map[string]string{"q1": "q1-o2", "q2": "q2-o0"})
	if tally.Score != 0 || tally.MaxScore != 2 || len(tally.Answers) != 2 {
		t.Fatalf("unexpected vibe tally %+v", tally)
	}
}

func TestCollectVibesDefaultsUnanswered(t *testing.T) {
	selections := map[string]string{"q1": "q1-o1", "q2": "q2-o2", "q4": "q4-o3", "q5": "q5-o1"}
	points := scoring.CollectVibes(vibeQuiz(5), selections)
	if len(points) != 5 {
		t.Fatalf("expected 5 data points, got %d", len(points))
	}
	third := points[2]
	if !third.Defaulted || third.Answer != "choice 0" || third.Value != "level-0" {
		t.Fatalf("expected question 3 to default to the first option, got %+v", third)
	}
	for i, p := range points {
		if i != 2 && p.Defaulted {
			t.Fatalf("point %d should not be defaulted", i+1)
		}
	}

	prompt := scoring.BuildVibePrompt("Coffee", points)
	if strings.Count(prompt, "- Question:") != 5 {
		t.Fatalf("expected 5 answer lines in prompt: %s", prompt)
	}
	if !strings.Contains(prompt, `Answer: "choice 0" (no answer given)`) {
		t.Fatalf("expected defaulted marker in prompt: %s", prompt)
	}
}

func TestParseVibeAnalysis(t *testing.T) {
	text := "Here you go: {\"vibeAnalysis\": \"You love coffee.\", \"vibeCategories\": {\"energy\": \"high\", \"rank\": 3}}"
	analysis, fellBack := scoring.ParseVibeAnalysis(text, "Coffee")
	if fellBack {
		t.Fatalf("did not expect fallback")
	}
	if analysis.Analysis != "You love coffee." || analysis.Categories["energy"] != "high" || analysis.Categories["rank"] != "3" {
		t.Fatalf("unexpected analysis %+v", analysis)
	}

	analysis, fellBack = scoring.ParseVibeAnalysis("I cannot comply", "Coffee")
	if !fellBack || analysis.Analysis != scoring.FallbackAnalysis("Coffee") {
		t.Fatalf("expected canned fallback, got %+v", analysis)
	}
}

type stubClient struct {
	reply  string
	err    error
	prompt string
}

func (s *stubClient) Complete(_ context.Context, _ string, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func TestAnalyzerDefaultsUnansweredQuestions(t *testing.T) {
	client := &stubClient{reply: "garbage"}
	analyzer := scoring.NewAnalyzer(client, "", nil)
	selections := map[string]string{"q1": "q1-o1", "q2": "q2-o1", "q4": "q4-o1", "q5": "q5-o1"}

	analysis, err := analyzer.Analyze(context.Background(), vibeQuiz(5), selections)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if analysis.Analysis == "" {
		t.Fatalf("expected non-empty analysis")
	}
	if !strings.Contains(analysis.Analysis, "relationship with Coffee") {
		t.Fatalf("expected topic recovered from title, got %q", analysis.Analysis)
	}
	if analysis.Categories["energy"] != "level-1" {
		t.Fatalf("expected summarized categories, got %v", analysis.Categories)
	}
	if strings.Count(client.prompt, "- Question:") != 5 {
		t.Fatalf("expected 5 data points in prompt")
	}
}

func TestAnalyzerFailures(t *testing.T) {
	analyzer := scoring.NewAnalyzer(&stubClient{err: llm.ErrQuotaExceeded}, "", nil)
	_, err := analyzer.Analyze(context.Background(), vibeQuiz(1), nil)
	if !errors.Is(err, domain.ErrAnalysisFailed) || !errors.Is(err, llm.ErrQuotaExceeded) {
		t.Fatalf("expected wrapped analysis failure, got %v", err)
	}
	if _, err := analyzer.Analyze(context.Background(), scoredQuiz(), nil); !errors.Is(err, domain.ErrNotVibeQuiz) {
		t.Fatalf("expected not vibe quiz, got %v", err)
	}
}
