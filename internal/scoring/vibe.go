package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"vibecheck-service/internal/domain"
	"vibecheck-service/internal/llm"
	"vibecheck-service/internal/logger"
	"vibecheck-service/internal/quizgen"
)

// VibePoint is one question's contribution to the analysis.
type VibePoint struct {
	Question  string
	Answer    string
	Category  string
	Value     string
	Defaulted bool
}

// CollectVibes yields one point per question in quiz order. Unanswered questions, or selections
// that do not resolve, fall back to the first option and are flagged as defaulted.
func CollectVibes(quiz domain.Quiz, selections map[string]string) []VibePoint {
	points := make([]VibePoint, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		if len(question.Options) == 0 {
			continue
		}
		opt, ok := question.Option(selections[question.ID])
		if !ok {
			opt = question.Options[0]
		}
		point := VibePoint{
			Question:  question.Text,
			Answer:    opt.Text,
			Category:  domain.FallbackVibeCategory,
			Value:     domain.FallbackVibeValue,
			Defaulted: !ok,
		}
		if opt.Interpretation != nil {
			if opt.Interpretation.Category != "" {
				point.Category = opt.Interpretation.Category
			}
			if opt.Interpretation.Value != "" {
				point.Value = opt.Interpretation.Value
			}
		}
		points = append(points, point)
	}
	return points
}

// BuildVibePrompt asks for a 100-200 word analysis plus a category summary as JSON.
func BuildVibePrompt(topic string, points []VibePoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following quiz responses about %q and generate a fun, insightful \"vibe check\" analysis.\n\n", topic)
	b.WriteString("User's answers:\n")
	for _, p := range points {
		answer := fmt.Sprintf("%q", p.Answer)
		if p.Defaulted {
			answer += " (no answer given)"
		}
		fmt.Fprintf(&b, "- Question: %q | Answer: %s | Category: %s | Value: %s\n", p.Question, answer, p.Category, p.Value)
	}
	b.WriteString("\nAnswers marked \"(no answer given)\" were skipped by the user; weigh them lightly.\n")
	fmt.Fprintf(&b, "Based on these answers, create a personality analysis about the user's relationship with %s.\n", topic)
	b.WriteString("Make it fun, insightful, and between 100-200 words.\n\n")
	b.WriteString("Also categorize the user's overall vibe into relevant categories.\n\n")
	b.WriteString("Format your response as VALID JSON following this structure:\n")
	fmt.Fprintf(&b, `{
  "vibeAnalysis": "A fun, creative analysis of the person's relationship with %s...",
  "vibeCategories": {
    "enthusiasm": "high",
    "knowledge": "expert",
    "approach": "nostalgic"
  }
}
`, topic)
	b.WriteString("\nDO NOT include any text before or after the JSON. Return ONLY the JSON.\n")
	return b.String()
}

// FallbackAnalysis is returned when the model's answer cannot be used.
func FallbackAnalysis(topic string) string {
	return "Based on your answers, you seem to have an interesting relationship with " + topic +
		". Your vibe is unique and defies simple categorization!"
}

// ParseVibeAnalysis reads the model's JSON answer. The second return is true when the canned
// fallback was used instead.
func ParseVibeAnalysis(text, topic string) (domain.VibeAnalysis, bool) {
	obj, err := quizgen.ExtractObject(text)
	if err != nil {
		return domain.VibeAnalysis{Analysis: FallbackAnalysis(topic)}, true
	}
	analysis, _ := obj["vibeAnalysis"].(string)
	analysis = strings.TrimSpace(analysis)
	if analysis == "" {
		return domain.VibeAnalysis{Analysis: FallbackAnalysis(topic)}, true
	}

	out := domain.VibeAnalysis{Analysis: analysis}
	if raw, ok := obj["vibeCategories"].(map[string]any); ok && len(raw) > 0 {
		out.Categories = make(map[string]string, len(raw))
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				out.Categories[k] = val
			case nil:
			default:
				out.Categories[k] = fmt.Sprint(val)
			}
		}
	}
	return out, false
}

// SummarizeCategories counts how often each category/value pair was picked, for logging and for
// a fallback summary when the model returns no categories.
func SummarizeCategories(points []VibePoint) map[string]string {
	counts := make(map[string]map[string]int)
	for _, p := range points {
		if p.Defaulted {
			continue
		}
		if counts[p.Category] == nil {
			counts[p.Category] = make(map[string]int)
		}
		counts[p.Category][p.Value]++
	}
	out := make(map[string]string, len(counts))
	for category, values := range counts {
		names := make([]string, 0, len(values))
		for v := range values {
			names = append(names, v)
		}
		// most picked value wins, ties broken alphabetically
		sort.Slice(names, func(i, j int) bool {
			if values[names[i]] != values[names[j]] {
				return values[names[i]] > values[names[j]]
			}
			return names[i] < names[j]
		})
		out[category] = names[0]
	}
	return out
}

// Analyzer sends collected vibe points through the generation client.
type Analyzer struct {
	client llm.Client
	model  string
	log    *logger.Logger
}

func NewAnalyzer(client llm.Client, model string, log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{client: client, model: model, log: log.With("component", "vibe_analyzer")}
}

// Analyze produces the personality summary for a vibe quiz. Model failures are wrapped in
// domain.ErrAnalysisFailed; unusable output degrades to the canned analysis.
func (a *Analyzer) Analyze(ctx context.Context, quiz domain.Quiz, selections map[string]string) (domain.VibeAnalysis, error) {
	if quiz.Kind != domain.KindVibe {
		return domain.VibeAnalysis{}, domain.ErrNotVibeQuiz
	}
	topic := quiz.Topic()
	points := CollectVibes(quiz, selections)
	defaulted := 0
	for _, p := range points {
		if p.Defaulted {
			defaulted++
		}
	}
	a.log.Debug("collected vibe points", "quiz_id", quiz.ID, "points", len(points), "defaulted", defaulted)

	text, err := a.client.Complete(ctx, a.model, BuildVibePrompt(topic, points))
	if err != nil {
		a.log.Error("vibe analysis call failed", "quiz_id", quiz.ID, "error", err)
		return domain.VibeAnalysis{}, fmt.Errorf("%w: %w", domain.ErrAnalysisFailed, err)
	}
	a.log.Debug("raw vibe analysis", "quiz_id", quiz.ID, "text", logger.Truncate(text, 200))

	analysis, fellBack := ParseVibeAnalysis(text, topic)
	if fellBack {
		a.log.Warn("vibe analysis unparseable, using fallback", "quiz_id", quiz.ID)
	}
	if len(analysis.Categories) == 0 {
		analysis.Categories = SummarizeCategories(points)
	}
	return analysis, nil
}
