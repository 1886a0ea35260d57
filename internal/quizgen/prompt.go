package quizgen

import (
	"fmt"
	"strings"

	"vibecheck-service/internal/domain"
)

const jsonOnly = "DO NOT include any text before or after the JSON. Return ONLY the JSON."

// BuildPrompt renders the instruction sent to the model for a generation request.
func BuildPrompt(req domain.GenerationRequest) string {
	if req.Kind == domain.KindVibe {
		return vibePrompt(req)
	}
	return scoredPrompt(req)
}

func scoredPrompt(req domain.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a multiple choice quiz about %s with exactly %d questions.\n", req.Topic, req.NumQuestions)
	fmt.Fprintf(&b, "Difficulty level: %s.\n\n", req.Difficulty)
	b.WriteString("Each question must have EXACTLY 4 options, with only ONE correct answer.\n\n")
	b.WriteString("Format your response as VALID JSON following this structure exactly:\n")
	fmt.Fprintf(&b, `{
  "title": "%s Quiz",
  "questions": [
    {
      "question": "What is the capital of France?",
      "options": [
        {"text": "Berlin", "isCorrect": false},
        {"text": "Madrid", "isCorrect": false},
        {"text": "Paris", "isCorrect": true},
        {"text": "Rome", "isCorrect": false}
      ]
    }
  ],
  "quizType": "scored"
}
`, req.Topic)
	b.WriteString("\n" + jsonOnly + "\n")
	return b.String()
}

func vibePrompt(req domain.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a \"vibe check\" opinion quiz about %s with exactly %d questions.\n", req.Topic, req.NumQuestions)
	fmt.Fprintf(&b, "The quiz should assess the user's personality, preferences, or opinions about %s.\n", req.Topic)
	fmt.Fprintf(&b, "Difficulty level: %s.\n\n", req.Difficulty)
	b.WriteString("Each question must have EXACTLY 4 options, with NO correct answers.\n")
	b.WriteString("Instead, each option should reveal something about the user's personality or vibe.\n\n")
	b.WriteString("For each option, include:\n")
	b.WriteString(`- "vibeCategory": A category this option relates to (e.g., "enthusiasm", "knowledge", "humor style")` + "\n")
	b.WriteString(`- "vibeValue": The specific value within that category (e.g., "high", "nostalgic", "ironic")` + "\n\n")
	b.WriteString("Format your response as VALID JSON following this structure exactly:\n")
	fmt.Fprintf(&b, `{
  "title": "%[1]s Vibe Check",
  "questions": [
    {
      "question": "Which %[1]s element resonates with you most?",
      "options": [
        {"text": "Option description here", "vibeCategory": "enthusiasm", "vibeValue": "passionate"},
        {"text": "Option description here", "vibeCategory": "approach", "vibeValue": "analytical"},
        {"text": "Option description here", "vibeCategory": "style", "vibeValue": "nostalgic"},
        {"text": "Option description here", "vibeCategory": "interest", "vibeValue": "casual"}
      ]
    }
  ],
  "quizType": "vibe"
}
`, req.Topic)
	b.WriteString("\n" + jsonOnly + "\n")
	return b.String()
}
