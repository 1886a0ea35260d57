package app

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"vibecheck-service/internal/domain"
)

const manualQuizSchema = `{
  "type": "object",
  "required": ["title"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "visibility": {"type": "string", "enum": ["public", "private"]},
    "quizType": {"type": "string", "enum": ["scored", "vibe"]},
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "options"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "options": {
            "type": "array",
            "minItems": 2,
            "maxItems": 6,
            "items": {
              "type": "object",
              "required": ["text"],
              "properties": {
                "text": {"type": "string", "minLength": 1},
                "isCorrect": {"type": "boolean"},
                "vibeCategory": {"type": "string"},
                "vibeValue": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var manualSchemaLoader = gojsonschema.NewStringLoader(manualQuizSchema)

// ManualQuiz is an authored quiz payload.
type ManualQuiz struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Visibility  string           `json:"visibility"`
	QuizType    string           `json:"quizType"`
	Questions   []ManualQuestion `json:"questions"`
}

type ManualQuestion struct {
	Question string         `json:"question"`
	Options  []ManualOption `json:"options"`
}

type ManualOption struct {
	Text         string `json:"text"`
	IsCorrect    bool   `json:"isCorrect"`
	VibeCategory string `json:"vibeCategory"`
	VibeValue    string `json:"vibeValue"`
}

// ValidateManualQuiz checks the payload shape against the authoring schema and decodes it.
func ValidateManualQuiz(body []byte) (ManualQuiz, error) {
	var head map[string]any
	if err := json.Unmarshal(body, &head); err != nil {
		return ManualQuiz{}, domain.Invalid("Invalid JSON body")
	}
	if title, _ := head["title"].(string); strings.TrimSpace(title) == "" {
		return ManualQuiz{}, domain.Invalid("Quiz title is required")
	}

	result, err := gojsonschema.Validate(manualSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return ManualQuiz{}, domain.Invalid("Invalid quiz payload: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return ManualQuiz{}, domain.Invalid("Invalid quiz payload: %s", strings.Join(msgs, "; "))
	}

	var quiz ManualQuiz
	if err := json.Unmarshal(body, &quiz); err != nil {
		return ManualQuiz{}, domain.Invalid("Invalid quiz payload: %v", err)
	}
	return quiz, nil
}

// toQuiz maps the payload onto the domain graph. Human input is not repaired: a scored question
// needs exactly one correct option. Untagged vibe options get the fallback interpretation.
func (m ManualQuiz) toQuiz(ownerID string) (domain.Quiz, error) {
	kind, ok := domain.ParseQuizKind(m.QuizType)
	if !ok {
		return domain.Quiz{}, domain.Invalid("quizType must be scored or vibe")
	}
	title := strings.TrimSpace(m.Title)
	quiz := domain.Quiz{
		Title:       title,
		Description: strings.TrimSpace(m.Description),
		IsPublic:    strings.EqualFold(m.Visibility, "public"),
		OwnerID:     ownerID,
		Kind:        kind,
	}
	if quiz.Description == "" {
		quiz.Description = "A quiz about " + title
	}

	for i, mq := range m.Questions {
		question := domain.Question{Order: i + 1, Text: strings.TrimSpace(mq.Question)}
		correct := 0
		for j, mo := range mq.Options {
			opt := domain.Option{Order: j + 1, Text: strings.TrimSpace(mo.Text)}
			if kind == domain.KindVibe {
				interp := domain.Interpretation{Category: strings.TrimSpace(mo.VibeCategory), Value: strings.TrimSpace(mo.VibeValue)}
				if interp.Category == "" {
					interp.Category = domain.FallbackVibeCategory
				}
				if interp.Value == "" {
					interp.Value = domain.FallbackVibeValue
				}
				opt.Interpretation = &interp
			} else {
				opt.Correct = domain.BoolPtr(mo.IsCorrect)
				if mo.IsCorrect {
					correct++
				}
			}
			question.Options = append(question.Options, opt)
		}
		if kind == domain.KindScored && correct != 1 {
			return domain.Quiz{}, domain.Invalid("Question %d must have exactly one correct option", i+1)
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz, nil
}
