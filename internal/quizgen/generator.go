package quizgen

import (
	"context"
	"fmt"

	"vibecheck-service/internal/domain"
	"vibecheck-service/internal/llm"
	"vibecheck-service/internal/logger"
)

// ProgressFunc is notified as the pipeline moves between stages. It may be nil.
type ProgressFunc func(stage domain.GenerationStage)

// Generator runs prompt building, the model call and parse/repair for one request.
type Generator struct {
	client llm.Client
	model  string
	log    *logger.Logger
}

func NewGenerator(client llm.Client, model string, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{client: client, model: model, log: log.With("component", "quizgen")}
}

// Generate returns a validated quiz graph without identities. Nothing is persisted here.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest, progress ProgressFunc) (Result, error) {
	notify := func(stage domain.GenerationStage) {
		if progress != nil {
			progress(stage)
		}
	}

	notify(domain.StagePrompting)
	prompt := BuildPrompt(req)

	notify(domain.StageGenerating)
	text, err := g.client.Complete(ctx, g.model, prompt)
	if err != nil {
		g.log.Error("generation call failed", "topic", req.Topic, "kind", req.Kind, "error", err)
		return Result{}, err
	}
	g.log.Debug("raw model response", "topic", req.Topic, "text", logger.Truncate(text, 200))

	notify(domain.StageParsing)
	res, err := Parse(text, req)
	if err != nil {
		g.log.Warn("generated content rejected", "topic", req.Topic, "error", err)
		return Result{}, fmt.Errorf("generate quiz: %w", err)
	}
	if len(res.Repairs) > 0 {
		g.log.Info("generated content repaired", "topic", req.Topic, "repairs", len(res.Repairs))
		for _, r := range res.Repairs {
			g.log.Debug("repair applied", "repair", r.String())
		}
	}
	return res, nil
}
