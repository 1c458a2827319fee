package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gather/internal/llm"
	"gather/internal/model"
	"gather/internal/search"
	"gather/pkg/metrics"
)

const historyLimit = 5

// StepPlanner turns a task into steps, looking up the web and the user's
// history in parallel first. It never fails: without a usable reply it
// returns the fallback steps.
type StepPlanner struct {
	assistant Assistant
	searcher  Searcher
	tasks     TaskStore
	logger    *zap.Logger
}

func NewStepPlanner(assistant Assistant, searcher Searcher, tasks TaskStore, logger *zap.Logger) *StepPlanner {
	return &StepPlanner{assistant: assistant, searcher: searcher, tasks: tasks, logger: logger}
}

type PlanResult struct {
	Steps    []model.StepDraft `json:"steps"`
	Fallback bool              `json:"fallback"`
	Sources  []search.Result   `json:"sources,omitempty"`
}

func (p *StepPlanner) Plan(ctx context.Context, userID int64, title, notes string, answers []llm.Answer) PlanResult {
	var (
		sources []search.Result
		history []string
	)
	// Both lookups are best effort, so neither returns an error to the group.
	g, gctx := errgroup.WithContext(ctx)
	if p.searcher != nil {
		g.Go(func() error {
			res, err := p.searcher.Search(gctx, title)
			if err != nil {
				if !errors.Is(err, search.ErrNotConfigured) {
					p.logger.Warn("Search for step generation failed", zap.Error(err))
				}
				return nil
			}
			sources = res
			return nil
		})
	}
	g.Go(func() error {
		titles, err := p.tasks.RecentCompletedTitles(gctx, userID, historyLimit)
		if err != nil {
			p.logger.Warn("History lookup failed", zap.Error(err), zap.Int64("user_id", userID))
			return nil
		}
		history = titles
		return nil
	})
	_ = g.Wait()

	req := llm.StepRequest{Title: title, Notes: notes, Answers: answers, History: history}
	for _, s := range sources {
		req.Sources = append(req.Sources, llm.Source{Title: s.Title, URL: s.URL, Content: s.Content})
	}

	steps, err := p.assistant.GenerateSteps(ctx, req)
	if err != nil {
		p.logger.Warn("Step generation failed, using fallback", zap.Error(err), zap.Int64("user_id", userID))
		metrics.IncrementStepGeneration("fallback")
		return PlanResult{Steps: model.FallbackSteps(), Fallback: true, Sources: sources}
	}
	metrics.IncrementStepGeneration("ai")
	return PlanResult{Steps: steps, Sources: sources}
}
