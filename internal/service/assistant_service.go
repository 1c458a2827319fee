package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gather/internal/linkify"
	"gather/internal/llm"
	"gather/internal/model"
	"gather/internal/search"
)

// AssistantService exposes the assistant over HTTP. Analysis degrades to
// "no questions" when the assistant is down; chat and search surface the
// error.
type AssistantService struct {
	assistant Assistant
	searcher  Searcher
	tasks     TaskStore
	logger    *zap.Logger
}

func NewAssistantService(assistant Assistant, searcher Searcher, tasks TaskStore, logger *zap.Logger) *AssistantService {
	return &AssistantService{assistant: assistant, searcher: searcher, tasks: tasks, logger: logger}
}

type AnalyzeResult struct {
	llm.Analysis
	Fallback bool `json:"fallback"`
}

func (s *AssistantService) Analyze(ctx context.Context, text string) (*AnalyzeResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", model.ErrInvalidInput)
	}
	a, err := s.assistant.Analyze(ctx, text)
	if err != nil {
		s.logger.Warn("Analysis failed, skipping clarification", zap.Error(err))
		return &AnalyzeResult{Analysis: llm.Analysis{Title: text}, Fallback: true}, nil
	}
	return &AnalyzeResult{Analysis: *a}, nil
}

type ChatInput struct {
	Messages []llm.Message `json:"messages"`
	TaskID   *int64        `json:"task_id"`
}

type ChatReply struct {
	Reply    string            `json:"reply"`
	Markdown string            `json:"markdown"`
	Segments []linkify.Segment `json:"segments"`
}

func (s *AssistantService) taskFor(ctx context.Context, userID int64, in ChatInput) (*model.Task, error) {
	if in.TaskID == nil {
		return nil, nil
	}
	return s.tasks.Get(ctx, userID, *in.TaskID)
}

// Chat returns the assistant's reply with its URLs turned into labelled
// links.
func (s *AssistantService) Chat(ctx context.Context, userID int64, in ChatInput) (*ChatReply, error) {
	task, err := s.taskFor(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	reply, err := s.assistant.Chat(ctx, in.Messages, task)
	if err != nil {
		return nil, err
	}
	return Linkified(reply), nil
}

// ChatStream starts a streamed reply. Validation errors are returned
// before any delta is produced.
func (s *AssistantService) ChatStream(ctx context.Context, userID int64, in ChatInput) (<-chan string, <-chan error, error) {
	task, err := s.taskFor(ctx, userID, in)
	if err != nil {
		return nil, nil, err
	}
	return s.assistant.ChatStream(ctx, in.Messages, task)
}

func (s *AssistantService) Search(ctx context.Context, query string) ([]search.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", model.ErrInvalidInput)
	}
	if s.searcher == nil {
		return nil, search.ErrNotConfigured
	}
	return s.searcher.Search(ctx, query)
}

func Linkified(text string) *ChatReply {
	return &ChatReply{Reply: text, Markdown: linkify.Markdown(text), Segments: linkify.Segments(text)}
}
