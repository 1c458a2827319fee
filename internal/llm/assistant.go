package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gather/internal/model"
)

const (
	MaxQuestions = 3
	MaxOptions   = 4
	MinSteps     = 3
	MaxSteps     = 8
)

var ErrBadReply = errors.New("unusable assistant reply")

// Completer is the subset of Client the assistant needs.
type Completer interface {
	Ready() error
	Complete(ctx context.Context, op, system string, msgs []Message) (string, error)
	Stream(ctx context.Context, op, system string, msgs []Message) (<-chan string, <-chan error)
}

type Assistant struct {
	llm Completer
}

func NewAssistant(c Completer) *Assistant {
	return &Assistant{llm: c}
}

type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type Analysis struct {
	Title              string     `json:"title"`
	NeedsClarification bool       `json:"needs_clarification"`
	Questions          []Question `json:"questions"`
}

// Analyze decides whether a captured thought needs clarifying questions.
func (a *Assistant) Analyze(ctx context.Context, text string) (*Analysis, error) {
	reply, err := a.llm.Complete(ctx, "analyze", analyzeSystem, []Message{{Role: "user", Content: text}})
	if err != nil {
		return nil, err
	}
	var out Analysis
	if err := decodeJSON(reply, &out); err != nil {
		return nil, err
	}
	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		out.Title = strings.TrimSpace(text)
	}
	var qs []Question
	for _, q := range out.Questions {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" || len(q.Options) == 0 {
			continue
		}
		if len(q.Options) > MaxOptions {
			q.Options = q.Options[:MaxOptions]
		}
		qs = append(qs, q)
		if len(qs) == MaxQuestions {
			break
		}
	}
	if !out.NeedsClarification {
		qs = nil
	}
	out.Questions = qs
	out.NeedsClarification = len(qs) > 0
	return &out, nil
}

// Answer pairs a clarifying question with what the user chose.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Source is a web result offered to step generation.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type StepRequest struct {
	Title   string
	Notes   string
	Answers []Answer
	Sources []Source
	// History holds titles of tasks the user finished recently.
	History []string
}

// GenerateSteps asks for 3 to 8 small steps. Source URLs that were not
// offered in the request are dropped.
func (a *Assistant) GenerateSteps(ctx context.Context, req StepRequest) ([]model.StepDraft, error) {
	reply, err := a.llm.Complete(ctx, "steps", stepsSystem, []Message{{Role: "user", Content: stepsPrompt(req)}})
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Steps []model.StepDraft `json:"steps"`
	}
	if err := decodeJSON(reply, &parsed); err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(req.Sources))
	for _, s := range req.Sources {
		allowed[s.URL] = true
	}
	steps := make([]model.StepDraft, 0, len(parsed.Steps))
	for _, s := range parsed.Steps {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if !allowed[s.SourceURL] {
			s.SourceURL = ""
		}
		steps = append(steps, s)
	}
	if len(steps) > MaxSteps {
		steps = steps[:MaxSteps]
	}
	if len(steps) < MinSteps {
		return nil, fmt.Errorf("%w: %d steps", ErrBadReply, len(steps))
	}
	return steps, nil
}

// StepsOrFallback returns generated steps, or the fallback list with
// fallback=true when generation fails.
func (a *Assistant) StepsOrFallback(ctx context.Context, req StepRequest) (steps []model.StepDraft, fallback bool, err error) {
	steps, err = a.GenerateSteps(ctx, req)
	if err != nil {
		return model.FallbackSteps(), true, err
	}
	return steps, false, nil
}

func stepsPrompt(req StepRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", req.Title)
	if req.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", req.Notes)
	}
	if len(req.Answers) > 0 {
		b.WriteString("\nWhat the user told us:\n")
		for _, an := range req.Answers {
			fmt.Fprintf(&b, "- %s %s\n", an.Question, an.Answer)
		}
	}
	if len(req.Sources) > 0 {
		b.WriteString("\nWeb sources:\n")
		for i, s := range req.Sources {
			fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n", i+1, s.Title, s.URL, truncate(s.Content, 400))
		}
	}
	if len(req.History) > 0 {
		b.WriteString("\nTasks the user recently finished: ")
		b.WriteString(strings.Join(req.History, "; "))
		b.WriteString("\n")
	}
	return b.String()
}

// Chat returns a single reply to the conversation, optionally focused on a task.
func (a *Assistant) Chat(ctx context.Context, msgs []Message, task *model.Task) (string, error) {
	if err := validateConversation(msgs); err != nil {
		return "", err
	}
	return a.llm.Complete(ctx, "chat", chatSystemFor(task), msgs)
}

// ChatStream is Chat with incremental deltas.
func (a *Assistant) ChatStream(ctx context.Context, msgs []Message, task *model.Task) (<-chan string, <-chan error, error) {
	if err := validateConversation(msgs); err != nil {
		return nil, nil, err
	}
	// fail before any bytes reach the client so the handler can answer 503
	if err := a.llm.Ready(); err != nil {
		return nil, nil, err
	}
	deltas, errs := a.llm.Stream(ctx, "chat", chatSystemFor(task), msgs)
	return deltas, errs, nil
}

func chatSystemFor(task *model.Task) string {
	if task == nil {
		return chatSystem
	}
	var b strings.Builder
	b.WriteString(chatSystem)
	fmt.Fprintf(&b, "\n\nThe user is working on: %q (status %s).", task.Title, task.Status)
	if len(task.Steps) > 0 {
		b.WriteString(" Steps:")
		for _, s := range task.Steps {
			mark := " "
			if s.Done {
				mark = "x"
			}
			fmt.Fprintf(&b, "\n[%s] %s", mark, s.Text)
		}
	}
	return b.String()
}

// validateConversation checks the roles alternate and the last turn is the
// user's, which the API requires.
func validateConversation(msgs []Message) error {
	if len(msgs) == 0 {
		return fmt.Errorf("%w: empty conversation", model.ErrInvalidInput)
	}
	for i, m := range msgs {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: empty message", model.ErrInvalidInput)
		}
		if i > 0 && msgs[i-1].Role == m.Role {
			return fmt.Errorf("%w: roles must alternate", model.ErrInvalidInput)
		}
	}
	if msgs[0].Role != "user" || msgs[len(msgs)-1].Role != "user" {
		return fmt.Errorf("%w: conversation must start and end with the user", model.ErrInvalidInput)
	}
	return nil
}

// CleanBrainDump asks for a tidied task list.
func (a *Assistant) CleanBrainDump(ctx context.Context, text string) ([]string, error) {
	reply, err := a.llm.Complete(ctx, "brain_dump", brainDumpSystem, []Message{{Role: "user", Content: text}})
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Tasks []string `json:"tasks"`
	}
	if err := decodeJSON(reply, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Tasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks", ErrBadReply)
	}
	return parsed.Tasks, nil
}

// decodeJSON extracts the outermost JSON object from a reply that may be
// wrapped in prose or code fences.
func decodeJSON(reply string, out any) error {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("%w: no json object", ErrBadReply)
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	return nil
}
