package crew

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tjfontaine/clockwork-muse/internal/api/youtube"
	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

// Completer runs one chat completion.
type Completer interface {
	Call(ctx context.Context, messages []domain.Message, params domain.Params) (string, error)
}

// Searcher returns rendered web search results.
type Searcher interface {
	SearchText(ctx context.Context, query string, limit int) (string, error)
}

// VideoSearcher returns YouTube search results.
type VideoSearcher interface {
	Search(ctx context.Context, q string, maxResults int) ([]youtube.Video, error)
}

// Tool result sizes.
const (
	searchLimit = 5
	videoLimit  = 5
)

// Runner builds and runs the stage plan for one topic at a time.
type Runner struct {
	defs   *Definitions
	llm    Completer
	search Searcher
	videos VideoSearcher
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSearcher enables the search tool.
func WithSearcher(s Searcher) RunnerOption {
	return func(r *Runner) { r.search = s }
}

// WithVideoSearcher enables the youtube tool.
func WithVideoSearcher(v VideoSearcher) RunnerOption {
	return func(r *Runner) { r.videos = v }
}

// WithLogger sets the runner logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner over validated definitions.
func NewRunner(defs *Definitions, llm Completer, opts ...RunnerOption) *Runner {
	r := &Runner{
		defs:   defs,
		llm:    llm,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build returns the executor for stage. Every task in the plan must be
// defined.
func (r *Runner) Build(stage string) (*Executor, error) {
	plan := Plan(stage)
	stages := make([]StageConfig, 0, len(plan))
	for i, name := range plan {
		task, ok := r.defs.Tasks[name]
		if !ok {
			return nil, fmt.Errorf("task %q is not defined", name)
		}
		stages = append(stages, StageConfig{
			Order: i,
			Stage: &taskStage{name: name, task: task, agent: r.defs.Agents[task.Agent], runner: r},
		})
	}
	return NewExecutor(r.logger, stages), nil
}

// Run executes the plan for stage with in and returns the final state.
func (r *Runner) Run(ctx context.Context, stage string, in Inputs) (*State, error) {
	exec, err := r.Build(stage)
	if err != nil {
		return nil, err
	}
	r.logger.Info("task plan",
		slog.String("stage", stage),
		slog.String("topic", in.Topic),
		slog.String("run_id", in.RunID),
		slog.Any("plan", exec.Names()))

	state := NewState(in)
	if err := exec.Run(ctx, state); err != nil {
		return state, err
	}
	return state, nil
}

// taskStage runs one task as its agent.
type taskStage struct {
	name   string
	task   Task
	agent  Agent
	runner *Runner
}

func (s *taskStage) Name() string { return s.name }

func (s *taskStage) Run(ctx context.Context, state *State) error {
	in := state.Inputs
	r := s.runner

	var extra []string
	for _, dep := range s.task.Context {
		if text := r.priorOutput(dep, state); text != "" {
			extra = append(extra, fmt.Sprintf("## %s\n%s", dep, text))
		}
	}

	if s.agent.HasTool(ToolSearch) && r.search != nil {
		results, err := r.search.SearchText(ctx, in.Topic, searchLimit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		extra = append(extra, "## Search results\n"+truncate(results, MaxContextChars))
	}

	if s.agent.HasTool(ToolYouTube) && r.videos != nil {
		videos, err := r.videos.Search(ctx, in.Topic, videoLimit)
		if err != nil {
			return fmt.Errorf("youtube: %w", err)
		}
		extra = append(extra, "## YouTube results\n"+formatVideos(videos))
	}

	messages := []domain.Message{
		domain.NewMessage(domain.RoleSystem, s.systemPrompt(in)),
		domain.NewMessage(domain.RoleUser, s.userPrompt(in, extra)),
	}

	r.logger.Debug("prepared task",
		slog.String("task", s.name),
		slog.Int("prompt_chars", len(messages[1].Text())),
		slog.Int("context_blocks", len(extra)))

	text, err := r.llm.Call(ctx, messages, domain.Params{})
	if err != nil {
		return err
	}
	state.Outputs[s.name] = text

	if path := Render(s.task.OutputFile, in); path != "" {
		if err := writeOutput(path, text); err != nil {
			return err
		}
		state.Files[s.name] = path
	}
	return nil
}

func (s *taskStage) systemPrompt(in Inputs) string {
	var b strings.Builder
	b.WriteString("You are " + Render(s.agent.Role, in) + ".")
	if goal := Render(s.agent.Goal, in); goal != "" {
		b.WriteString("\nGoal: " + goal)
	}
	if story := Render(s.agent.Backstory, in); story != "" {
		b.WriteString("\n\n" + story)
	}
	return b.String()
}

func (s *taskStage) userPrompt(in Inputs, extra []string) string {
	var b strings.Builder
	b.WriteString(Render(s.task.Description, in))
	if exp := Render(s.task.ExpectedOutput, in); exp != "" {
		b.WriteString("\n\nExpected output:\n" + exp)
	}
	if len(extra) > 0 {
		b.WriteString("\n\nContext:\n" + strings.Join(extra, "\n\n"))
	}
	return b.String()
}

// priorOutput returns dep's output from this run, else the contents of its
// output file, cut to MaxContextChars.
func (r *Runner) priorOutput(dep string, state *State) string {
	if text, ok := state.Outputs[dep]; ok {
		return truncate(text, MaxContextChars)
	}
	task, ok := r.defs.Tasks[dep]
	if !ok || task.OutputFile == "" {
		return ""
	}
	data, err := os.ReadFile(Render(task.OutputFile, state.Inputs))
	if err != nil {
		return ""
	}
	return truncate(string(data), MaxContextChars)
}

func formatVideos(videos []youtube.Video) string {
	if len(videos) == 0 {
		return "(no videos found)"
	}
	lines := make([]string, 0, len(videos))
	for _, v := range videos {
		lines = append(lines, fmt.Sprintf("- [%s](%s) by %s, %s", v.Title, v.URL, v.Channel, v.PublishedAt))
	}
	return strings.Join(lines, "\n")
}

func writeOutput(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
