package pipeline

import (
	"log/slog"
	"sync"
	"time"
)

// Progress receives stage and page events from a run. total is 0 when the
// page count is not known before the stage starts. Implementations must be
// safe for concurrent PageDone calls.
type Progress interface {
	StageStarted(stage string, total int)
	PageDone(stage string, page int)
	StageFinished(stage string)
}

// NopProgress discards every event.
type NopProgress struct{}

func (NopProgress) StageStarted(string, int) {}
func (NopProgress) PageDone(string, int)     {}
func (NopProgress) StageFinished(string)     {}

type stageState struct {
	total   int
	done    int
	started time.Time
}

// LogProgress logs stage boundaries and every N completed pages.
type LogProgress struct {
	logger *slog.Logger
	every  int

	mu     sync.Mutex
	stages map[string]*stageState
}

func NewLogProgress(logger *slog.Logger, every int) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	if every <= 0 {
		every = 10
	}
	return &LogProgress{logger: logger, every: every, stages: map[string]*stageState{}}
}

func (p *LogProgress) StageStarted(stage string, total int) {
	p.mu.Lock()
	p.stages[stage] = &stageState{total: total, started: time.Now()}
	p.mu.Unlock()
	p.logger.Info("pipeline.stage.start", "stage", stage, "pages", total)
}

func (p *LogProgress) PageDone(stage string, page int) {
	p.mu.Lock()
	st, ok := p.stages[stage]
	if !ok {
		st = &stageState{started: time.Now()}
		p.stages[stage] = st
	}
	st.done++
	done, total := st.done, st.total
	p.mu.Unlock()

	if done%p.every == 0 || done == total {
		p.logger.Info("pipeline.stage.progress", "stage", stage, "done", done, "total", total, "last_page", page)
	}
}

func (p *LogProgress) StageFinished(stage string) {
	p.mu.Lock()
	st := p.stages[stage]
	delete(p.stages, stage)
	p.mu.Unlock()

	if st == nil {
		p.logger.Info("pipeline.stage.done", "stage", stage)
		return
	}
	p.logger.Info("pipeline.stage.done", "stage", stage, "pages", st.done, "elapsed_ms", time.Since(st.started).Milliseconds())
}
