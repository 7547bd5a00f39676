package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/legal-ocr/internal/pipeline"
)

type fakeProc struct {
	mu    sync.Mutex
	paths []string
	delay time.Duration
	fail  map[string]bool
}

func (f *fakeProc) ProcessWithHash(ctx context.Context, path, _ string) (*pipeline.Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if f.fail[path] {
		return nil, errors.New("boom")
	}
	return &pipeline.Result{RunID: uuid.New(), SourcePath: path}, nil
}

func TestProcessorQueue_DrainsOnShutdown(t *testing.T) {
	proc := &fakeProc{delay: 5 * time.Millisecond, fail: map[string]bool{"b.pdf": true}}
	var (
		mu     sync.Mutex
		failed []string
		ok     int
	)
	q := NewProcessorQueue(proc, nil,
		WithWorkers(2),
		WithQueueSize(1),
		WithResultHook(func(job Job, res *pipeline.Result, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, job.Path)
				return
			}
			if res == nil || res.SourcePath != job.Path {
				t.Errorf("hook result = %+v for %s", res, job.Path)
			}
			ok++
		}),
	)

	for _, p := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		if err := q.Enqueue(context.Background(), Job{Path: p}); err != nil {
			t.Fatalf("Enqueue(%s) failed: %v", p, err)
		}
	}
	q.Shutdown(context.Background())

	if len(proc.paths) != 4 {
		t.Errorf("processed = %v, want 4 jobs", proc.paths)
	}
	if ok != 3 || len(failed) != 1 || failed[0] != "b.pdf" {
		t.Errorf("ok = %d failed = %v, want 3 and [b.pdf]", ok, failed)
	}

	if err := q.Enqueue(context.Background(), Job{Path: "late.pdf"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue after shutdown err = %v, want ErrQueueClosed", err)
	}
	q.Shutdown(context.Background())
}

func TestProcessorQueue_EnqueueHonoursContext(t *testing.T) {
	proc := &fakeProc{delay: time.Second}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1), WithProcessTimeout(50*time.Millisecond))
	defer q.Shutdown(context.Background())

	// one job in flight, one buffered, the third must wait
	_ = q.Enqueue(context.Background(), Job{Path: "1.pdf"})
	time.Sleep(10 * time.Millisecond)
	_ = q.Enqueue(context.Background(), Job{Path: "2.pdf"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, Job{Path: "3.pdf"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
