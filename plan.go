package strix

// Plan is the scan task queue: a pending deque plus running, completed,
// failed, and skipped lists. Every task the orchestrator knows about lives
// in exactly one bucket. Plan is not safe for concurrent use; the
// orchestrator serializes all access through its ingestion lock.
type Plan struct {
	pending   []*Task
	running   []*Task
	completed []*Task
	failed    []*Task
	skipped   []*Task
}

// NewPlan creates an empty plan.
func NewPlan() *Plan {
	return &Plan{}
}

// AddTask queues a task. Priority adds push the front of the deque; normal
// adds push the back.
func (p *Plan) AddTask(t *Task, priority bool) {
	if priority {
		p.pending = append([]*Task{t}, p.pending...)
	} else {
		p.pending = append(p.pending, t)
	}
}

// NextTask pops the front of the pending deque, or nil when empty.
func (p *Plan) NextTask() *Task {
	if len(p.pending) == 0 {
		return nil
	}
	t := p.pending[0]
	p.pending = p.pending[1:]
	return t
}

// MarkRunning transitions a task to running and stamps its start time.
func (p *Plan) MarkRunning(t *Task) {
	t.Status = TaskRunning
	now := Now()
	t.StartedAt = &now
	p.running = append(p.running, t)
}

// MarkCompleted transitions a task to completed, forcing progress to 100.
func (p *Plan) MarkCompleted(t *Task) {
	t.Status = TaskCompleted
	now := Now()
	t.CompletedAt = &now
	t.Progress = 100.0
	p.removeRunning(t)
	p.completed = append(p.completed, t)
}

// MarkFailed transitions a task to failed with the given error.
func (p *Plan) MarkFailed(t *Task, errMsg string) {
	t.Status = TaskFailed
	now := Now()
	t.CompletedAt = &now
	t.Error = errMsg
	p.removeRunning(t)
	p.failed = append(p.failed, t)
}

// MarkSkipped transitions a pending task to skipped.
func (p *Plan) MarkSkipped(t *Task) {
	t.Status = TaskSkipped
	now := Now()
	t.CompletedAt = &now
	p.removeRunning(t)
	p.skipped = append(p.skipped, t)
}

// PendingCount returns the number of queued tasks.
func (p *Plan) PendingCount() int { return len(p.pending) }

// RunningCount returns the number of tasks currently marked running.
func (p *Plan) RunningCount() int { return len(p.running) }

// AllTasks returns the union of all buckets, pending first.
func (p *Plan) AllTasks() []*Task {
	out := make([]*Task, 0, len(p.pending)+len(p.running)+len(p.completed)+len(p.failed)+len(p.skipped))
	out = append(out, p.pending...)
	out = append(out, p.running...)
	out = append(out, p.completed...)
	out = append(out, p.failed...)
	out = append(out, p.skipped...)
	return out
}

func (p *Plan) removeRunning(t *Task) {
	for i, rt := range p.running {
		if rt == t {
			p.running = append(p.running[:i:i], p.running[i+1:]...)
			return
		}
	}
}
