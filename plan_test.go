package strix

import "testing"

func TestPlanFIFO(t *testing.T) {
	p := NewPlan()
	a := NewTask("subfinder", "", nil)
	b := NewTask("httpx", "", nil)
	p.AddTask(a, false)
	p.AddTask(b, false)

	if got := p.NextTask(); got != a {
		t.Error("expected FIFO pop")
	}
	if got := p.NextTask(); got != b {
		t.Error("expected second task next")
	}
	if p.NextTask() != nil {
		t.Error("expected nil from empty plan")
	}
}

func TestPlanPriorityFront(t *testing.T) {
	p := NewPlan()
	normal := NewTask("amass", "", nil)
	urgent := NewTask("nmap", "", nil)
	p.AddTask(normal, false)
	p.AddTask(urgent, true)

	if got := p.NextTask(); got != urgent {
		t.Error("priority task should pop first")
	}
}

func TestPlanTransitions(t *testing.T) {
	p := NewPlan()
	task := NewTask("subfinder", "", nil)
	p.AddTask(task, false)

	popped := p.NextTask()
	p.MarkRunning(popped)
	if popped.Status != TaskRunning || popped.StartedAt == nil {
		t.Error("MarkRunning did not stamp state")
	}
	if p.RunningCount() != 1 {
		t.Errorf("running count: got %d", p.RunningCount())
	}

	p.MarkCompleted(popped)
	if popped.Status != TaskCompleted || popped.CompletedAt == nil {
		t.Error("MarkCompleted did not stamp state")
	}
	if popped.Progress != 100.0 {
		t.Errorf("progress: got %v, want 100", popped.Progress)
	}
	if p.RunningCount() != 0 {
		t.Error("task left in running bucket")
	}
}

func TestPlanMarkFailed(t *testing.T) {
	p := NewPlan()
	task := NewTask("nmap", "", nil)
	p.AddTask(task, false)
	p.MarkRunning(p.NextTask())
	p.MarkFailed(task, "binary not found")

	if task.Status != TaskFailed || task.Error != "binary not found" {
		t.Errorf("failed task state: %+v", task)
	}
	if p.RunningCount() != 0 {
		t.Error("failed task left in running bucket")
	}
}

func TestPlanAllTasks(t *testing.T) {
	p := NewPlan()
	a := NewTask("subfinder", "", nil)
	b := NewTask("httpx", "", nil)
	c := NewTask("nmap", "", nil)
	p.AddTask(a, false)
	p.AddTask(b, false)
	p.AddTask(c, false)

	p.MarkRunning(p.NextTask()) // a
	p.MarkCompleted(a)
	p.MarkSkipped(p.NextTask()) // b

	all := p.AllTasks()
	if len(all) != 3 {
		t.Fatalf("expected 3 tasks total, got %d", len(all))
	}
	if p.PendingCount() != 1 {
		t.Errorf("pending: got %d, want 1", p.PendingCount())
	}
}
