package agent

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/vulnassess/pkg/bus"
)

// Agent is an addressable actor with a unique id that reacts to events and
// executes tasks. Every specialized agent and every communication pattern
// participant implements this contract.
type Agent interface {
	ID() string
	Start()
	Stop()
	Emit(event bus.Event)
	HandleTask(assignment bus.TaskAssignment) bus.TaskResult
}

// TaskHandlerFunc implements one task type's business logic. It must never
// panic; HandleTask recovers defensively anyway so a programming error in a
// handler still yields a failed TaskResult rather than crashing the agent.
type TaskHandlerFunc func(task *Task) (any, error)

// BaseAgent is the reusable Agent implementation every specialized agent
// embeds. It owns the bus subscriptions installed on Start and removed on
// Stop, and a private map of in-flight tasks keyed by task id.
type BaseAgent struct {
	id  string
	bus *bus.Bus
	log *slog.Logger

	mu       sync.RWMutex
	tasks    map[string]*Task
	handlers map[string]TaskHandlerFunc // task type -> handler

	started bool
}

// NewBaseAgent constructs a BaseAgent. handlers maps task type to the
// function that satisfies it; an unknown task type yields a failed
// TaskResult rather than a panic.
func NewBaseAgent(id string, b *bus.Bus, log *slog.Logger, handlers map[string]TaskHandlerFunc) *BaseAgent {
	if log == nil {
		log = slog.Default()
	}
	return &BaseAgent{
		id:       id,
		bus:      b,
		log:      log,
		tasks:    make(map[string]*Task),
		handlers: handlers,
	}
}

// ID returns the agent's address.
func (a *BaseAgent) ID() string { return a.id }

// Start installs the agent's bus handlers. Idempotent.
func (a *BaseAgent) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return
	}
	a.started = true
	a.bus.RegisterHandler(bus.EventTypeTaskAssignment, a.id, func(e bus.Event) {
		assignment, ok := e.Payload.(bus.TaskAssignment)
		if !ok {
			return
		}
		result := a.HandleTask(assignment)
		a.Emit(bus.Event{
			SenderID:   a.id,
			ReceiverID: e.SenderID,
			Payload:    result,
		})
	})
}

// Stop removes the agent's bus handlers. Idempotent.
func (a *BaseAgent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return
	}
	a.started = false
	a.bus.DeregisterAgent(a.id)
}

// Emit is a convenience wrapper delegating to the underlying bus.
func (a *BaseAgent) Emit(event bus.Event) {
	if event.SenderID == "" {
		event.SenderID = a.id
	}
	a.bus.Emit(event)
}

// HandleTask dispatches assignment to the registered handler for its task
// type, tracking it in the in-flight task map. It never panics: an unknown
// task type, or a panic inside the handler, yields a failed TaskResult.
func (a *BaseAgent) HandleTask(assignment bus.TaskAssignment) (result bus.TaskResult) {
	task := NewTask(assignment.TaskID, assignment.TaskType, assignment.Description,
		assignment.Parameters, assignment.Priority, "", a.id)
	task.Start()

	a.mu.Lock()
	a.tasks[task.ID] = task
	handler, ok := a.handlers[assignment.TaskType]
	a.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			a.log.Warn("agent: task handler panicked", "agent_id", a.id, "task_id", task.ID, "panic", r)
			task.Fail(fmt.Errorf("handler panic: %v", r))
			result = bus.TaskResult{TaskID: task.ID, Status: string(StatusFailed), Result: nil}
		}
	}()

	if !ok {
		err := fmt.Errorf("agent %s: unknown task type %q", a.id, assignment.TaskType)
		task.Fail(err)
		a.log.Warn("agent: unknown task type", "agent_id", a.id, "task_type", assignment.TaskType)
		return bus.TaskResult{TaskID: task.ID, Status: string(StatusFailed), Result: err.Error()}
	}

	value, err := handler(task)
	if err != nil {
		task.Fail(err)
		a.log.Warn("agent: task failed", "agent_id", a.id, "task_id", task.ID, "error", err)
		return bus.TaskResult{TaskID: task.ID, Status: string(StatusFailed), Result: err.Error()}
	}

	task.Complete(value)
	return bus.TaskResult{TaskID: task.ID, Status: string(StatusCompleted), Result: value}
}

// Task returns an in-flight or completed task by id, if known to this
// agent.
func (a *BaseAgent) Task(id string) (*Task, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tasks[id]
	return t, ok
}
