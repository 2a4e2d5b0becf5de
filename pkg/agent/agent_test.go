package agent

import (
	"errors"
	"testing"

	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTask_UnknownTypeFails(t *testing.T) {
	b := bus.New()
	a := NewBaseAgent("agent-1", b, nil, map[string]TaskHandlerFunc{})

	result := a.HandleTask(bus.TaskAssignment{TaskID: "t1", TaskType: "nope"})

	assert.Equal(t, string(StatusFailed), result.Status)
}

func TestHandleTask_HandlerErrorFails(t *testing.T) {
	b := bus.New()
	a := NewBaseAgent("agent-1", b, nil, map[string]TaskHandlerFunc{
		"boom": func(task *Task) (any, error) { return nil, errors.New("kaboom") },
	})

	result := a.HandleTask(bus.TaskAssignment{TaskID: "t1", TaskType: "boom"})

	assert.Equal(t, string(StatusFailed), result.Status)
}

func TestHandleTask_HandlerPanicFails(t *testing.T) {
	b := bus.New()
	a := NewBaseAgent("agent-1", b, nil, map[string]TaskHandlerFunc{
		"panics": func(task *Task) (any, error) { panic("oh no") },
	})

	result := a.HandleTask(bus.TaskAssignment{TaskID: "t1", TaskType: "panics"})

	assert.Equal(t, string(StatusFailed), result.Status)
}

func TestHandleTask_Success(t *testing.T) {
	b := bus.New()
	a := NewBaseAgent("agent-1", b, nil, map[string]TaskHandlerFunc{
		"echo": func(task *Task) (any, error) { return task.Parameters["value"], nil },
	})

	result := a.HandleTask(bus.TaskAssignment{
		TaskID:     "t1",
		TaskType:   "echo",
		Parameters: map[string]any{"value": "hi"},
	})

	assert.Equal(t, string(StatusCompleted), result.Status)
	assert.Equal(t, "hi", result.Result)

	task, ok := a.Task("t1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, task.Status())
}

func TestStartStop_Idempotent(t *testing.T) {
	b := bus.New()
	a := NewBaseAgent("agent-1", b, nil, map[string]TaskHandlerFunc{})

	a.Start()
	a.Start()
	a.Stop()
	a.Stop()
}
