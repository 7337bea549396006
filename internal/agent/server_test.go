package agent

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/agentflow/internal/a2a"
	"github.com/dusk-indust/agentflow/internal/domain"
)

// serve exposes d over an httptest server and returns a Remote pointing at it.
func serve(t *testing.T, d Descriptor) *Remote {
	t.Helper()
	ts := httptest.NewServer(NewServer(d, nil).A2A().Handler())
	t.Cleanup(ts.Close)
	return &Remote{
		Name:        d.Name,
		Description: d.Description,
		Endpoint:    ts.URL,
		Client:      a2a.NewHTTPClient(),
	}
}

func TestRemote_RoundTripOverA2A(t *testing.T) {
	got := make(chan domain.Task, 1)
	r := serve(t, Descriptor{
		Name:        "zoning",
		Description: "zoning reviewer",
		Invoke: func(_ context.Context, task domain.Task) (domain.Result, error) {
			got <- task
			return domain.Result{Output: "R-2 permits duplexes", Warnings: []string{"zoning: raw text"}}, nil
		},
	})

	task := domain.Task{Instruction: "review parcel 12", Focus: "zoning"}.WithContext("site", "setbacks ok")
	res, err := r.Invoke(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, "R-2 permits duplexes", res.Output)
	assert.Equal(t, []string{"zoning: raw text"}, res.Warnings)
	assert.Equal(t, task, <-got, "the task arrives intact")
}

func TestRemote_FailedTask(t *testing.T) {
	r := serve(t, Descriptor{
		Name: "broken",
		Invoke: func(context.Context, domain.Task) (domain.Result, error) {
			return domain.Result{}, errors.New("quota exhausted")
		},
	})

	_, err := r.Invoke(context.Background(), domain.Task{Instruction: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
	assert.Contains(t, err.Error(), "quota exhausted")
}

func TestRemote_TransportErrorIsUnavailable(t *testing.T) {
	r := &Remote{Name: "gone", Endpoint: "http://127.0.0.1:1", Client: a2a.NewHTTPClient(a2a.WithTimeout(time.Second))}

	_, err := r.Invoke(context.Background(), domain.Task{Instruction: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReasoningUnavailable)
}

// pollingClient reports a working task first and completes it on GetTask.
type pollingClient struct {
	a2a.Client
	gets     int
	canceled []string
}

func (c *pollingClient) SendMessage(context.Context, string, a2a.SendMessageRequest) (*a2a.Task, error) {
	return &a2a.Task{ID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}, nil
}

func (c *pollingClient) GetTask(_ context.Context, _ string, req a2a.GetTaskRequest) (*a2a.Task, error) {
	c.gets++
	if c.gets < 2 {
		return &a2a.Task{ID: req.ID, Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}, nil
	}
	return &a2a.Task{
		ID:        req.ID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted},
		Artifacts: []a2a.Artifact{{Parts: []a2a.Part{a2a.TextPart("done")}}},
	}, nil
}

func (c *pollingClient) CancelTask(_ context.Context, _ string, req a2a.CancelTaskRequest) (*a2a.Task, error) {
	c.canceled = append(c.canceled, req.ID)
	return &a2a.Task{ID: req.ID, Status: a2a.TaskStatus{State: a2a.TaskStateCanceled}}, nil
}

func TestRemote_PollsUntilTerminal(t *testing.T) {
	c := &pollingClient{}
	r := &Remote{Name: "slow", Endpoint: "http://x", Client: c, PollInterval: time.Millisecond}

	res, err := r.Invoke(context.Background(), domain.Task{Instruction: "x"})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Output)
	assert.Equal(t, 2, c.gets)
}

func TestRemote_CancelsOnContextDone(t *testing.T) {
	c := &pollingClient{}
	r := &Remote{Name: "slow", Endpoint: "http://x", Client: c, PollInterval: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Invoke(ctx, domain.Task{Instruction: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"t1"}, c.canceled)
}

func TestServer_TaskLifecycle(t *testing.T) {
	s := NewServer(echo("site"), nil)
	ctx := context.Background()

	data, err := a2a.DataPart(domain.Task{Instruction: "plan", Focus: "setbacks"})
	require.NoError(t, err)
	task, err := s.HandleSendMessage(ctx, a2a.SendMessageRequest{
		Message: a2a.Message{MessageID: "m", Role: a2a.RoleUser, Parts: []a2a.Part{data}},
	})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Equal(t, "site:setbacks", task.Text())

	stored, err := s.HandleGetTask(ctx, a2a.GetTaskRequest{ID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, task.ID, stored.ID)

	// Terminal tasks stay terminal.
	canceled, err := s.HandleCancelTask(ctx, a2a.CancelTaskRequest{ID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, canceled.Status.State)

	_, err = s.HandleCancelTask(ctx, a2a.CancelTaskRequest{ID: "nope"})
	assert.ErrorIs(t, err, a2a.ErrTaskNotFound)
}

func TestServer_TextOnlyAndEmptyMessages(t *testing.T) {
	s := NewServer(Descriptor{
		Name: "echo",
		Invoke: func(_ context.Context, task domain.Task) (domain.Result, error) {
			return domain.Result{Output: task.Instruction}, nil
		},
	}, nil)
	ctx := context.Background()

	task, err := s.HandleSendMessage(ctx, a2a.SendMessageRequest{
		Message: a2a.Message{Parts: []a2a.Part{a2a.TextPart("plain text")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "plain text", task.Text())

	task, err = s.HandleSendMessage(ctx, a2a.SendMessageRequest{})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateRejected, task.Status.State)
	require.NotNil(t, task.Status.Message)
	assert.Contains(t, task.Status.Message.Text(), "no instruction")
}

func TestServeAll(t *testing.T) {
	ctx := context.Background()
	fleet, err := ServeAll(ctx, []Descriptor{echo("a"), echo("b")}, "127.0.0.1", 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fleet.Stop(ctx) })

	eps := fleet.Endpoints()
	require.Len(t, eps, 2)

	client := a2a.NewHTTPClient()
	for name, ep := range eps {
		card, err := client.DiscoverAgent(ctx, ep)
		require.NoError(t, err)
		assert.Equal(t, name, card.Name)
	}

	remotes := []*Remote{{Name: "a", Endpoint: eps["a"]}, {Name: "b", Endpoint: eps["b"]}, {Name: "down", Endpoint: "http://127.0.0.1:1"}}
	results := Probe(ctx, client, remotes, 500*time.Millisecond)
	require.Len(t, results, 3)
	assert.True(t, results[0].Healthy())
	assert.True(t, results[1].Healthy())
	assert.False(t, results[2].Healthy())
	assert.Equal(t, "down", results[2].Name)

	require.NoError(t, fleet.Stop(ctx))
	assert.Empty(t, fleet.Servers())
}

func TestServeAll_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	first, err := ServeAll(ctx, []Descriptor{echo("holder")}, "127.0.0.1", 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Stop(ctx) })

	// Reuse the bound port so the second agent of the new fleet collides.
	_, portStr, err := net.SplitHostPort(first.Servers()[0].Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	_, err = ServeAll(ctx, []Descriptor{echo("x"), echo("y")}, "127.0.0.1", port-1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start agent")
}
