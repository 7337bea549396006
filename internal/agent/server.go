package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/agentflow/internal/a2a"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/logging"
)

// Compile-time interface check.
var _ a2a.Handler = (*Server)(nil)

// errNoInstruction is returned for a message that carries no task.
var errNoInstruction = errors.New("message carries no instruction")

// Server exposes a Descriptor as an A2A agent. Tasks move through
// submitted, working and then completed or failed in its task store.
type Server struct {
	desc   Descriptor
	store  *a2a.TaskStore
	server *a2a.Server
	logger *slog.Logger
}

// NewServer wraps d. logger may be nil.
func NewServer(d Descriptor, logger *slog.Logger) *Server {
	s := &Server{
		desc:   d,
		store:  a2a.NewTaskStore(0),
		logger: logging.OrDiscard(logger),
	}
	s.server = a2a.NewServer(Card(d), s, s.logger)
	return s
}

// Card describes d as an A2A agent card.
func Card(d Descriptor) a2a.AgentCard {
	return a2a.AgentCard{
		Name:               d.Name,
		Description:        d.Description,
		Version:            "1",
		DefaultInputModes:  []string{"text/plain", "application/json"},
		DefaultOutputModes: []string{"text/plain"},
		Skills: []a2a.AgentSkill{{
			ID:          d.Name,
			Name:        d.Name,
			Description: d.Description,
			Tags:        []string{"agentflow"},
		}},
	}
}

// Name returns the served agent's name.
func (s *Server) Name() string { return s.desc.Name }

// A2A returns the underlying transport server.
func (s *Server) A2A() *a2a.Server { return s.server }

// Start listens on addr.
func (s *Server) Start(ctx context.Context, addr string) error {
	return s.server.Start(ctx, addr)
}

// Stop shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Stop(ctx)
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.server.Addr() }

// HandleSendMessage runs the agent on the task carried by the message.
func (s *Server) HandleSendMessage(ctx context.Context, req a2a.SendMessageRequest) (*a2a.Task, error) {
	task := a2a.Task{
		ID:        a2a.NewTaskID(),
		ContextID: req.Message.ContextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateSubmitted, Timestamp: time.Now()},
	}
	if err := s.store.Create(task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	in, err := decodeTask(req.Message)
	if err != nil {
		s.finish(task.ID, a2a.TaskStateRejected, nil, err)
		return s.store.Get(task.ID)
	}

	if err := s.store.Update(task.ID, func(t *a2a.Task) {
		t.Status = a2a.TaskStatus{State: a2a.TaskStateWorking, Timestamp: time.Now()}
	}); err != nil {
		return nil, fmt.Errorf("update task to working: %w", err)
	}

	res, err := s.desc.Invoke(ctx, in)
	if err != nil {
		s.logger.Warn("agent task failed", "agent", s.desc.Name, "task", task.ID, "error", err)
		s.finish(task.ID, a2a.TaskStateFailed, nil, err)
		return s.store.Get(task.ID)
	}

	artifact := a2a.Artifact{
		ArtifactID: a2a.NewTaskID(),
		Name:       "response",
		Parts:      []a2a.Part{a2a.TextPart(res.Output)},
	}
	if len(res.Warnings) > 0 {
		artifact.Metadata, _ = json.Marshal(resultMetadata{Warnings: res.Warnings})
	}
	s.finish(task.ID, a2a.TaskStateCompleted, []a2a.Artifact{artifact}, nil)
	return s.store.Get(task.ID)
}

// HandleGetTask returns a stored task.
func (s *Server) HandleGetTask(_ context.Context, req a2a.GetTaskRequest) (*a2a.Task, error) {
	return s.store.Get(req.ID)
}

// HandleCancelTask cancels a task that is not yet terminal.
func (s *Server) HandleCancelTask(_ context.Context, req a2a.CancelTaskRequest) (*a2a.Task, error) {
	err := s.store.Update(req.ID, func(t *a2a.Task) {
		if !t.Status.State.IsTerminal() {
			t.Status = a2a.TaskStatus{State: a2a.TaskStateCanceled, Timestamp: time.Now()}
		}
	})
	if err != nil {
		return nil, err
	}
	return s.store.Get(req.ID)
}

func (s *Server) finish(id string, state a2a.TaskState, artifacts []a2a.Artifact, cause error) {
	_ = s.store.Update(id, func(t *a2a.Task) {
		if t.Status.State == a2a.TaskStateCanceled {
			return
		}
		t.Status = a2a.TaskStatus{State: state, Timestamp: time.Now()}
		if cause != nil {
			t.Status.Message = &a2a.Message{
				MessageID: a2a.NewTaskID(),
				Role:      a2a.RoleAgent,
				Parts:     []a2a.Part{a2a.TextPart(cause.Error())},
			}
		}
		t.Artifacts = artifacts
	})
}

// decodeTask reads the domain task from the message's data part, falling
// back to its text as the instruction.
func decodeTask(msg a2a.Message) (domain.Task, error) {
	var task domain.Task
	if data := msg.Data(); data != nil {
		if err := json.Unmarshal(data, &task); err != nil {
			return domain.Task{}, fmt.Errorf("%w: decode task: %v", domain.ErrInvalidInput, err)
		}
	}
	if task.Instruction == "" {
		task.Instruction = msg.Text()
	}
	if task.Instruction == "" {
		return domain.Task{}, errNoInstruction
	}
	return task, nil
}

// Fleet is a set of agent servers started together.
type Fleet struct {
	servers []*Server
}

// ServeAll starts one server per descriptor on sequential ports from
// basePort on host. Port 0 lets the OS choose for every agent. If any agent
// fails to start the ones already running are stopped.
func ServeAll(ctx context.Context, descs []Descriptor, host string, basePort int, logger *slog.Logger) (*Fleet, error) {
	f := &Fleet{}
	for i, d := range descs {
		port := 0
		if basePort > 0 {
			port = basePort + i
		}
		addr := net.JoinHostPort(host, strconv.Itoa(port))

		srv := NewServer(d, logger)
		if err := srv.Start(ctx, addr); err != nil {
			_ = f.Stop(ctx)
			return nil, fmt.Errorf("start agent %q on %s: %w", d.Name, addr, err)
		}
		f.servers = append(f.servers, srv)
	}
	return f, nil
}

// Servers returns the running servers in start order.
func (f *Fleet) Servers() []*Server { return f.servers }

// Endpoints maps agent names to their base URLs.
func (f *Fleet) Endpoints() map[string]string {
	eps := make(map[string]string, len(f.servers))
	for _, s := range f.servers {
		eps[s.Name()] = "http://" + s.Addr()
	}
	return eps
}

// Stop shuts every server down concurrently and returns the first error.
func (f *Fleet) Stop(ctx context.Context) error {
	var g errgroup.Group
	for _, s := range f.servers {
		g.Go(func() error { return s.Stop(ctx) })
	}
	err := g.Wait()
	f.servers = nil
	return err
}
