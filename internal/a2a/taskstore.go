package a2a

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// NewTaskID returns a random UUID for tasks, messages and artifacts.
func NewTaskID() string {
	return uuid.NewString()
}

// TaskStore is a concurrency-safe in-memory store for agent-side task
// tracking. It keeps at most limit tasks, evicting the oldest terminal ones.
type TaskStore struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	orderIDs []string
	limit    int
}

// DefaultTaskLimit bounds a TaskStore created with a non-positive limit.
const DefaultTaskLimit = 1024

// NewTaskStore returns an initialized TaskStore.
func NewTaskStore(limit int) *TaskStore {
	if limit <= 0 {
		limit = DefaultTaskLimit
	}
	return &TaskStore{
		tasks: make(map[string]*Task),
		limit: limit,
	}
}

// Create stores a new task. It returns an error if the ID already exists.
func (s *TaskStore) Create(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %q already exists", task.ID)
	}
	s.evictLocked()
	s.tasks[task.ID] = &task
	s.orderIDs = append(s.orderIDs, task.ID)
	return nil
}

// Get returns a deep copy of the task with the given ID.
func (s *TaskStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	return deepCopyTask(t), nil
}

// Update applies fn to the stored task under the write lock.
func (s *TaskStore) Update(id string, fn func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	fn(t)
	return nil
}

// Len returns the number of stored tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// evictLocked drops the oldest terminal tasks while the store is full.
func (s *TaskStore) evictLocked() {
	for len(s.tasks) >= s.limit {
		idx := slices.IndexFunc(s.orderIDs, func(id string) bool {
			return s.tasks[id].Status.State.IsTerminal()
		})
		if idx < 0 {
			return
		}
		delete(s.tasks, s.orderIDs[idx])
		s.orderIDs = slices.Delete(s.orderIDs, idx, idx+1)
	}
}

func deepCopyTask(src *Task) *Task {
	dst := *src

	if src.Artifacts != nil {
		dst.Artifacts = make([]Artifact, len(src.Artifacts))
		for i, a := range src.Artifacts {
			dst.Artifacts[i] = deepCopyArtifact(a)
		}
	}
	dst.Metadata = cloneRaw(src.Metadata)
	if src.Status.Message != nil {
		msg := deepCopyMessage(*src.Status.Message)
		dst.Status.Message = &msg
	}
	return &dst
}

func deepCopyMessage(src Message) Message {
	dst := src
	dst.Parts = deepCopyParts(src.Parts)
	dst.Metadata = cloneRaw(src.Metadata)
	return dst
}

func deepCopyArtifact(src Artifact) Artifact {
	dst := src
	dst.Parts = deepCopyParts(src.Parts)
	dst.Metadata = cloneRaw(src.Metadata)
	return dst
}

func deepCopyParts(src []Part) []Part {
	if src == nil {
		return nil
	}
	dst := make([]Part, len(src))
	for i, p := range src {
		dst[i] = p
		dst[i].Data = cloneRaw(p.Data)
	}
	return dst
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return slices.Clone(b)
}
