package a2a

import "context"

// Client sends tasks to remote A2A agents.
type Client interface {
	// SendMessage sends a message to an agent and returns the task. In
	// blocking mode the agent replies once the task is terminal.
	SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error)

	// GetTask retrieves a task by ID from a specific agent.
	GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error)

	// CancelTask cancels a running task.
	CancelTask(ctx context.Context, endpoint string, req CancelTaskRequest) (*Task, error)

	// DiscoverAgent fetches the Agent Card from the well-known URI.
	DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error)
}
