package oracle

import (
	"context"
	"errors"
	"sync/atomic"
)

// fakeClient is a scripted Client for wrapper tests.
type fakeClient struct {
	name   string
	calls  atomic.Int32
	invoke func(ctx context.Context, system, user string) (string, error)
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Invoke(ctx context.Context, system, user string) (string, error) {
	f.calls.Add(1)
	return f.invoke(ctx, system, user)
}

func replying(name, reply string) *fakeClient {
	return &fakeClient{name: name, invoke: func(context.Context, string, string) (string, error) {
		return reply, nil
	}}
}

func failing(name string, err error) *fakeClient {
	if err == nil {
		err = errors.New("boom")
	}
	return &fakeClient{name: name, invoke: func(context.Context, string, string) (string, error) {
		return "", err
	}}
}
