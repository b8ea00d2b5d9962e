package hmc

import "context"

// MockSession is a func-field mock implementation of Session for tests.
type MockSession struct {
	RunCommandFunc     func(ctx context.Context, argv []string) (CommandResult, error)
	RunVIOSCommandFunc func(ctx context.Context, managedSystem, vios, command string) (CommandResult, error)
	CloseFunc          func() error

	CloseCalls int
}

func (m *MockSession) RunCommand(ctx context.Context, argv []string) (CommandResult, error) {
	return m.RunCommandFunc(ctx, argv)
}

func (m *MockSession) RunVIOSCommand(ctx context.Context, managedSystem, vios, command string) (CommandResult, error) {
	return m.RunVIOSCommandFunc(ctx, managedSystem, vios, command)
}

func (m *MockSession) Close() error {
	m.CloseCalls++
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// MockFeedClient is a func-field mock of the hybrid transport's read path.
type MockFeedClient struct {
	FetchResourceFunc func(ctx context.Context, path string) ([]byte, error)
	SearchFunc        func(ctx context.Context, resource, query string) ([]byte, error)
}

func (m *MockFeedClient) FetchResource(ctx context.Context, path string) ([]byte, error) {
	return m.FetchResourceFunc(ctx, path)
}

func (m *MockFeedClient) Search(ctx context.Context, resource, query string) ([]byte, error) {
	return m.SearchFunc(ctx, resource, query)
}
