package remote

import (
	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockSubstrate is a testify mock of interfaces.Substrate.
type MockSubstrate struct {
	mock.Mock
}

var _ interfaces.Substrate = (*MockSubstrate)(nil)

// CreateRegistry mocks the CreateRegistry method
func (m *MockSubstrate) CreateRegistry(port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory) (interfaces.Registry, error) {
	args := m.Called(port, csf, ssf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.Registry), args.Error(1)
}

// Export mocks the Export method
func (m *MockSubstrate) Export(obj interfaces.Remote, port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory, settings interfaces.Settings) (*interfaces.Stub, error) {
	args := m.Called(obj, port, csf, ssf, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Stub), args.Error(1)
}

// MockRegistry is a testify mock of interfaces.Registry.
type MockRegistry struct {
	mock.Mock
}

var _ interfaces.Registry = (*MockRegistry)(nil)

// Port mocks the Port method
func (m *MockRegistry) Port() int {
	return m.Called().Int(0)
}

// Bind mocks the Bind method
func (m *MockRegistry) Bind(name string, stub *interfaces.Stub) error {
	return m.Called(name, stub).Error(0)
}

// Rebind mocks the Rebind method
func (m *MockRegistry) Rebind(name string, stub *interfaces.Stub) error {
	return m.Called(name, stub).Error(0)
}

// Unbind mocks the Unbind method
func (m *MockRegistry) Unbind(name string) error {
	return m.Called(name).Error(0)
}

// Lookup mocks the Lookup method
func (m *MockRegistry) Lookup(name string) (*interfaces.Stub, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Stub), args.Error(1)
}

// List mocks the List method
func (m *MockRegistry) List() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}
