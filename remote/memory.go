package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"go.uber.org/atomic"
)

// MemorySubstrate exports objects inside the process without opening any
// socket. Invocations still go through the JSON encoding used on the wire,
// so anything that works against it works against a Runtime.
type MemorySubstrate struct {
	registries *RegistryManager
	objects    *objectTable
	exports    atomic.Int64
}

var _ interfaces.Substrate = (*MemorySubstrate)(nil)

func NewMemorySubstrate() *MemorySubstrate {
	return &MemorySubstrate{
		registries: newRegistryManager(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), nil),
		objects:    newObjectTable(),
	}
}

func (s *MemorySubstrate) CreateRegistry(port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory) (interfaces.Registry, error) {
	return s.registries.CreateRegistry(port, csf, ssf)
}

func (s *MemorySubstrate) Export(obj interfaces.Remote, port int, csf interfaces.ClientSocketFactory, ssf interfaces.ServerSocketFactory, settings interfaces.Settings) (*interfaces.Stub, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := validatePort(port); err != nil {
		return nil, err
	}
	host := settings.AdvertisedHostname
	if host == "" {
		host = "localhost"
	}
	stub, err := s.objects.add(obj, host, port, settings.RandomObjectIDs)
	if err != nil {
		return nil, err
	}
	s.exports.Inc()
	return stub, nil
}

// Registries exposes the registry provisioner.
func (s *MemorySubstrate) Registries() *RegistryManager {
	return s.registries
}

// Exports counts successful Export calls.
func (s *MemorySubstrate) Exports() int {
	return int(s.exports.Load())
}

// Resolve returns the object behind stub.
func (s *MemorySubstrate) Resolve(stub *interfaces.Stub) (interfaces.Remote, error) {
	obj, exported, found := s.objects.object(stub.ObjectID)
	if !found || exported.Port != stub.Port {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchObject, stub.ObjectID)
	}
	return obj, nil
}

// Lookup resolves name in the registry of port. host is ignored.
func (s *MemorySubstrate) Lookup(_ context.Context, _ string, port int, name string) (*interfaces.Stub, error) {
	r, found := s.registries.Registry(port)
	if !found {
		return nil, fmt.Errorf("%w: no registry on port %d", ErrNotBound, port)
	}
	return r.Lookup(name)
}

// Invoke calls method on the object behind stub, encoding args and decoding
// the result into reply exactly as a Client would.
func (s *MemorySubstrate) Invoke(ctx context.Context, stub *interfaces.Stub, method string, args any, reply any) error {
	var raw json.RawMessage
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("could not encode %s arguments: %w", method, err)
		}
		raw = encoded
	}
	resp := s.objects.invoke(ctx, nil, stub.Port, stub.ObjectID, method, raw)
	return decodeResponse(method, resp, reply)
}
