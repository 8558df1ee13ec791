package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/ruteri/noc-monitor-publisher/metrics"
	"go.uber.org/atomic"
)

// objectTable tracks exported objects by id and by identity.
type objectTable struct {
	seq atomic.Uint64

	mu    sync.RWMutex
	byID  map[string]interfaces.Remote
	stubs map[interfaces.Remote]*interfaces.Stub
}

func newObjectTable() *objectTable {
	return &objectTable{
		byID:  make(map[string]interfaces.Remote),
		stubs: make(map[interfaces.Remote]*interfaces.Stub),
	}
}

func (t *objectTable) newID(random bool) string {
	if random {
		return uuid.NewString()
	}
	return strconv.FormatUint(t.seq.Inc(), 10)
}

// add exports obj once; a second export of the same object fails.
func (t *objectTable) add(obj interfaces.Remote, host string, port int, randomIDs bool) (*interfaces.Stub, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: nil object", ErrNoIdentity)
	}
	if !reflect.TypeOf(obj).Comparable() {
		return nil, fmt.Errorf("%w: %T", ErrNoIdentity, obj)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, found := t.stubs[obj]; found {
		return nil, fmt.Errorf("%w: %T", ErrAlreadyExported, obj)
	}

	id := t.newID(randomIDs)
	for t.byID[id] != nil {
		id = t.newID(randomIDs)
	}

	stub := &interfaces.Stub{Host: host, Port: port, ObjectID: id}
	t.byID[id] = obj
	t.stubs[obj] = stub
	return stub, nil
}

func (t *objectTable) object(id string) (interfaces.Remote, *interfaces.Stub, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	obj, found := t.byID[id]
	if !found {
		return nil, nil, false
	}
	return obj, t.stubs[obj], true
}

func (t *objectTable) stubOf(obj interfaces.Remote) (*interfaces.Stub, bool) {
	if obj == nil || !reflect.TypeOf(obj).Comparable() {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	stub, found := t.stubs[obj]
	return stub, found
}

func (t *objectTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// toWire replaces Remote values in an invocation result by their stubs.
func (t *objectTable) toWire(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case interfaces.Remote:
		stub, found := t.stubOf(x)
		if !found {
			return nil, fmt.Errorf("%w: %T", ErrNotExported, x)
		}
		return stub, nil
	case []interfaces.Remote:
		stubs := make([]*interfaces.Stub, len(x))
		for i, obj := range x {
			stub, found := t.stubOf(obj)
			if !found {
				return nil, fmt.Errorf("%w: %T", ErrNotExported, obj)
			}
			stubs[i] = stub
		}
		return stubs, nil
	}
	return v, nil
}

// invocationResponse is the body of every object call.
type invocationResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// invoke runs method on the object id exported on port and encodes the
// outcome.
func (t *objectTable) invoke(ctx context.Context, m *metrics.Metrics, port int, id, method string, args json.RawMessage) invocationResponse {
	start := time.Now()
	resp := t.doInvoke(ctx, port, id, method, args)
	outcome := "ok"
	if resp.Code != "" {
		outcome = resp.Code
	}
	m.Invocation(method, outcome, time.Since(start))
	return resp
}

func (t *objectTable) doInvoke(ctx context.Context, port int, id, method string, args json.RawMessage) invocationResponse {
	obj, stub, found := t.object(id)
	if !found || stub.Port != port {
		return invocationResponse{Error: fmt.Sprintf("object %s", id), Code: codeNoSuchObject}
	}
	if len(args) == 0 {
		args = nil
	}

	result, err := obj.Invoke(ctx, method, args)
	if err != nil {
		return invocationResponse{Error: err.Error(), Code: errorCode(err)}
	}

	wire, err := t.toWire(result)
	if err != nil {
		return invocationResponse{Error: err.Error(), Code: errorCode(err)}
	}
	if wire == nil {
		return invocationResponse{}
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return invocationResponse{Error: fmt.Sprintf("could not encode result: %v", err), Code: codeRemote}
	}
	return invocationResponse{Result: raw}
}

func decodeResponse(method string, resp invocationResponse, reply any) error {
	if resp.Code != "" || resp.Error != "" {
		code := resp.Code
		if code == "" {
			code = codeRemote
		}
		return &RemoteError{Method: method, Code: code, Message: resp.Error}
	}
	if reply == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, reply); err != nil {
		return fmt.Errorf("could not decode %s result: %w", method, err)
	}
	return nil
}
