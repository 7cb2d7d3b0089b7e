package flows

import (
	"context"
	"errors"
	"time"

	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/repo"
	"github.com/shaiso/Kontur/internal/rpc"
)

// Shared fakes for orchestrator tests.

type exchangeCall struct {
	host    string
	task    string
	payload map[string]any
}

// fakeExchange replies per remote task name; unscripted tasks
// succeed with an empty 200.
type fakeExchange struct {
	replies map[string]*rpc.Reply
	errs    map[string]error
	calls   []exchangeCall
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		replies: make(map[string]*rpc.Reply),
		errs:    make(map[string]error),
	}
}

func (f *fakeExchange) Exchange(_ context.Context, host, task string, payload map[string]any, _ time.Duration) (*rpc.Reply, error) {
	f.calls = append(f.calls, exchangeCall{host: host, task: task, payload: payload})
	if err, ok := f.errs[task]; ok {
		return nil, err
	}
	if r, ok := f.replies[task]; ok {
		return r, nil
	}
	return okReply(), nil
}

func (f *fakeExchange) callCount(task string) int {
	n := 0
	for _, c := range f.calls {
		if c.task == task {
			n++
		}
	}
	return n
}

func (f *fakeExchange) lastPayload(task string) map[string]any {
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].task == task {
			return f.calls[i].payload
		}
	}
	return nil
}

func okReply(kv ...any) *rpc.Reply {
	return statusReply(200, kv...)
}

func statusReply(code int, kv ...any) *rpc.Reply {
	data := map[string]any{"status": float64(code)}
	for i := 0; i+1 < len(kv); i += 2 {
		data[kv[i].(string)] = kv[i+1]
	}
	return &rpc.Reply{Data: data}
}

type fakeAuth struct {
	deny bool
	err  error
}

func (f *fakeAuth) CanManage(context.Context, string, string) (bool, error) {
	return !f.deny, f.err
}

type fakeGate struct {
	busy bool
	err  error
}

func (f *fakeGate) HasActive(context.Context, domain.TargetKind, string) (bool, error) {
	return f.busy, f.err
}

type fakeHosts struct {
	missing bool
}

func (f *fakeHosts) GetMaster(context.Context, string) (*domain.Host, error) {
	if f.missing {
		return nil, repo.ErrNotFound
	}
	return &domain.Host{IP: "10.0.0.5", Role: domain.HostRoleMaster}, nil
}

type scheduledTask struct {
	taskType domain.TaskType
	target   domain.TargetKind
	targetID string
	steps    []domain.StepRecord
}

type fakeSched struct {
	fail      bool
	scheduled []scheduledTask
}

func (f *fakeSched) Schedule(_ context.Context, taskType domain.TaskType, target domain.TargetKind, targetID string, steps []domain.StepRecord) (*domain.Task, error) {
	if f.fail {
		return nil, errors.New("schedule failed")
	}
	f.scheduled = append(f.scheduled, scheduledTask{taskType, target, targetID, steps})
	return &domain.Task{Type: taskType, Status: domain.TaskStatusPending}, nil
}

type bindingKey struct {
	workspace, volume, target string
}

type fakeBindings struct {
	records map[bindingKey]bool
	failNew bool
}

func newFakeBindings() *fakeBindings {
	return &fakeBindings{records: make(map[bindingKey]bool)}
}

func (f *fakeBindings) add(workspace, volume, target string) {
	f.records[bindingKey{workspace, volume, target}] = true
}

func (f *fakeBindings) Create(_ context.Context, b *domain.VolumeBinding) error {
	if f.failNew {
		return errors.New("insert failed")
	}
	key := bindingKey{b.WorkspaceID, b.VolumeName, b.Target}
	if f.records[key] {
		return repo.ErrAlreadyExists
	}
	f.records[key] = true
	return nil
}

func (f *fakeBindings) Delete(_ context.Context, workspace, volume, target string) error {
	delete(f.records, bindingKey{workspace, volume, target})
	return nil
}

func (f *fakeBindings) Exists(_ context.Context, workspace, volume, target string) (bool, error) {
	return f.records[bindingKey{workspace, volume, target}], nil
}

func (f *fakeBindings) CountByWorkspace(_ context.Context, workspace string) (int, error) {
	n := 0
	for k := range f.records {
		if k.workspace == workspace {
			n++
		}
	}
	return n, nil
}

func (f *fakeBindings) ListByWorkspace(_ context.Context, workspace string) ([]domain.VolumeBinding, error) {
	var out []domain.VolumeBinding
	for k := range f.records {
		if k.workspace == workspace {
			out = append(out, domain.VolumeBinding{
				WorkspaceID: k.workspace,
				VolumeName:  k.volume,
				Target:      k.target,
			})
		}
	}
	return out, nil
}

func (f *fakeBindings) DeleteByWorkspace(_ context.Context, workspace string) error {
	for k := range f.records {
		if k.workspace == workspace {
			delete(f.records, k)
		}
	}
	return nil
}
