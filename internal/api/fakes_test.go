package api

import (
	"context"
	"errors"
	"sync"

	"condash/internal/conda"
	"condash/internal/envfile"
	"condash/internal/models"
	"condash/internal/systemd"
)

type fakeEnvs struct {
	envs []models.EnvRecord

	listCalls   int
	createCalls []createCall
	createRes   conda.CreateResult
	createErr   error
}

type createCall struct {
	name     string
	python   string
	packages []string
}

func (f *fakeEnvs) ListEnvs(ctx context.Context) []models.EnvRecord {
	f.listCalls++
	return f.envs
}

func (f *fakeEnvs) CreateEnv(ctx context.Context, name, python string, packages []string) (conda.CreateResult, error) {
	f.createCalls = append(f.createCalls, createCall{name: name, python: python, packages: packages})
	return f.createRes, f.createErr
}

// fakeServices is mutex-guarded because log streaming exercises it from
// the test server's goroutine.
type fakeServices struct {
	mu       sync.Mutex
	statuses []models.ServiceStatus

	statusCalls [][]models.ServiceSpec
	applyCalls  []applyCall
	applyRes    systemd.ActionOutcome

	streamLines []string
	streamErr   error
	streamCalls []streamCall
}

type applyCall struct {
	scope  models.Scope
	name   string
	action models.Action
}

type streamCall struct {
	spec  models.ServiceSpec
	lines int
}

func (f *fakeServices) StatusAll(ctx context.Context, specs []models.ServiceSpec) []models.ServiceStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, specs)
	return f.statuses
}

func (f *fakeServices) Apply(ctx context.Context, scope models.Scope, name string, action models.Action) (systemd.ActionOutcome, error) {
	if !scope.Valid() {
		return systemd.ActionOutcome{}, systemd.ErrInvalidScope
	}
	if !action.Valid() {
		return systemd.ActionOutcome{}, systemd.ErrInvalidAction
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls = append(f.applyCalls, applyCall{scope: scope, name: name, action: action})
	return f.applyRes, nil
}

func (f *fakeServices) StreamLogs(ctx context.Context, spec models.ServiceSpec, lines int) (<-chan string, error) {
	f.mu.Lock()
	f.streamCalls = append(f.streamCalls, streamCall{spec: spec, lines: lines})
	f.mu.Unlock()
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	ch := make(chan string, len(f.streamLines))
	for _, line := range f.streamLines {
		ch <- line
	}
	close(ch)
	return ch, nil
}

func (f *fakeServices) streams() []streamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]streamCall(nil), f.streamCalls...)
}

type fakeStore struct {
	values map[string]string
	readEr error

	applyCalls []envfile.Updates
	applyRes   envfile.Applied
	applyErr   error
}

func (f *fakeStore) Snapshot(mask bool) (map[string]string, error) {
	if f.readEr != nil {
		return nil, f.readEr
	}
	return f.values, nil
}

func (f *fakeStore) Apply(updates envfile.Updates) (envfile.Applied, error) {
	f.applyCalls = append(f.applyCalls, updates)
	if f.applyErr != nil {
		return envfile.Applied{}, f.applyErr
	}
	return f.applyRes, nil
}

var errStoreBroken = errors.New("disk on fire")

func testConfig() Config {
	return Config{
		Envs:     &fakeEnvs{},
		Services: &fakeServices{},
		Store:    &fakeStore{values: map[string]string{}},
		Units: []models.ServiceSpec{
			{Scope: models.ScopeUser, Name: "comfyui.service"},
		},
		EnvPath:     "/srv/condash/.env",
		MaskSecrets: true,
		Version:     "test",
	}
}
