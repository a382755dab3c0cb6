package telegram

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistryFirstWriterWins(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var tokens []string
	reg := NewRegistry(func(token string) (Client, error) {
		mu.Lock()
		tokens = append(tokens, token)
		mu.Unlock()
		return newFakeClient(), nil
	}, nil)

	var wg sync.WaitGroup
	instances := make([]*Instance, 16)
	for i := range instances {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			instances[i] = reg.GetOrCreate("token-a")
		}(i)
	}
	wg.Wait()

	for _, inst := range instances {
		if inst != instances[0] {
			t.Fatal("concurrent GetOrCreate returned different instances")
		}
	}
	if len(tokens) != 1 {
		t.Fatalf("client factory called %d times, want 1", len(tokens))
	}

	if got := reg.GetOrCreate("token-b"); got != instances[0] {
		t.Error("a later token replaced the first instance")
	}
}

func TestRegistryUnconfigured(t *testing.T) {
	t.Parallel()

	calls := 0
	reg := NewRegistry(func(string) (Client, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("boom")
		}
		return newFakeClient(), nil
	}, nil)

	empty := reg.GetOrCreate("   ")
	if empty.Configured() || empty.Started() || empty.Client() != nil {
		t.Fatalf("empty token instance = %+v, want unconfigured", empty)
	}
	if calls != 0 {
		t.Fatal("client factory called for an empty token")
	}

	if failed := reg.GetOrCreate("token"); failed.Configured() {
		t.Fatal("factory failure produced a configured instance")
	}

	inst := reg.GetOrCreate("token")
	if !inst.Configured() {
		t.Fatal("unconfigured sentinel was cached")
	}

	var nilInst *Instance
	if nilInst.Configured() || nilInst.Started() || nilInst.Client() != nil {
		t.Error("nil instance should report unconfigured")
	}
}
