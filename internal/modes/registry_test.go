package modes

import (
	"errors"
	"sync"
	"testing"
)

func newTestRegistry() *Registry {
	return NewRegistry(map[string]string{
		"creative": "You are a wildly creative storyteller.",
		"terse":    "Answer in as few words as possible.",
	})
}

func TestResolve(t *testing.T) {
	r := newTestRegistry()

	instruction, ok := r.Resolve("creative")
	if !ok {
		t.Fatal("creative should resolve")
	}
	if instruction == "" {
		t.Error("resolved instruction should not be empty")
	}

	if _, ok := r.Resolve("nope"); ok {
		t.Error("unknown mode should not resolve")
	}
}

func TestSetActive_InvalidModeLeavesStateUnchanged(t *testing.T) {
	r := newTestRegistry()

	if err := r.SetActive(1, "creative"); err != nil {
		t.Fatalf("SetActive(creative): %v", err)
	}

	err := r.SetActive(1, "bogus")
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("SetActive(bogus) = %v, want ErrInvalidMode", err)
	}

	if active, _ := r.Active(1); active != "creative" {
		t.Errorf("active mode = %q after rejected set, want creative", active)
	}
}

func TestResetActive_Idempotent(t *testing.T) {
	r := newTestRegistry()

	if err := r.SetActive(1, "terse"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	r.ResetActive(1)
	if _, ok := r.Active(1); ok {
		t.Error("active mode should be unset after reset")
	}

	// A second reset on an already-unset chat is a no-op.
	r.ResetActive(1)
	if _, ok := r.Active(1); ok {
		t.Error("active mode should stay unset after a second reset")
	}
}

func TestInstruction(t *testing.T) {
	r := newTestRegistry()

	if got := r.Instruction(7); got != "" {
		t.Errorf("Instruction with no active mode = %q, want empty", got)
	}

	if err := r.SetActive(7, "terse"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got := r.Instruction(7); got != "Answer in as few words as possible." {
		t.Errorf("Instruction = %q", got)
	}
}

func TestActiveModeIsPerChat(t *testing.T) {
	r := newTestRegistry()

	if err := r.SetActive(1, "creative"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, ok := r.Active(2); ok {
		t.Error("chat 2 should have no active mode")
	}
}

func TestNames_Sorted(t *testing.T) {
	r := newTestRegistry()

	names := r.Names()
	if len(names) != 2 || names[0] != "creative" || names[1] != "terse" {
		t.Errorf("Names() = %v, want [creative terse]", names)
	}
}

func TestConcurrentActiveUpdates(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			_ = r.SetActive(chatID, "creative")
			r.Instruction(chatID)
			r.ResetActive(chatID)
		}(int64(i % 5))
	}
	wg.Wait()
}
