package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
)

func buildFakeSender(name string, op capturemodel.PreprocessingOp) (*Sender, error) {
	return NewSender(name, &fakeReader{}, &fakePublisher{}, op), nil
}

func TestOrchestratorRejectsOpForUnknownDevice(t *testing.T) {
	_, err := NewOrchestrator(&fakeProxy{}, []string{"camA"}, buildFakeSender,
		map[string]capturemodel.PreprocessingOp{"camZ": capturemodel.PreprocessRotate180})
	if err == nil {
		t.Fatal("expected construction error for op naming an unknown device")
	}
}

func TestOrchestratorStartStartsProxyThenSenders(t *testing.T) {
	proxy := &fakeProxy{}
	orch, err := NewOrchestrator(proxy, []string{"camA", "camB"}, buildFakeSender, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	if err := orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !proxy.IsActive() {
		t.Fatal("expected proxy active after Start")
	}
	for _, u := range orch.units {
		if !u.sender.IsActive() {
			t.Fatalf("expected sender %q active after Start", u.name)
		}
	}

	orch.Stop(time.Second)
	if proxy.IsActive() {
		t.Fatal("expected proxy stopped after Stop")
	}
	for _, u := range orch.units {
		if u.sender.IsActive() {
			t.Fatalf("expected sender %q stopped after Stop", u.name)
		}
	}
}

func TestOrchestratorStartFailsIfProxyFails(t *testing.T) {
	proxy := &fakeProxy{failStart: errors.New("bind failed")}
	orch, err := NewOrchestrator(proxy, []string{"camA"}, buildFakeSender, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	if err := orch.Start(); err == nil {
		t.Fatal("expected Start to fail when proxy fails")
	}
}

func TestOrchestratorStartTwiceRejected(t *testing.T) {
	orch, err := NewOrchestrator(&fakeProxy{}, []string{"camA"}, buildFakeSender, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	if err := orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer orch.Stop(time.Second)

	if err := orch.Start(); err == nil {
		t.Fatal("expected error starting an already-started orchestrator")
	}
}
