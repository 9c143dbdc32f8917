package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatal("expected non-nil collector")
	}
	if c.Registry == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestCollector_CallLifecycle(t *testing.T) {
	c := NewCollector()

	c.CallStarted("NXDN", "rf")
	if got := testutil.ToFloat64(c.CallsStarted.WithLabelValues("NXDN", "rf")); got != 1 {
		t.Errorf("expected 1 call started, got %v", got)
	}
	if got := testutil.ToFloat64(c.ActiveCalls.WithLabelValues("NXDN", "rf")); got != 1 {
		t.Errorf("expected active gauge 1, got %v", got)
	}

	c.CallEnded("NXDN", "rf", 1.5)
	if got := testutil.ToFloat64(c.CallsEnded.WithLabelValues("NXDN", "rf")); got != 1 {
		t.Errorf("expected 1 call ended, got %v", got)
	}
	if got := testutil.ToFloat64(c.ActiveCalls.WithLabelValues("NXDN", "rf")); got != 0 {
		t.Errorf("expected active gauge 0, got %v", got)
	}
}

func TestCollector_Rejection(t *testing.T) {
	c := NewCollector()

	c.CallRejected("P25", "src")
	c.CallRejected("P25", "src")
	if got := testutil.ToFloat64(c.CallsRejected.WithLabelValues("P25", "src")); got != 2 {
		t.Errorf("expected 2 rejections, got %v", got)
	}
}

func TestCollector_Collision(t *testing.T) {
	c := NewCollector()

	c.Collision("DMR", "preempt_existing")
	if got := testutil.ToFloat64(c.Collisions.WithLabelValues("DMR", "preempt_existing")); got != 1 {
		t.Errorf("expected 1 collision, got %v", got)
	}
}

func TestCollector_FECRegenerated(t *testing.T) {
	c := NewCollector()

	c.FECRegenerated("NXDN", 188, 3)
	c.FECRegenerated("NXDN", 94, 1)

	if got := testutil.ToFloat64(c.FECBits.WithLabelValues("NXDN")); got != 282 {
		t.Errorf("expected 282 bits, got %v", got)
	}
	if got := testutil.ToFloat64(c.FECErrors.WithLabelValues("NXDN")); got != 4 {
		t.Errorf("expected 4 errors, got %v", got)
	}
}

func TestCollector_BridgeRouted(t *testing.T) {
	c := NewCollector()

	c.BridgeRouted()
	c.BridgeRouted()
	if got := testutil.ToFloat64(c.BridgeRoutes); got != 2 {
		t.Errorf("expected 2 bridge routes, got %v", got)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			c.CallStarted("NXDN", "rf")
			c.FECRegenerated("NXDN", 188, 2)
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := testutil.ToFloat64(c.CallsStarted.WithLabelValues("NXDN", "rf")); got != 10 {
		t.Errorf("expected 10 calls started, got %v", got)
	}
}
