package alarm

import (
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	a, ok := Check("CPU", 91, 90)
	if !ok {
		t.Fatal("Check(91, 90) did not alarm")
	}
	if s := a.String(); !strings.Contains(s, "CPU") || s == "" {
		t.Errorf("String = %q, want it to mention CPU", s)
	}

	if _, ok := Check("CPU", 89, 90); ok {
		t.Error("Check(89, 90) alarmed")
	}
	if _, ok := Check("CPU", 90, 90); !ok {
		t.Error("Check(90, 90) should alarm at the limit")
	}
}

func TestCheckComparesRawValues(t *testing.T) {
	// 89.6 rounds to 90 for display but is still below the limit.
	if _, ok := Check("CPU", 89.6, 90); ok {
		t.Error("Check(89.6, 90) alarmed; comparison must not round")
	}
	a, ok := Check("NVME", 65.4, 65.2)
	if !ok {
		t.Fatal("Check(65.4, 65.2) did not alarm")
	}
	if got, want := a.String(), "NVME crit t 65/65 °C"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}

func TestLimitsGPU(t *testing.T) {
	l := DefaultLimits()
	if got := l.GPU(100, true); got != 90 {
		t.Errorf("GPU(100, reported) = %v, want 90", got)
	}
	if got := l.GPU(0, false); got != 90 {
		t.Errorf("GPU(unreported) = %v, want default 90", got)
	}

	override := l
	override.GPUMargin = 30
	if got := override.GPU(100, true); got != 70 {
		t.Errorf("override GPU = %v, want 70", got)
	}
	if got := l.GPU(100, true); got != 90 {
		t.Errorf("base limits changed by override: %v", got)
	}
}

func TestEvaluate(t *testing.T) {
	limits := DefaultLimits()
	alarms := Evaluate(limits, Readings{
		CPU:         Reading{Value: 95, OK: true},
		Disk:        Reading{Value: 70, OK: true},
		GPU:         Reading{Value: 50, OK: true},
		GPUCritical: Reading{Value: 100, OK: true},
	})
	got := Strings(alarms)
	if len(got) != 2 {
		t.Fatalf("alarms = %q, want NVME and CPU", got)
	}
	if !strings.HasPrefix(got[0], "NVME") || !strings.HasPrefix(got[1], "CPU") {
		t.Errorf("alarms = %q, want NVME then CPU", got)
	}
}

func TestEvaluateSkipsUnavailable(t *testing.T) {
	alarms := Evaluate(DefaultLimits(), Readings{
		CPU: Reading{Value: 200, OK: false},
		GPU: Reading{Value: 200, OK: false},
	})
	if len(alarms) != 0 {
		t.Errorf("alarms for unavailable readings: %v", alarms)
	}
}

func TestEvaluateTemporaryOverride(t *testing.T) {
	readings := Readings{CPU: Reading{Value: 40, OK: true}}
	if len(Evaluate(DefaultLimits(), readings)) != 0 {
		t.Fatal("unexpected alarm at default limits")
	}
	demo := DefaultLimits()
	demo.CPU = 30
	if len(Evaluate(demo, readings)) != 1 {
		t.Error("lowered CPU limit did not alarm")
	}
	if len(Evaluate(DefaultLimits(), readings)) != 0 {
		t.Error("override leaked into default limits")
	}
}
