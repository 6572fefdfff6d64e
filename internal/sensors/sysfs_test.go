package sensors

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestReadBattery(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"voltage_now":        "12000000",
		"voltage_min_design": "11500000",
		"charge_now":         "2000000",
		"charge_full":        "4000000",
		"current_now":        "500000",
		"status":             "Discharging",
	})

	bat, err := readBattery(dir)
	if err != nil {
		t.Fatalf("readBattery: %v", err)
	}
	if !bat.Present || bat.Charging {
		t.Errorf("Present=%v Charging=%v, want true false", bat.Present, bat.Charging)
	}
	if !near(bat.PowerW, 6) {
		t.Errorf("PowerW = %v, want 6", bat.PowerW)
	}
	if !near(bat.ChargeWh, 23) {
		t.Errorf("ChargeWh = %v, want 23", bat.ChargeWh)
	}
	if !near(bat.ChargeFullWh, 46) {
		t.Errorf("ChargeFullWh = %v, want 46", bat.ChargeFullWh)
	}

	writeFiles(t, dir, map[string]string{"status": "Charging"})
	bat, err = readBattery(dir)
	if err != nil {
		t.Fatalf("readBattery: %v", err)
	}
	if !bat.Charging {
		t.Error("Charging = false after status Charging")
	}
}

func TestReadBatteryMissingAttribute(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"voltage_now": "12000000",
		"status":      "Full",
	})
	if _, err := readBattery(dir); err == nil {
		t.Fatal("readBattery succeeded with missing attributes")
	}
	if _, err := readBattery(filepath.Join(dir, "absent")); err == nil {
		t.Fatal("readBattery succeeded on a missing directory")
	}
}

func TestReadGPU(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"hwmon0/device/device":  "0x1234",
		"hwmon0/power1_average": "1000000",
		"hwmon1/device/device":  "0x7340",
		"hwmon1/power1_average": "15500000",
		"hwmon1/power1_cap":     "50000000",
		"hwmon1/temp2_input":    "61000",
		"hwmon1/temp2_crit":     "105000",
		"hwmon2/name":           "k10temp",
	})

	gpu, err := readGPU(root, "0x7340")
	if err != nil {
		t.Fatalf("readGPU: %v", err)
	}
	if !gpu.Present {
		t.Error("Present = false")
	}
	if !near(gpu.PowerW, 15.5) || !near(gpu.PowerCapW, 50) {
		t.Errorf("power = %v/%v, want 15.5/50", gpu.PowerW, gpu.PowerCapW)
	}
	if !near(gpu.TempC, 61) {
		t.Errorf("TempC = %v, want 61", gpu.TempC)
	}
	if !gpu.HasCrit || !near(gpu.CritC, 105) {
		t.Errorf("crit = %v (has %v), want 105", gpu.CritC, gpu.HasCrit)
	}
}

func TestReadGPUWithoutCritical(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"hwmon3/device/device":  "0x7340",
		"hwmon3/power1_average": "1000000",
		"hwmon3/power1_cap":     "2000000",
		"hwmon3/temp2_input":    "40000",
	})
	gpu, err := readGPU(root, "0x7340")
	if err != nil {
		t.Fatalf("readGPU: %v", err)
	}
	if gpu.HasCrit {
		t.Error("HasCrit = true without temp2_crit")
	}
}

func TestReadGPUNoMatch(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"hwmon0/device/device": "0x1234"})
	if _, err := readGPU(root, "0x7340"); err == nil {
		t.Fatal("readGPU matched the wrong device")
	}
	if _, err := readGPU(root, ""); err == nil {
		t.Fatal("readGPU accepted an empty device id")
	}
}

func TestReadCoreFrequencies(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"cpu0/cpufreq/scaling_cur_freq": "1400000",
		"cpu1/cpufreq/scaling_cur_freq": "3800000",
		"cpu2/cpufreq/scaling_cur_freq": "garbage",
		"cpufreq/boost":                 "1",
	})

	freqs, err := readCoreFrequencies(root)
	if err != nil {
		t.Fatalf("readCoreFrequencies: %v", err)
	}
	if len(freqs) != 2 || freqs[0] != 1400 || freqs[1] != 3800 {
		t.Errorf("freqs = %v, want [1400 3800]", freqs)
	}

	if _, err := readCoreFrequencies(t.TempDir()); err == nil {
		t.Fatal("readCoreFrequencies succeeded on an empty root")
	}
}
