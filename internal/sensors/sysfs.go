package sensors

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Dicklesworthstone/hardmon/internal/model"
)

// readSysfsString reads a single-line sysfs file and trims it.
func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readSysfsInt64 reads an integer sysfs attribute.
func readSysfsInt64(path string) (int64, error) {
	value, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return n, nil
}

// micro scales a µ-unit attribute (µV, µA, µAh, µW) to base units.
func micro(path string) (float64, error) {
	n, err := readSysfsInt64(path)
	if err != nil {
		return 0, err
	}
	return float64(n) / 1e6, nil
}

// readBattery reads a power_supply directory. Any missing attribute makes
// the whole reading unavailable.
func readBattery(dir string) (model.Battery, error) {
	voltage, err := micro(filepath.Join(dir, "voltage_now"))
	if err != nil {
		return model.Battery{}, err
	}
	voltageMin, err := micro(filepath.Join(dir, "voltage_min_design"))
	if err != nil {
		return model.Battery{}, err
	}
	chargeNow, err := micro(filepath.Join(dir, "charge_now"))
	if err != nil {
		return model.Battery{}, err
	}
	chargeFull, err := micro(filepath.Join(dir, "charge_full"))
	if err != nil {
		return model.Battery{}, err
	}
	current, err := micro(filepath.Join(dir, "current_now"))
	if err != nil {
		return model.Battery{}, err
	}
	status, err := readSysfsString(filepath.Join(dir, "status"))
	if err != nil {
		return model.Battery{}, err
	}

	return model.Battery{
		Present:      true,
		Charging:     !strings.Contains(status, "Discharging"),
		PowerW:       voltage * current,
		ChargeWh:     chargeNow * voltageMin,
		ChargeFullWh: chargeFull * voltageMin,
	}, nil
}

// findHwmon returns the hwmon directory whose device/device file contains
// deviceID.
func findHwmon(root, deviceID string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		id, err := readSysfsString(filepath.Join(dir, "device", "device"))
		if err != nil {
			continue
		}
		if strings.Contains(id, deviceID) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no hwmon device with id %s under %s", deviceID, root)
}

// readGPU reads power and edge/junction temperature from the matching
// hwmon directory. temp2 is the junction sensor on amdgpu.
func readGPU(root, deviceID string) (model.GPU, error) {
	if deviceID == "" {
		return model.GPU{}, errors.New("no gpu device id configured")
	}
	dir, err := findHwmon(root, deviceID)
	if err != nil {
		return model.GPU{}, err
	}
	power, err := micro(filepath.Join(dir, "power1_average"))
	if err != nil {
		return model.GPU{}, err
	}
	powerCap, err := micro(filepath.Join(dir, "power1_cap"))
	if err != nil {
		return model.GPU{}, err
	}
	temp, err := readSysfsInt64(filepath.Join(dir, "temp2_input"))
	if err != nil {
		return model.GPU{}, err
	}
	gpu := model.GPU{
		Present:   true,
		PowerW:    power,
		PowerCapW: powerCap,
		TempC:     float64(temp) / 1000,
	}
	if crit, err := readSysfsInt64(filepath.Join(dir, "temp2_crit")); err == nil {
		gpu.CritC = float64(crit) / 1000
		gpu.HasCrit = true
	}
	return gpu, nil
}

// readCoreFrequencies reads scaling_cur_freq (kHz) of every cpuN under
// root and returns MHz in core order.
func readCoreFrequencies(root string) ([]float64, error) {
	paths, err := filepath.Glob(filepath.Join(root, "cpu[0-9]*", "cpufreq", "scaling_cur_freq"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no cpufreq entries under %s", root)
	}
	sort.Strings(paths)
	freqs := make([]float64, 0, len(paths))
	for _, p := range paths {
		khz, err := readSysfsInt64(p)
		if err != nil {
			continue
		}
		freqs = append(freqs, float64(khz)/1000)
	}
	if len(freqs) == 0 {
		return nil, fmt.Errorf("no readable cpufreq entries under %s", root)
	}
	return freqs, nil
}
