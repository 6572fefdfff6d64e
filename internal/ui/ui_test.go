package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/hardmon/internal/alarm"
	"github.com/Dicklesworthstone/hardmon/internal/model"
)

type recordSink struct{ got [][]string }

func (r *recordSink) Notify(_ context.Context, alarms []string) error {
	r.got = append(r.got, alarms)
	return nil
}

func TestPanelAppliesSnapshots(t *testing.T) {
	stream := make(chan model.Snapshot, 1)
	cancelled := false
	sink := &recordSink{}
	m := New(stream, func() { cancelled = true }, Options{
		Period:      time.Second,
		GraphWindow: 10 * time.Second,
		ShowGraph:   true,
		Sink:        sink,
	})

	// Nothing queued: the tick only reschedules.
	if _, cmd := m.Update(tickMsg{}); cmd == nil {
		t.Fatal("tick without snapshot returned no command")
	}

	snap := model.Snapshot{
		CPU:    model.CPU{Cores: 4, Load: 2, RatesOK: true},
		Alarms: []alarm.Alarm{{Name: "CPU", Value: 93, Limit: 90}},
	}
	stream <- snap
	m.Update(tickMsg{})
	if m.latest.CPU.Load != 2 {
		t.Fatalf("latest load = %v, want 2", m.latest.CPU.Load)
	}

	// The notification runs as a command; run it directly.
	if cmd := m.apply(snap); cmd != nil {
		if msg, ok := cmd().(notifiedMsg); !ok || msg.err != nil {
			t.Fatalf("notification command returned %#v", msg)
		}
	}
	if len(sink.got) != 1 || sink.got[0][0] != "CPU crit t 93/90 °C" {
		t.Errorf("sink received %q", sink.got)
	}

	view := m.View()
	if !strings.Contains(view, "CPU crit t 93/90 °C") {
		t.Errorf("view does not show the alarm banner: %q", view)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	if m.graph {
		t.Error("g did not toggle the graph off")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled || cmd == nil {
		t.Errorf("quit: cancelled=%v cmd=%v", cancelled, cmd)
	}
}

func TestPanelQuitsWhenStreamCloses(t *testing.T) {
	stream := make(chan model.Snapshot)
	close(stream)
	m := New(stream, func() {}, Options{Period: time.Second})
	_, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Fatal("no command after stream closed")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("closed stream did not quit")
	}
}

func TestPanelShowsLineWithoutAlarms(t *testing.T) {
	stream := make(chan model.Snapshot)
	m := New(stream, func() {}, Options{Period: time.Second})
	m.latest = model.Snapshot{Clock: model.Clock{Local: time.Date(2026, 3, 14, 9, 5, 7, 0, time.UTC)}}
	if view := m.View(); !strings.Contains(view, "09:05:07") {
		t.Errorf("view = %q", view)
	}
}
