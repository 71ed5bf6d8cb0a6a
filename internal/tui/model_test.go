package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"imc-manager/internal/models"
	"imc-manager/internal/view"

	tea "github.com/charmbracelet/bubbletea"
)

type call struct {
	command string
	service string
}

// fakeSource 记录收到的命令, 按需返回错误
type fakeSource struct {
	dash     view.Dashboard
	dashErr  error
	calls    []call
	execErr  error
	response *models.CommandResult
}

func (f *fakeSource) Dashboard(ctx context.Context, events int) (view.Dashboard, error) {
	return f.dash, f.dashErr
}

func (f *fakeSource) Execute(ctx context.Context, command, service string) (*models.CommandResult, error) {
	f.calls = append(f.calls, call{command, service})
	if f.execErr != nil {
		return nil, f.execErr
	}
	if f.response != nil {
		return f.response, nil
	}
	return &models.CommandResult{Command: command, Service: service, StatusCode: 200}, nil
}

func sampleDashboard() view.Dashboard {
	return view.Dashboard{
		GeneratedAt: "2025-08-22T10:00:00Z",
		Health:      view.Degraded,
		Cards: []view.Card{
			{Title: "Active Components", Value: "2", Caption: "out of 3 total", Tone: view.ToneRunning},
		},
		Components: []view.ComponentView{
			{Name: "hdfsWatcher", Label: "HDFS Watcher", Badge: "STARTED", Tone: view.ToneRunning},
			{Name: "embedProc", Label: "Embedding Processor", Badge: "ERROR", Tone: view.ToneError},
		},
		Overview: view.OverviewView{ActiveLabel: "Active Components: 2", TotalLabel: "out of 3 total", Badge: "DEGRADED", Loaded: true},
		Services: []view.ServiceRow{
			{Name: "hdfswatcher", DisplayName: "HDFS Watcher", Status: "STARTED"},
			{Name: "textproc", DisplayName: "Text Processor", Status: "STOPPED"},
		},
		Events: []view.EventRow{
			{App: "textProc", Status: "ERROR", Message: "chunking failed", Time: "10:00:00", IsError: true},
		},
	}
}

func loadedModel(t *testing.T, src *fakeSource) Model {
	t.Helper()
	m := NewModel(context.Background(), src, Options{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)
	msg := m.fetch()()
	updated, _ = m.Update(msg)
	return updated.(Model)
}

func press(m Model, keys string) (Model, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	return updated.(Model), cmd
}

// runCmd 同步执行命令并把结果交回模型
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	updated, _ := m.Update(cmd())
	return updated.(Model)
}

func TestModelRendersDashboard(t *testing.T) {
	src := &fakeSource{dash: sampleDashboard()}
	m := loadedModel(t, src)

	out := m.View()
	for _, want := range []string{"IMC Manager", "DEGRADED", "Active Components: 2", "HDFS Watcher", "chunking failed", "stream disconnected"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModelKeepsLastDashboardOnError(t *testing.T) {
	src := &fakeSource{dash: sampleDashboard()}
	m := loadedModel(t, src)

	updated, _ := m.Update(dashboardMsg{err: errors.New("connection refused")})
	m = updated.(Model)
	if !m.loaded || m.dash.Health != view.Degraded {
		t.Fatalf("dashboard dropped after fetch error: %+v", m.dash)
	}
	if !strings.Contains(m.View(), "refresh failed: connection refused") {
		t.Error("fetch error not shown")
	}
}

func TestModelStartSelectedService(t *testing.T) {
	src := &fakeSource{dash: sampleDashboard()}
	m := loadedModel(t, src)

	m, _ = press(m, "j")
	m, cmd := press(m, "s")
	if !m.busy {
		t.Error("model should be busy while the command runs")
	}
	m = runCmd(t, m, cmd)

	if len(src.calls) != 1 || src.calls[0] != (call{"start", "textproc"}) {
		t.Fatalf("calls = %+v", src.calls)
	}
	if m.busy || m.failed || m.status != "start textproc: ok" {
		t.Errorf("status = %q failed=%v busy=%v", m.status, m.failed, m.busy)
	}
}

func TestModelStopNeedsConfirmation(t *testing.T) {
	src := &fakeSource{dash: sampleDashboard()}
	m := loadedModel(t, src)

	m, cmd := press(m, "x")
	if cmd != nil || m.pending == nil {
		t.Fatal("stop should wait for confirmation")
	}
	if !strings.Contains(m.View(), "Stop hdfswatcher? [y/n]") {
		t.Error("confirmation prompt not shown")
	}

	m, _ = press(m, "n")
	if m.pending != nil || len(src.calls) != 0 {
		t.Fatalf("cancel still sent a command: %+v", src.calls)
	}

	m, _ = press(m, "x")
	m, cmd = press(m, "y")
	m = runCmd(t, m, cmd)
	if len(src.calls) != 1 || src.calls[0] != (call{"stop", "hdfswatcher"}) {
		t.Fatalf("calls = %+v", src.calls)
	}
}

func TestModelCommandFailureInStatusBar(t *testing.T) {
	src := &fakeSource{
		dash:    sampleDashboard(),
		execErr: errors.New("start hdfswatcher failed: HTTP 500: cannot start"),
	}
	m := loadedModel(t, src)

	m, cmd := press(m, "s")
	m = runCmd(t, m, cmd)
	if !m.failed || !strings.Contains(m.View(), "HTTP 500: cannot start") {
		t.Errorf("failure not shown, status = %q", m.status)
	}
}

func TestModelReprocessMessage(t *testing.T) {
	src := &fakeSource{
		dash:     sampleDashboard(),
		response: &models.CommandResult{Command: "reprocess", Message: "Cleared 7 processed files", ClearedCount: 7},
	}
	m := loadedModel(t, src)

	m, _ = press(m, "p")
	m, cmd := press(m, "y")
	m = runCmd(t, m, cmd)
	if m.status != "Cleared 7 processed files" {
		t.Errorf("status = %q", m.status)
	}
	if len(src.calls) != 1 || src.calls[0] != (call{"reprocess", ""}) {
		t.Errorf("calls = %+v", src.calls)
	}
}

func TestModelCursorClampedAfterRefresh(t *testing.T) {
	src := &fakeSource{dash: sampleDashboard()}
	m := loadedModel(t, src)
	m, _ = press(m, "j")

	dash := sampleDashboard()
	dash.Services = dash.Services[:1]
	updated, _ := m.Update(dashboardMsg{dash: dash})
	m = updated.(Model)
	if m.cursor != 0 || m.selected() != "hdfswatcher" {
		t.Errorf("cursor = %d selected = %q", m.cursor, m.selected())
	}
}

func TestCommandPath(t *testing.T) {
	tests := []struct {
		command, service string
		want             string
		wantErr          bool
	}{
		{"start", "textproc", "/imc/api/v1/services/textproc/start", false},
		{"toggle", "hdfswatcher", "/imc/api/v1/services/hdfswatcher/toggle", false},
		{"stop", "", "", true},
		{"reprocess", "", "/imc/api/v1/files/reprocess", false},
		{"restart-pipeline", "", "/imc/api/v1/pipeline/restart", false},
		{"reset", "textproc", "/imc/api/v1/pipeline/reset?service=textproc", false},
		{"reset", "", "/imc/api/v1/pipeline/reset", false},
		{"explode", "", "", true},
	}
	for _, tt := range tests {
		got, err := CommandPath(tt.command, tt.service)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CommandPath(%q, %q) = %q, %v", tt.command, tt.service, got, err)
		}
	}
}
