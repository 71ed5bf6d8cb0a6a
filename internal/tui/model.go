package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"imc-manager/internal/models"
	"imc-manager/internal/view"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// dashboardMsg 一次视图模型拉取的结果
type dashboardMsg struct {
	dash view.Dashboard
	err  error
}

// commandMsg 一次命令的结果
type commandMsg struct {
	command string
	service string
	result  *models.CommandResult
	err     error
}

type tickMsg time.Time

// pendingCommand 等待确认的命令
type pendingCommand struct {
	command string
	service string
	prompt  string
}

// Options 终端界面参数
type Options struct {
	Interval time.Duration // 视图模型刷新周期
	Events   int           // 最近事件条数
}

/**
 * Terminal dashboard model
 * @description
 * - Renders the same view model as the web dashboard
 * - Polls the source every Interval; the last good dashboard stays on screen when a fetch fails
 * - Destructive commands (stop, reset, reprocess, restart) ask for confirmation
 * - Command failures are shown in the status bar and are not retried
 */
type Model struct {
	ctx  context.Context
	src  Source
	keys KeyMap
	opts Options

	dash    view.Dashboard
	loaded  bool
	err     error
	status  string
	failed  bool
	busy    bool
	cursor  int
	pending *pendingCommand

	events viewport.Model
	help   help.Model
	width  int
	height int
}

func NewModel(ctx context.Context, src Source, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Events <= 0 {
		opts.Events = 20
	}
	return Model{
		ctx:    ctx,
		src:    src,
		keys:   DefaultKeyMap,
		opts:   opts,
		events: viewport.New(80, 8),
		help:   help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tick(m.opts.Interval))
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetch() tea.Cmd {
	ctx, src, n := m.ctx, m.src, m.opts.Events
	return func() tea.Msg {
		dash, err := src.Dashboard(ctx, n)
		return dashboardMsg{dash: dash, err: err}
	}
}

func (m Model) run(command, service string) tea.Cmd {
	ctx, src := m.ctx, m.src
	return func() tea.Msg {
		res, err := src.Execute(ctx, command, service)
		return commandMsg{command: command, service: service, result: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.events.Width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case dashboardMsg:
		return m.handleDashboard(msg)

	case commandMsg:
		return m.handleCommand(msg)

	case tickMsg:
		return m, tea.Batch(m.fetch(), tick(m.opts.Interval))

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleDashboard(msg dashboardMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	m.err = nil
	m.dash = msg.dash
	m.loaded = true
	if m.cursor >= len(m.dash.Services) {
		m.cursor = max(len(m.dash.Services)-1, 0)
	}
	m.events.SetContent(renderEvents(m.dash.Events))
	return m, nil
}

func (m Model) handleCommand(msg commandMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.status = msg.err.Error()
		m.failed = true
		return m, nil
	}
	m.failed = false
	m.status = describeResult(msg)
	return m, m.fetch()
}

// describeResult 命令成功时状态栏显示的文本
func describeResult(msg commandMsg) string {
	text := msg.command
	if msg.service != "" {
		text += " " + msg.service
	}
	text += ": ok"
	if msg.result != nil {
		if msg.result.Message != "" {
			text = msg.result.Message
		}
		if len(msg.result.Warnings) > 0 {
			text += " (warnings: " + strings.Join(msg.result.Warnings, "; ") + ")"
		}
	}
	return text
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending != nil {
		p := m.pending
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.pending = nil
			return m.execute(p.command, p.service)
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
			m.pending = nil
			m.status = "cancelled"
			m.failed = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.dash.Services)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch()
	case key.Matches(msg, m.keys.Start):
		if svc := m.selected(); svc != "" {
			return m.execute("start", svc)
		}
	case key.Matches(msg, m.keys.Toggle):
		if svc := m.selected(); svc != "" {
			return m.execute("toggle", svc)
		}
	case key.Matches(msg, m.keys.Stop):
		if svc := m.selected(); svc != "" {
			m.confirm("stop", svc, fmt.Sprintf("Stop %s?", svc))
		}
	case key.Matches(msg, m.keys.Reset):
		if svc := m.selected(); svc != "" {
			m.confirm("reset", svc, fmt.Sprintf("Reset processing state of %s?", svc))
		}
	case key.Matches(msg, m.keys.Reprocess):
		m.confirm("reprocess", "", "Clear processed files and reprocess everything?")
	case key.Matches(msg, m.keys.Restart):
		m.confirm("restart-pipeline", "", "Stop and start every pipeline service?")
	default:
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) confirm(command, service, prompt string) {
	m.pending = &pendingCommand{command: command, service: service, prompt: prompt}
}

func (m Model) execute(command, service string) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	m.failed = false
	m.status = "running " + strings.TrimSpace(command+" "+service) + "..."
	return m, m.run(command, service)
}

// selected 光标所在的服务名称
func (m Model) selected() string {
	if m.cursor < 0 || m.cursor >= len(m.dash.Services) {
		return ""
	}
	return m.dash.Services[m.cursor].Name
}

func (m Model) View() string {
	if !m.loaded {
		if m.err != nil {
			return ErrorStyle.Render("Cannot load dashboard: "+m.err.Error()) + "\n" + MutedStyle.Render("q to quit")
		}
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.viewCards())
	b.WriteString("\n")
	b.WriteString(m.viewComponents())
	b.WriteString("\n")
	b.WriteString(m.viewServices())
	b.WriteString("\n")
	b.WriteString(m.viewProgress())
	b.WriteString("\n")
	b.WriteString(SectionStyle.Render("Recent Events"))
	b.WriteString("\n")
	b.WriteString(m.events.View())
	b.WriteString("\n")
	b.WriteString(m.viewStatusBar())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m Model) viewHeader() string {
	health := StyleForTone(m.dash.Health.Tone()).Render(string(m.dash.Health))
	stream := RunningStyle.Render("stream connected")
	if !m.dash.Stream.Connected {
		stream = ErrorStyle.Render("stream disconnected")
	}
	return fmt.Sprintf("%s  %s  %s  %s", TitleStyle.Render("IMC Manager"), health, stream,
		MutedStyle.Render("updated "+m.dash.GeneratedAt))
}

func (m Model) viewCards() string {
	cards := make([]string, 0, len(m.dash.Cards))
	for _, c := range m.dash.Cards {
		body := fmt.Sprintf("%s\n%s\n%s", MutedStyle.Render(c.Title),
			StyleForTone(c.Tone).Render(c.Value), MutedStyle.Render(c.Caption))
		cards = append(cards, CardStyle.Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m Model) viewComponents() string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Components"))
	for _, c := range m.dash.Components {
		fmt.Fprintf(&b, "\n  %-28s %s", c.Label, StyleForTone(c.Tone).Render(c.Badge))
		if c.Error != "" {
			b.WriteString("  " + MutedStyle.Render(c.Error))
		}
	}
	return b.String()
}

func (m Model) viewServices() string {
	var b strings.Builder
	ov := m.dash.Overview
	b.WriteString(SectionStyle.Render("Services"))
	fmt.Fprintf(&b, "  %s %s  %s", ov.ActiveLabel, MutedStyle.Render(ov.TotalLabel), StyleForTone(ov.Tone).Render(ov.Badge))
	if ov.Error != "" {
		b.WriteString("  " + ErrorStyle.Render(ov.Error))
	}
	for i, s := range m.dash.Services {
		line := fmt.Sprintf("  %-24s %-10s %s", s.DisplayName, s.Status, s.LastCheck)
		if i == m.cursor {
			line = SelectedStyle.Render("> " + strings.TrimPrefix(line, "  "))
		} else {
			line = StyleForTone(s.Tone).Render(line)
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}

func (m Model) viewProgress() string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Progress"))
	for _, s := range m.dash.Progress {
		fmt.Fprintf(&b, "\n  %-20s %6d  %3d%%", s.Label, s.Count, s.Percent)
		if s.Error != "" {
			b.WriteString("  " + ErrorStyle.Render(s.Error))
		}
	}
	if m.dash.FilesError != "" {
		b.WriteString("\n  " + ErrorStyle.Render("files: "+m.dash.FilesError))
	}
	return b.String()
}

func (m Model) viewStatusBar() string {
	text := fmt.Sprintf("%d files", len(m.dash.Files))
	switch {
	case m.pending != nil:
		text = WarningStyle.Render(m.pending.prompt + " [y/n]")
	case m.status != "" && m.failed:
		text = ErrorStyle.Render(m.status)
	case m.status != "":
		text = m.status
	}
	if m.err != nil {
		text += "  " + ErrorStyle.Render("refresh failed: "+m.err.Error())
	}
	return StatusBarStyle.Width(max(m.width, 1)).Render(text)
}

func renderEvents(events []view.EventRow) string {
	if len(events) == 0 {
		return MutedStyle.Render("  no events yet")
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		style := MutedStyle
		if e.IsError {
			style = ErrorStyle
		}
		lines = append(lines, fmt.Sprintf("  %s  %-14s %s", MutedStyle.Render(e.Time), e.App, style.Render(e.Status+" "+e.Message)))
	}
	return strings.Join(lines, "\n")
}
