package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/fbot/emotions-bridge/pkg/bridge"
	"github.com/fbot/emotions-bridge/pkg/head"
)

const (
	headerHeight = 3 // title + status + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Colors assigned to motors in registry order
var motorPalette = []string{"196", "208", "226", "46", "51", "201", "99", "214"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// logSink receives formatted log lines for the monitor. Lines are dropped
// when the monitor falls behind.
type logSink struct {
	lines chan string
}

func newLogSink(size int) *logSink {
	return &logSink{lines: make(chan string, size)}
}

func (s *logSink) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	select {
	case s.lines <- line:
	default:
	}
	return len(p), nil
}

type monitorModel struct {
	bridge   *bridge.Bridge
	logSink  *logSink
	port     string
	chart    *streamlinechart.Model
	width    int
	height   int
	logs     []string
	last     *bridge.Outcome
	sent     int
	failed   int
	quitting bool
}

type outcomeMsg bridge.Outcome
type logMsg string

func waitForOutcome(b *bridge.Bridge) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg(<-b.Outcomes())
	}
}

func waitForLog(s *logSink) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-s.lines)
	}
}

func motorColor(i int) string {
	return motorPalette[i%len(motorPalette)]
}

// valueRange returns the span of every value in the registry, padded so flat
// lines stay visible.
func valueRange(reg *head.Registry) (float64, float64) {
	lo, hi := 0, 0
	for _, m := range reg.Motors() {
		for _, v := range m.Emotions {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	return float64(lo - 1), float64(hi + 1)
}

func newMonitor(b *bridge.Bridge, sink *logSink, port string) monitorModel {
	lo, hi := valueRange(b.Registry())
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(lo, hi),
	)
	for i, m := range b.Registry().Motors() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColor(i)))
		chart.SetDataSetStyles(m.Name, runes.ThinLineStyle, style)
	}

	return monitorModel{
		bridge:  b,
		logSink: sink,
		port:    port,
		chart:   &chart,
	}
}

func (m *monitorModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *monitorModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		waitForOutcome(m.bridge),
		waitForLog(m.logSink),
	)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case outcomeMsg:
		o := bridge.Outcome(msg)
		m.last = &o
		if o.Result.OK() {
			m.sent++
		} else {
			m.failed++
		}
		if o.Emotion != "" && o.Result.OK() {
			for _, motor := range m.bridge.Registry().Motors() {
				if v, ok := motor.Value(o.Emotion); ok {
					m.chart.PushDataSet(motor.Name, float64(v))
				}
			}
			m.chart.DrawAll()
		}
		return m, waitForOutcome(m.bridge)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.logSink)
	}

	return m, nil
}

func (m monitorModel) status() string {
	s := fmt.Sprintf("port %s  emotion %s  ok %d  failed %d",
		m.port, m.bridge.CurrentEmotion(), m.sent, m.failed)
	if m.last != nil {
		s += fmt.Sprintf("  last %s %s in %d attempt(s)",
			m.last.Result.Kind, m.last.Result.State, m.last.Result.Attempts)
	}
	return s
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Bridge stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Emotions Bridge"))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(m.status()))
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(m.legend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m monitorModel) legend() string {
	var items []string
	for i, motor := range m.bridge.Registry().Motors() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColor(i))).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+motor.Name)
	}
	return strings.Join(items, "  ")
}
