// Package monitor renders a live terminal dashboard of a managerd daemon.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/managerd/internal/notify"
)

const (
	sparklineWidth    = 30
	sparklineHeight   = 3
	historySize       = 30
	maxNotifications  = 5
	fetchTimeout      = 5 * time.Second
	defaultPollPeriod = 5 * time.Second
)

// Model is the BubbleTea dashboard model.
type Model struct {
	source     Source
	interval   time.Duration
	lastUpdate time.Time
	snapshot   Snapshot
	loaded     bool
	err        error
	quitting   bool
	now        func() time.Time

	completion progress.Model

	openHistory    []float64
	balanceHistory []float64
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a dashboard polling source every interval.
func NewModel(source Source, interval time.Duration) Model {
	if interval <= 0 {
		interval = defaultPollPeriod
	}
	return Model{
		source:   source,
		interval: interval,
		now:      time.Now,
		completion: progress.New(
			progress.WithGradient("#ff5f5f", "#00ff87"),
			progress.WithWidth(40),
		),
		openHistory:    make([]float64, 0, historySize),
		balanceHistory: make([]float64, 0, historySize),
	}
}

// Run starts the dashboard in the alternate screen and blocks until the
// operator quits.
func Run(ctx context.Context, source Source, interval time.Duration) error {
	p := tea.NewProgram(NewModel(source, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// overdueBadge grades the overdue count.
func overdueBadge(n int) string {
	switch {
	case n == 0:
		return healthyStyle.Render("[✓]")
	case n < 3:
		return warningStyle.Render("[⚠]")
	}
	return errorStyle.Render("[✗]")
}

// statusBadge summarizes the session and monitor state.
func statusBadge(s Snapshot) string {
	switch {
	case !s.Authenticated:
		return warningStyle.Render("⚠ LOCKED")
	case !s.ProviderReady:
		return errorStyle.Render("✗ NO PROVIDER KEY")
	case !s.Monitoring:
		return warningStyle.Render("⚠ MONITOR IDLE")
	}
	return healthyStyle.Render("✓ ONLINE")
}

func notificationStyle(kind notify.Kind) lipgloss.Style {
	switch kind {
	case notify.KindAlert:
		return errorStyle
	case notify.KindWarning:
		return warningStyle
	}
	return labelStyle
}

// appendToHistory appends a value, keeping at most historySize points.
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	return sparklineStyle.Render(spark.View())
}

type tickMsg time.Time
type snapshotMsg Snapshot
type errMsg struct{ err error }

// Init starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), fetch(m.source))
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetch(source Source) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		snap, err := source.Snapshot(ctx)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg(snap)
	}
}

// Update handles key presses, ticks, and poll results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetch(m.source)
		}

	case tickMsg:
		return m, tea.Batch(tick(m.interval), fetch(m.source))

	case snapshotMsg:
		snap := Snapshot(msg)
		if snap.Authenticated {
			m.openHistory = appendToHistory(m.openHistory, float64(snap.Open()))
			m.balanceHistory = appendToHistory(m.balanceHistory, snap.Totals.Balance)
		}
		m.snapshot = snap
		m.loaded = true
		m.lastUpdate = m.now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	return m.renderDashboard()
}

func (m Model) footer() string {
	return footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))
}

func (m Model) renderError() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" managerd Monitor ") + "\n\n")
	b.WriteString(errorStyle.Render("⚠ Cannot reach managerd") + "\n\n")
	b.WriteString(dimStyle.Render("Server: ") + valueStyle.Render(m.source.Describe()) + "\n")
	b.WriteString(dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n\n")
	b.WriteString(dimStyle.Render("Start the daemon with: managerd") + "\n")
	b.WriteString("\n" + m.footer())
	return containerStyle.Render(b.String())
}

func (m Model) renderDashboard() string {
	s := m.snapshot
	var b strings.Builder

	title := " managerd Monitor "
	if s.Agency != "" {
		title = " " + s.Agency + " Monitor "
	}
	b.WriteString(headerStyle.Render(title) + "\n")

	if !m.loaded {
		b.WriteString(dimStyle.Render("Waiting for first update...") + "\n")
		b.WriteString("\n" + m.footer())
		return containerStyle.Render(b.String())
	}

	b.WriteString(fmt.Sprintf("%s   %s %s   %s\n",
		statusBadge(s),
		dimStyle.Render("Provider:"),
		valueStyle.Render(s.Provider),
		dimStyle.Render("Updated "+m.lastUpdate.Format("3:04:05 PM"))))

	if !s.Authenticated {
		b.WriteString("\n" + warningStyle.Render("Session is locked. Run: mgrctl login") + "\n")
		b.WriteString("\n" + m.footer())
		return containerStyle.Render(b.String())
	}

	b.WriteString("\n" + sectionStyle.Render("┃ Tasks") + "\n")
	b.WriteString(labelStyle.Render("  Open: ") +
		valueStyle.Render(fmt.Sprintf("%d of %d", s.Open(), s.Stats.Total)) +
		"   " + createSparkline(m.openHistory) + "\n")
	b.WriteString(labelStyle.Render("  Priority: ") +
		errorStyle.Render(fmt.Sprintf("%d high", s.Stats.High)) + dimStyle.Render(" / ") +
		warningStyle.Render(fmt.Sprintf("%d medium", s.Stats.Medium)) + dimStyle.Render(" / ") +
		healthyStyle.Render(fmt.Sprintf("%d low", s.Stats.Low)) + "\n")
	b.WriteString(labelStyle.Render("  Deadlines: ") +
		valueStyle.Render(fmt.Sprintf("%d overdue", s.Overdue)) + " " + overdueBadge(s.Overdue) +
		dimStyle.Render("  ") + valueStyle.Render(fmt.Sprintf("%d upcoming", s.Upcoming)) + "\n")
	b.WriteString(labelStyle.Render("  Completed: ") +
		m.completion.ViewAs(float64(s.Stats.CompletionRate)/100) +
		" " + dimStyle.Render(FormatPercentage(s.Stats.CompletionRate)) + "\n")

	b.WriteString("\n" + sectionStyle.Render("┃ Ledger") + "\n")
	balance := valueStyle.Render(FormatMoney(s.Totals.Balance))
	if s.Totals.Balance < 0 {
		balance = errorStyle.Render(FormatMoney(s.Totals.Balance))
	}
	b.WriteString(labelStyle.Render("  Balance: ") + balance +
		"   " + createSparkline(m.balanceHistory) + "\n")
	b.WriteString(labelStyle.Render("  Income: ") + healthyStyle.Render(FormatMoney(s.Totals.Income)) +
		labelStyle.Render("  Expense: ") + errorStyle.Render(FormatMoney(s.Totals.Expense)) +
		dimStyle.Render(fmt.Sprintf("  (%d entries)", s.Transactions)) + "\n")

	b.WriteString("\n" + sectionStyle.Render("┃ Notifications") + "\n")
	if len(s.Notifications) == 0 {
		b.WriteString(dimStyle.Render("  none") + "\n")
	}
	now := m.now()
	for i, n := range s.Notifications {
		if i == maxNotifications {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  +%d more", len(s.Notifications)-maxNotifications)) + "\n")
			break
		}
		b.WriteString("  " + notificationStyle(n.Kind).Render(n.Title) + " " +
			valueStyle.Render(n.Message) + " " +
			dimStyle.Render(FormatAge(n.CreatedAt, now)) + "\n")
	}

	b.WriteString("\n" + m.footer())
	return containerStyle.Render(b.String())
}
