package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Automaat/shader-buster/internal/cleanup"
	"github.com/Automaat/shader-buster/internal/config"
	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/Automaat/shader-buster/pkg/size"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

type state int

const (
	stateScanning state = iota
	stateSelection
	stateConfirmation
	stateRunning
	stateDone
)

type providerItem struct {
	provider  provider.Provider
	name      string
	display   string
	sizeFmt   string
	bytes     int64
	locations int
}

// scanner discovers and measures providers for the selection screen.
type scanner func(providers []provider.Provider) (StatusOutput, error)

type model struct {
	ctx       context.Context
	runner    *cleanup.Runner
	scan      scanner
	selected  map[int]struct{}
	providers []providerItem
	warnings  []string
	scanErr   error
	startErr  error
	spinner   spinner.Model
	run       runView
	cursor    int
	width     int
	height    int
	state     state
	dryRun    bool
	backup    bool
	quitting  bool
}

type scanDoneMsg struct {
	err    error
	status StatusOutput
}

// InteractiveCmd launches interactive TUI mode.
var InteractiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i"},
	Short:   "Pick caches to clean in an interactive view",
	RunE:    runInteractive,
}

func init() {
	InteractiveCmd.Flags().Bool("dry-run", false, "Preview without deleting")
	InteractiveCmd.Flags().Bool("backup", false, "Back up caches before deleting (default from backup.auto)")
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	var backup *bool
	if cmd.Flags().Changed("backup") {
		b, _ := cmd.Flags().GetBool("backup")
		backup = &b
	}
	return RunInteractiveWithLoader(newLoader(), dryRun, backup)
}

// RunInteractiveWithLoader launches interactive mode with specified loader.
func RunInteractiveWithLoader(loader *config.Loader, dryRun bool, backup *bool) error {
	a, err := newApp(loader)
	if err != nil {
		return err
	}
	// Log lines would tear the full-screen view.
	a.quiet()

	providers, err := a.providers(nil, true)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		fmt.Println("No enabled providers")
		return nil
	}

	orch, closer, err := a.orchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	autoBackup := a.cfg.Backup.Auto
	if backup != nil {
		autoBackup = *backup
	}

	scan := func(ps []provider.Provider) (StatusOutput, error) {
		return scanLocations(a, ps)
	}
	m := newModel(ctx, cleanup.NewRunner(orch), scan, providers, dryRun, autoBackup)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Send(interruptMsg{})
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run interactive: %w", err)
	}
	if fm, ok := final.(model); ok && fm.run.result != nil {
		printResult(os.Stdout, *fm.run.result)
	}
	return nil
}

type interruptMsg struct{}

func newModel(ctx context.Context, runner *cleanup.Runner, scan scanner, providers []provider.Provider, dryRun, backup bool) model {
	items := make([]providerItem, len(providers))
	for i, p := range providers {
		items[i] = providerItem{provider: p, name: p.Name(), display: p.Display()}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	if ctx == nil {
		ctx = context.Background()
	}

	return model{
		ctx:       ctx,
		runner:    runner,
		scan:      scan,
		state:     stateScanning,
		providers: items,
		selected:  make(map[int]struct{}),
		spinner:   s,
		dryRun:    dryRun,
		backup:    backup,
		width:     80,
		height:    24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.scanCmd(), m.spinner.Tick)
}

func (m model) scanCmd() tea.Cmd {
	providers := make([]provider.Provider, len(m.providers))
	for i, p := range m.providers {
		providers[i] = p.provider
	}
	scan := m.scan
	return func() tea.Msg {
		if scan == nil {
			return scanDoneMsg{}
		}
		status, err := scan(providers)
		return scanDoneMsg{status: status, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case interruptMsg:
		if m.state == stateRunning {
			m.run = m.run.cancel()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == stateRunning {
			var cmd tea.Cmd
			m.run, cmd = m.run.update(msg)
			return m, cmd
		}
		return m, nil

	case scanDoneMsg:
		m.applyScan(msg)
		m.state = stateSelection
		return m, nil

	case spinner.TickMsg:
		if m.state == stateRunning {
			var cmd tea.Cmd
			m.run, cmd = m.run.update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state == stateRunning {
		var cmd tea.Cmd
		m.run, cmd = m.run.update(msg)
		if m.run.done() {
			m.state = stateDone
		}
		return m, cmd
	}
	return m, nil
}

func (m *model) applyScan(msg scanDoneMsg) {
	m.scanErr = msg.err
	m.warnings = msg.status.Warnings

	byProvider := make(map[string]*providerItem, len(m.providers))
	for i := range m.providers {
		byProvider[m.providers[i].name] = &m.providers[i]
	}
	for _, loc := range msg.status.Locations {
		if item, ok := byProvider[loc.Provider]; ok {
			item.locations++
			item.bytes += loc.Bytes
		}
	}
	for i := range m.providers {
		m.providers[i].sizeFmt = size.Format(m.providers[i].bytes)
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateScanning:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case stateSelection:
		return m.handleSelectionKey(msg)
	case stateConfirmation:
		return m.handleConfirmationKey(msg)
	case stateRunning:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.run = m.run.cancel()
		}
	case stateDone:
		return m.handleDoneKey(msg)
	}
	return m, nil
}

func (m model) handleSelectionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "j", "down":
		if m.cursor < len(m.providers)-1 {
			m.cursor++
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case " ":
		if m.providers[m.cursor].locations > 0 {
			if _, ok := m.selected[m.cursor]; ok {
				delete(m.selected, m.cursor)
			} else {
				m.selected[m.cursor] = struct{}{}
			}
		}

	case "a":
		for i, p := range m.providers {
			if p.locations > 0 {
				m.selected[i] = struct{}{}
			}
		}

	case "n":
		m.selected = make(map[int]struct{})

	case "enter":
		if len(m.selected) > 0 {
			m.state = stateConfirmation
		}
	}

	return m, nil
}

func (m model) handleConfirmationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		return m.start()

	case "n", "N", "esc", "ctrl+c":
		m.state = stateSelection

	case "b", "B":
		m.backup = !m.backup

	case "d", "D":
		m.dryRun = !m.dryRun
	}

	return m, nil
}

func (m model) start() (tea.Model, tea.Cmd) {
	if m.runner == nil {
		m.startErr = fmt.Errorf("no runner")
		m.state = stateDone
		return m, nil
	}

	obs := cleanup.NewChannelObserver(64)
	opts := cleanup.Options{DryRun: m.dryRun, AutoBackup: m.backup}
	h, err := m.runner.Start(m.ctx, m.selectedProviders(), opts, obs)
	if err != nil {
		m.startErr = err
		m.state = stateDone
		return m, nil
	}

	m.state = stateRunning
	m.run = newRunView(h, obs.C())
	m.run.progress.Width = max(m.width-10, 1)
	return m, m.run.init()
}

func (m model) handleDoneKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Shader Buster - Interactive Mode"))
	b.WriteString("\n\n")

	switch m.state {
	case stateScanning:
		fmt.Fprintf(&b, "%s Scanning %d provider(s)...\n", m.spinner.View(), len(m.providers))
	case stateSelection:
		b.WriteString(m.viewSelection())
	case stateConfirmation:
		b.WriteString(m.viewConfirmation())
	case stateRunning:
		b.WriteString(m.run.view())
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("q=cancel"))
	case stateDone:
		b.WriteString(m.viewDone())
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("205")).
		Padding(1, 2).
		Width(m.width - 2)

	return boxStyle.Render(b.String())
}

func (m model) viewSelection() string {
	var b strings.Builder

	if m.scanErr != nil {
		b.WriteString(errorStyle.Render("scan failed: " + m.scanErr.Error()))
		b.WriteString("\n\n")
	}
	for _, w := range m.warnings {
		b.WriteString(errorStyle.Render("warning: " + w))
		b.WriteString("\n")
	}

	b.WriteString("Select caches to clean:\n\n")

	nameWidth := 10
	for _, p := range m.providers {
		nameWidth = max(nameWidth, len(p.display))
	}
	nameFmt := fmt.Sprintf("%%-%ds", min(nameWidth, 40))

	for i, p := range m.providers {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		checkbox := "[ ]"
		if _, ok := m.selected[i]; ok {
			checkbox = "[x]"
		}

		prefix := cursor + checkbox + " "
		if p.locations == 0 {
			b.WriteString(prefix + dimStyle.Render(fmt.Sprintf(nameFmt+" (none found)", p.display)))
		} else {
			b.WriteString(prefix + fmt.Sprintf(nameFmt, p.display) +
				fmt.Sprintf(" %10s  %s", p.sizeFmt, dimStyle.Render(plural(p.locations, "location"))))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Selected: %d provider(s), %s", len(m.selected), size.Format(m.selectedBytes()))
	b.WriteString("\n\n")

	b.WriteString(dimStyle.Render("space=toggle  a=all  n=none  enter=confirm  q=quit"))

	return b.String()
}

func (m model) viewConfirmation() string {
	var b strings.Builder

	var mode []string
	if m.backup {
		mode = append(mode, "backup")
	}
	if m.dryRun {
		mode = append(mode, "dry-run")
	}
	label := ""
	if len(mode) > 0 {
		label = " [" + strings.Join(mode, ", ") + "]"
	}

	names := m.selectedNames()
	fmt.Fprintf(&b, "Delete %s from %d provider(s)%s?\n\n", size.Format(m.selectedBytes()), len(names), label)
	for _, name := range names {
		fmt.Fprintf(&b, "  • %s\n", name)
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("y=confirm  n/esc=back  b=toggle backup  d=toggle dry-run"))

	return b.String()
}

func (m model) viewDone() string {
	var b strings.Builder

	if m.startErr != nil {
		b.WriteString(failStyle.Render("Could not start: " + m.startErr.Error()))
	} else {
		b.WriteString(m.run.view())
		if r := m.run.result; r != nil {
			errs := resultErrors(*r)
			if len(errs) > 0 {
				b.WriteString("\n")
				b.WriteString(errorStyle.Render(fmt.Sprintf("%d error(s), listed after exit", len(errs))))
			}
		}
	}

	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Press enter to exit"))

	return b.String()
}

func (m model) selectedNames() []string {
	var names []string
	for i := range m.providers {
		if _, ok := m.selected[i]; ok {
			names = append(names, m.providers[i].display)
		}
	}
	return names
}

func (m model) selectedProviders() []provider.Provider {
	var out []provider.Provider
	for i := range m.providers {
		if _, ok := m.selected[i]; ok {
			out = append(out, m.providers[i].provider)
		}
	}
	return out
}

func (m model) selectedBytes() int64 {
	var total int64
	for i := range m.selected {
		total += m.providers[i].bytes
	}
	return total
}
