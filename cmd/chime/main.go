package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"chime/internal/engine"
	"chime/internal/sequencer"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	noteStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type engineEventMsg engine.Event

type tickMsg time.Time

func doTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	eng    *engine.Engine
	events chan engine.Event

	melodyLen int
	unlocked  bool
	unlockErr error
	lastSound string
	position  int
	noteOn    bool
	status    engine.Status
}

func newModel(eng *engine.Engine, melodyLen int) *model {
	m := &model{
		eng:       eng,
		events:    make(chan engine.Event, 32),
		melodyLen: melodyLen,
	}
	push := func(ev engine.Event) {
		select {
		case m.events <- ev:
		default:
		}
	}
	for _, t := range []engine.EventType{
		engine.EventSoundPlayed,
		engine.EventNotePlayed,
		engine.EventRest,
		engine.EventAmbientStarted,
		engine.EventAmbientStopped,
	} {
		eng.Subscribe(t, push)
	}
	return m
}

func (m *model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return engineEventMsg(<-m.events)
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(tea.HideCursor, m.waitForEvent(), doTick())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Any key is the unlock gesture.
		if !m.unlocked && m.unlockErr == nil {
			if err := m.eng.Unlock(); err != nil {
				m.unlockErr = err
			} else {
				m.unlocked = true
			}
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.eng.PlayDiscreteSound("click")
		case "h":
			m.eng.PlayDiscreteSound("hover")
		case "t":
			m.eng.PlayDiscreteSound("toggle")
		case "n":
			m.eng.PlayDiscreteSound("navigate")
		case "s":
			m.eng.PlayDiscreteSound("success")
		case "e":
			m.eng.PlayDiscreteSound("error")
		case "a":
			if m.status.AmbientOn {
				m.eng.StopAmbient()
			} else if err := m.eng.StartAmbient(); err != nil {
				m.unlockErr = err
			}
		case "+", "=":
			m.eng.SetSFXVolume(m.status.SFXLevel + 0.05)
		case "-":
			m.eng.SetSFXVolume(m.status.SFXLevel - 0.05)
		case "]":
			m.eng.SetAmbientVolume(m.status.AmbientLevel + 0.05)
		case "[":
			m.eng.SetAmbientVolume(m.status.AmbientLevel - 0.05)
		}
		m.status = m.eng.Status()
		return m, nil

	case engineEventMsg:
		switch msg.Type {
		case engine.EventSoundPlayed:
			m.lastSound = msg.Name
		case engine.EventNotePlayed:
			m.position = msg.Index
			m.noteOn = true
		case engine.EventRest:
			m.position = msg.Index
			m.noteOn = false
		}
		return m, m.waitForEvent()

	case tickMsg:
		m.status = m.eng.Status()
		return m, doTick()
	}
	return m, nil
}

func (m *model) melodyLine() string {
	var sb strings.Builder
	for i := 0; i < m.melodyLen; i++ {
		if i == m.position && m.status.AmbientOn {
			if m.noteOn {
				sb.WriteString(noteStyle.Render("●"))
			} else {
				sb.WriteString(noteStyle.Render("◦"))
			}
		} else {
			sb.WriteString(helpStyle.Render("·"))
		}
	}
	return sb.String()
}

func (m *model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("chime") + "  procedural sound engine\n\n")

	if !m.unlocked {
		if m.unlockErr != nil {
			sb.WriteString(warnStyle.Render("audio unavailable: "+m.unlockErr.Error()) + "\n")
		} else {
			sb.WriteString(helpStyle.Render("press any key to unlock audio") + "\n")
		}
	} else {
		ambient := "off"
		if m.status.AmbientOn {
			ambient = fmt.Sprintf("on (%s)", m.status.Variant)
		}
		sb.WriteString(statusStyle.Render(fmt.Sprintf(
			"sfx %.2f  ambient %.2f  melody %s", m.status.SFXLevel, m.status.AmbientLevel, ambient)) + "\n")
		sb.WriteString(m.melodyLine() + "\n")
		if m.lastSound != "" {
			sb.WriteString(helpStyle.Render("last sound: "+m.lastSound) + "\n")
		}
	}

	sb.WriteString("\n" + helpStyle.Render(
		"c click  h hover  t toggle  n navigate  s success  e error\n"+
			"a ambient on/off  +/- sfx  [/] ambient  q quit") + "\n")
	return sb.String()
}

func main() {
	var (
		sfxLevel     = flag.Float64("sfx", 0.58, "sfx bus level (0..1)")
		ambientLevel = flag.Float64("ambient", 0.30, "ambient bus level (0..1)")
		staleMs      = flag.Int("stale-ms", 0, "drop notes older than this many ms (0 disables)")
		fallback     = flag.Bool("interval-fallback", false, "force the fixed-interval scheduler")
		resumeFile   = flag.String("resume-file", "", "melody resume pointer path")
		quiet        = flag.Bool("quiet", false, "only log errors")
	)
	flag.Parse()

	logger := log.New(os.Stderr)
	if *quiet {
		logger.SetLevel(log.ErrorLevel)
	}

	melody := sequencer.DefaultMelody()
	eng := engine.New(engine.Options{
		SFXLevel:       *sfxLevel,
		AmbientLevel:   *ambientLevel,
		StalenessLimit: time.Duration(*staleMs) * time.Millisecond,
		ForceInterval:  *fallback,
		ResumePath:     *resumeFile,
		Melody:         melody,
		Logger:         logger,
	})
	defer eng.Close()

	p := tea.NewProgram(newModel(eng, len(melody)))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chime: %v\n", err)
		os.Exit(1)
	}
}
