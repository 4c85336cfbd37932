package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/wrenfield/zigzag/zmachine"
)

var romFilePath string

func init() {
	flag.StringVar(&romFilePath, "rom", "", "The path of a z-machine story file")
	flag.Parse()
}

func main() {
	var model tea.Model

	if romFilePath != "" {
		m, err := newRunStoryModel(romFilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", romFilePath, err)
			os.Exit(1)
		}
		model = appModel{game: &m}
	} else {
		model = appModel{picker: newStoryPickerModel("stories")}
	}

	tui := tea.NewProgram(model)
	if _, err := tui.Run(); err != nil {
		fmt.Println("Error running program:", err)
		os.Exit(1)
	}
}

// appModel is the root model: it shows the story picker until a story is
// chosen, then hands control to a runStoryModel for the rest of the program's
// life. A story never un-picks itself - restart is handled entirely inside
// the engine, without any host interaction.
type appModel struct {
	picker *storyPickerModel
	game   *runStoryModel
}

func (m appModel) Init() tea.Cmd {
	if m.game != nil {
		return m.game.Init()
	}
	return m.picker.Init()
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if sel, ok := msg.(storySelectedMsg); ok {
		game, err := newRunStoryModel(string(sel))
		if err != nil {
			m.picker.loadError = err.Error()
			return m, nil
		}
		m.game = &game
		m.picker = nil
		return m, m.game.Init()
	}

	if m.game != nil {
		updated, cmd := m.game.Update(msg)
		g := updated.(runStoryModel)
		m.game = &g
		return m, cmd
	}

	updated, cmd := m.picker.Update(msg)
	p := updated.(storyPickerModel)
	m.picker = &p
	return m, cmd
}

func (m appModel) View() string {
	if m.game != nil {
		return m.game.View()
	}
	return m.picker.View()
}

// storySelectedMsg carries the chosen story file path out of the picker.
type storySelectedMsg string

// storyPickerModel is a local file picker replacing the original
// interpreter's network story browser: a spinner covers the directory scan
// (run off the UI goroutine, same "don't block Update" discipline as every
// other host call here), then a bubbles/list lets the user choose a story.
type storyPickerModel struct {
	dir       string
	spin      spinner.Model
	list      list.Model
	loading   bool
	loadError string
	width     int
	height    int
}

type storyItem string

func (s storyItem) FilterValue() string { return string(s) }
func (s storyItem) Title() string       { return filepath.Base(string(s)) }
func (s storyItem) Description() string { return string(s) }

type storiesScannedMsg []string

func newStoryPickerModel(dir string) *storyPickerModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &storyPickerModel{dir: dir, spin: sp, loading: true}
}

func findStoryFiles(dir string) []string {
	var entries []string
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return entries
	}
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if len(ext) == 3 && ext[1] == 'z' && ext[2] >= '1' && ext[2] <= '8' {
			entries = append(entries, filepath.Join(dir, name))
		}
	}
	sort.Strings(entries)
	return entries
}

func scanStoriesCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		return storiesScannedMsg(findStoryFiles(dir))
	}
}

func (m *storyPickerModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, scanStoriesCmd(m.dir))
}

func (m storyPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.loading {
			m.list.SetSize(m.width, m.height-1)
		}
		return m, nil

	case storiesScannedMsg:
		m.loading = false
		items := make([]list.Item, len(msg))
		for i, f := range msg {
			items[i] = storyItem(f)
		}
		m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-1)
		m.list.Title = fmt.Sprintf("Story files in %s", m.dir)
		if len(items) == 0 {
			m.loadError = fmt.Sprintf("no story files (*.z1-*.z8) found in %s", m.dir)
		}
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if !m.loading {
				if it, ok := m.list.SelectedItem().(storyItem); ok {
					chosen := it
					return m, func() tea.Msg { return storySelectedMsg(chosen) }
				}
			}
			return m, nil
		}
	}

	if !m.loading {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m storyPickerModel) View() string {
	if m.loading {
		return fmt.Sprintf("\n  %s scanning %s for story files...\n", m.spin.View(), m.dir)
	}
	if m.loadError != "" {
		return fmt.Sprintf("\n%s\n\n(q to quit)", m.loadError)
	}
	return m.list.View()
}

// keyToZChar maps Bubble Tea key messages to Z-machine character codes.
// Function keys are mapped according to the Z-machine spec section 10.5.2.1:
//   - 129-132: Cursor keys (up, down, left, right)
//   - 133-144: Function keys F1-F12
func keyToZChar(msg tea.KeyMsg) uint8 {
	switch msg.Type {
	case tea.KeyUp:
		return 129
	case tea.KeyDown:
		return 130
	case tea.KeyLeft:
		return 131
	case tea.KeyRight:
		return 132
	case tea.KeyF1:
		return 133
	case tea.KeyF2:
		return 134
	case tea.KeyF3:
		return 135
	case tea.KeyF4:
		return 136
	case tea.KeyF5:
		return 137
	case tea.KeyF6:
		return 138
	case tea.KeyF7:
		return 139
	case tea.KeyF8:
		return 140
	case tea.KeyF9:
		return 141
	case tea.KeyF10:
		return 142
	case tea.KeyF11:
		return 143
	case tea.KeyF12:
		return 144
	case tea.KeyEscape:
		return 27
	case tea.KeyEnter:
		return 13
	case tea.KeyDelete, tea.KeyBackspace:
		return 8
	default:
		return 0
	}
}

type runningStoryState int

const (
	appRunning runningStoryState = iota
	appWaitingForInput
	appWaitingForCharacter
)

// Messages sent from a tuiHost (running on the engine's goroutine) to the
// bubbletea program's own goroutine. Every one of these is fire-and-forget
// from the host's point of view, except inputRequestMsg/charRequestMsg which
// pair with a reply on tuiHost.inputReply/charReply.
type textMsg struct {
	window int
	text   string
}
type splitWindowMsg int
type setWindowMsg int
type eraseWindowMsg int
type eraseLineMsg struct{}
type setCursorMsg struct{ row, col int }
type setTextStyleMsg uint8
type setColourMsg struct{ fg, bg int }
type statusMsg struct {
	placeName                    string
	scoreOrHours, movesOrMinutes int
	timeBased                    bool
}
type soundEffectMsg struct{ number uint16 }
type inputRequestMsg struct {
	seq      int
	maxChars int
	initial  string
}
type inputTimeoutMsg struct{ seq int }
type charRequestMsg struct{ seq int }
type charTimeoutMsg struct{ seq int }
type quitMsg struct{}
type runtimeErrorMsg string

type runStoryModel struct {
	host   *tuiHost
	engine *zmachine.Engine

	lowerWindowTextPreStyled string
	lowerWindowText          string
	upperWindowText          []string
	upperWindowStyle         [][]lipgloss.Style

	upperWindowHeight int
	cursorX, cursorY  int
	lowerWindowActive bool

	lowerStyleMask, upperStyleMask uint8
	lowerFg, lowerBg               lipgloss.Color
	upperFg, upperBg               lipgloss.Color

	statusBar statusMsg

	appState            runningStoryState
	pendingSeq          int
	inputBox            textinput.Model
	width, height       int
	backgroundStyle     lipgloss.Style
	statusBarStyle      lipgloss.Style
	upperWindowCurStyle lipgloss.Style
	lowerWindowStyle    lipgloss.Style
	runtimeError        string
}

func newRunStoryModel(romPath string) (runStoryModel, error) {
	romBytes, err := os.ReadFile(romPath)
	if err != nil {
		return runStoryModel{}, err
	}

	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 40
	ti.Prompt = ""

	host := newTUIHost(romPath)
	engine, err := zmachine.New(romBytes, host)
	if err != nil {
		return runStoryModel{}, err
	}

	m := runStoryModel{
		host:              host,
		engine:            engine,
		lowerWindowActive: true,
		lowerFg:           lipgloss.Color("#000000"),
		lowerBg:           lipgloss.Color("#FFFFFF"),
		upperFg:           lipgloss.Color("#FFFFFF"),
		upperBg:           lipgloss.Color("#000000"),
		inputBox:          ti,
		upperWindowCurStyle: lipgloss.NewStyle(),
		lowerWindowStyle:    lipgloss.NewStyle(),
		statusBarStyle:      lipgloss.NewStyle(),
		backgroundStyle:     lipgloss.NewStyle(),
	}
	return m, nil
}

func (m runStoryModel) Init() tea.Cmd {
	return tea.Batch(
		waitForHost(m.host.events),
		runEngine(m.engine),
		tea.Sequence(
			tea.SetWindowTitle(m.host.romPath),
			tea.WindowSize(),
		),
	)
}

func runEngine(e *zmachine.Engine) tea.Cmd {
	return func() tea.Msg {
		e.Run()
		return nil
	}
}

func waitForHost(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m runStoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if m.height < len(m.upperWindowText) {
			m.upperWindowText = m.upperWindowText[:m.height]
			m.upperWindowStyle = m.upperWindowStyle[:m.height]
		} else {
			for range int(math.Min(float64(m.height-len(m.upperWindowText)), float64(m.upperWindowHeight))) {
				m.upperWindowText = append(m.upperWindowText, strings.Repeat(" ", m.width))
				m.upperWindowStyle = append(m.upperWindowStyle, slices.Repeat([]lipgloss.Style{m.upperWindowCurStyle}, m.width))
			}
		}

		for ix, row := range m.upperWindowText {
			if m.width < len(row) {
				m.upperWindowText[ix] = row[:m.width]
				m.upperWindowStyle[ix] = m.upperWindowStyle[ix][:m.width]
			} else if m.width > len(row) {
				for ii := len(row); ii < m.width; ii++ {
					m.upperWindowText[ix] = m.upperWindowText[ix] + " "
					m.upperWindowStyle[ix] = append(m.upperWindowStyle[ix], m.upperWindowCurStyle)
				}
			}
		}
		return m, waitForHost(m.host.events)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			os.Exit(0)
		}

		switch m.appState {
		case appWaitingForCharacter:
			m.appState = appRunning
			var code uint8
			if len(msg.Runes) > 0 {
				code = uint8(msg.Runes[0])
			} else {
				code = keyToZChar(msg)
			}
			m.host.replyChar(m.pendingSeq, code)
		case appWaitingForInput:
			if msg.Type == tea.KeyEnter {
				m.appState = appRunning
				m.lowerWindowText += m.inputBox.Value() + "\n"
				m.host.replyInput(m.pendingSeq, m.inputBox.Value())
				m.inputBox.SetValue("")
			}
		}

	case textMsg:
		if m.lowerWindowActive {
			m.lowerWindowText += msg.text
		} else {
			text := msg.text
			segments := strings.Split(text, "\n")
			cursorX := m.cursorX
			cursorY := m.cursorY

			for segIdx, segment := range segments {
				if cursorY >= 0 && cursorY < len(m.upperWindowText) {
					row := m.upperWindowText[cursorY]

					if cursorY < len(m.upperWindowStyle) {
						for i := 0; i < len(segment) && cursorX+i < len(m.upperWindowStyle[cursorY]); i++ {
							m.upperWindowStyle[cursorY][cursorX+i] = m.upperWindowCurStyle
						}
					}

					if cursorX < len(row) {
						before := row[:cursorX]
						afterStart := cursorX + len(segment)
						after := ""
						if afterStart < len(row) {
							after = row[afterStart:]
						}
						fullText := before + segment + after
						if len(fullText) > m.width {
							fullText = fullText[:m.width]
						}
						m.upperWindowText[cursorY] = fullText
					}
				}

				if segIdx < len(segments)-1 {
					cursorY++
					cursorX = 0
				}
			}
			m.cursorX = cursorX
			m.cursorY = cursorY
		}
		return m, waitForHost(m.host.events)

	case splitWindowMsg:
		m.upperWindowHeight = int(msg)
		if len(m.upperWindowText) != m.upperWindowHeight {
			if len(m.upperWindowText) > m.upperWindowHeight {
				m.upperWindowText = m.upperWindowText[:m.upperWindowHeight]
				m.upperWindowStyle = m.upperWindowStyle[:m.upperWindowHeight]
			} else {
				for range m.upperWindowHeight - len(m.upperWindowText) {
					m.upperWindowText = append(m.upperWindowText, strings.Repeat(" ", m.width))
					m.upperWindowStyle = append(m.upperWindowStyle, slices.Repeat([]lipgloss.Style{m.upperWindowCurStyle}, m.width))
				}
			}
		}
		return m, waitForHost(m.host.events)

	case setWindowMsg:
		m.lowerWindowActive = int(msg) == 0
		return m, waitForHost(m.host.events)

	case setCursorMsg:
		m.cursorY = msg.row - 1
		m.cursorX = msg.col - 1
		return m, waitForHost(m.host.events)

	case eraseLineMsg:
		if !m.lowerWindowActive {
			line := m.cursorY
			start := m.cursorX
			if line >= 0 && line < len(m.upperWindowText) && start >= 0 && start < len(m.upperWindowText[line]) {
				row := m.upperWindowText[line]
				before := row[:start]
				after := ""
				if start < len(row) {
					after = row[start:]
				}
				fullText := before + strings.Repeat(" ", len(after))
				if len(fullText) > m.width {
					fullText = fullText[:m.width]
				}
				m.upperWindowText[line] = fullText
			}
		}
		return m, waitForHost(m.host.events)

	case eraseWindowMsg:
		switch int(msg) {
		case -2:
			m.lowerWindowText = ""
			m.lowerWindowTextPreStyled = ""
			for row := range m.upperWindowHeight {
				m.upperWindowText[row] = strings.Repeat(" ", m.width)
				m.upperWindowStyle[row] = slices.Repeat([]lipgloss.Style{m.upperWindowCurStyle}, m.width)
			}
		case -1:
			m.lowerWindowText = ""
			m.lowerWindowTextPreStyled = ""
			for row := range len(m.upperWindowText) {
				m.upperWindowText[row] = strings.Repeat(" ", m.width)
				m.upperWindowStyle[row] = slices.Repeat([]lipgloss.Style{m.upperWindowCurStyle}, m.width)
			}
		case 0:
			m.lowerWindowText = ""
			m.lowerWindowTextPreStyled = ""
		case 1:
			for row := range m.upperWindowHeight {
				if row < len(m.upperWindowText) {
					m.upperWindowText[row] = strings.Repeat(" ", m.width)
					m.upperWindowStyle[row] = slices.Repeat([]lipgloss.Style{m.upperWindowCurStyle}, m.width)
				}
			}
		}
		return m, waitForHost(m.host.events)

	case setTextStyleMsg:
		if m.lowerWindowActive {
			m.lowerStyleMask = uint8(msg)
		} else {
			m.upperStyleMask = uint8(msg)
		}
		m.rebuildStyles()
		return m, waitForHost(m.host.events)

	case setColourMsg:
		fg := resolveColour(msg.fg, m.lowerWindowActive, true)
		bg := resolveColour(msg.bg, m.lowerWindowActive, false)
		if m.lowerWindowActive {
			if fg != "" {
				m.lowerFg = fg
			}
			if bg != "" {
				m.lowerBg = bg
			}
		} else {
			if fg != "" {
				m.upperFg = fg
			}
			if bg != "" {
				m.upperBg = bg
			}
		}
		m.rebuildStyles()
		return m, waitForHost(m.host.events)

	case statusMsg:
		m.statusBar = msg
		return m, waitForHost(m.host.events)

	case soundEffectMsg:
		switch msg.number {
		case 1, 2:
			fmt.Print("\a")
		}
		return m, waitForHost(m.host.events)

	case inputRequestMsg:
		m.appState = appWaitingForInput
		m.pendingSeq = msg.seq
		m.inputBox.SetValue(msg.initial)
		m.inputBox.CharLimit = msg.maxChars
		return m, waitForHost(m.host.events)

	case inputTimeoutMsg:
		if m.pendingSeq == msg.seq {
			m.appState = appRunning
		}
		return m, waitForHost(m.host.events)

	case charRequestMsg:
		m.appState = appWaitingForCharacter
		m.pendingSeq = msg.seq
		return m, waitForHost(m.host.events)

	case charTimeoutMsg:
		if m.pendingSeq == msg.seq {
			m.appState = appRunning
		}
		return m, waitForHost(m.host.events)

	case quitMsg:
		return m, tea.Quit

	case runtimeErrorMsg:
		m.runtimeError = string(msg)
		return m, tea.Quit
	}

	if m.appState == appWaitingForInput {
		m.inputBox, cmd = m.inputBox.Update(msg)
	}

	return m, cmd
}

func (m *runStoryModel) rebuildStyles() {
	m.lowerWindowStyle = m.lowerWindowStyle.
		Background(m.lowerBg).
		Foreground(m.lowerFg).
		Bold(m.lowerStyleMask&uint8(zmachine.Bold) != 0).
		Italic(m.lowerStyleMask&uint8(zmachine.Italic) != 0).
		Reverse(m.lowerStyleMask&uint8(zmachine.ReverseVideo) != 0).
		Inline(true)
	m.upperWindowCurStyle = m.upperWindowCurStyle.
		Background(m.upperBg).
		Foreground(m.upperFg).
		Bold(m.upperStyleMask&uint8(zmachine.Bold) != 0).
		Italic(m.upperStyleMask&uint8(zmachine.Italic) != 0).
		Reverse(m.upperStyleMask&uint8(zmachine.ReverseVideo) != 0)
	m.statusBarStyle = m.lowerWindowStyle.Reverse(true)
	m.backgroundStyle = m.backgroundStyle.
		Background(m.lowerBg).
		Foreground(m.lowerFg)
}

// resolveColour maps a raw set_colour/set_true_colour palette number to a
// lipgloss colour. 0 (current) resolves to "" (no change); 1 (default)
// resolves to this window's own default scheme.
func resolveColour(n int, lowerWindow, foreground bool) lipgloss.Color {
	switch n {
	case 0:
		return ""
	case 1:
		if lowerWindow == foreground {
			return "#000000"
		}
		return "#FFFFFF"
	case 2:
		return "#000000"
	case 3:
		return "#FF0000"
	case 4:
		return "#00FF00"
	case 5:
		return "#FFFF00"
	case 6:
		return "#0000FF"
	case 7:
		return "#FF00FF"
	case 8:
		return "#00FFFF"
	case 9:
		return "#FFFFFF"
	case 10:
		return "#C0C0C0"
	case 11:
		return "#808080"
	case 12:
		return "#404040"
	default:
		return ""
	}
}

func createStatusLine(width int, placeName string, scoreOrHours, movesOrMinutes int, isTimeBasedGame bool) string {
	rightHandSide := fmt.Sprintf("Score: %d    Moves %d", scoreOrHours, movesOrMinutes)
	if isTimeBasedGame {
		rightHandSide = fmt.Sprintf("Time: %d:%d", scoreOrHours, movesOrMinutes)
	}

	if len(rightHandSide) >= width {
		return rightHandSide[:width]
	}

	if len(placeName)+len(rightHandSide)+1 >= width {
		return fmt.Sprintf("%s %s", placeName[:width-len(rightHandSide)-1], rightHandSide)
	}

	numberSpaces := width - len(placeName) - len(rightHandSide)
	return fmt.Sprintf("%s%s%s", placeName, strings.Repeat(" ", numberSpaces), rightHandSide)
}

func (m runStoryModel) prerenderLowerWindowText() string {
	if m.lowerWindowText == "" {
		return m.lowerWindowTextPreStyled
	}
	lines := strings.Split(m.lowerWindowText, "\n")
	for ix, line := range lines {
		lines[ix] = m.lowerWindowStyle.Render(line)
	}
	return m.lowerWindowTextPreStyled + strings.Join(lines, "\n")
}

func (m runStoryModel) View() string {
	if m.runtimeError != "" {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
		return fmt.Sprintf("\n%s\n\n%s\n", errorStyle.Render("Z-Machine Error:"), m.runtimeError)
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	s := strings.Builder{}
	lowerWindowHeight := m.height

	if m.statusBar.placeName != "" {
		s.WriteString(m.statusBarStyle.Render(createStatusLine(m.width, m.statusBar.placeName, m.statusBar.scoreOrHours, m.statusBar.movesOrMinutes, m.statusBar.timeBased)))
		s.WriteString(m.lowerWindowStyle.Render("\n"))
		lowerWindowHeight -= 2
	} else {
		lowerWindowHeight -= m.upperWindowHeight

		var text strings.Builder
		var currentText strings.Builder
		var currentStyle lipgloss.Style
		for row, styleRow := range m.upperWindowStyle {
			for col, chrStyle := range styleRow {
				if chrStyle.GetBackground() != currentStyle.GetBackground() ||
					chrStyle.GetForeground() != currentStyle.GetForeground() ||
					chrStyle.GetBold() != currentStyle.GetBold() ||
					chrStyle.GetItalic() != currentStyle.GetItalic() ||
					chrStyle.GetReverse() != currentStyle.GetReverse() {
					if currentText.Len() > 0 {
						text.WriteString(currentStyle.Render(currentText.String()))
					}
					currentStyle = chrStyle
					currentText.Reset()
				}
				if col < len([]rune(m.upperWindowText[row])) {
					currentText.WriteRune([]rune(m.upperWindowText[row])[col])
				}
			}
			currentText.WriteByte('\n')
		}
		if currentText.Len() > 0 {
			text.WriteString(currentStyle.Render(currentText.String()))
		}
		s.WriteString(text.String())
	}

	fullLowerWindowText := m.prerenderLowerWindowText()
	wordWrappedBody := wordwrap.String(fullLowerWindowText, m.width)
	lines := strings.Split(wordWrappedBody, "\n")

	if len(lines) > lowerWindowHeight-2 {
		lines = lines[len(lines)-lowerWindowHeight+2:]
	}
	s.WriteString(strings.Join(lines, "\n"))

	if m.appState == appWaitingForInput {
		s.WriteString(m.lowerWindowStyle.Render("\n" + m.inputBox.View()))
	}

	return m.backgroundStyle.Width(m.width).Height(m.height).Render(s.String())
}

// tuiHost implements zmachine.Host by forwarding every call as a message to
// a bubbletea program and, for the handful of calls the engine genuinely
// blocks on for an answer (Read, ReadChar), waiting on a reply channel. A
// monotonic sequence number guards against a stale reply (one the user typed
// just as a timeout fired) being mistaken for the answer to a later request.
type tuiHost struct {
	romPath string
	events  chan tea.Msg

	seq        int
	inputReply chan seqString
	charReply  chan seqByte

	cursorRow, cursorCol int
	currentFont          int

	lastSave []byte
}

type seqString struct {
	seq  int
	text string
}
type seqByte struct {
	seq  int
	char uint8
}

func newTUIHost(romPath string) *tuiHost {
	h := &tuiHost{
		romPath:    romPath,
		events:     make(chan tea.Msg, 64),
		inputReply: make(chan seqString, 4),
		charReply:  make(chan seqByte, 4),
		cursorRow:  1,
		cursorCol:  1,
	}
	return h
}

func (h *tuiHost) send(msg tea.Msg) {
	h.events <- msg
}

func (h *tuiHost) replyInput(seq int, text string) {
	h.inputReply <- seqString{seq: seq, text: text}
}

func (h *tuiHost) replyChar(seq int, char uint8) {
	h.charReply <- seqByte{seq: seq, char: char}
}

func (h *tuiHost) Print(window int, text string) {
	h.send(textMsg{window: window, text: text})
}

func (h *tuiHost) SplitWindow(lines int) { h.send(splitWindowMsg(lines)) }
func (h *tuiHost) SetWindow(window int)  { h.send(setWindowMsg(window)) }
func (h *tuiHost) EraseWindow(window int) {
	h.send(eraseWindowMsg(window))
}
func (h *tuiHost) EraseLine() { h.send(eraseLineMsg{}) }

func (h *tuiHost) SetCursor(row, col int) {
	h.cursorRow, h.cursorCol = row, col
	h.send(setCursorMsg{row: row, col: col})
}

func (h *tuiHost) GetCursor() (row, col int) {
	return h.cursorRow, h.cursorCol
}

func (h *tuiHost) SetTextStyle(mask uint8) { h.send(setTextStyleMsg(mask)) }
func (h *tuiHost) SetColour(fg, bg int)     { h.send(setColourMsg{fg: fg, bg: bg}) }

func (h *tuiHost) SetFont(id int) (previous int) {
	previous = h.currentFont
	h.currentFont = id
	return previous
}

func (h *tuiHost) Status(placeName string, scoreOrHours, movesOrMinutes int, timeBased bool) {
	h.send(statusMsg{placeName: placeName, scoreOrHours: scoreOrHours, movesOrMinutes: movesOrMinutes, timeBased: timeBased})
}

func (h *tuiHost) SoundEffect(number, effect, volume, routine uint16) {
	h.send(soundEffectMsg{number: number})
}

func (h *tuiHost) Read(maxChars int, initial string, timeoutTenths int, callbackPC uint32) (string, bool) {
	h.seq++
	seq := h.seq
	h.send(inputRequestMsg{seq: seq, maxChars: maxChars, initial: initial})

	var timeoutCh <-chan time.Time
	if timeoutTenths > 0 {
		timeoutCh = time.After(time.Duration(timeoutTenths) * 100 * time.Millisecond)
	}

	for {
		select {
		case r := <-h.inputReply:
			if r.seq != seq {
				continue
			}
			return r.text, false
		case <-timeoutCh:
			h.send(inputTimeoutMsg{seq: seq})
			return "", true
		}
	}
}

func (h *tuiHost) ReadChar(timeoutTenths int, callbackPC uint32) (uint8, bool) {
	h.seq++
	seq := h.seq
	h.send(charRequestMsg{seq: seq})

	var timeoutCh <-chan time.Time
	if timeoutTenths > 0 {
		timeoutCh = time.After(time.Duration(timeoutTenths) * 100 * time.Millisecond)
	}

	for {
		select {
		case r := <-h.charReply:
			if r.seq != seq {
				continue
			}
			return r.char, false
		case <-timeoutCh:
			h.send(charTimeoutMsg{seq: seq})
			return 0, true
		}
	}
}

func (h *tuiHost) defaultSaveFilename() string {
	if h.romPath == "" {
		return "game.sav"
	}
	base := filepath.Base(h.romPath)
	ext := filepath.Ext(base)
	if len(ext) >= 2 && (ext[1] == 'z' || ext[1] == 'Z') {
		base = base[:len(base)-len(ext)]
	}
	return base + ".sav"
}

func (h *tuiHost) Save(data []byte) bool {
	h.lastSave = data
	err := os.WriteFile(h.defaultSaveFilename(), data, 0644)
	return err == nil
}

func (h *tuiHost) Restore() ([]byte, bool) {
	data, err := os.ReadFile(h.defaultSaveFilename())
	if err != nil {
		return nil, false
	}
	return data, true
}

func (h *tuiHost) Quit() { h.send(quitMsg{}) }

func (h *tuiHost) Error(message string) { h.send(runtimeErrorMsg(message)) }
