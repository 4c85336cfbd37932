package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/wrenfield/zigzag/zmachine"
)

// TestResult captures the outcome of running a single game.
type TestResult struct {
	Filename     string   `json:"filename"`
	Version      uint8    `json:"version"`
	Success      bool     `json:"success"`
	PanicMessage string   `json:"panic_message,omitempty"`
	StackTrace   string   `json:"stack_trace,omitempty"`
	FirstScreen  []string `json:"first_screen,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

func main() {
	storiesDir := flag.String("stories", "stories", "Directory containing Z-machine story files")
	outputDir := flag.String("output", "testdata", "Directory to write results to")
	singleGame := flag.String("game", "", "Test a single game file instead of all games")
	flag.Parse()

	if *singleGame != "" {
		runSingleGame(*singleGame)
		return
	}

	runAllGames(*storiesDir, *outputDir)
}

func runAllGames(storiesDir, outputDir string) {
	if _, err := os.Stat(storiesDir); os.IsNotExist(err) {
		fmt.Printf("Stories directory not found: %s\n", storiesDir)
		os.Exit(1)
	}

	entries, err := os.ReadDir(storiesDir)
	if err != nil {
		fmt.Printf("Failed to read stories directory: %v\n", err)
		os.Exit(1)
	}

	var games []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".z1") || strings.HasSuffix(name, ".z2") ||
			strings.HasSuffix(name, ".z3") || strings.HasSuffix(name, ".z4") ||
			strings.HasSuffix(name, ".z5") || strings.HasSuffix(name, ".z6") ||
			strings.HasSuffix(name, ".z7") || strings.HasSuffix(name, ".z8") {
			games = append(games, filepath.Join(storiesDir, name))
		}
	}

	if len(games) == 0 {
		fmt.Printf("No game files found in %s\n", storiesDir)
		os.Exit(1)
	}

	fmt.Printf("Found %d games to test\n", len(games))

	var results []TestResult

	for i, gamePath := range games {
		filename := filepath.Base(gamePath)
		result := runGameTest(gamePath)
		results = append(results, result)

		status := "OK"
		if !result.Success {
			status = "FAIL"
		}
		fmt.Printf("[%d/%d] %s %s\n", i+1, len(games), status, filename)
		if !result.Success && result.ErrorMessage != "" {
			fmt.Printf("        Error: %s\n", result.ErrorMessage)
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	resultsPath := filepath.Join(outputDir, "test_results.json")
	resultsJSON, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(resultsPath, resultsJSON, 0644); err != nil {
		fmt.Printf("Failed to write results: %v\n", err)
	} else {
		fmt.Printf("\nResults written to %s\n", resultsPath)
	}

	passed := 0
	failed := 0
	for _, r := range results {
		if r.Success {
			passed++
		} else {
			failed++
		}
	}
	fmt.Printf("\n=== SUMMARY ===\nPassed: %d\nFailed: %d\nTotal: %d\n", passed, failed, len(results))

	screenshotsPath := filepath.Join(outputDir, "screenshots.txt")
	var screenshots strings.Builder
	for _, r := range results {
		fmt.Fprintf(&screenshots, "=== %s (v%d) ===\n", r.Filename, r.Version)
		if r.Success {
			for _, line := range r.FirstScreen {
				screenshots.WriteString(line + "\n")
			}
		} else {
			fmt.Fprintf(&screenshots, "ERROR: %s\n", r.ErrorMessage)
			if r.PanicMessage != "" {
				fmt.Fprintf(&screenshots, "PANIC: %s\n", r.PanicMessage)
			}
		}
		screenshots.WriteString("\n")
	}
	os.WriteFile(screenshotsPath, []byte(screenshots.String()), 0644)
}

func runSingleGame(gamePath string) {
	if _, err := os.Stat(gamePath); os.IsNotExist(err) {
		fmt.Printf("Game file not found: %s\n", gamePath)
		os.Exit(1)
	}

	result := runGameTest(gamePath)

	fmt.Printf("Game: %s\n", result.Filename)
	fmt.Printf("Version: %d\n", result.Version)
	fmt.Printf("Success: %v\n", result.Success)

	if result.PanicMessage != "" {
		fmt.Printf("Panic: %s\n", result.PanicMessage)
		fmt.Printf("Stack: %s\n", result.StackTrace)
	}

	if result.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", result.ErrorMessage)
	}

	fmt.Printf("First Screen:\n%s\n", strings.Join(result.FirstScreen, "\n"))
}

func runGameTest(gamePath string) (result TestResult) {
	filename := filepath.Base(gamePath)
	result.Filename = filename

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.PanicMessage = fmt.Sprintf("%v", r)
			result.StackTrace = string(debug.Stack())
		}
	}()

	storyBytes, err := os.ReadFile(gamePath)
	if err != nil {
		result.Success = false
		result.ErrorMessage = fmt.Sprintf("Failed to read file: %v", err)
		return
	}

	if len(storyBytes) < 64 {
		result.Success = false
		result.ErrorMessage = "File too small to be a valid Z-machine file"
		return
	}

	result.Version = storyBytes[0]

	host := newHeadlessHost([]string{"quit"})

	engine, err := zmachine.New(storyBytes, host)
	if err != nil {
		result.Success = false
		result.ErrorMessage = fmt.Sprintf("Failed to load story: %v", err)
		return
	}

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				host.errMsg = fmt.Sprintf("panic in Run: %v", r)
			}
			done <- true
		}()
		engine.Run()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		result.Success = false
		result.ErrorMessage = "Timeout waiting for first screen"
		return
	}

	if host.errMsg != "" {
		result.Success = false
		result.ErrorMessage = host.errMsg
		return
	}

	result.Success = true
	result.FirstScreen = strings.Split(host.output.String(), "\n")
	return
}

// headlessHost is a scripted, non-interactive zmachine.Host: it feeds a
// fixed list of commands to every read request (repeating the last one
// once exhausted) and captures all printed text for later inspection.
// Save/restore round-trip through an in-memory buffer rather than disk.
type headlessHost struct {
	output   *strings.Builder
	commands []string
	cmdIndex int
	lastSave []byte
	errMsg   string
}

func newHeadlessHost(commands []string) *headlessHost {
	return &headlessHost{
		output:   &strings.Builder{},
		commands: commands,
	}
}

func (h *headlessHost) Print(window int, text string) {
	if window == 0 {
		h.output.WriteString(text)
	}
}

func (h *headlessHost) SplitWindow(lines int)        {}
func (h *headlessHost) SetWindow(window int)         {}
func (h *headlessHost) EraseWindow(window int)       {}
func (h *headlessHost) EraseLine()                   {}
func (h *headlessHost) SetCursor(row, col int)       {}
func (h *headlessHost) GetCursor() (row, col int)    { return 1, 1 }
func (h *headlessHost) SetTextStyle(mask uint8)      {}
func (h *headlessHost) SetColour(fg, bg int)         {}
func (h *headlessHost) SetFont(id int) (previous int) {
	return int(1)
}
func (h *headlessHost) Status(placeName string, scoreOrHours, movesOrMinutes int, timeBased bool) {}
func (h *headlessHost) SoundEffect(number, effect, volume, routine uint16)                        {}

func (h *headlessHost) nextCommand() string {
	if len(h.commands) == 0 {
		return "quit"
	}
	if h.cmdIndex >= len(h.commands) {
		return h.commands[len(h.commands)-1]
	}
	cmd := h.commands[h.cmdIndex]
	h.cmdIndex++
	return cmd
}

func (h *headlessHost) Read(maxChars int, initial string, timeoutTenths int, callbackPC uint32) (string, bool) {
	return h.nextCommand(), false
}

func (h *headlessHost) ReadChar(timeoutTenths int, callbackPC uint32) (uint8, bool) {
	return 13, false
}

func (h *headlessHost) Save(data []byte) bool {
	h.lastSave = data
	return true
}

func (h *headlessHost) Restore() ([]byte, bool) {
	return h.lastSave, h.lastSave != nil
}

func (h *headlessHost) Quit() {}

func (h *headlessHost) Error(message string) {
	h.errMsg = message
}
