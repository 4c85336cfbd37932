package zmachine

// Host is the collaborator the engine suspends into for every bit of I/O:
// screen output, line/char input, save/restore, sound, and fatal-error
// reporting. Every method blocks until the host has an answer - the engine
// never runs concurrently with itself, so there is exactly one outstanding
// call at a time. cmd/zigzag implements this by bridging to bubbletea's
// async Msg loop from a dedicated engine goroutine; cmd/zigzag-smoke
// implements it headlessly for scripted/timeout-driven runs.
type Host interface {
	Print(window int, text string)
	SplitWindow(lines int)
	SetWindow(window int)
	EraseWindow(window int)
	EraseLine()
	SetCursor(row, col int)
	GetCursor() (row, col int)
	SetTextStyle(mask uint8)
	SetColour(fg, bg int)
	SetFont(id int) (previous int)
	Status(placeName string, scoreOrHours, movesOrMinutes int, timeBased bool)
	SoundEffect(number, effect, volume, routine uint16)
	Read(maxChars int, initial string, timeoutTenths int, callbackPC uint32) (line string, timedOut bool)
	ReadChar(timeoutTenths int, callbackPC uint32) (char uint8, timedOut bool)
	Save(data []byte) bool
	Restore() ([]byte, bool)
	Quit()
	Error(message string)
}
