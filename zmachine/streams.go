package zmachine

// memoryStream is one active output_stream 3 redirection: text is captured
// into the table at baseAddress instead of going to the screen, and the
// captured length is written back into the table's leading word when the
// stream is closed.
type memoryStream struct {
	baseAddress uint32
	ptr         uint32
}

// Streams tracks which of the four output streams (screen, transcript,
// memory, command script) are currently selected. Memory streams nest: the
// output_stream opcode can redirect into a new table while an outer one is
// still open, and closing one resumes whichever was open before it.
type Streams struct {
	Screen        bool
	Transcript    bool
	Memory        bool
	MemoryStreams []memoryStream
	CommandScript bool
}

func newStreams() Streams {
	return Streams{Screen: true}
}
