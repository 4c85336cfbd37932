package zmachine

import "fmt"

// TextStyle is the set_text_style bitmask.
type TextStyle int

const (
	Roman        TextStyle = 0b0000_0000
	ReverseVideo TextStyle = 0b0000_0001
	Bold         TextStyle = 0b0000_0010
	Italic       TextStyle = 0b0000_0100
	FixedPitch   TextStyle = 0b0000_1000
)

// Color is an RGB triple, used only for rendering - the engine never does
// colour math itself.
type Color struct {
	r, g, b int
}

func (c Color) ToHex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.r, c.g, c.b)
}

// Font is the set_font/ext_set_font opcode's font id.
type Font uint16

const (
	FontNormal     Font = 1
	FontPicture    Font = 2
	FontCharGraphs Font = 3
	FontFixedPitch Font = 4
)

// ScreenModel is deliberately not a V6 screen model (V6's graphical window
// model is out of scope); it tracks just enough state - window split,
// cursor, style, colour, font - for split_window/set_window/set_cursor/
// set_text_style/set_colour/set_font/get_cursor to behave correctly and for
// a host to render the two windows.
type ScreenModel struct {
	LowerWindowActive bool
	CurrentFont       Font

	UpperWindowHeight            int
	UpperWindowForeground        Color
	UpperWindowBackground        Color
	DefaultUpperWindowForeground Color
	DefaultUpperWindowBackground Color
	UpperWindowCursorX           int
	UpperWindowCursorY           int
	UpperWindowTextStyle         TextStyle

	DefaultLowerWindowForeground Color
	DefaultLowerWindowBackground Color
	LowerWindowForeground        Color
	LowerWindowBackground        Color
	LowerWindowTextStyle         TextStyle
}

// ZMachineColor resolves a set_colour operand (0 = current, 1 = default,
// 2-12 = the Standard's fixed palette) against this model.
func (m *ScreenModel) ZMachineColor(i uint16, isForeground bool) Color {
	switch i {
	case 0:
		if isForeground {
			if m.LowerWindowActive {
				return m.LowerWindowForeground
			}
			return m.UpperWindowForeground
		}
		if m.LowerWindowActive {
			return m.LowerWindowBackground
		}
		return m.UpperWindowBackground
	case 1:
		if isForeground {
			if m.LowerWindowActive {
				return m.DefaultLowerWindowForeground
			}
			return m.DefaultUpperWindowForeground
		}
		if m.LowerWindowActive {
			return m.DefaultLowerWindowBackground
		}
		return m.DefaultUpperWindowBackground
	case 2:
		return Color{0, 0, 0}
	case 3:
		return Color{255, 0, 0}
	case 4:
		return Color{0, 255, 0}
	case 5:
		return Color{255, 255, 0}
	case 6:
		return Color{0, 0, 255}
	case 7:
		return Color{255, 0, 255}
	case 8:
		return Color{0, 255, 255}
	case 9:
		return Color{255, 255, 255}
	case 10:
		return Color{192, 192, 192}
	case 11:
		return Color{128, 128, 128}
	case 12:
		return Color{64, 64, 64}
	default:
		return Color{0, 0, 0}
	}
}

func newScreenModel(foreground, background Color) ScreenModel {
	return ScreenModel{
		LowerWindowActive:            true,
		CurrentFont:                  FontNormal,
		UpperWindowHeight:            0,
		DefaultUpperWindowForeground: foreground,
		DefaultUpperWindowBackground: background,
		UpperWindowForeground:        foreground,
		UpperWindowBackground:        background,
		UpperWindowCursorX:           1,
		UpperWindowCursorY:           1,
		UpperWindowTextStyle:         Roman,
		DefaultLowerWindowForeground: background,
		DefaultLowerWindowBackground: foreground,
		LowerWindowForeground:        background,
		LowerWindowBackground:        foreground,
		LowerWindowTextStyle:         Roman,
	}
}
