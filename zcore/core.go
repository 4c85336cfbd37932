// Package zcore models the Z-Machine's byte-addressed memory map: the
// header, the dynamic/static/high region split, and version-dependent
// packed address arithmetic.
package zcore

import "encoding/binary"

// SupportedVersions lists the story-file versions this core understands.
// Version 6 (graphical) is explicitly out of scope.
var SupportedVersions = [...]uint8{1, 3, 4, 5, 7, 8}

// Core is the flat byte image of a loaded story file plus the header
// fields decoded from it. Core owns the only mutable view of story memory;
// every other package borrows a *Core for the duration of an operation.
type Core struct {
	bytes []uint8

	Version               uint8
	FlagByte1             uint8
	StatusBarTimeBased    bool
	ReleaseNumber         uint16
	HighMemoryBase        uint16
	FirstInstruction      uint16
	DictionaryBase        uint16
	ObjectTableBase       uint16
	GlobalVariableBase    uint16
	StaticMemoryBase      uint16
	AbbreviationTableBase uint16
	FileChecksum          uint16
	SerialNumber          [6]byte
	InterpreterNumber     uint8
	InterpreterVersion    uint8
	ScreenHeightLines     uint8
	ScreenWidthChars      uint8
	ScreenWidthUnits      uint16
	ScreenHeightUnits     uint16
	FontHeight            uint8
	FontWidth             uint8
	RoutinesOffset        uint16
	StringOffset          uint16

	DefaultBackgroundColorNumber uint8
	DefaultForegroundColorNumber uint8
	TerminatingCharTableBase     uint16
	OutputStream3Width           uint16
	StandardRevisionNumber       uint16

	AlternativeCharSetBase           uint16
	ExtensionTableBase               uint16
	UnicodeExtensionTableBaseAddress uint16
}

// FaultKind names a fatal story/bytecode error per spec.md section 7.
type FaultKind int

const (
	InvalidStoryFile FaultKind = iota
	UnsupportedVersion
	OutOfBoundsMemoryAccess
	WriteToStaticMemory
)

func (k FaultKind) String() string {
	switch k {
	case InvalidStoryFile:
		return "InvalidStoryFile"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case OutOfBoundsMemoryAccess:
		return "OutOfBoundsMemoryAccess"
	case WriteToStaticMemory:
		return "WriteToStaticMemory"
	default:
		return "UnknownFault"
	}
}

// Fault is a fatal memory/header error, recovered once at the top of the
// engine's run loop and reported to the host.
type Fault struct {
	Kind    FaultKind
	Message string
}

func (f Fault) Error() string { return f.Kind.String() + ": " + f.Message }

func isSupportedVersion(v uint8) bool {
	for _, sv := range SupportedVersions {
		if sv == v {
			return true
		}
	}
	return false
}

// Load parses a story file's header and wraps the raw bytes in a Core. It
// validates the version byte and minimum header length. A checksum
// mismatch is not itself a load failure per the Standard - Checksum is
// exposed separately for the VERIFY opcode to use.
func Load(storyFile []uint8) (*Core, error) {
	if len(storyFile) < 64 {
		return nil, Fault{InvalidStoryFile, "story file shorter than the 64 byte header"}
	}

	version := storyFile[0x00]
	if !isSupportedVersion(version) {
		return nil, Fault{UnsupportedVersion, "unsupported story file version byte"}
	}

	core := &Core{
		bytes:                 storyFile,
		Version:               version,
		FlagByte1:             storyFile[0x01],
		StatusBarTimeBased:    storyFile[0x01]&0b0000_0010 != 0,
		ReleaseNumber:         binary.BigEndian.Uint16(storyFile[0x02:0x04]),
		HighMemoryBase:        binary.BigEndian.Uint16(storyFile[0x04:0x06]),
		FirstInstruction:      binary.BigEndian.Uint16(storyFile[0x06:0x08]),
		DictionaryBase:        binary.BigEndian.Uint16(storyFile[0x08:0x0a]),
		ObjectTableBase:       binary.BigEndian.Uint16(storyFile[0x0a:0x0c]),
		GlobalVariableBase:    binary.BigEndian.Uint16(storyFile[0x0c:0x0e]),
		StaticMemoryBase:      binary.BigEndian.Uint16(storyFile[0x0e:0x10]),
		AbbreviationTableBase: binary.BigEndian.Uint16(storyFile[0x18:0x1a]),
		FileChecksum:          binary.BigEndian.Uint16(storyFile[0x1c:0x1e]),
		InterpreterNumber:     storyFile[0x1e],
		InterpreterVersion:    storyFile[0x1f],
		ScreenHeightLines:     storyFile[0x20],
		ScreenWidthChars:      storyFile[0x21],
		ScreenWidthUnits:      binary.BigEndian.Uint16(storyFile[0x22:0x24]),
		ScreenHeightUnits:     binary.BigEndian.Uint16(storyFile[0x24:0x26]),
		FontHeight:            storyFile[0x26],
		FontWidth:             storyFile[0x27],
	}
	copy(core.SerialNumber[:], storyFile[0x12:0x18])

	if version == 7 {
		core.RoutinesOffset = binary.BigEndian.Uint16(storyFile[0x28:0x2a])
		core.StringOffset = binary.BigEndian.Uint16(storyFile[0x2a:0x2c])
	}
	core.DefaultBackgroundColorNumber = storyFile[0x2c]
	core.DefaultForegroundColorNumber = storyFile[0x2d]
	core.TerminatingCharTableBase = binary.BigEndian.Uint16(storyFile[0x2e:0x30])
	if version >= 5 {
		core.OutputStream3Width = binary.BigEndian.Uint16(storyFile[0x30:0x32])
		core.StandardRevisionNumber = binary.BigEndian.Uint16(storyFile[0x32:0x34])
		core.AlternativeCharSetBase = binary.BigEndian.Uint16(storyFile[0x34:0x36])
		core.ExtensionTableBase = binary.BigEndian.Uint16(storyFile[0x36:0x38])
		if core.ExtensionTableBase != 0 && int(core.ExtensionTableBase)+8 <= len(storyFile) {
			numWords := binary.BigEndian.Uint16(storyFile[core.ExtensionTableBase : core.ExtensionTableBase+2])
			if numWords >= 3 {
				core.UnicodeExtensionTableBaseAddress = binary.BigEndian.Uint16(storyFile[core.ExtensionTableBase+6 : core.ExtensionTableBase+8])
			}
		}
	}

	// Report ourselves as a plain terminal interpreter: no pictures, basic
	// styles and split-screen on v4+.
	storyFile[0x1e] = 6
	storyFile[0x1f] = 1
	if version <= 3 {
		storyFile[0x01] |= 0b0010_0000 // split screen available
	} else {
		storyFile[0x01] |= 0b0010_1101 // colours, bold, italic, split screen
	}
	storyFile[0x32] = 1
	storyFile[0x33] = 0

	return core, nil
}

// Checksum recomputes the header 0x1c checksum: the sum mod 0x10000 of
// every byte from 0x40 to the declared file length.
func (c *Core) Checksum() uint16 {
	length := c.FileLength()
	sum := uint16(0)
	for ix := uint32(0x40); ix < length && ix < uint32(len(c.bytes)); ix++ {
		sum += uint16(c.bytes[ix])
	}
	return sum
}

// FileLength returns the declared story length in bytes, scaled per the
// version-dependent unit recorded at header offset 0x1a.
func (c *Core) FileLength() uint32 {
	var scale uint32
	switch {
	case c.Version <= 3:
		scale = 2
	case c.Version <= 5:
		scale = 4
	default:
		scale = 8
	}
	return uint32(binary.BigEndian.Uint16(c.bytes[0x1a:0x1c])) * scale
}

// MemoryLength is the length of the in-memory image.
func (c *Core) MemoryLength() uint32 {
	return uint32(len(c.bytes))
}

func (c *Core) checkBounds(address uint32) {
	if address >= uint32(len(c.bytes)) {
		panic(Fault{OutOfBoundsMemoryAccess, "address out of bounds"})
	}
}

// ReadByte loads a single byte from anywhere in the story image.
func (c *Core) ReadByte(address uint32) uint8 {
	c.checkBounds(address)
	return c.bytes[address]
}

// ReadHalfWord loads a big-endian 16-bit word.
func (c *Core) ReadHalfWord(address uint32) uint16 {
	c.checkBounds(address + 1)
	return binary.BigEndian.Uint16(c.bytes[address : address+2])
}

// ReadSlice returns a read-only view of [start, end). The caller must not
// mutate it; use WriteByte/WriteHalfWord for stores.
func (c *Core) ReadSlice(start, end uint32) []uint8 {
	if end > 0 {
		c.checkBounds(end - 1)
	}
	return c.bytes[start:end]
}

// WriteByte stores to dynamic memory. Writing at or above staticBase is a
// fatal programming-error signal, not a recoverable condition.
func (c *Core) WriteByte(address uint32, value uint8) {
	c.checkBounds(address)
	if address >= uint32(c.StaticMemoryBase) {
		panic(Fault{WriteToStaticMemory, "store to static/high memory"})
	}
	c.bytes[address] = value
}

// WriteHalfWord stores a big-endian 16-bit word to dynamic memory.
func (c *Core) WriteHalfWord(address uint32, value uint16) {
	c.checkBounds(address + 1)
	if address >= uint32(c.StaticMemoryBase) {
		panic(Fault{WriteToStaticMemory, "store to static/high memory"})
	}
	binary.BigEndian.PutUint16(c.bytes[address:address+2], value)
}

// ReadGlobal reads global variable n (16..255).
func (c *Core) ReadGlobal(n uint8) uint16 {
	return c.ReadHalfWord(uint32(c.GlobalVariableBase) + 2*uint32(n-16))
}

// WriteGlobal writes global variable n (16..255).
func (c *Core) WriteGlobal(n uint8, value uint16) {
	c.WriteHalfWord(uint32(c.GlobalVariableBase)+2*uint32(n-16), value)
}

// PackedAddress converts a packed routine or string pointer to a byte
// address using the version-dependent scaling factor from spec.md section
// 4.8. isZString selects the string-offset constant on v7 instead of the
// routine-offset constant.
func (c *Core) PackedAddress(packed uint32, isZString bool) uint32 {
	switch {
	case c.Version <= 3:
		return 2 * packed
	case c.Version <= 5:
		return 4 * packed
	case c.Version == 7:
		offset := c.RoutinesOffset
		if isZString {
			offset = c.StringOffset
		}
		return 4*packed + 8*uint32(offset)
	case c.Version == 8:
		return 8 * packed
	default:
		panic(Fault{UnsupportedVersion, "packed address on unsupported version"})
	}
}

// DynamicMemory returns the mutable region [0, StaticMemoryBase) as used by
// Quetzal's CMem chunk and in-memory undo snapshots.
func (c *Core) DynamicMemory() []uint8 {
	return c.bytes[0:c.StaticMemoryBase]
}

// RestoreDynamicMemory overwrites [0, StaticMemoryBase) verbatim, used by
// Quetzal restore. len(data) must equal StaticMemoryBase.
func (c *Core) RestoreDynamicMemory(data []uint8) {
	copy(c.bytes[0:c.StaticMemoryBase], data)
}
