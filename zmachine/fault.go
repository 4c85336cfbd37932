package zmachine

import (
	"fmt"

	"github.com/wrenfield/zigzag/zcore"
	"github.com/wrenfield/zigzag/zobject"
	"github.com/wrenfield/zigzag/zstring"
)

// FaultKind is the fatal-error taxonomy from the Z-machine core's error
// handling design. Every one of these stops Engine.Run/Step and reports to
// Host.Error; QuetzalMismatch is deliberately absent here because it is
// non-fatal (save/restore observe it as a bool).
type FaultKind int

const (
	InvalidStoryFile FaultKind = iota
	UnsupportedVersion
	OutOfBoundsMemoryAccess
	WriteToStaticMemory
	UnsupportedOpcode
	StackUnderflow
	LocalOutOfRange
	MalformedObjectTree
	PropertyWriteLengthMismatch
	DivisionByZero
	BadZsciiString
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
	case UnsupportedOpcode:
		return "UnsupportedOpcode"
	case StackUnderflow:
		return "StackUnderflow"
	case LocalOutOfRange:
		return "LocalOutOfRange"
	case MalformedObjectTree:
		return "MalformedObjectTree"
	case PropertyWriteLengthMismatch:
		return "PropertyWriteLengthMismatch"
	case DivisionByZero:
		return "DivisionByZero"
	case BadZsciiString:
		return "BadZsciiString"
	default:
		return "UnknownFault"
	}
}

// Fault is the single error type the engine ever panics with deliberately.
// Engine.Step recovers this type, plus the subpackage errors that
// adoptSubpackageFault translates into it, and re-panics anything else,
// since anything else is a programming bug rather than a story-file
// condition.
type Fault struct {
	Kind    FaultKind
	Message string
}

func (f Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// adoptSubpackageFault translates the typed errors raised by zcore, zobject
// and zstring into the zmachine.FaultKind taxonomy, so a single recover in
// Engine.Step can handle all of them uniformly. Anything not recognised is
// re-panicked unchanged by the caller.
func adoptSubpackageFault(r any) (Fault, bool) {
	switch e := r.(type) {
	case Fault:
		return e, true
	case zcore.Fault:
		kind := OutOfBoundsMemoryAccess
		switch e.Kind {
		case zcore.InvalidStoryFile:
			kind = InvalidStoryFile
		case zcore.UnsupportedVersion:
			kind = UnsupportedVersion
		case zcore.OutOfBoundsMemoryAccess:
			kind = OutOfBoundsMemoryAccess
		case zcore.WriteToStaticMemory:
			kind = WriteToStaticMemory
		}
		return Fault{Kind: kind, Message: e.Error()}, true
	case zobject.MalformedObjectTreeError:
		return Fault{Kind: MalformedObjectTree, Message: e.Error()}, true
	case zobject.PropertyWriteLengthMismatchError:
		return Fault{Kind: PropertyWriteLengthMismatch, Message: e.Error()}, true
	case zstring.NestedAbbreviationError:
		return Fault{Kind: BadZsciiString, Message: e.Error()}, true
	case error:
		return Fault{}, false
	default:
		return Fault{}, false
	}
}
