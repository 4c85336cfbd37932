// Package zobject models the Z-Machine object tree: the parent/sibling/child
// forest stored in dynamic memory, its version-dependent record layout, and
// attribute/property access built on top of it.
package zobject

import (
	"fmt"

	"github.com/wrenfield/zigzag/zcore"
	"github.com/wrenfield/zigzag/zstring"
)

// Object is a decoded view of one object-table entry. Mutating methods
// write straight back through Core - there is no separate "dirty" flag to
// flush.
type Object struct {
	BaseAddress     uint32
	Id              uint16
	Name            string
	Attributes      uint64 // top 32 bits valid on v1-3, top 48 on v4+
	Parent          uint16 // stored as a byte on v1-3
	Sibling         uint16
	Child           uint16
	PropertyPointer uint16
}

// MalformedObjectTreeError marks a sibling-chain walk that never found the
// object it was looking for - a corrupt or malicious story file rather than
// a programming bug in the engine.
type MalformedObjectTreeError struct {
	Message string
}

func (e MalformedObjectTreeError) Error() string { return "zobject: " + e.Message }

func objectRecordSize(version uint8) (recordSize uint32, defaultsWords uint32) {
	if version >= 4 {
		return 14, 63
	}
	return 9, 31
}

// GetObject decodes object id from the object table. Id 0 (meaning "no
// object") is never a valid argument and panics with
// MalformedObjectTreeError.
func GetObject(core *zcore.Core, id uint16, alphabets *zstring.Alphabets) Object {
	if id == 0 {
		panic(MalformedObjectTreeError{"requested object 0, which does not exist"})
	}

	recordSize, defaultsWords := objectRecordSize(core.Version)
	base := uint32(core.ObjectTableBase) + defaultsWords*2 + uint32(id-1)*recordSize

	if core.Version >= 4 {
		propPtr := core.ReadHalfWord(base + 12)
		attrs := uint64(core.ReadHalfWord(base))<<48 | uint64(core.ReadHalfWord(base+2))<<32 | uint64(core.ReadHalfWord(base+4))<<16
		return Object{
			BaseAddress:     base,
			Id:              id,
			Name:            decodeObjectName(core, propPtr, alphabets),
			Attributes:      attrs,
			Parent:          core.ReadHalfWord(base + 6),
			Sibling:         core.ReadHalfWord(base + 8),
			Child:           core.ReadHalfWord(base + 10),
			PropertyPointer: propPtr,
		}
	}

	propPtr := core.ReadHalfWord(base + 7)
	attrs := uint64(core.ReadHalfWord(base))<<48 | uint64(core.ReadHalfWord(base+2))<<32
	return Object{
		BaseAddress:     base,
		Id:              id,
		Name:            decodeObjectName(core, propPtr, alphabets),
		Attributes:      attrs,
		Parent:          uint16(core.ReadByte(base + 4)),
		Sibling:         uint16(core.ReadByte(base + 5)),
		Child:           uint16(core.ReadByte(base + 6)),
		PropertyPointer: propPtr,
	}
}

func decodeObjectName(core *zcore.Core, propPtr uint16, alphabets *zstring.Alphabets) string {
	nameLength := core.ReadByte(uint32(propPtr))
	if nameLength == 0 {
		return ""
	}
	name, _ := zstring.Decode(core, uint32(propPtr)+1, alphabets)
	return name
}

// TestAttribute reports whether attribute n (0-based, 0 is the highest-order
// bit of the attribute block) is set. Attribute numbering runs from the
// most-significant bit down, per the Standard's bit layout.
func (o *Object) TestAttribute(attribute uint16) bool {
	mask := uint64(1) << (63 - attribute)
	return o.Attributes&mask == mask
}

func (o *Object) writeAttributes(core *zcore.Core) {
	core.WriteHalfWord(o.BaseAddress, uint16(o.Attributes>>48))
	core.WriteHalfWord(o.BaseAddress+2, uint16(o.Attributes>>32))
	if core.Version >= 4 {
		core.WriteHalfWord(o.BaseAddress+4, uint16(o.Attributes>>16))
	}
}

// SetAttribute sets attribute n and writes the attribute block back.
func (o *Object) SetAttribute(attribute uint16, core *zcore.Core) {
	mask := uint64(1) << (63 - attribute)
	o.Attributes |= mask
	o.writeAttributes(core)
}

// ClearAttribute clears attribute n and writes the attribute block back.
func (o *Object) ClearAttribute(attribute uint16, core *zcore.Core) {
	mask := uint64(1) << (63 - attribute)
	o.Attributes &^= mask
	o.writeAttributes(core)
}

// SetParent updates both the in-memory Object and the story file.
func (o *Object) SetParent(parent uint16, core *zcore.Core) {
	if core.Version >= 4 {
		core.WriteHalfWord(o.BaseAddress+6, parent)
	} else {
		core.WriteByte(o.BaseAddress+4, uint8(parent))
	}
	o.Parent = parent
}

// SetSibling updates both the in-memory Object and the story file.
func (o *Object) SetSibling(sibling uint16, core *zcore.Core) {
	if core.Version >= 4 {
		core.WriteHalfWord(o.BaseAddress+8, sibling)
	} else {
		core.WriteByte(o.BaseAddress+5, uint8(sibling))
	}
	o.Sibling = sibling
}

// SetChild updates both the in-memory Object and the story file.
func (o *Object) SetChild(child uint16, core *zcore.Core) {
	if core.Version >= 4 {
		core.WriteHalfWord(o.BaseAddress+10, child)
	} else {
		core.WriteByte(o.BaseAddress+6, uint8(child))
	}
	o.Child = child
}

// RemoveFromTree detaches id from its parent's child/sibling chain,
// matching remove_obj. Detaching an object with no parent is a no-op, as
// required for objects already at the top level.
func RemoveFromTree(core *zcore.Core, alphabets *zstring.Alphabets, id uint16) {
	object := GetObject(core, id, alphabets)
	if object.Parent == 0 {
		return
	}

	oldParent := GetObject(core, object.Parent, alphabets)
	if oldParent.Child == object.Id {
		oldParent.SetChild(object.Sibling, core)
	} else {
		currId := oldParent.Child
		found := false
		for currId != 0 {
			curr := GetObject(core, currId, alphabets)
			if curr.Sibling == object.Id {
				curr.SetSibling(object.Sibling, core)
				found = true
				break
			}
			currId = curr.Sibling
		}
		if !found {
			panic(MalformedObjectTreeError{fmt.Sprintf("object %d not found in parent %d's sibling chain", object.Id, oldParent.Id)})
		}
	}

	object.SetParent(0, core)
	object.SetSibling(0, core)
}

// InsertInto detaches id from wherever it currently sits and makes it the
// first child of newParent, matching insert_obj.
func InsertInto(core *zcore.Core, alphabets *zstring.Alphabets, id uint16, newParent uint16) {
	object := GetObject(core, id, alphabets)

	RemoveFromTree(core, alphabets, object.Id)
	// Re-read the destination: the removal may have rewritten its child.
	destination := GetObject(core, newParent, alphabets)
	object.SetSibling(destination.Child, core)
	object.SetParent(destination.Id, core)
	destination.SetChild(object.Id, core)
}
