package zobject_test

import (
	"testing"

	"github.com/wrenfield/zigzag/zcore"
	"github.com/wrenfield/zigzag/zobject"
	"github.com/wrenfield/zigzag/zstring"
)

// synthStory builds a v3 story with a tiny object table: defaults block (31
// words), then three object records (9 bytes each), with a property table
// for each (two properties on object 1, none on objects 2 and 3), rooted
// just past the object table.
func synthStory(t *testing.T) (*zcore.Core, *zstring.Alphabets) {
	t.Helper()

	const objectTableBase = 0x40
	const defaultsWords = 31
	const recordSize = 9
	const propBase = objectTableBase + defaultsWords*2 + 3*recordSize // room for 3 objects

	size := uint32(propBase + 64)
	b := make([]uint8, size)
	b[0x00] = 3
	b[0x0a] = objectTableBase >> 8
	b[0x0b] = objectTableBase & 0xff
	b[0x0e] = 0x01 // static memory base high: push it past our scratch area
	b[0x0f] = 0x00
	b[0x1a] = 0x00
	b[0x1b] = uint8(size / 2)

	core, err := zcore.Load(b)
	if err != nil {
		t.Fatalf("failed to build synthetic story: %v", err)
	}

	// Default property 1 = 0x0005, used when an object omits it.
	core.WriteHalfWord(objectTableBase, 0x0005)

	alphabets := zstring.DefaultAlphabets(core.Version)

	// Object 1: parent 0, sibling 2, child 0, properties: name "cave",
	// property 6 (length 1, value 0x85), property 3 (length 2, 0x88e5).
	obj1Base := uint32(objectTableBase) + defaultsWords*2
	propAddr1 := uint32(propBase)
	core.WriteByte(propAddr1, 2) // name length in z-words
	nameZchars := zstring.ToZChars(core, "cave", alphabets)
	namePacked := zstring.PackZChars(nameZchars, 2)
	for i, bb := range namePacked {
		core.WriteByte(propAddr1+1+uint32(i), bb)
	}
	propListAddr1 := propAddr1 + 1 + 4 // 2 z-words = 4 bytes
	core.WriteByte(propListAddr1, (0<<5)|6)
	core.WriteByte(propListAddr1+1, 0x85)
	core.WriteByte(propListAddr1+2, (1<<5)|3)
	core.WriteHalfWord(propListAddr1+3, 0x88e5)
	core.WriteByte(propListAddr1+5, 0) // terminator

	core.WriteByte(obj1Base+4, 0)    // parent
	core.WriteByte(obj1Base+5, 2)    // sibling
	core.WriteByte(obj1Base+6, 0)    // child
	core.WriteHalfWord(obj1Base+7, uint16(propAddr1))

	// Object 2: parent 0, sibling 0, child 3, attribute 2 set.
	obj2Base := obj1Base + recordSize
	propAddr2 := propListAddr1 + 6
	core.WriteByte(propAddr2, 0) // zero-length name
	propListAddr2 := propAddr2 + 1
	core.WriteByte(propListAddr2, 0) // no properties

	core.WriteByte(obj2Base+4, 0)
	core.WriteByte(obj2Base+5, 0)
	core.WriteByte(obj2Base+6, 3)
	core.WriteHalfWord(obj2Base+7, uint16(propAddr2))

	// Object 3: parent 2, sibling 0, child 0.
	obj3Base := obj2Base + recordSize
	propAddr3 := propListAddr2 + 1
	core.WriteByte(propAddr3, 0)
	propListAddr3 := propAddr3 + 1
	core.WriteByte(propListAddr3, 0)

	core.WriteByte(obj3Base+4, 2)
	core.WriteByte(obj3Base+5, 0)
	core.WriteByte(obj3Base+6, 0)
	core.WriteHalfWord(obj3Base+7, uint16(propAddr3))

	// Attribute 2 on object 2, set through the real setter so the bit
	// layout math lives in exactly one place.
	obj2 := zobject.GetObject(core, 2, alphabets)
	obj2.SetAttribute(2, core)

	return core, alphabets
}

func TestZerothObjectRetrievalPanics(t *testing.T) {
	core, alphabets := synthStory(t)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("retrieving object 0 should panic")
		}
		if _, ok := r.(zobject.MalformedObjectTreeError); !ok {
			t.Errorf("expected zobject.MalformedObjectTreeError, got %T: %v", r, r)
		}
	}()

	zobject.GetObject(core, 0, alphabets)
}

func TestObjectRetrieval(t *testing.T) {
	core, alphabets := synthStory(t)

	obj := zobject.GetObject(core, 1, alphabets)
	if obj.Name != "cave" {
		t.Errorf("incorrect name %q", obj.Name)
	}
	if obj.Sibling != 2 {
		t.Errorf("incorrect sibling %d", obj.Sibling)
	}
}

func TestPropertyRetrieval(t *testing.T) {
	core, alphabets := synthStory(t)
	obj := zobject.GetObject(core, 1, alphabets)

	prop6 := obj.GetProperty(core, 6)
	if prop6.Length != 1 || prop6.Data[0] != 0x85 {
		t.Errorf("incorrect property 6: length=%d data=%v", prop6.Length, prop6.Data)
	}

	prop3 := obj.GetProperty(core, 3)
	if prop3.Length != 2 || prop3.Data[0] != 0x88 || prop3.Data[1] != 0xe5 {
		t.Errorf("incorrect property 3: length=%d data=%v", prop3.Length, prop3.Data)
	}

	// Property 1 is absent on object 1; falls back to the default table.
	prop1 := obj.GetProperty(core, 1)
	if prop1.DataAddress != 0 {
		t.Error("property 1 should not be present on object 1")
	}
	if prop1.Data[0] != 0x00 || prop1.Data[1] != 0x05 {
		t.Errorf("incorrect default property data %v", prop1.Data)
	}
}

func TestAttributes(t *testing.T) {
	core, alphabets := synthStory(t)
	obj := zobject.GetObject(core, 2, alphabets)

	if !obj.TestAttribute(2) {
		t.Error("object 2 should have attribute 2 set")
	}
	if obj.TestAttribute(5) {
		t.Error("object 2 should not have attribute 5 set")
	}

	obj.SetAttribute(5, core)
	if !obj.TestAttribute(5) {
		t.Error("setting attribute 5 didn't take")
	}

	obj.ClearAttribute(5, core)
	if obj.TestAttribute(5) {
		t.Error("clearing attribute 5 didn't take")
	}

	// Re-reading from memory should reflect the same state.
	reread := zobject.GetObject(core, 2, alphabets)
	if !reread.TestAttribute(2) || reread.TestAttribute(5) {
		t.Error("attribute writes did not persist to memory")
	}
}

func TestTreeMutation(t *testing.T) {
	core, alphabets := synthStory(t)

	// Move object 3 (currently child of 2) under object 1.
	zobject.InsertInto(core, alphabets, 3, 1)

	obj3 := zobject.GetObject(core, 3, alphabets)
	obj1 := zobject.GetObject(core, 1, alphabets)
	obj2 := zobject.GetObject(core, 2, alphabets)

	if obj3.Parent != 1 {
		t.Errorf("object 3 parent = %d, want 1", obj3.Parent)
	}
	if obj1.Child != 3 {
		t.Errorf("object 1 child = %d, want 3", obj1.Child)
	}
	if obj2.Child != 0 {
		t.Errorf("object 2 child = %d, want 0 after losing its only child", obj2.Child)
	}

	zobject.RemoveFromTree(core, alphabets, 3)
	obj3 = zobject.GetObject(core, 3, alphabets)
	if obj3.Parent != 0 {
		t.Errorf("object 3 parent = %d, want 0 after removal", obj3.Parent)
	}
}
