package zobject

import (
	"fmt"

	"github.com/wrenfield/zigzag/zcore"
)

// Property is a decoded view of one entry in an object's property list.
type Property struct {
	Id                   uint8
	Length               uint8
	Data                 []uint8
	PropertyHeaderLength uint8
	Address              uint32
	DataAddress          uint32
}

// PropertyWriteLengthMismatchError is raised by put_prop when the story
// tries to store a value into a property whose declared length isn't 1 or 2
// bytes - the opcode can't do anything sensible with that. put_prop and
// get_next_prop also raise it when the named property is absent from the
// object.
type PropertyWriteLengthMismatchError struct {
	Message string
}

func (e PropertyWriteLengthMismatchError) Error() string { return "zobject: " + e.Message }

// GetPropertyLength recovers a property's length from the address of its
// first data byte by reading the size byte(s) immediately before it - the
// same trick get_prop_len uses.
func GetPropertyLength(core *zcore.Core, dataAddr uint32, version uint8) uint16 {
	if dataAddr == 0 {
		return 0
	}

	prevByte := core.ReadByte(dataAddr - 1)
	if version <= 3 {
		return uint16(prevByte>>5) + 1
	}
	if prevByte&0b1000_0000 != 0 {
		length := prevByte & 0b11_1111
		if length == 0 {
			return 64
		}
		return uint16(length)
	}
	return uint16((prevByte>>6)&1) + 1
}

func propertyListStart(core *zcore.Core, o *Object) uint32 {
	nameLength := core.ReadByte(uint32(o.PropertyPointer))
	return uint32(o.PropertyPointer) + 1 + uint32(nameLength)*2
}

// GetPropertyByAddress decodes the property entry whose size byte(s) start
// at propAddr.
func GetPropertyByAddress(core *zcore.Core, propAddr uint32) Property {
	sizeByte := core.ReadByte(propAddr)
	length := (sizeByte >> 5) + 1
	id := sizeByte & 0b1_1111
	headerLength := uint8(1)

	if core.Version >= 4 {
		if sizeByte>>7 == 1 {
			length = core.ReadByte(propAddr+1) & 0b11_1111
			if length == 0 {
				length = 64
			}
			id = sizeByte & 0b11_1111
			headerLength = 2
		} else {
			length = (sizeByte>>6)&1 + 1
			id = sizeByte & 0b11_1111
		}
	}

	dataAddress := propAddr + uint32(headerLength)
	return Property{
		Id:                   id,
		Length:               length,
		Data:                 core.ReadSlice(dataAddress, dataAddress+uint32(length)),
		PropertyHeaderLength: headerLength,
		Address:              propAddr,
		DataAddress:          dataAddress,
	}
}

// GetProperty looks up propertyId on the object, falling back to the
// object table's default-properties block when the object doesn't define
// it itself.
func (o *Object) GetProperty(core *zcore.Core, propertyId uint8) Property {
	ptr := propertyListStart(core, o)

	for core.ReadByte(ptr) != 0 {
		property := GetPropertyByAddress(core, ptr)
		if property.Id == propertyId {
			return property
		}
		ptr += uint32(property.Length) + uint32(property.PropertyHeaderLength)
	}

	defaultAddr := uint32(core.ObjectTableBase) + 2*uint32(propertyId-1)
	return Property{
		Id:          propertyId,
		Length:      2,
		Data:        core.ReadSlice(defaultAddr, defaultAddr+2),
		DataAddress: 0,
	}
}

// GetPropertyAddress returns the data address of propertyId on the object,
// or 0 if the object doesn't define it - the get_prop_addr opcode's
// "property absent" sentinel.
func (o *Object) GetPropertyAddress(core *zcore.Core, propertyId uint8) uint32 {
	ptr := propertyListStart(core, o)

	for core.ReadByte(ptr) != 0 {
		property := GetPropertyByAddress(core, ptr)
		if property.Id == propertyId {
			return property.DataAddress
		}
		ptr += uint32(property.Length) + uint32(property.PropertyHeaderLength)
	}

	return 0
}

// SetProperty stores value into propertyId, which must already exist on the
// object (put_prop cannot create new properties) and must be 1 or 2 bytes
// long.
func (o *Object) SetProperty(core *zcore.Core, propertyId uint8, value uint16) {
	ptr := propertyListStart(core, o)

	for core.ReadByte(ptr) != 0 {
		property := GetPropertyByAddress(core, ptr)
		if property.Id == propertyId {
			switch property.Length {
			case 1:
				core.WriteByte(property.DataAddress, uint8(value))
			case 2:
				core.WriteHalfWord(property.DataAddress, value)
			default:
				panic(PropertyWriteLengthMismatchError{fmt.Sprintf("put_prop on property %d (object %d) with length %d", propertyId, o.Id, property.Length)})
			}
			return
		}
		ptr += uint32(property.Length) + uint32(property.PropertyHeaderLength)
	}

	panic(PropertyWriteLengthMismatchError{fmt.Sprintf("put_prop referenced property %d not present on object %d", propertyId, o.Id)})
}

// GetNextProperty returns the id of the property following propertyId, or
// the first property when propertyId is 0, or 0 when there is no next
// property.
func (o *Object) GetNextProperty(core *zcore.Core, propertyId uint8) uint8 {
	ptr := propertyListStart(core, o)

	if propertyId == 0 {
		if core.ReadByte(ptr) == 0 {
			return 0
		}
		return GetPropertyByAddress(core, ptr).Id
	}

	for core.ReadByte(ptr) != 0 {
		property := GetPropertyByAddress(core, ptr)
		next := ptr + uint32(property.Length) + uint32(property.PropertyHeaderLength)
		if property.Id == propertyId {
			if core.ReadByte(next) == 0 {
				return 0
			}
			return GetPropertyByAddress(core, next).Id
		}
		ptr = next
	}

	panic(PropertyWriteLengthMismatchError{fmt.Sprintf("get_next_prop referenced property %d not present on object %d", propertyId, o.Id)})
}
