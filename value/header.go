package value

import "strconv"

// Header is the word that precedes every block.
type Header uint64

// Tag identifies the shape or constructor of a block.
type Tag uint8

// Color is the collector's per-block mark.
type Color uint8

const (
	tagBits    = 8
	colorShift = 8
	sizeShift  = 10
	colorMask  = 3
)

// MaxSize is the largest field count a header can describe.
const MaxSize = 1<<(64-sizeShift) - 1

// Reserved tags. Tags below TagLazy are available to constructors.
const (
	TagRecord      Tag = 0
	TagLazy        Tag = 246
	TagClosure     Tag = 247
	TagObject      Tag = 248
	TagInfix       Tag = 249
	TagForward     Tag = 250
	TagNoScan      Tag = 251
	TagAbstract    Tag = 251
	TagString      Tag = 252
	TagDouble      Tag = 253
	TagDoubleArray Tag = 254
	TagCustom      Tag = 255
)

// MaxConstructorTag is the largest tag a closed union constructor may use.
const MaxConstructorTag = int(TagLazy) - 1

// TagPolymorphic is the tag of the two-field block that wraps an open
// variant constructor with a payload.
const TagPolymorphic = TagRecord

const (
	ColorWhite Color = 0
	ColorGray  Color = 1
	ColorBlue  Color = 2
	ColorBlack Color = 3
)

// MakeHeader builds a header word.
func MakeHeader(size int, tag Tag, color Color) Header {
	return Header(uint64(size)<<sizeShift | uint64(color&colorMask)<<colorShift | uint64(tag))
}

// Size returns the number of fields in words.
func (h Header) Size() int { return int(uint64(h) >> sizeShift) }

// Tag returns the block tag.
func (h Header) Tag() Tag { return Tag(h & (1<<tagBits - 1)) }

// Color returns the collector mark.
func (h Header) Color() Color { return Color(uint64(h)>>colorShift) & colorMask }

// WithColor returns h with its color replaced.
func (h Header) WithColor(c Color) Header {
	return h&^(colorMask<<colorShift) | Header(c&colorMask)<<colorShift
}

func (h Header) String() string {
	return "header{size=" + strconv.Itoa(h.Size()) + " tag=" + h.Tag().String() + "}"
}

// Scannable reports whether fields of a block with this tag hold values.
func (t Tag) Scannable() bool { return t < TagNoScan }

func (t Tag) String() string {
	switch t {
	case TagLazy:
		return "lazy"
	case TagClosure:
		return "closure"
	case TagObject:
		return "object"
	case TagInfix:
		return "infix"
	case TagForward:
		return "forward"
	case TagAbstract:
		return "abstract"
	case TagString:
		return "string"
	case TagDouble:
		return "double"
	case TagDoubleArray:
		return "double_array"
	case TagCustom:
		return "custom"
	default:
		return strconv.Itoa(int(t))
	}
}
