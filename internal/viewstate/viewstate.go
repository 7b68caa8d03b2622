// Package viewstate holds the presence bitmask and the view-class algebra of a
// graph document. Everything here is a pure function of its inputs so the
// document can reason about view changes without touching any map.
package viewstate

import (
	"strings"
)

// State records which map collections are populated, plus version tags.
type State uint16

const (
	StateNone         State = 0
	StateLatticeMaps  State = 0x0002
	StateDrawingData  State = 0x0004
	StateAngularGraph State = 0x0010
	StateDataMaps     State = 0x0020
	StateShapeGraphs  State = 0x0100
)

func (s State) Has(bits State) bool { return s&bits == bits }

func (s State) With(bits State) State { return s | bits }

func (s State) Without(bits State) State { return s &^ bits }

func (s State) String() string {
	if s == StateNone {
		return "none"
	}
	var parts []string
	for _, n := range []struct {
		bit  State
		name string
	}{
		{StateLatticeMaps, "lattice_maps"},
		{StateDrawingData, "drawing_data"},
		{StateAngularGraph, "angular_graph"},
		{StateDataMaps, "data_maps"},
		{StateShapeGraphs, "shape_graphs"},
	} {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ViewClass records which map type is in front and which one sits behind it.
type ViewClass uint8

const (
	ViewNone      ViewClass = 0
	ViewVGA       ViewClass = 0x01
	ViewBackVGA   ViewClass = 0x02
	ViewAxial     ViewClass = 0x04
	ViewBackAxial ViewClass = 0x08
	ViewData      ViewClass = 0x20
	ViewBackData  ViewClass = 0x40

	ViewFront = ViewVGA | ViewAxial | ViewData
	ViewBack  = ViewBackVGA | ViewBackAxial | ViewBackData
)

// Kind names the three displayable map families.
type Kind uint8

const (
	KindNone Kind = iota
	KindVGA
	KindAxial
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindVGA:
		return "vga"
	case KindAxial:
		return "axial"
	case KindData:
		return "data"
	default:
		return "none"
	}
}

// ParseKind accepts the lower-case names produced by Kind.String.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vga", "lattice":
		return KindVGA, true
	case "axial", "shapegraph", "shape_graph":
		return KindAxial, true
	case "data", "shape", "datamap", "data_map":
		return KindData, true
	default:
		return KindNone, false
	}
}

type kindBits struct {
	kind     Kind
	front    ViewClass
	back     ViewClass
	presence State
}

// Order matters: it is the promotion order used when the front map is hidden.
var families = [...]kindBits{
	{kind: KindVGA, front: ViewVGA, back: ViewBackVGA, presence: StateLatticeMaps},
	{kind: KindAxial, front: ViewAxial, back: ViewBackAxial, presence: StateShapeGraphs},
	{kind: KindData, front: ViewData, back: ViewBackData, presence: StateDataMaps},
}

func bitsOf(k Kind) (kindBits, bool) {
	for _, f := range families {
		if f.kind == k {
			return f, true
		}
	}
	return kindBits{}, false
}

// PresenceBit returns the state bit that gates views of kind k.
func PresenceBit(k Kind) State {
	b, ok := bitsOf(k)
	if !ok {
		return StateNone
	}
	return b.presence
}

// Front returns the kind currently in front, or KindNone.
func (v ViewClass) Front() Kind {
	for _, f := range families {
		if v&f.front != 0 {
			return f.kind
		}
	}
	return KindNone
}

// Back returns the first kind found behind the front, or KindNone.
func (v ViewClass) Back() Kind {
	for _, f := range families {
		if v&f.back != 0 {
			return f.kind
		}
	}
	return KindNone
}

// Shows reports whether kind k is visible either in front or behind.
func (v ViewClass) Shows(k Kind) bool {
	b, ok := bitsOf(k)
	return ok && v&(b.front|b.back) != 0
}

// Hide clears both bits of kind k without promoting anything.
func (v ViewClass) Hide(k Kind) ViewClass {
	b, ok := bitsOf(k)
	if !ok {
		return v
	}
	return v &^ (b.front | b.back)
}

// Valid reports whether v has at most one front, at most one back and never
// shows the same kind both in front and behind.
func (v ViewClass) Valid() bool {
	if v&^(ViewFront|ViewBack) != 0 {
		return false
	}
	if bitCount(uint8(v&ViewFront)) > 1 || bitCount(uint8(v&ViewBack)) > 1 {
		return false
	}
	for _, f := range families {
		if v&f.front != 0 && v&f.back != 0 {
			return false
		}
	}
	return true
}

func (v ViewClass) String() string {
	if v == ViewNone {
		return "none"
	}
	var parts []string
	if k := v.Front(); k != KindNone {
		parts = append(parts, "front:"+k.String())
	}
	for _, f := range families {
		if v&f.back != 0 {
			parts = append(parts, "back:"+f.kind.String())
		}
	}
	return strings.Join(parts, ",")
}

func bitCount(b uint8) int {
	n := 0
	for b != 0 {
		b &= b - 1
		n++
	}
	return n
}

// firstBack keeps a single back bit, in promotion order.
func firstBack(v ViewClass) ViewClass {
	for _, f := range families {
		if v&f.back != 0 {
			return f.back
		}
	}
	return ViewNone
}
