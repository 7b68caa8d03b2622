package viewstate

import "strings"

// Command is a show/hide or bring-to-top request for one map family.
type Command uint16

const (
	ShowHideVGA   Command = 0x0100
	ShowVGATop    Command = 0x0200
	ShowHideAxial Command = 0x0400
	ShowAxialTop  Command = 0x0800
	ShowHideData  Command = 0x1000
	ShowDataTop   Command = 0x2000
)

var commandNames = map[Command]string{
	ShowHideVGA:   "show_hide_vga",
	ShowVGATop:    "show_vga_top",
	ShowHideAxial: "show_hide_axial",
	ShowAxialTop:  "show_axial_top",
	ShowHideData:  "show_hide_data",
	ShowDataTop:   "show_data_top",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return "unknown"
}

// ParseCommand maps a command name (as produced by String) back to a Command.
func ParseCommand(s string) (Command, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, n := range commandNames {
		if n == s {
			return c, true
		}
	}
	return 0, false
}

// Toggle returns the show/hide command for kind k.
func Toggle(k Kind) Command {
	switch k {
	case KindVGA:
		return ShowHideVGA
	case KindAxial:
		return ShowHideAxial
	case KindData:
		return ShowHideData
	default:
		return 0
	}
}

// Top returns the bring-to-top command for kind k.
func Top(k Kind) Command {
	switch k {
	case KindVGA:
		return ShowVGATop
	case KindAxial:
		return ShowAxialTop
	case KindData:
		return ShowDataTop
	default:
		return 0
	}
}

func (c Command) target() (k Kind, top bool, ok bool) {
	switch c {
	case ShowHideVGA:
		return KindVGA, false, true
	case ShowVGATop:
		return KindVGA, true, true
	case ShowHideAxial:
		return KindAxial, false, true
	case ShowAxialTop:
		return KindAxial, true, true
	case ShowHideData:
		return KindData, false, true
	case ShowDataTop:
		return KindData, true, true
	default:
		return KindNone, false, false
	}
}

// Apply computes the view class that results from cmd. It refuses (returning
// the input unchanged and false) when the collection behind the command's map
// family is empty or the command is unknown.
func Apply(view ViewClass, state State, cmd Command) (ViewClass, bool) {
	k, top, ok := cmd.target()
	if !ok {
		return view, false
	}
	b, _ := bitsOf(k)
	if !state.Has(b.presence) {
		return view, false
	}
	if top {
		return bringToTop(view, b), true
	}
	return toggle(view, b), true
}

func toggle(v ViewClass, b kindBits) ViewClass {
	switch {
	case v&(b.front|b.back) != 0:
		v &^= b.front | b.back
		if v&ViewFront == 0 {
			for _, f := range families {
				if f.kind != b.kind && v&f.back != 0 {
					v ^= f.front | f.back
					break
				}
			}
		}
		return v
	case v&ViewFront != 0:
		return (v & ViewFront) | b.back
	default:
		return b.front | firstBack(v&ViewBack)
	}
}

func bringToTop(v ViewClass, b kindBits) ViewClass {
	for _, f := range families {
		if f.kind != b.kind && v&f.front != 0 {
			return f.back | b.front
		}
	}
	return b.front | firstBack(v&ViewBack&^b.back)
}
