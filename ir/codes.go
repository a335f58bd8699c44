package ir

// Prefix is the high 16 bits of every transmitted frame, shared by an
// entire remote's command set.
const Prefix uint16 = 0x0707

// DefaultCommands is the Samsung-family command table: name (always
// looked up lower-case) to 16-bit command value. NewService accepts
// any table; the daemon always passes this one, and no configuration
// option replaces it.
var DefaultCommands = map[string]uint16{
	"power":      0x02FD,
	"volume_up":  0x07F8,
	"volume_down": 0x0BF4,
	"mute":       0x0FF0,
	"source":     0x0807,
	"menu":       0x58A7,
	"up":         0x06F9,
	"down":       0x51AE,
	"left":       0x1AE5,
	"right":      0x5AA5,
	"enter":      0x16E9,
	"exit":       0x2DD2,
}

// Frame returns the 32-bit wire frame for a 16-bit command value.
func Frame(prefix, command uint16) uint32 {
	return uint32(prefix)<<16 | uint32(command)
}
