package logic

import "bytes"

// MatchCommands returns the commands a payload selects, in dispatch order.
//
// A payload selects a literal when it is at least as long as the literal and
// starts with it, so "triggerX" still triggers while "trig" and an empty
// payload select nothing. Both literals are checked independently.
func MatchCommands(payload []byte) []Command {
	var cmds []Command
	for _, c := range []Command{CommandTrigger, CommandStatus} {
		if matches(payload, c) {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

func matches(payload []byte, c Command) bool {
	lit := []byte(c)
	if len(payload) < len(lit) {
		return false
	}
	return bytes.Equal(payload[:len(lit)], lit)
}
