package control

// ParseAction decodes an action payload. Matching is exact and
// case-sensitive; anything else is not an action.
func ParseAction(payload string) (Action, bool) {
	switch Action(payload) {
	case ActionOn, ActionOff, ActionPulse:
		return Action(payload), true
	}
	return "", false
}

// ParseInt decodes a decimal payload permissively: leading whitespace and
// one sign are accepted, digits are read until the first non-digit, and a
// payload without a numeric prefix yields 0. Values saturate at ±1e9.
func ParseInt(payload string) int {
	const limit = 1_000_000_000

	i := 0
	for i < len(payload) && (payload[i] == ' ' || payload[i] == '\t' || payload[i] == '\n' || payload[i] == '\r') {
		i++
	}

	neg := false
	if i < len(payload) && (payload[i] == '+' || payload[i] == '-') {
		neg = payload[i] == '-'
		i++
	}

	n := 0
	for ; i < len(payload); i++ {
		c := payload[i]
		if c < '0' || c > '9' {
			break
		}
		if n < limit {
			n = n*10 + int(c-'0')
		}
	}
	if n > limit {
		n = limit
	}
	if neg {
		return -n
	}
	return n
}
