package domain

import (
	"fmt"
	"regexp"
)

// usernamePattern restricts usernames so channel identifiers stay
// collision-free: the separator ':' can never appear inside a name.
var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{1,32}$`)

// ValidUsername reports whether u is acceptable for directory paths and
// channel derivation.
func ValidUsername(u Username) bool {
	return usernamePattern.MatchString(string(u))
}

// ChannelFor derives the channel identifier shared by a and b. Both
// parties compute the same value independently: the two names are sorted
// lexicographically and joined with ':'.
func ChannelFor(a, b Username) (ChannelID, error) {
	if !ValidUsername(a) {
		return "", fmt.Errorf("invalid username %q", a)
	}
	if !ValidUsername(b) {
		return "", fmt.Errorf("invalid username %q", b)
	}
	if a == b {
		return "", fmt.Errorf("cannot open a channel with yourself")
	}
	if b < a {
		a, b = b, a
	}
	return ChannelID(string(a) + ":" + string(b)), nil
}

// PartnerOf returns the other leg of a channel identifier, or false when
// self is not a member. Used to self-heal contact entries that arrive
// with only a channel id.
func PartnerOf(ch ChannelID, self Username) (Username, bool) {
	s := string(ch)
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			a, b := Username(s[:i]), Username(s[i+1:])
			switch self {
			case a:
				return b, true
			case b:
				return a, true
			}
			return "", false
		}
	}
	return "", false
}
