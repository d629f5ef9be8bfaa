package replica

import "veilchat/internal/domain"

// UserKeyPath is the well-known scalar path where a user's public key
// material is published.
func UserKeyPath(u domain.Username) string {
	return "users/" + u.String() + "/pub"
}

// UserChannelsPath is the map path holding a user's channel list. Any
// party who knows the username can write here; that trust model is
// preserved as observed.
func UserChannelsPath(u domain.Username) string {
	return "users/" + u.String() + "/channels"
}

// ChannelMessagesPath is the map path holding a channel's messages.
func ChannelMessagesPath(c domain.ChannelID) string {
	return "channels/" + c.String() + "/messages"
}
