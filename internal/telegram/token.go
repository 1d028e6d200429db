package telegram

import "regexp"

var tokenRe = regexp.MustCompile(`^\d{6,10}:[0-9A-Za-z_-]{35}$`)

// ValidToken checks the shape of a bot token issued by BotFather.
func ValidToken(token string) bool {
	return tokenRe.MatchString(token)
}
