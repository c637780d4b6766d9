package model

import (
	"strings"
	"unicode/utf8"
)

// MaxLoginLength is the longest accepted login, in characters
const MaxLoginLength = 32

// Player is a participant seated in a game.
// Player1 plays WHITE and Player2 plays BLACK; neither changes after joining.
type Player struct {
	Login       string
	Disk        Disk
	IsBot       bool
	BotStrategy string // empty for humans
}

// NormalizeLogin trims a login and checks its length
func NormalizeLogin(login string) (string, error) {
	login = strings.TrimSpace(login)
	if login == "" || utf8.RuneCountInString(login) > MaxLoginLength {
		return "", ErrInvalidLogin
	}
	return login, nil
}
