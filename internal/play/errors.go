package play

import (
	"errors"
	"unicode/utf8"
)

// MaxInputRunes caps one user answer or message. The HTTP API rejects longer
// story answers, so input is clipped before it is recorded.
const MaxInputRunes = 2000

func clip(text string) string {
	if utf8.RuneCountInString(text) <= MaxInputRunes {
		return text
	}
	return string([]rune(text)[:MaxInputRunes])
}

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnknownCard       = errors.New("card is not part of this round")
	ErrSelectionFull     = errors.New("two cards are already selected")
	ErrEmptyAnswer       = errors.New("answer must not be empty")
	ErrNoCards           = errors.New("not enough cards to play")
	errEmptyReply        = errors.New("empty reply")
)
