package domain

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// DeckStyle identifies how a card's image is produced.
type DeckStyle string

const (
	StyleAbstract   DeckStyle = "abstract"
	StyleFigurative DeckStyle = "figurative"
	StyleClassic    DeckStyle = "classic"
	StyleSaga       DeckStyle = "saga"
)

// Generative reports whether cards of this style need an image generation call.
func (s DeckStyle) Generative() bool {
	return s == StyleAbstract || s == StyleFigurative
}

// ParseDeckStyle validates a raw style string. Empty input selects the abstract deck.
func ParseDeckStyle(raw string) (DeckStyle, error) {
	switch DeckStyle(raw) {
	case "":
		return StyleAbstract, nil
	case StyleAbstract, StyleFigurative, StyleClassic, StyleSaga:
		return DeckStyle(raw), nil
	default:
		return "", ErrInvalidStyle
	}
}

// WordEntry is one entry of the word pool.
type WordEntry struct {
	ID int    `json:"id"`
	EN string `json:"en"`
	CN string `json:"cn"`
}

// Blank reports whether the entry is the blank card.
func (w WordEntry) Blank() bool { return w.EN == "" && w.CN == "" }

// Word returns the client-facing projection of the entry.
func (w WordEntry) Word() Word { return Word{EN: w.EN, CN: w.CN} }

// Word is the bilingual text shown on a card.
type Word struct {
	EN string `json:"en"`
	CN string `json:"cn"`
}

// DrawnCard is a single composed card. DeckID is set for the pre-rendered
// classic and saga decks and zero for generated cards.
type DrawnCard struct {
	CardID         string    `json:"cardId"`
	DeckID         int       `json:"deckId,omitempty"`
	Word           Word      `json:"word"`
	ImagePrompt    string    `json:"-"`
	NegativePrompt string    `json:"-"`
	PromptKeywords []string  `json:"promptKeywords"`
	DeckStyle      DeckStyle `json:"deckStyle"`
	ImageURL       string    `json:"imageUrl"`
}

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Order is significant and preserved verbatim.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CountUser returns the number of user messages in msgs.
func CountUser(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// GameMode selects the facilitation protocol.
type GameMode string

const (
	ModeSingle GameMode = "single"
	ModeFlip   GameMode = "flip"
	ModeHero   GameMode = "hero"
)

// ParseGameMode validates a raw mode string. Empty input selects single mode.
func ParseGameMode(raw string) (GameMode, error) {
	switch GameMode(raw) {
	case "":
		return ModeSingle, nil
	case ModeSingle, ModeFlip, ModeHero:
		return GameMode(raw), nil
	default:
		return "", ErrInvalidMode
	}
}

// StoryEntry records one answered (or skipped) hero's journey step. On the
// wire only the step and the answer travel.
type StoryEntry struct {
	Step       int       `json:"step"`
	Card       DrawnCard `json:"-"`
	Question   string    `json:"-"`
	UserAnswer string    `json:"answer"`
}
