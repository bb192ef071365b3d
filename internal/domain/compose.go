package domain

import (
	"errors"
	"fmt"
	"strings"
)

// MaxGeneratedBatch bounds ComposeCards for generative decks.
const MaxGeneratedBatch = 10

// IDGenerator returns a fresh unique card ID.
type IDGenerator func() string

// Composer assembles cards from a Pool. Words and imagery are sampled from two
// separate RNGs so the text and the picture of a card are never correlated.
type Composer struct {
	pool    *Pool
	words   RNG
	imagery RNG
	newID   IDGenerator
}

func NewComposer(pool *Pool, words, imagery RNG, newID IDGenerator) *Composer {
	return &Composer{pool: pool, words: words, imagery: imagery, newID: newID}
}

// Pool returns the reference data the composer samples from.
func (c *Composer) Pool() *Pool { return c.pool }

// ComposeCard draws one card. For the classic and saga decks excludeIDs lists
// deck IDs that must not be drawn; when it covers the whole deck the exclusion
// is dropped and the full deck is used again.
func (c *Composer) ComposeCard(style DeckStyle, excludeIDs []int) (DrawnCard, error) {
	switch style {
	case StyleClassic:
		return c.classicCard(c.pickOrReset(c.pool.classicSize, excludeIDs)), nil
	case StyleSaga:
		return c.sagaCard(c.pickOrReset(c.pool.sagaSize, excludeIDs)), nil
	case StyleAbstract, StyleFigurative:
		return c.generatedCard(style), nil
	default:
		return DrawnCard{}, fmt.Errorf("%w: %q", ErrInvalidStyle, style)
	}
}

// ComposeCards draws count cards. Classic and saga cards are pairwise distinct.
func (c *Composer) ComposeCards(count int, style DeckStyle) ([]DrawnCard, error) {
	switch style {
	case StyleClassic, StyleSaga:
		size := c.pool.classicSize
		if style == StyleSaga {
			size = c.pool.sagaSize
		}
		if count < 1 || count > size {
			return nil, fmt.Errorf("%w: %d of %d", ErrInvalidCount, count, size)
		}
		ids := shuffledPrefix(size, count, c.imagery)
		cards := make([]DrawnCard, count)
		for i, id := range ids {
			if style == StyleSaga {
				cards[i] = c.sagaCard(id)
			} else {
				cards[i] = c.classicCard(id)
			}
		}
		return cards, nil
	case StyleAbstract, StyleFigurative:
		if count < 1 || count > MaxGeneratedBatch {
			return nil, fmt.Errorf("%w: %d of %d", ErrInvalidCount, count, MaxGeneratedBatch)
		}
		cards := make([]DrawnCard, count)
		for i := range count {
			cards[i] = c.generatedCard(style)
		}
		return cards, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStyle, style)
	}
}

func (c *Composer) generatedCard(style DeckStyle) DrawnCard {
	word := c.pool.PickRandomWord(c.words)

	archetype := c.pool.PickRandomArchetype(style, c.imagery)
	atmosphere := c.pool.PickRandomAtmosphere(style, c.imagery)
	palette := c.pool.PickRandomPalette(style, c.imagery)

	set, _ := c.pool.imagerySet(style)
	prompt := strings.NewReplacer(
		"{archetype}", archetype,
		"{atmosphere}", atmosphere,
		"{palette}", palette,
		"{modifier}", palette,
	).Replace(set.Template)

	return DrawnCard{
		CardID:         c.newID(),
		Word:           word.Word(),
		ImagePrompt:    prompt,
		NegativePrompt: set.NegativePrompt,
		PromptKeywords: promptKeywords(archetype, atmosphere),
		DeckStyle:      style,
	}
}

func (c *Composer) classicCard(id int) DrawnCard {
	word, ok := c.pool.WordByID(id)
	if !ok {
		word = c.pool.words[(id-1)%len(c.pool.words)]
	}
	return DrawnCard{
		CardID:         c.newID(),
		DeckID:         id,
		Word:           word.Word(),
		PromptKeywords: []string{},
		DeckStyle:      StyleClassic,
		ImageURL:       ClassicImageURL(id),
	}
}

func (c *Composer) sagaCard(id int) DrawnCard {
	return DrawnCard{
		CardID:         c.newID(),
		DeckID:         id,
		PromptKeywords: []string{},
		DeckStyle:      StyleSaga,
		ImageURL:       SagaImageURL(id),
	}
}

// ClassicImageURL is the public asset path of a classic card.
func ClassicImageURL(id int) string { return fmt.Sprintf("/cards/classic/%d.jpg", id) }

// SagaImageURL is the public asset path of a saga card.
func SagaImageURL(id int) string { return fmt.Sprintf("/cards/saga/%d.jpg", id) }

// promptKeywords keeps the tail of the archetype phrase ("a traveler with a
// lantern" -> "a lantern") plus the atmosphere, for LLM context.
func promptKeywords(archetype, atmosphere string) []string {
	fields := strings.Fields(archetype)
	if len(fields) > 2 {
		fields = fields[len(fields)-2:]
	}
	return []string{strings.Join(fields, " "), atmosphere}
}

// pickOrReset recovers from an exhausted deck by drawing from the full range.
func (c *Composer) pickOrReset(size int, excluded []int) int {
	id, err := pickDeckID(size, excluded, c.imagery)
	if errors.Is(err, ErrExhaustedPool) {
		id, _ = pickDeckID(size, nil, c.imagery)
	}
	return id
}

// pickDeckID draws uniformly from 1..size minus excluded.
func pickDeckID(size int, excluded []int, rng RNG) (int, error) {
	skip := make(map[int]bool, len(excluded))
	for _, e := range excluded {
		skip[e] = true
	}
	available := make([]int, 0, size)
	for i := 1; i <= size; i++ {
		if !skip[i] {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		return 0, ErrExhaustedPool
	}
	return available[rng.Intn(len(available))], nil
}

// shuffledPrefix returns n distinct IDs from 1..size using a partial
// Fisher-Yates shuffle: only the first n positions are settled.
func shuffledPrefix(size, n int, rng RNG) []int {
	ids := make([]int, size)
	for i := range ids {
		ids[i] = i + 1
	}
	for i := range n {
		j := i + rng.Intn(size-i)
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids[:n]
}
