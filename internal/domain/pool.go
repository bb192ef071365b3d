package domain

import (
	"fmt"
	"slices"
)

// Mood is the affective tone of an atmosphere phrase.
type Mood string

const (
	MoodBright  Mood = "bright"
	MoodNeutral Mood = "neutral"
	MoodDark    Mood = "dark"
)

// moodWeights is the figurative deck's atmosphere split: 40% bright, 40% neutral, 20% dark.
var moodWeights = []struct {
	mood   Mood
	weight int
}{
	{MoodBright, 40},
	{MoodNeutral, 40},
	{MoodDark, 20},
}

// Atmosphere is an atmosphere phrase tagged with its mood.
type Atmosphere struct {
	Text string `json:"text"`
	Mood Mood   `json:"mood"`
}

// ImagerySet is the image prompt material of one generative deck style.
// Abstract decks use Palettes, figurative decks use Modifiers.
type ImagerySet struct {
	Archetypes     []string     `json:"archetypes"`
	Atmospheres    []Atmosphere `json:"atmospheres"`
	Palettes       []string     `json:"palettes,omitempty"`
	Modifiers      []string     `json:"modifiers,omitempty"`
	Template       string       `json:"template"`
	NegativePrompt string       `json:"negativePrompt"`
	WeightedMood   bool         `json:"weightedMood"`
}

type compiledImagery struct {
	ImagerySet
	moods  WeightedChoice[Mood]
	byMood map[Mood][]string
	all    []string
}

// Pool is the immutable reference data every draw samples from.
type Pool struct {
	words       []WordEntry
	byID        map[int]WordEntry
	imagery     map[DeckStyle]compiledImagery
	classicSize int
	sagaSize    int
}

// NewPool validates the reference data and precomputes the weighted samplers.
func NewPool(words []WordEntry, sets map[DeckStyle]ImagerySet, classicSize, sagaSize int) (*Pool, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("word pool is empty")
	}
	byID := make(map[int]WordEntry, len(words))
	for _, w := range words {
		if _, dup := byID[w.ID]; dup {
			return nil, fmt.Errorf("duplicate word id %d", w.ID)
		}
		byID[w.ID] = w
	}
	if classicSize < 1 || sagaSize < 1 {
		return nil, fmt.Errorf("deck sizes must be positive (classic=%d saga=%d)", classicSize, sagaSize)
	}

	p := &Pool{
		words:       slices.Clone(words),
		byID:        byID,
		imagery:     make(map[DeckStyle]compiledImagery, len(sets)),
		classicSize: classicSize,
		sagaSize:    sagaSize,
	}
	for _, style := range []DeckStyle{StyleAbstract, StyleFigurative} {
		set, ok := sets[style]
		if !ok {
			return nil, fmt.Errorf("imagery for %s deck missing", style)
		}
		c, err := compileImagery(style, set)
		if err != nil {
			return nil, err
		}
		p.imagery[style] = c
	}
	return p, nil
}

func compileImagery(style DeckStyle, set ImagerySet) (compiledImagery, error) {
	if len(set.Archetypes) == 0 || len(set.Atmospheres) == 0 {
		return compiledImagery{}, fmt.Errorf("%s imagery: archetypes and atmospheres required", style)
	}
	if style == StyleAbstract && len(set.Palettes) == 0 {
		return compiledImagery{}, fmt.Errorf("%s imagery: palettes required", style)
	}
	if style == StyleFigurative && len(set.Modifiers) == 0 {
		return compiledImagery{}, fmt.Errorf("%s imagery: modifiers required", style)
	}

	c := compiledImagery{ImagerySet: set, byMood: make(map[Mood][]string)}
	for _, a := range set.Atmospheres {
		c.all = append(c.all, a.Text)
		c.byMood[a.Mood] = append(c.byMood[a.Mood], a.Text)
	}
	if !set.WeightedMood {
		return c, nil
	}

	var moods []Mood
	var weights []int
	for _, mw := range moodWeights {
		// A mood with no phrases cannot be drawn; its share goes to the others.
		if len(c.byMood[mw.mood]) == 0 {
			continue
		}
		moods = append(moods, mw.mood)
		weights = append(weights, mw.weight)
	}
	moodChoice, err := NewWeightedChoice(moods, weights)
	if err != nil {
		return compiledImagery{}, fmt.Errorf("%s imagery: %w", style, err)
	}
	c.moods = moodChoice
	return c, nil
}

// Words returns a copy of the word pool.
func (p *Pool) Words() []WordEntry { return slices.Clone(p.words) }

// ClassicSize is the number of drawable classic cards (IDs 1..ClassicSize).
func (p *Pool) ClassicSize() int { return p.classicSize }

// SagaSize is the number of drawable saga cards (IDs 1..SagaSize).
func (p *Pool) SagaSize() int { return p.sagaSize }

// WordByID looks up the word bound to an ID.
func (p *Pool) WordByID(id int) (WordEntry, bool) {
	w, ok := p.byID[id]
	return w, ok
}

// PickRandomWord draws uniformly with replacement.
func (p *Pool) PickRandomWord(rng RNG) WordEntry {
	return p.words[rng.Intn(len(p.words))]
}

// PickRandomArchetype draws a subject for a generative style. Non-generative styles yield "".
func (p *Pool) PickRandomArchetype(style DeckStyle, rng RNG) string {
	set, ok := p.imagery[style]
	if !ok {
		return ""
	}
	return set.Archetypes[rng.Intn(len(set.Archetypes))]
}

// PickRandomAtmosphere draws an atmosphere. Figurative decks pick a mood by
// weight first, then a phrase uniformly within that mood.
func (p *Pool) PickRandomAtmosphere(style DeckStyle, rng RNG) string {
	set, ok := p.imagery[style]
	if !ok {
		return ""
	}
	if !set.WeightedMood {
		return set.all[rng.Intn(len(set.all))]
	}
	phrases := set.byMood[set.moods.Pick(rng)]
	return phrases[rng.Intn(len(phrases))]
}

// PickRandomPalette draws the colour palette (abstract) or style modifier (figurative).
func (p *Pool) PickRandomPalette(style DeckStyle, rng RNG) string {
	set, ok := p.imagery[style]
	if !ok {
		return ""
	}
	if style == StyleFigurative {
		return set.Modifiers[rng.Intn(len(set.Modifiers))]
	}
	return set.Palettes[rng.Intn(len(set.Palettes))]
}

// AtmosphereMood reports the mood tag of an atmosphere phrase in a style.
func (p *Pool) AtmosphereMood(style DeckStyle, text string) (Mood, bool) {
	set, ok := p.imagery[style]
	if !ok {
		return "", false
	}
	for _, a := range set.Atmospheres {
		if a.Text == text {
			return a.Mood, true
		}
	}
	return "", false
}

func (p *Pool) imagerySet(style DeckStyle) (compiledImagery, bool) {
	set, ok := p.imagery[style]
	return set, ok
}
