package domain_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/Rayzi0417/om-card/internal/domain"
)

// deterministicRNG returns values from a pre-set sequence.
type deterministicRNG struct {
	values []int
	idx    int
}

func (r *deterministicRNG) Intn(n int) int {
	v := r.values[r.idx%len(r.values)] % n
	r.idx++
	return v
}

// pcgRNG adapts a seeded math/rand/v2 source.
type pcgRNG struct{ r *rand.Rand }

func (p pcgRNG) Intn(n int) int { return p.r.IntN(n) }

func seeded(a, b uint64) pcgRNG { return pcgRNG{r: rand.New(rand.NewPCG(a, b))} }

func sequentialIDs() domain.IDGenerator {
	n := 0
	return func() string {
		n++
		return "card-" + strconv.Itoa(n)
	}
}

func testWords(n int) []domain.WordEntry {
	words := make([]domain.WordEntry, n)
	for i := range n {
		words[i] = domain.WordEntry{ID: i + 1, EN: fmt.Sprintf("W%d", i+1), CN: fmt.Sprintf("词%d", i+1)}
	}
	return words
}

func testPool(t *testing.T) *domain.Pool {
	t.Helper()
	archetypes := make([]string, 8)
	for i := range archetypes {
		archetypes[i] = fmt.Sprintf("subject %d", i)
	}
	sets := map[domain.DeckStyle]domain.ImagerySet{
		domain.StyleAbstract: {
			Archetypes: archetypes,
			Atmospheres: []domain.Atmosphere{
				{Text: "serene", Mood: domain.MoodBright},
				{Text: "misty", Mood: domain.MoodNeutral},
			},
			Palettes:       []string{"ochre and rose", "indigo and silver"},
			Template:       "Abstract wash suggesting {archetype}, {atmosphere} air, {palette}.",
			NegativePrompt: "text, watermark",
		},
		domain.StyleFigurative: {
			Archetypes: archetypes,
			Atmospheres: []domain.Atmosphere{
				{Text: "hopeful", Mood: domain.MoodBright},
				{Text: "sunlit", Mood: domain.MoodBright},
				{Text: "quiet", Mood: domain.MoodNeutral},
				{Text: "melancholic", Mood: domain.MoodDark},
			},
			Modifiers:      []string{"soft watercolor", "gouache"},
			Template:       "Illustration of {archetype}, {atmosphere} mood, {modifier}.",
			NegativePrompt: "text, watermark, horror",
			WeightedMood:   true,
		},
	}
	pool, err := domain.NewPool(testWords(88), sets, 88, 55)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return pool
}

func TestComposeCard_GeneratedPrompt(t *testing.T) {
	pool := testPool(t)
	c := domain.NewComposer(pool, &deterministicRNG{values: []int{4}}, &deterministicRNG{values: []int{1}}, sequentialIDs())

	card, err := c.ComposeCard(domain.StyleAbstract, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.Word.EN != "W5" {
		t.Errorf("expected word W5, got %s", card.Word.EN)
	}
	want := "Abstract wash suggesting subject 1, misty air, indigo and silver."
	if card.ImagePrompt != want {
		t.Errorf("prompt:\n got %q\nwant %q", card.ImagePrompt, want)
	}
	if strings.Contains(card.ImagePrompt, "{") {
		t.Errorf("unsubstituted placeholder in %q", card.ImagePrompt)
	}
	if card.NegativePrompt != "text, watermark" {
		t.Errorf("negative prompt: %q", card.NegativePrompt)
	}
	if len(card.PromptKeywords) != 2 || card.PromptKeywords[0] != "subject 1" || card.PromptKeywords[1] != "misty" {
		t.Errorf("keywords: %v", card.PromptKeywords)
	}
	if card.CardID != "card-1" || card.DeckStyle != domain.StyleAbstract || card.ImageURL != "" {
		t.Errorf("unexpected card metadata: %+v", card)
	}
}

func TestComposeCard_FigurativeUsesModifier(t *testing.T) {
	pool := testPool(t)
	c := domain.NewComposer(pool, seeded(1, 1), seeded(2, 2), sequentialIDs())

	card, err := c.ComposeCard(domain.StyleFigurative, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(card.ImagePrompt, "soft watercolor") && !strings.Contains(card.ImagePrompt, "gouache") {
		t.Errorf("figurative prompt lacks a style modifier: %q", card.ImagePrompt)
	}
	if card.NegativePrompt != "text, watermark, horror" {
		t.Errorf("negative prompt: %q", card.NegativePrompt)
	}
}

func TestComposeCard_InvalidStyle(t *testing.T) {
	c := domain.NewComposer(testPool(t), seeded(1, 1), seeded(2, 2), sequentialIDs())

	_, err := c.ComposeCard(domain.DeckStyle("cubist"), nil)
	if !errors.Is(err, domain.ErrInvalidStyle) {
		t.Errorf("expected ErrInvalidStyle, got %v", err)
	}
	_, err = c.ComposeCards(2, domain.DeckStyle("cubist"))
	if !errors.Is(err, domain.ErrInvalidStyle) {
		t.Errorf("batch: expected ErrInvalidStyle, got %v", err)
	}
}

func TestComposeCard_ClassicBoundWordAndURL(t *testing.T) {
	c := domain.NewComposer(testPool(t), seeded(1, 1), seeded(3, 3), sequentialIDs())

	for range 200 {
		card, err := c.ComposeCard(domain.StyleClassic, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if card.DeckID < 1 || card.DeckID > 88 {
			t.Fatalf("deck id out of range: %d", card.DeckID)
		}
		if card.ImageURL != fmt.Sprintf("/cards/classic/%d.jpg", card.DeckID) {
			t.Errorf("image url %q for id %d", card.ImageURL, card.DeckID)
		}
		if card.Word.EN != fmt.Sprintf("W%d", card.DeckID) || card.Word.CN == "" {
			t.Errorf("classic %d bound to wrong word %+v", card.DeckID, card.Word)
		}
	}
}

func TestComposeCard_ClassicRespectsExclusion(t *testing.T) {
	c := domain.NewComposer(testPool(t), seeded(1, 1), &deterministicRNG{values: []int{0}}, sequentialIDs())

	card, err := c.ComposeCard(domain.StyleClassic, []int{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.DeckID != 3 {
		t.Errorf("expected first non-excluded id 3, got %d", card.DeckID)
	}
}

func TestComposeCard_ClassicExhaustedResets(t *testing.T) {
	c := domain.NewComposer(testPool(t), seeded(1, 1), seeded(4, 4), sequentialIDs())
	all := make([]int, 88)
	for i := range all {
		all[i] = i + 1
	}

	card, err := c.ComposeCard(domain.StyleClassic, all)
	if err != nil {
		t.Fatalf("exhausted deck must not fail: %v", err)
	}
	if card.DeckID < 1 || card.DeckID > 88 {
		t.Errorf("deck id out of range after reset: %d", card.DeckID)
	}
}

func TestComposeCard_SagaHasNoWord(t *testing.T) {
	c := domain.NewComposer(testPool(t), seeded(1, 1), seeded(5, 5), sequentialIDs())

	card, err := c.ComposeCard(domain.StyleSaga, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.DeckID < 4 || card.DeckID > 55 {
		t.Errorf("saga id %d violates exclusion or range", card.DeckID)
	}
	if card.Word != (domain.Word{}) {
		t.Errorf("saga card must be image only, got %+v", card.Word)
	}
	if card.ImageURL != fmt.Sprintf("/cards/saga/%d.jpg", card.DeckID) {
		t.Errorf("saga url %q", card.ImageURL)
	}
}

func TestComposeCards_ClassicDistinct(t *testing.T) {
	c := domain.NewComposer(testPool(t), seeded(1, 1), seeded(6, 6), sequentialIDs())

	for _, k := range []int{1, 2, 5, 40, 88} {
		cards, err := c.ComposeCards(k, domain.StyleClassic)
		if err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		if len(cards) != k {
			t.Fatalf("k=%d: got %d cards", k, len(cards))
		}
		seen := make(map[int]bool)
		for _, card := range cards {
			if seen[card.DeckID] {
				t.Errorf("k=%d: duplicate classic id %d", k, card.DeckID)
			}
			seen[card.DeckID] = true
		}
	}
}

func TestComposeCards_CountOutOfRange(t *testing.T) {
	c := domain.NewComposer(testPool(t), seeded(1, 1), seeded(7, 7), sequentialIDs())

	cases := []struct {
		style domain.DeckStyle
		n     int
	}{
		{domain.StyleClassic, 0},
		{domain.StyleClassic, 89},
		{domain.StyleSaga, 56},
		{domain.StyleAbstract, 0},
		{domain.StyleFigurative, domain.MaxGeneratedBatch + 1},
	}
	for _, tc := range cases {
		_, err := c.ComposeCards(tc.n, tc.style)
		if !errors.Is(err, domain.ErrInvalidCount) {
			t.Errorf("%s n=%d: expected ErrInvalidCount, got %v", tc.style, tc.n, err)
		}
	}
}

func TestComposeCards_GeneratedBatch(t *testing.T) {
	c := domain.NewComposer(testPool(t), seeded(1, 1), seeded(8, 8), sequentialIDs())

	cards, err := c.ComposeCards(3, domain.StyleFigurative)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := map[string]bool{}
	for _, card := range cards {
		ids[card.CardID] = true
		if card.ImagePrompt == "" {
			t.Errorf("missing prompt on %s", card.CardID)
		}
	}
	if len(ids) != 3 {
		t.Errorf("card ids not unique: %v", ids)
	}
}

// TestComposeCard_WordImageIndependence runs a chi-squared test of
// independence between word and archetype buckets over paired draws.
func TestComposeCard_WordImageIndependence(t *testing.T) {
	pool := testPool(t)
	c := domain.NewComposer(pool, seeded(11, 13), seeded(17, 19), sequentialIDs())

	const draws = 2000
	const buckets = 4
	var table [buckets][buckets]float64

	for _, style := range []domain.DeckStyle{domain.StyleAbstract, domain.StyleFigurative} {
		table = [buckets][buckets]float64{}
		for range draws {
			card, err := c.ComposeCard(style, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			wordID, _ := strconv.Atoi(strings.TrimPrefix(card.Word.EN, "W"))
			archIdx, _ := strconv.Atoi(strings.TrimPrefix(card.PromptKeywords[0], "subject "))
			table[wordID%buckets][archIdx%buckets]++
		}

		var rows, cols [buckets]float64
		for i := range buckets {
			for j := range buckets {
				rows[i] += table[i][j]
				cols[j] += table[i][j]
			}
		}
		chi2 := 0.0
		for i := range buckets {
			for j := range buckets {
				expected := rows[i] * cols[j] / draws
				d := table[i][j] - expected
				chi2 += d * d / expected
			}
		}
		// Critical value for 9 degrees of freedom at p = 0.001.
		if chi2 > 27.88 {
			t.Errorf("%s: word and image look correlated, chi2=%.2f", style, chi2)
		}
	}
}

func TestPickRandomAtmosphere_FigurativeMoodSplit(t *testing.T) {
	pool := testPool(t)
	rng := seeded(21, 23)

	const draws = 20000
	counts := map[domain.Mood]int{}
	for range draws {
		atm := pool.PickRandomAtmosphere(domain.StyleFigurative, rng)
		mood, ok := pool.AtmosphereMood(domain.StyleFigurative, atm)
		if !ok {
			t.Fatalf("unknown atmosphere %q", atm)
		}
		counts[mood]++
	}

	check := func(m domain.Mood, want float64) {
		got := float64(counts[m]) / draws
		if got < want-0.02 || got > want+0.02 {
			t.Errorf("%s share = %.3f, want %.2f±0.02", m, got, want)
		}
	}
	check(domain.MoodBright, 0.40)
	check(domain.MoodNeutral, 0.40)
	check(domain.MoodDark, 0.20)
}

func TestNewPool_Validation(t *testing.T) {
	dup := []domain.WordEntry{{ID: 1, EN: "A"}, {ID: 1, EN: "B"}}
	if _, err := domain.NewPool(dup, nil, 88, 55); err == nil {
		t.Error("expected duplicate id error")
	}
	if _, err := domain.NewPool(nil, nil, 88, 55); err == nil {
		t.Error("expected empty pool error")
	}
	if _, err := domain.NewPool(testWords(3), map[domain.DeckStyle]domain.ImagerySet{}, 88, 55); err == nil {
		t.Error("expected missing imagery error")
	}
}
