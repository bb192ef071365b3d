package play

import (
	"fmt"
	"slices"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/facilitator"
)

type FlipStage string

const (
	FlipInit       FlipStage = "init"
	FlipLoading    FlipStage = "loading"
	FlipSelecting  FlipStage = "selecting"
	FlipSetup      FlipStage = "setup"
	FlipInitial    FlipStage = "initial"
	FlipSwapping   FlipStage = "swapping"
	FlipSwapped    FlipStage = "swapped"
	FlipConclusion FlipStage = "conclusion"
)

// Source is where flip candidates come from.
type Source string

const (
	SourceClassic Source = "classic"
	SourceAI      Source = "ai"
	// SourceLegacy deals exactly two cards and skips selection.
	SourceLegacy Source = "legacy"
)

// Candidate counts per source.
const (
	ClassicCandidates = 5
	AICandidates      = 3
	pairSize          = 2
)

// Zone is one side of the flip board.
type Zone string

const (
	// ZoneDiscomfort is the left side.
	ZoneDiscomfort Zone = "discomfort"
	// ZoneComfort is the right side.
	ZoneComfort Zone = "comfort"
)

// Zones holds the card references on each side of the board.
type Zones struct {
	Left  *domain.DrawnCard
	Right *domain.DrawnCard
}

// Swap exchanges the references. Swap is its own inverse.
func (z Zones) Swap() Zones {
	return Zones{Left: z.Right, Right: z.Left}
}

// Flip is the paradox flip (comfort versus discomfort) state.
type Flip struct {
	Stage      FlipStage
	Source     Source
	Candidates []domain.DrawnCard
	Selected   []string
	Zones      Zones
	Swapped    bool
	Messages   []domain.Message
	Notice     string
}

func NewFlip() *Flip {
	return &Flip{Stage: FlipInit}
}

// Choose picks the candidate source and starts loading.
func (f *Flip) Choose(source Source) error {
	if f.Stage != FlipInit {
		return fmt.Errorf("%w: choose in %s", ErrInvalidTransition, f.Stage)
	}
	switch source {
	case SourceClassic, SourceAI, SourceLegacy:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidTransition, source)
	}
	*f = Flip{Stage: FlipLoading, Source: source}
	return nil
}

// CandidatesReady installs the loaded cards. The legacy source goes straight
// to setup with both cards selected.
func (f *Flip) CandidatesReady(cards []domain.DrawnCard) error {
	if f.Stage != FlipLoading {
		return fmt.Errorf("%w: candidates in %s", ErrInvalidTransition, f.Stage)
	}
	if len(cards) < pairSize {
		return fmt.Errorf("%w: got %d", ErrNoCards, len(cards))
	}
	f.Candidates = slices.Clone(cards)
	if f.Source == SourceLegacy {
		f.Candidates = f.Candidates[:pairSize]
		f.Selected = []string{f.Candidates[0].CardID, f.Candidates[1].CardID}
		f.Stage = FlipSetup
		return nil
	}
	f.Stage = FlipSelecting
	return nil
}

// LoadFailed returns to init with a notice for the user.
func (f *Flip) LoadFailed(notice string) error {
	if f.Stage != FlipLoading {
		return fmt.Errorf("%w: load failed in %s", ErrInvalidTransition, f.Stage)
	}
	*f = Flip{Stage: FlipInit, Notice: notice}
	return nil
}

// Toggle selects or deselects a candidate. At most two may be selected.
func (f *Flip) Toggle(cardID string) error {
	if f.Stage != FlipSelecting {
		return fmt.Errorf("%w: toggle in %s", ErrInvalidTransition, f.Stage)
	}
	if _, ok := f.candidate(cardID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCard, cardID)
	}
	if i := slices.Index(f.Selected, cardID); i >= 0 {
		f.Selected = slices.Delete(f.Selected, i, i+1)
		return nil
	}
	if len(f.Selected) >= pairSize {
		return ErrSelectionFull
	}
	f.Selected = append(f.Selected, cardID)
	return nil
}

// ConfirmSelection moves to setup once exactly two cards are selected.
func (f *Flip) ConfirmSelection() error {
	if f.Stage != FlipSelecting || len(f.Selected) != pairSize {
		return fmt.Errorf("%w: confirm selection of %d cards in %s", ErrInvalidTransition, len(f.Selected), f.Stage)
	}
	f.Stage = FlipSetup
	return nil
}

// Assign places a selected card in a zone, taking it out of the other zone.
func (f *Flip) Assign(cardID string, zone Zone) error {
	if f.Stage != FlipSetup {
		return fmt.Errorf("%w: assign in %s", ErrInvalidTransition, f.Stage)
	}
	if !slices.Contains(f.Selected, cardID) {
		return fmt.Errorf("%w: %s", ErrUnknownCard, cardID)
	}
	card, _ := f.candidate(cardID)
	switch zone {
	case ZoneDiscomfort:
		if f.Zones.Right != nil && f.Zones.Right.CardID == cardID {
			f.Zones.Right = nil
		}
		f.Zones.Left = &card
	case ZoneComfort:
		if f.Zones.Left != nil && f.Zones.Left.CardID == cardID {
			f.Zones.Left = nil
		}
		f.Zones.Right = &card
	default:
		return fmt.Errorf("%w: unknown zone %q", ErrInvalidTransition, zone)
	}
	return nil
}

// Confirm starts the first exploration. Both zones must hold distinct cards.
func (f *Flip) Confirm() error {
	if f.Stage != FlipSetup {
		return fmt.Errorf("%w: confirm in %s", ErrInvalidTransition, f.Stage)
	}
	l, r := f.Zones.Left, f.Zones.Right
	if l == nil || r == nil || l.CardID == r.CardID {
		return fmt.Errorf("%w: both zones must be filled", ErrInvalidTransition)
	}
	f.Stage = FlipInitial
	return nil
}

func (f *Flip) BeginSwap() error {
	if f.Stage != FlipInitial {
		return fmt.Errorf("%w: swap in %s", ErrInvalidTransition, f.Stage)
	}
	f.Stage = FlipSwapping
	return nil
}

// CompleteSwap exchanges the left and right cards.
func (f *Flip) CompleteSwap() error {
	if f.Stage != FlipSwapping {
		return fmt.Errorf("%w: complete swap in %s", ErrInvalidTransition, f.Stage)
	}
	f.Zones = f.Zones.Swap()
	f.Swapped = !f.Swapped
	f.Stage = FlipSwapped
	return nil
}

func (f *Flip) Conclude() error {
	if f.Stage != FlipSwapped {
		return fmt.Errorf("%w: conclude in %s", ErrInvalidTransition, f.Stage)
	}
	f.Stage = FlipConclusion
	return nil
}

// Restart returns to init from any stage.
func (f *Flip) Restart() {
	*f = Flip{Stage: FlipInit}
}

// Phase is the facilitator phase for the current stage.
func (f *Flip) Phase() string {
	switch f.Stage {
	case FlipSwapped:
		return facilitator.PhaseSwapped
	case FlipConclusion:
		return facilitator.PhaseConclusion
	default:
		return facilitator.PhaseInitial
	}
}

func (f *Flip) talking() bool {
	return f.Stage == FlipInitial || f.Stage == FlipSwapped || f.Stage == FlipConclusion
}

func (f *Flip) AddUser(text string) error {
	if !f.talking() {
		return fmt.Errorf("%w: talk in %s", ErrInvalidTransition, f.Stage)
	}
	if text == "" {
		return ErrEmptyAnswer
	}
	f.Messages = append(f.Messages, domain.Message{Role: domain.RoleUser, Content: clip(text)})
	return nil
}

func (f *Flip) AddAssistant(text string) error {
	if !f.talking() {
		return fmt.Errorf("%w: reply in %s", ErrInvalidTransition, f.Stage)
	}
	f.Messages = append(f.Messages, domain.Message{Role: domain.RoleAssistant, Content: text})
	return nil
}

func (f *Flip) candidate(cardID string) (domain.DrawnCard, bool) {
	for _, c := range f.Candidates {
		if c.CardID == cardID {
			return c, true
		}
	}
	return domain.DrawnCard{}, false
}
