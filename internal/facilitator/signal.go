package facilitator

import (
	"strings"

	"github.com/Rayzi0417/om-card/internal/domain"
)

// SignalKind names a phase-transition signal.
type SignalKind string

const (
	SignalInsight     SignalKind = "insight"
	SignalFatigue     SignalKind = "fatigue"
	SignalSwap        SignalKind = "swap"
	SignalIntegration SignalKind = "integration"
)

// SignalDetector decides whether the facilitator's own prior output already
// carries a transition signal.
type SignalDetector interface {
	Detect(kind SignalKind, messages []domain.Message) bool
}

// DetectorFunc adapts a function to SignalDetector.
type DetectorFunc func(kind SignalKind, messages []domain.Message) bool

func (f DetectorFunc) Detect(kind SignalKind, messages []domain.Message) bool {
	return f(kind, messages)
}

// DefaultKeywords are the phrase lists matched by KeywordDetector.
var DefaultKeywords = map[SignalKind][]string{
	SignalInsight:     {"你发现", "你意识到", "你看见了", "你看到了自己", "原来", "领悟", "明白了"},
	SignalFatigue:     {"休息一下", "今天就到这里", "辛苦了", "不用勉强", "慢慢来"},
	SignalSwap:        {"交换", "互换", "换一下", "调换"},
	SignalIntegration: {"一体两面", "整合", "收尾", "重新看看"},
}

// KeywordDetector matches fixed substrings against assistant messages only.
// It is brittle to paraphrasing and is kept behind SignalDetector so a
// structured signal can replace it.
type KeywordDetector struct {
	keywords map[SignalKind][]string
}

// NewKeywordDetector uses DefaultKeywords when keywords is nil.
func NewKeywordDetector(keywords map[SignalKind][]string) *KeywordDetector {
	if keywords == nil {
		keywords = DefaultKeywords
	}
	return &KeywordDetector{keywords: keywords}
}

func (d *KeywordDetector) Detect(kind SignalKind, messages []domain.Message) bool {
	words := d.keywords[kind]
	for _, m := range messages {
		if m.Role != domain.RoleAssistant {
			continue
		}
		if ContainsAny(m.Content, words) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether text contains any of words.
func ContainsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
