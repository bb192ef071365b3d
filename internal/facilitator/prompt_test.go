package facilitator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/facilitator"
)

func TestBuild_HeroStepOneNamesOnlyTheHero(t *testing.T) {
	prompt := facilitator.Build(facilitator.PromptInput{
		Mode:     domain.ModeHero,
		Step:     1,
		HasImage: true,
	})

	assert.Contains(t, prompt, "英雄")
	assert.Contains(t, prompt, "The Hero")
	assert.Contains(t, prompt, "卡牌图片已附上")

	for _, s := range facilitator.HeroSteps()[1:] {
		assert.NotContains(t, prompt, s.Title, "step %d leaked", s.Number)
		assert.NotContains(t, prompt, s.Subtitle, "step %d leaked", s.Number)
	}
}

func TestBuild_HeroStepInjectsStoryLog(t *testing.T) {
	log := []domain.StoryEntry{
		{Step: 1, UserAnswer: "一个拿着灯笼的旅人"},
		{Step: 2, UserAnswer: facilitator.SilenceAnswer},
	}
	prompt := facilitator.Build(facilitator.PromptInput{
		Mode:     domain.ModeHero,
		Step:     3,
		StoryLog: log,
	})

	assert.Contains(t, prompt, "【英雄】一个拿着灯笼的旅人")
	assert.Contains(t, prompt, "【天赋】"+facilitator.SilenceAnswer)
	assert.Contains(t, prompt, "召唤")
	assert.NotContains(t, prompt, "卡牌图片已附上")
}

func TestBuild_HeroLaterSteps(t *testing.T) {
	log := make([]domain.StoryEntry, 0, 10)
	for i := 1; i <= 10; i++ {
		log = append(log, domain.StoryEntry{Step: i, UserAnswer: "答案"})
	}

	synthesis := facilitator.Build(facilitator.PromptInput{Mode: domain.ModeHero, Step: facilitator.StepSynthesis, StoryLog: log})
	assert.Contains(t, synthesis, "英雄传记")
	assert.Contains(t, synthesis, "【使命】答案")

	early := facilitator.Build(facilitator.PromptInput{Mode: domain.ModeHero, Step: facilitator.StepReflection, StoryLog: log, TurnCount: 1})
	late := facilitator.Build(facilitator.PromptInput{Mode: domain.ModeHero, Step: facilitator.StepReflection, StoryLog: log, TurnCount: 4})
	assert.NotContains(t, early, "结束对话")
	assert.Contains(t, late, "结束对话")

	blessing := facilitator.Build(facilitator.PromptInput{Mode: domain.ModeHero, Step: facilitator.StepBlessing})
	assert.Contains(t, blessing, "Om.")
	assert.Contains(t, blessing, "不要提问")
}

func userTurns(n int) []domain.Message {
	msgs := make([]domain.Message, 0, 2*n)
	for range n {
		msgs = append(msgs,
			domain.Message{Role: domain.RoleUser, Content: "我看到一片海"},
			domain.Message{Role: domain.RoleAssistant, Content: "海让你想到什么？"},
		)
	}
	return msgs
}

func TestBuild_SingleCheckInAfterTwelveTurns(t *testing.T) {
	prompt := facilitator.Build(facilitator.PromptInput{
		Mode:      domain.ModeSingle,
		TurnCount: 13,
		Messages:  userTurns(13),
	})

	assert.Contains(t, prompt, facilitator.CheckInInstruction)
}

func TestBuild_SinglePhases(t *testing.T) {
	tests := []struct {
		name      string
		turn      int
		messages  []domain.Message
		wantPhase string
		closing   bool
	}{
		{"first turn observes", 1, userTurns(1), facilitator.PhaseObservation, false},
		{"observation ignores signals", 4, []domain.Message{{Role: domain.RoleAssistant, Content: "你发现了什么"}}, facilitator.PhaseObservation, false},
		{"deepening without signal", 8, userTurns(8), facilitator.PhaseDeepening, false},
		{"deepening with insight", 8, []domain.Message{{Role: domain.RoleAssistant, Content: "原来你一直在等待"}}, facilitator.PhaseDeepening, true},
		{"user words never count", 9, []domain.Message{{Role: domain.RoleUser, Content: "我明白了"}}, facilitator.PhaseDeepening, false},
		{"check-in", 13, userTurns(13), facilitator.PhaseCheckIn, false},
		{"late signal closes", 14, []domain.Message{{Role: domain.RoleAssistant, Content: "今天就到这里吧"}}, facilitator.PhaseDeepening, true},
	}

	b := facilitator.NewBuilder(nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			phase, closing := b.SinglePhase(tc.turn, tc.messages)
			assert.Equal(t, tc.wantPhase, phase)
			assert.Equal(t, tc.closing, closing)
		})
	}
}

func TestBuild_SingleObservationNeverCloses(t *testing.T) {
	prompt := facilitator.Build(facilitator.PromptInput{Mode: domain.ModeSingle, TurnCount: 2})

	assert.Contains(t, prompt, "绝对不要主动收尾")
	assert.NotContains(t, prompt, "收尾仪式")
	assert.NotContains(t, prompt, facilitator.CheckInInstruction)
}

func TestBuild_SingleCardContext(t *testing.T) {
	prompt := facilitator.Build(facilitator.PromptInput{
		Mode:     domain.ModeSingle,
		Word:     &domain.Word{EN: "BRIDGE", CN: "桥"},
		Keywords: []string{"a lantern", "serene"},
		Messages: userTurns(1),
	})

	assert.Contains(t, prompt, "桥（BRIDGE）")
	assert.Contains(t, prompt, "a lantern，serene")
}

func TestBuild_TurnCountFallsBackToMessages(t *testing.T) {
	prompt := facilitator.Build(facilitator.PromptInput{Mode: domain.ModeSingle, Messages: userTurns(13)})
	assert.Contains(t, prompt, facilitator.CheckInInstruction)
}

func TestBuild_FlipPhases(t *testing.T) {
	initial := facilitator.Build(facilitator.PromptInput{Mode: domain.ModeFlip, Phase: facilitator.PhaseInitial})
	swapped := facilitator.Build(facilitator.PromptInput{Mode: domain.ModeFlip, Phase: facilitator.PhaseSwapped})
	conclusion := facilitator.Build(facilitator.PromptInput{Mode: domain.ModeFlip, Phase: facilitator.PhaseConclusion})

	assert.Contains(t, initial, "\"交换\"")
	assert.Contains(t, swapped, "一体两面")
	assert.Contains(t, conclusion, "收尾仪式")
	assert.NotContains(t, initial, "收尾仪式")
}

func TestBuild_EveryPromptCarriesTheRules(t *testing.T) {
	inputs := []facilitator.PromptInput{
		{Mode: domain.ModeSingle},
		{Mode: domain.ModeFlip, Phase: facilitator.PhaseInitial},
		{Mode: domain.ModeHero, Step: 5},
	}
	for _, in := range inputs {
		prompt := facilitator.Build(in)
		require.True(t, strings.HasPrefix(prompt, "你是一位温暖的心灵引导师"))
		assert.Contains(t, prompt, "只包含一个问题")
		assert.Contains(t, prompt, "不要替对方解读")
		assert.Contains(t, prompt, "临床词汇")
		assert.Contains(t, prompt, "简体中文")
	}
}

func TestBuild_CustomDetector(t *testing.T) {
	always := facilitator.DetectorFunc(func(facilitator.SignalKind, []domain.Message) bool { return true })
	prompt := facilitator.NewBuilder(always).Build(facilitator.PromptInput{Mode: domain.ModeSingle, TurnCount: 7})

	assert.Contains(t, prompt, "收尾仪式")
}
