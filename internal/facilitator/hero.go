package facilitator

import (
	"fmt"
	"strings"

	"github.com/Rayzi0417/om-card/internal/domain"
)

// Hero's journey step numbers past the ten story steps.
const (
	HeroStoryLength   = 10
	StepSynthesis     = 11
	StepReflection    = 12
	StepBlessing      = 13
	firstHeroStep     = 1
	reflectionWrapUp  = 3
	singleObservation = 5
	singleDeepening   = 12
)

// HeroStep is one archetype of the hero's journey.
type HeroStep struct {
	Number   int
	Title    string
	Subtitle string
	// Theme describes what the step asks about, used inside prompts.
	Theme    string
	Question string
}

var heroSteps = [HeroStoryLength]HeroStep{
	{1, "英雄", "The Hero", "故事的主角是谁，他有什么特质", "他是谁？有什么特质？"},
	{2, "天赋", "The Talent", "英雄拥有的天赋或资源", "他拥有什么天赋或资源？"},
	{3, "召唤", "The Call", "促使英雄踏上旅程的事件", "发生了什么事促使他踏上旅程？"},
	{4, "伙伴", "The Companion", "来帮助英雄的导师或伙伴", "谁来帮助他？（导师/伙伴）"},
	{5, "伙伴之力", "Companion's Power", "伙伴所拥有的超能力", "伙伴的超能力是什么？"},
	{6, "大魔王", "The Demon", "英雄遇到的最大障碍", "遇到了什么大魔王（最大障碍）？"},
	{7, "魔王之力", "Demon's Power", "魔王最强的技能或最难的地方", "魔王最强的技能或困难点在哪？"},
	{8, "克服", "Overcoming", "英雄克服障碍的关键行动", "英雄如何克服障碍？（关键行动）"},
	{9, "新生", "Aftermath", "任务完成之后生活的变化", "任务完成后，生活变成了什么样？"},
	{10, "使命", "The Mission", "英雄的使命以及他如何分享经验", "他的使命是什么？如何分享经验？"},
}

// HeroStepInfo returns the archetype for steps 1..10.
func HeroStepInfo(step int) (HeroStep, bool) {
	if step < firstHeroStep || step > HeroStoryLength {
		return HeroStep{}, false
	}
	return heroSteps[step-1], true
}

// HeroSteps returns the ten story steps in order.
func HeroSteps() []HeroStep {
	out := make([]HeroStep, HeroStoryLength)
	copy(out, heroSteps[:])
	return out
}

// StoryContext renders a story log as one "【title】answer" line per entry.
func StoryContext(log []domain.StoryEntry) string {
	var b strings.Builder
	for _, e := range log {
		title := fmt.Sprintf("第%d步", e.Step)
		if s, ok := HeroStepInfo(e.Step); ok {
			title = s.Title
		}
		fmt.Fprintf(&b, "【%s】%s\n", title, e.UserAnswer)
	}
	return strings.TrimRight(b.String(), "\n")
}
