package facilitator

// Cue messages stand in for the user when the client asks the facilitator to
// speak first.
const (
	CueFlipReady      = "（用户已准备好）"
	CueHeroQuestion   = "（用户抽到了这张卡，请根据卡牌画面提问）"
	CueHeroSynthesis  = "（十个环节都讲完了，请写出英雄传记）"
	CueHeroReflection = "（用户看完了英雄传记，请开始反思对话）"
	CueHeroBlessing   = "（请送上最后的祝福）"
	SilenceAnswer     = "（英雄选择了沉默）"
)

// Fallback texts used when text generation fails.
const (
	FallbackQuestion          = "请描述你看到的画面..."
	FallbackSummary           = "这位英雄的故事，将由你自己书写..."
	FallbackReflectionOpener  = "这位英雄的旅程，有没有让你想起自己生命中的某段经历？在创造这个故事的过程中，你有什么感受或发现？"
	FallbackReflectionReply   = "我听到了你的分享... 谢谢你的坦诚。点击下方的\"结束对话\"按钮，让我为你送上祝福。"
	FallbackBlessing          = "愿你也能像这位英雄一样，勇敢地书写自己的传奇。每个人心中都有一位英雄，而你，正是那位英雄。Om."
	FallbackSingleOpener      = "看着这张卡，你首先注意到的是什么？"
	FallbackSingleReply       = "嗯，我在听。能再多说一点吗？"
	FallbackFlipInitial       = "看看左边和右边的两张卡，哪一张先吸引了你的目光？"
	FallbackFlipSwapped       = "现在两张卡换了位置，你有什么新的感受？"
	FallbackFlipConclusion    = "舒服与不舒服，也许本来就是一体两面。谢谢你今天的探索。Om."
	NoticeCardGenerationRetry = "卡牌生成失败，请重试"
)

// HeroQuestionFallback is the static question for a story step.
func HeroQuestionFallback(step int) string {
	if s, ok := HeroStepInfo(step); ok {
		return s.Question
	}
	return FallbackQuestion
}

// FlipFallback is the static reply for a flip phase.
func FlipFallback(phase string) string {
	switch phase {
	case PhaseSwapped:
		return FallbackFlipSwapped
	case PhaseConclusion:
		return FallbackFlipConclusion
	default:
		return FallbackFlipInitial
	}
}
