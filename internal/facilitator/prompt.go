package facilitator

import (
	"fmt"
	"strings"

	"github.com/Rayzi0417/om-card/internal/domain"
)

// Phase names. Single mode phases are derived from the turn count; flip
// phases are sent by the client.
const (
	PhaseObservation = "observation"
	PhaseDeepening   = "deepening"
	PhaseCheckIn     = "check-in"

	PhaseInitial    = "initial"
	PhaseSwapped    = "swapped"
	PhaseConclusion = "conclusion"
)

// CheckInInstruction is appended to single mode prompts once the conversation
// has run long without a closing signal.
const CheckInInstruction = "这一次回复请温柔地询问对方：想继续聊下去，还是想在这里慢慢收尾？把选择权交给对方。"

const persona = `你是一位温暖的心灵引导师，擅长通过图像引导人们进行自我探索。

你的风格：
- 温和、好奇、不评判
- 用开放式问题引导对方表达
- 简短回应，每次只问一个问题
- 不解读图片，让对方自己发现意义

用简体中文对话，像朋友聊天一样自然。`

const rules = `必须遵守：
- 每次回复最多三句话，且只包含一个问题。
- 永远不要替对方解读画面或文字的含义，意义由对方自己发现。
- 不使用诊断、治疗、症状、疾病、心理问题等临床词汇。
- 不提及你是人工智能、模型或程序，也不解释你的提问方式。`

const closureRitual = `收尾仪式（一旦开始收尾，不再提出任何问题）：
1. 用一句话映照对方在这次对话中最重要的领悟。
2. 用一个简短的自然比喻送上祝福。
3. 最后单独写 "Om."`

// PromptInput is everything the builder needs for one chat turn.
type PromptInput struct {
	Mode      domain.GameMode
	Phase     string
	Step      int
	TurnCount int
	StoryLog  []domain.StoryEntry
	Word      *domain.Word
	Keywords  []string
	Messages  []domain.Message
	HasImage  bool
}

// Builder assembles facilitator system prompts.
type Builder struct {
	detector SignalDetector
}

func NewBuilder(detector SignalDetector) *Builder {
	if detector == nil {
		detector = NewKeywordDetector(nil)
	}
	return &Builder{detector: detector}
}

var defaultBuilder = NewBuilder(nil)

// Build assembles a prompt with the keyword detector.
func Build(in PromptInput) string {
	return defaultBuilder.Build(in)
}

// Build returns the system prompt for the input's mode.
func (b *Builder) Build(in PromptInput) string {
	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\n")
	sb.WriteString(rules)
	sb.WriteString("\n\n")

	switch in.Mode {
	case domain.ModeFlip:
		b.writeFlip(&sb, in)
	case domain.ModeHero:
		b.writeHero(&sb, in)
	default:
		b.writeSingle(&sb, in)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// SinglePhase derives the single mode phase. closing reports whether the
// facilitator may start the closure ritual this turn.
func (b *Builder) SinglePhase(turnCount int, messages []domain.Message) (phase string, closing bool) {
	if turnCount <= singleObservation {
		return PhaseObservation, false
	}
	signal := b.detector.Detect(SignalInsight, messages) || b.detector.Detect(SignalFatigue, messages)
	if turnCount <= singleDeepening || signal {
		return PhaseDeepening, signal
	}
	return PhaseCheckIn, false
}

func turnCount(in PromptInput) int {
	if in.TurnCount > 0 {
		return in.TurnCount
	}
	return domain.CountUser(in.Messages)
}

func (b *Builder) writeSingle(sb *strings.Builder, in PromptInput) {
	writeCardContext(sb, in.Word, in.Keywords)

	turn := turnCount(in)
	phase, closing := b.SinglePhase(turn, in.Messages)
	fmt.Fprintf(sb, "当前是第 %d 轮对话。\n", turn)

	switch phase {
	case PhaseObservation:
		sb.WriteString(`阶段：观察。
- 邀请对方描述卡牌上看到的颜色、形状、人物和文字。
- 询问画面让对方想起了什么、带来了什么感觉。
- 这个阶段绝对不要主动收尾或总结。
`)
	case PhaseDeepening:
		sb.WriteString(`阶段：深入。
- 顺着对方已经说出的内容，温和地往下探索感受与生活中的联结。
- 可以回应对方的话，但不要给出建议或结论。
`)
		if closing {
			sb.WriteString("- 对方已经出现了领悟或疲惫的信号，这一次可以开始收尾。\n\n")
			sb.WriteString(closureRitual)
			sb.WriteString("\n")
		} else {
			sb.WriteString("- 继续探索，不要主动收尾。\n")
		}
	case PhaseCheckIn:
		sb.WriteString("阶段：确认。\n")
		sb.WriteString(CheckInInstruction)
		sb.WriteString("\n如果对方表示想收尾，下一次回复按以下方式进行：\n\n")
		sb.WriteString(closureRitual)
		sb.WriteString("\n")
	}
}

func writeCardContext(sb *strings.Builder, word *domain.Word, keywords []string) {
	if word == nil && len(keywords) == 0 {
		return
	}
	sb.WriteString("对方正在看一张卡牌（以下信息只供你理解背景，不要直接说出来）：\n")
	if word != nil && (word.CN != "" || word.EN != "") {
		fmt.Fprintf(sb, "- 卡牌文字：%s（%s）\n", word.CN, word.EN)
	}
	if len(keywords) > 0 {
		fmt.Fprintf(sb, "- 画面意象：%s\n", strings.Join(keywords, "，"))
	}
	sb.WriteString("\n")
}

func (b *Builder) writeFlip(sb *strings.Builder, in PromptInput) {
	sb.WriteString(`这是"舒服 VS. 不舒服"的翻转练习。对方面前有两张卡：左边是「不舒服」区，右边是「舒服」区。

`)
	switch in.Phase {
	case PhaseSwapped:
		sb.WriteString(`阶段：交换之后。
- 两张卡刚刚交换了位置：原来在「不舒服」区的卡现在到了「舒服」区，反之亦然。
- 陪对方探索交换之后的新感受：同一张卡换了位置，看起来有什么不同？
- 聊过三四轮之后，邀请对方把两张卡放在一起重新看看，并在那句话里使用"一体两面"或"整合"这样的说法。
`)
	case PhaseConclusion:
		sb.WriteString(`阶段：整合收尾。
- 帮助对方看见舒服与不舒服之间的联系，它们可能是同一件事的两面。
- 这一阶段以收尾为主。

`)
		sb.WriteString(closureRitual)
		sb.WriteString("\n")
	default:
		sb.WriteString(`阶段：初次探索。
- 先从对方最想聊的那张卡开始，分别探索两个区域的卡带来的感受。
- 聊过三四轮之后，自然地邀请对方把两张卡交换位置，并在那句话里使用"交换"这个词。
`)
	}
}

func (b *Builder) writeHero(sb *strings.Builder, in PromptInput) {
	step := in.Step
	if step < firstHeroStep {
		step = firstHeroStep
	}
	if step > StepBlessing {
		step = StepBlessing
	}

	sb.WriteString("对方正在用一张张卡牌创作属于自己的英雄故事。你是陪伴者，故事完全由对方来讲。\n\n")

	switch {
	case step <= HeroStoryLength:
		s := heroSteps[step-1]
		fmt.Fprintf(sb, "当前环节：「%s」（%s）。\n这一环节探索的是：%s。\n", s.Title, s.Subtitle, s.Theme)
		if len(in.StoryLog) > 0 {
			sb.WriteString("\n目前为止的故事：\n")
			sb.WriteString(StoryContext(in.StoryLog))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		if in.HasImage {
			sb.WriteString("对方刚抽到一张卡，卡牌图片已附上。请根据画面中具体的元素，提一个问题引导对方讲述这一环节。\n")
		} else {
			sb.WriteString("请围绕这一环节提一个问题，引导对方讲述。\n")
		}
		sb.WriteString("只提问，不要替对方续写故事，也不要提及之后的环节。\n")

	case step == StepSynthesis:
		sb.WriteString(`现在请把对方讲述的十个环节编织成一篇完整的英雄传记：
- 第三人称，300 字以内，保留对方原话中的意象。
- 对方选择沉默的环节用留白带过，不要替他编造。
- 只输出传记正文，不要提问，不要评价。

故事记录：
`)
		sb.WriteString(StoryContext(in.StoryLog))
		sb.WriteString("\n")

	case step == StepReflection:
		sb.WriteString("对方刚读完自己创造的英雄传记。邀请对方把英雄的旅程与自己的生命经历联系起来，一次只问一个问题。\n")
		if len(in.StoryLog) > 0 {
			sb.WriteString("\n故事记录：\n")
			sb.WriteString(StoryContext(in.StoryLog))
			sb.WriteString("\n")
		}
		if turnCount(in) >= reflectionWrapUp {
			sb.WriteString("\n对话已经进行了几轮。回应对方之后，可以温柔地提醒对方随时可以点击\"结束对话\"接受祝福。\n")
		}

	default:
		sb.WriteString(`请为这段旅程送上最后的祝福：
- 两三句话，把故事中英雄的品质与对方本人联系起来。
- 不要提问。
- 最后单独写 "Om."
`)
	}
}
