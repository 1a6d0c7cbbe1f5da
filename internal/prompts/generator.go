package prompts

import (
	"fmt"
	"strings"

	"mock-interview/internal/interview"
)

// Persona описывает интервьюера для промптов
type Persona struct {
	Name  string
	Role  string
	Focus string
}

// Context - общий контекст сессии для всех промптов
type Context struct {
	Settings  interview.Settings
	Persona   Persona
	Resume    string
	Diagnosis string
}

var interviewTypeNames = map[interview.InterviewType]string{
	interview.TypeFirst:  "一次面接",
	interview.TypeSecond: "二次面接",
	interview.TypeFinal:  "最終面接",
}

// SystemPrompt задает роль интервьюера
func SystemPrompt(ctx Context) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("あなたは%sの%sとして、%s業界の%s職の%sを担当する面接官「%s」です。\n",
		ctx.Persona.Role, ctx.Persona.Name, ctx.Settings.Industry, ctx.Settings.Position,
		interviewTypeNames[ctx.Settings.InterviewType], ctx.Persona.Name))
	if ctx.Persona.Focus != "" {
		prompt.WriteString(fmt.Sprintf("重視する観点: %s\n", ctx.Persona.Focus))
	}
	prompt.WriteString(fmt.Sprintf("面接の質問数は全部で%d問です。\n", ctx.Settings.QuestionCount))
	prompt.WriteString("丁寧で自然な話し言葉を使い、音声で読み上げられることを前提に短くまとめてください。\n")
	prompt.WriteString("回答は必ず指定されたJSONオブジェクトのみで返してください。\n")

	if ctx.Resume != "" {
		prompt.WriteString("\n候補者の職務経歴:\n")
		prompt.WriteString(truncate(ctx.Resume, 4000))
		prompt.WriteString("\n")
	}
	if ctx.Diagnosis != "" {
		prompt.WriteString("\n候補者のキャリア診断結果:\n")
		prompt.WriteString(truncate(ctx.Diagnosis, 2000))
		prompt.WriteString("\n")
	}

	return prompt.String()
}

// OpeningPrompt запрашивает приветствие и первый вопрос
func OpeningPrompt() string {
	return `面接の冒頭です。候補者への短い挨拶と最初の質問を作成してください。

出力形式:
{"openingMessage": "挨拶（2文以内）", "question": "最初の質問"}`
}

// NextQuestionPrompt запрашивает следующий вопрос с переходной фразой
func NextQuestionPrompt(index, total int, previous []interview.Answer) string {
	var prompt strings.Builder

	if len(previous) > 0 {
		prompt.WriteString("これまでのやり取り:\n")
		for _, a := range previous {
			prompt.WriteString(fmt.Sprintf("質問%d: %s\n", a.QuestionIndex+1, a.Question))
			if a.Skipped {
				prompt.WriteString("回答: （スキップされました）\n\n")
				continue
			}
			prompt.WriteString(fmt.Sprintf("回答: %s\n\n", truncate(a.AnswerText, 1500)))
		}
	}

	prompt.WriteString(fmt.Sprintf("%d問中%d問目の質問を作成してください。\n", total, index+1))
	prompt.WriteString("- 直前の回答の内容を踏まえ、自然につながる質問にすること\n")
	prompt.WriteString("- これまでと同じ質問を繰り返さないこと\n")
	if index+1 == total {
		prompt.WriteString("- これが最後の質問です\n")
	}
	prompt.WriteString("\n出力形式:\n")
	prompt.WriteString(`{"transition": "前の回答を受けた一言（1文）", "question": "次の質問"}`)

	return prompt.String()
}

// EvaluationPrompt запрашивает оценку одного ответа
func EvaluationPrompt(question, answer string, durationSeconds int) string {
	var prompt strings.Builder

	prompt.WriteString("以下の面接の回答を評価してください。\n\n")
	prompt.WriteString(fmt.Sprintf("質問: %s\n", question))
	prompt.WriteString(fmt.Sprintf("回答（%d秒）: %s\n\n", durationSeconds, truncate(answer, 4000)))
	prompt.WriteString("評価基準: 内容の具体性(content)、論理性(logic)、伝え方(communication)、質問の理解度(understanding)、意欲(enthusiasm)\n")
	prompt.WriteString("各項目と総合点は0〜100の整数で採点してください。\n\n")
	prompt.WriteString("出力形式:\n")
	prompt.WriteString(`{"score": 75, "categoryScores": {"content": 70, "logic": 75, "communication": 80, "understanding": 75, "enthusiasm": 70}, "goodPoints": ["良い点"], "improvementPoints": ["改善点"], "shortFeedback": "一言フィードバック"}`)

	return prompt.String()
}

// NarrativePrompt запрашивает итоговый разбор интервью
func NarrativePrompt(answers []interview.Answer, totalScore int, grade string) string {
	var prompt strings.Builder

	prompt.WriteString("模擬面接が終了しました。以下の結果をもとに総評を作成してください。\n\n")
	for _, a := range answers {
		if a.Skipped || a.Evaluation == nil {
			prompt.WriteString(fmt.Sprintf("質問%d: %s（スキップ）\n\n", a.QuestionIndex+1, a.Question))
			continue
		}
		prompt.WriteString(fmt.Sprintf("質問%d: %s\n", a.QuestionIndex+1, a.Question))
		prompt.WriteString(fmt.Sprintf("点数: %d\n", a.Evaluation.Score))
		prompt.WriteString(fmt.Sprintf("良い点: %s\n", strings.Join(a.Evaluation.GoodPoints, " / ")))
		prompt.WriteString(fmt.Sprintf("改善点: %s\n\n", strings.Join(a.Evaluation.ImprovementPoints, " / ")))
	}
	prompt.WriteString(fmt.Sprintf("総合点: %d（評価 %s）\n\n", totalScore, grade))
	prompt.WriteString("出力形式:\n")
	prompt.WriteString(`{"strengths": ["強み"], "improvements": ["改善点"], "overallFeedback": "総評（3文程度）", "nextSteps": ["次のアクション"]}`)

	return prompt.String()
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
