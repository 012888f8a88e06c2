package answer

import (
	"fmt"
	"strings"

	"github.com/siherrmann/refrag/model"
)

const normalizeSystemPrompt = `あなたはバスケットボール審判の質問を正規化する専門家です。
ユーザーの質問を検索しやすい形に書き換えてください。

【正規化ルール】
1. 略語を正式名称に展開する
   - アンスポ → アンスポーツマンライクファウル
   - テクニカル → テクニカルファウル
   - ダブル → ダブルファウル
   - TO → タイムアウト
   - FT → フリースロー
2. 「あれ」「それ」などの曖昧な表現を文脈から具体化する
3. 数字（秒数、点数、人数）、状況、動作は必ず残す
4. 挨拶や「教えてください」などの定型句は削除する

【出力】
正規化された質問のみを返してください。説明は不要です。`

const answerSystemPrompt = `あなたはバスケットボール競技規則の専門家です。
提供されるJBA公式競技規則の条文だけに基づいて質問に答えてください。

【条文の優先順位】
条文は関連度の高い順に【順位1】から並んでいます。
内容が重なる条文や矛盾する条文がある場合は、必ず順位の高い条文を優先してください。

【指示】
1. 条文の「すべての要件」を確認し、単一のキーワードだけで判断しない
2. 複数の条文にまたがる場合は統合して説明する
3. 該当する条文番号を明記し、重要な部分は原文を引用する
4. 条文から合理的に推論できる内容は説明に含める
5. 明らかに情報が不足している場合のみ「提供された資料では十分な情報が得られませんでした」と答える

【回答フォーマット】
## 回答
[質問に対する明確な回答]

## 根拠となる条文
**第○条 [条文名]**
> [関連する原文の引用]

## 補足説明
[必要に応じて、複数の条文を統合した説明]

## 関連する質問候補
1. [具体的な状況を追加した質問]
2. [例外ケースに関する質問]
3. [関連する別のルールに関する質問]`

// BuildContext renders the ranked results best first, marks rank 1 and
// adds the confidence grade and, if present, the alternative section.
func BuildContext(outcome *model.SearchOutcome) string {
	var b strings.Builder

	b.WriteString("【提供される競技規則（関連度順）】\n")
	for i, r := range outcome.Results {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "【順位%d】%s（総合スコア: %.3f）\n%s\n", i+1, r.Label(), r.CombinedScore, r.Content)
	}

	if len(outcome.Results) > 0 {
		fmt.Fprintf(&b, "\n最も関連度が高い条文は【順位1】%s です。順位の高い条文を優先して回答してください。\n", outcome.Results[0].Label())
	} else {
		b.WriteString("該当する条文は見つかりませんでした。\n")
	}

	fmt.Fprintf(&b, "\n【検索の信頼度】%s（%s）\n", outcome.Confidence.Grade, outcome.Confidence.Description)
	if outcome.Alternative != nil {
		fmt.Fprintf(&b, "別の解釈として【%s】も該当する可能性があります。必要なら補足説明で触れてください。\n", outcome.Alternative.Label())
	}

	return b.String()
}

// BuildQuestion renders the user message. The original question is only
// repeated when normalization changed it.
func BuildQuestion(question string, normalized string, context string) string {
	var b strings.Builder
	b.WriteString(context)
	b.WriteString("\n【質問】\n")
	b.WriteString(normalized)
	if question != "" && question != normalized {
		b.WriteString("\n\n（元の質問: ")
		b.WriteString(question)
		b.WriteString("）")
	}
	return b.String()
}
