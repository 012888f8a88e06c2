package answer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/siherrmann/refrag/model"
	"github.com/tmc/langchaingo/llms"
)

// stubModel is an llms.Model answering with a fixed reply and recording
// the messages it was sent.
type stubModel struct {
	reply string
	err   error

	mu    sync.Mutex
	calls [][]llms.MessageContent
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.reply}},
	}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// text joins the text parts of message i of call c.
func (m *stubModel) text(c int, i int) string {
	var parts []string
	for _, p := range m.calls[c][i].Parts {
		if t, ok := p.(llms.TextContent); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "")
}

var errUpstream = errors.New("upstream unavailable")

func rankedOutcome() *model.SearchOutcome {
	return &model.SearchOutcome{
		Results: []*model.SearchResult{
			{SectionID: "第29条", SectionName: "ショットクロック", Content: "ショットクロックは24秒とする。", CombinedScore: 0.82},
			{SectionID: "第50条", SectionName: "ショットクロックオペレーター", Content: "ゲームクロックが14秒未満のときショットクロックは表示しない。", CombinedScore: 0.80},
		},
		Confidence: model.NewConfidenceInfo(model.GradeB, true),
	}
}

const formattedReply = `## 回答
ショットクロックは継続します。

## 根拠となる条文
**第29条 ショットクロック**
> ショットクロックは24秒とする。

## 補足説明
ポゼッションが変わらないためリセットされません。

## 関連する質問候補
この質問に関連して、以下のような質問の意図もあるかもしれません：
1. バックコートでヘルドボールになった場合はどうなりますか？
2. ゲームクロックが14秒未満の場合はどうなりますか？
3. ファウルの場合はリセットされますか？
`
