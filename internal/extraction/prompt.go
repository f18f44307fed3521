package extraction

import (
	"fmt"
	"time"
)

const promptTemplate = `あなたはユーザーのチャット発言からスケジュールを抽出する有能な秘書です。

# 入力テキスト
%s

# 今日の日付
%s

# 指示
ユーザーの発言を解析し、以下のJSONフォーマットの配列で出力してください。
- 予定が複数ある場合は、予定ごとに配列の要素を分けてください。
- 日付や時間が明示されていない場合は、文脈から推測するか、nullにしてください。
- 終日の予定は start_time と end_time を null にしてください。
- 予定の内容 (summary) は必須です。
- JSON以外の余計な説明は一切不要です。

[
  {
    "summary": "イベント名",
    "location": "場所 (任意)",
    "description": "詳細 (任意)",
    "start_date": "YYYY-MM-DD",
    "start_time": "HH:MM:SS",
    "end_date": "YYYY-MM-DD",
    "end_time": "HH:MM:SS"
  }
]
`

// BuildPrompt renders the extraction prompt for text relative to today.
func BuildPrompt(text string, today time.Time) string {
	return fmt.Sprintf(promptTemplate, text, today.Format("2006-01-02"))
}
