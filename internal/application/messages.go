package application

import "fmt"

// User facing texts.
const (
	MsgRegistrationPrompt   = "カレンダーに登録したい予定の内容を送信してください。"
	MsgWrongChannel         = "このコマンドはこのチャンネルでは使用できません。"
	MsgRegistrationCanceled = "予定の登録をキャンセルしました。"
	MsgNothingInProgress    = "キャンセルする登録はありません。"
	MsgStartWithCommand     = "まずは `/calendar` とコマンドを送信してくださいね。"
	MsgAuthorizationNeeded  = "Googleアカウントの認証が必要です。DMを確認してください。"
	MsgAuthorizationWaiting = "Googleアカウントの認証が必要です。DMのURLから認証を完了してください。完了すると自動で登録を続けます。"
	MsgDirectMessageRefused = "DMを送信できませんでした。プライバシー設定を確認してください。"
	MsgAuthorizationOffline = "現在Googleアカウントの認証を受け付けられません。管理者に連絡してください。"
	MsgNotUnderstood        = "うーん、うまく内容を読み取れませんでした...。\nもう少し具体的に書いてもう一度試してもらえますか？"
	MsgCalendarAccessFailed = "Googleカレンダーへのアクセスに失敗しました。再度認証が必要かもしれません。"
	MsgCalendarUnreachable  = "Googleカレンダーに接続できませんでした。しばらくしてからもう一度お試しください。"
	MsgCreateFailed         = "カレンダーへの登録に失敗しました。"
	MsgStorageFailed        = "内部エラーが発生しました。もう一度 `/calendar` からやり直してください。"
	MsgTimedOut             = "認証がタイムアウトしました。もう一度 `/calendar` からやり直してください。"
	MsgStateExpired         = "予定の入力を待つ時間が過ぎました。もう一度 `/calendar` からやり直してください。"
	MsgAuthorizationDone    = "✅ 認証が完了しました！もう一度 `/calendar` から予定を送信してください。"
	MsgAuthorizationResumed = "✅ 認証が完了しました！"
	MsgAuthorizationDenied  = "Googleアカウントの連携が許可されませんでした。もう一度 `/calendar` からやり直してください。"
)

func authorizationDirectMessage(url string) string {
	return "こんにちは！カレンダー登録のためにGoogleアカウントとの連携をお願いします。\n" +
		"以下のURLにアクセスして認証を完了してください。\n\n" + url
}

func extractionFailedMessage(err error) string {
	return fmt.Sprintf("予定の解析に失敗しました: %v", err)
}

func authorizationFailedMessage(err error) string {
	return fmt.Sprintf("認証トークンの取得に失敗しました: %v", err)
}

func recordFailedMessage(record EventRecord) string {
	return fmt.Sprintf("%s「%s」(%s)", MsgCreateFailed, record.Summary, DisplayWhen(record))
}

func batchSummaryMessage(result BatchResult) string {
	return fmt.Sprintf("%d件中%d件の予定を登録しました（失敗: %d件）。", len(result.Outcomes), result.Succeeded(), result.Failed())
}
