package discord

import "github.com/bwmarrin/discordgo"

const (
	CommandCalendar = "calendar"
	CommandCancel   = "cancel"
	CommandHelp     = "help"
)

const (
	colorBlue  = 0x3498db
	colorGreen = 0x2ecc71
)

// Commands returns the slash commands registered at startup.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: CommandHelp, Description: "Botの使い方を表示します。"},
		{Name: CommandCalendar, Description: "カレンダーへの予定登録を開始します。"},
		{Name: CommandCancel, Description: "進行中の予定登録をキャンセルします。"},
	}
}

// HelpEmbed describes the registration steps.
func HelpEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🗓️ GeminiカレンダーBotの使い方",
		Description: "チャットから簡単にGoogleカレンダーへ予定を登録します。",
		Color:       colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "ステップ1: 登録準備",
				Value: "`/calendar` とコマンドを送信してください。\nBotがあなたの次のメッセージを待機する状態になります。",
			},
			{
				Name:  "ステップ2: 予定を送信",
				Value: "待機状態で、カレンダーに登録したい予定を自然な文章で送信します。\n例: `明日の15時から1時間、山田さんと打ち合わせ。場所は第3会議室。`",
			},
			{
				Name:  "ステップ3: Google認証 (初回のみ)",
				Value: "BotからGoogleアカウント連携のためのURLがDMで送られてきます。\nURLにアクセスし、連携を許可してください。",
			},
			{
				Name:  "完了！",
				Value: "Botが内容を解析し、カレンダー登録が完了すると通知します。",
			},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "登録をやめるときは `/cancel` を送信してください。"},
	}
}
