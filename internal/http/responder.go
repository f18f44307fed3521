package http

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
)

type page struct {
	Title  string
	Detail string
}

var (
	pageAuthorized = page{
		Title:  "認証が完了しました",
		Detail: "このウィンドウを閉じて Discord に戻ってください。",
	}
	pageInvalidRequest = page{
		Title:  "認証に失敗しました",
		Detail: "リクエストが不正です。Discord で `/calendar` からやり直してください。",
	}
	pageUnknownSession = page{
		Title:  "認証に失敗しました",
		Detail: "この認証リンクは無効か、期限切れです。Discord で `/calendar` からやり直してください。",
	}
	pageDenied = page{
		Title:  "認証がキャンセルされました",
		Detail: "カレンダーへのアクセスが許可されませんでした。",
	}
	pageExchangeFailed = page{
		Title:  "認証に失敗しました",
		Detail: "Google とのトークン交換に失敗しました。時間をおいて再度お試しください。",
	}
	pageInternalError = page{
		Title:  "エラーが発生しました",
		Detail: "サーバー内部でエラーが発生しました。",
	}
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Detail}}</p>
</body>
</html>
`))

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writePage(ctx context.Context, w http.ResponseWriter, status int, p page) {
	if w == nil {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, p); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to render page", "error", err)
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}
