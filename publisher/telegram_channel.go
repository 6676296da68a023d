package publisher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Luismorlan/infoflow/model"
)

const (
	TelegramApiBase = "https://api.telegram.org"
	// sendMessage rejects longer texts.
	telegramMessageLimit = 4096
)

// TelegramChannel sends the markdown brief to one chat through the Bot API.
type TelegramChannel struct {
	BotToken string
	ChatId   string
	ApiBase  string
	Client   *http.Client
}

func NewTelegramChannel(botToken, chatId string) *TelegramChannel {
	return &TelegramChannel{
		BotToken: botToken,
		ChatId:   chatId,
		ApiBase:  TelegramApiBase,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramChannel) Name() string {
	return ChannelTelegram
}

func (t *TelegramChannel) Publish(ctx context.Context, brief *model.Brief) error {
	if t.BotToken == "" || t.ChatId == "" {
		return errors.New("telegram bot token and chat id are not configured")
	}
	text := brief.MarkdownContent
	if text == "" {
		text = brief.Title
	}
	form := url.Values{}
	form.Set("chat_id", t.ChatId)
	form.Set("text", truncate(text, telegramMessageLimit))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "false")

	base := t.ApiBase
	if base == "" {
		base = TelegramApiBase
	}
	endpoint := strings.TrimRight(base, "/") + "/bot" + t.BotToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "fail to build telegram request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		// The url carries the token.
		return errors.New("telegram sendMessage request failed")
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return errors.Errorf("telegram sendMessage returned %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
