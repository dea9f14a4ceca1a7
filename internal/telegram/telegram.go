package telegram

import (
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

// Settings 机器人配置
type Settings struct {
	Enabled bool
	Token   string
	ChatID  string
}

// Telegram 交易通知机器人
// 未启用时所有方法均为空操作，调用方不需要判空
type Telegram struct {
	logger   *zap.Logger
	settings Settings
	client   *tele.Bot
}

func NewTelegram(logger *zap.Logger, settings Settings) (*Telegram, error) {
	bot := &Telegram{
		logger:   logger,
		settings: settings,
	}
	if !settings.Enabled {
		return bot, nil
	}

	poller := &tele.LongPoller{Timeout: 10 * time.Second}

	client, err := tele.NewBot(tele.Settings{
		ParseMode: tele.ModeMarkdown,
		Token:     settings.Token,
		Poller:    poller,
	})
	if err != nil {
		return nil, err
	}

	client.Use(middleware.AutoRespond())

	err = client.SetCommands([]tele.Command{
		{Text: "/start", Description: "启动机器人"},
		{Text: "/help", Description: "获取帮助信息"},
	})
	if err != nil {
		return nil, err
	}

	client.Handle("/start", func(c tele.Context) error {
		return c.Send("交易通知机器人已启动")
	})
	client.Handle("/help", func(c tele.Context) error {
		return c.Send("订单错误与交易提醒会自动推送到本会话")
	})

	bot.client = client
	return bot, nil
}

func (r *Telegram) Start() {
	if r.client == nil {
		return
	}
	go r.client.Start()
}

// Notify 推送消息到配置的会话
func (r *Telegram) Notify(msg string) {
	if r.client == nil {
		return
	}
	chatId := cast.ToInt64(r.settings.ChatID)
	_, err := r.client.Send(tele.ChatID(chatId), msg, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	if err != nil {
		r.logger.Warn("telegram notify failed", zap.Error(err))
	}
}
