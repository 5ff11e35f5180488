package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ZEBDA1/McHess/internal/config"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier 向 Telegram 运营群发送业务通知。
// 所有投递失败只记日志，绝不向触发方返回错误：通知是旁路，不参与业务事务。
type Notifier struct {
	token   string
	apiBase string
	client  *http.Client

	// chatID 未预配置时在首次发送前解析一次，之后整个进程生命周期内复用
	mu     sync.Mutex
	chatID string
}

// NewNotifier 创建通知器。cfg.ChatID 为空时走 getUpdates 自举解析
func NewNotifier(cfg *config.TelegramConfig) *Notifier {
	return &Notifier{
		token:   cfg.BotToken,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
		chatID:  cfg.ChatID,
	}
}

// Send 发送一条通知；未配置 Token 时只打日志
func (n *Notifier) Send(ctx context.Context, text string) {
	if n.token == "" {
		zap.L().Info("telegram token not configured, notification logged only",
			zap.String("text", text))
		return
	}

	chatID, err := n.resolveChatID(ctx)
	if err != nil {
		zap.L().Warn("failed to resolve telegram chat id", zap.Error(err))
		return
	}

	if err := n.sendMessage(ctx, chatID, text); err != nil {
		zap.L().Warn("failed to send telegram notification", zap.Error(err))
	}
}

// resolveChatID 返回缓存的 chat id；没有缓存时通过 getUpdates 取最近一条
// 入站消息的发送方作为目标。互斥锁保证并发首用时只解析一次。
func (n *Notifier) resolveChatID(ctx context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.chatID != "" {
		return n.chatID, nil
	}

	url := fmt.Sprintf("%s/bot%s/getUpdates", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("getUpdates returned status %d", resp.StatusCode)
	}

	var payload struct {
		OK     bool `json:"ok"`
		Result []struct {
			Message struct {
				Chat struct {
					ID int64 `json:"id"`
				} `json:"chat"`
			} `json:"message"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if !payload.OK || len(payload.Result) == 0 {
		return "", fmt.Errorf("no recent telegram updates to resolve chat id from")
	}

	last := payload.Result[len(payload.Result)-1]
	if last.Message.Chat.ID == 0 {
		return "", fmt.Errorf("latest telegram update carries no chat id")
	}
	n.chatID = fmt.Sprintf("%d", last.Message.Chat.ID)
	zap.L().Info("telegram chat id resolved", zap.String("chat_id", n.chatID))
	return n.chatID, nil
}

func (n *Notifier) sendMessage(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendMessage returned status %d: %s", resp.StatusCode, raw)
	}
	return nil
}
