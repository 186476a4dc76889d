package datapush

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"UniversityDashboard/src/processor"
)

// 默认重试策略
const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
)

// 钉钉 API 响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// markdownMessage 机器人markdown消息
type markdownMessage struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"markdown"`
}

// Pusher 群机器人webhook推送
type Pusher struct {
	Webhook       string
	RetryTimes    int
	RetryInterval time.Duration
	Client        *http.Client
}

func NewPusher(webhook string, retryTimes int, retryInterval time.Duration) *Pusher {
	if retryTimes <= 0 {
		retryTimes = RETRY_TIMES
	}
	if retryInterval <= 0 {
		retryInterval = RETRY_INTERVAL
	}
	return &Pusher{
		Webhook:       webhook,
		RetryTimes:    retryTimes,
		RetryInterval: retryInterval,
		Client:        &http.Client{Timeout: 10 * time.Second},
	}
}

// PushMarkdown 发送markdown消息，失败按间隔重试
func (p *Pusher) PushMarkdown(title, text string) error {
	var msg markdownMessage
	msg.MsgType = "markdown"
	msg.Markdown.Title = title
	msg.Markdown.Text = text

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	var lastErr error
	for i := 0; i < p.RetryTimes; i++ {
		if i > 0 {
			time.Sleep(p.RetryInterval)
		}
		if lastErr = p.post(body); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("推送失败(重试%d次): %w", p.RetryTimes, lastErr)
}

func (p *Pusher) post(body []byte) error {
	resp, err := p.Client.Post(p.Webhook, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("推送请求失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取推送响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("推送响应状态码 %d", resp.StatusCode)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("解析推送响应失败: %v", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("推送错误: %s", result.ErrMsg)
	}
	return nil
}

// FormatSummary 最近一个年份各学期的核心指标
func FormatSummary(trends []processor.TrendRow, reportPath string) (title, text string) {
	title = "招生与留存数据日报"
	if len(trends) == 0 {
		return title, "#### " + title + "\n\n暂无数据"
	}

	latest := trends[len(trends)-1].Year
	var b strings.Builder
	fmt.Fprintf(&b, "#### %s (%d)\n\n", title, latest)
	for _, row := range trends {
		if row.Year != latest {
			continue
		}
		fmt.Fprintf(&b, "- **%s**: 申请 %d，录取 %d，入学 %d，留存率 %.1f%%，满意度 %.1f%%\n",
			row.Term, row.Applications, row.Admitted, row.Enrolled, row.RetentionRate, row.Satisfaction)
	}
	if reportPath != "" {
		fmt.Fprintf(&b, "\n报表: %s\n", reportPath)
	}
	return title, b.String()
}
