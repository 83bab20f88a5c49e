package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultEndpoint FCM legacy HTTP 接口
const DefaultEndpoint = "https://fcm.googleapis.com/fcm/send"

// Message 一条推送：展示部分 + 数据负载
type Message struct {
	Title        string
	Body         string
	Data         map[string]string
	HighPriority bool
}

// Client FCM 推送客户端，支持单 token 直推与 topic 广播
type Client struct {
	Endpoint   string
	ServerKey  string
	HTTPClient *http.Client
}

type fcmPayload struct {
	To           string            `json:"to"`
	Priority     string            `json:"priority,omitempty"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Failure int `json:"failure"`
}

// SendToToken 直推到单个设备 token
func (c *Client) SendToToken(ctx context.Context, token string, msg Message) error {
	return c.send(ctx, token, msg)
}

// SendToTopic 广播到订阅了指定 topic 的所有设备
func (c *Client) SendToTopic(ctx context.Context, topic string, msg Message) error {
	return c.send(ctx, "/topics/"+topic, msg)
}

func (c *Client) send(ctx context.Context, target string, msg Message) error {
	payload := fcmPayload{
		To:           target,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}
	if msg.HighPriority {
		payload.Priority = "high"
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal fcm payload: %w", err)
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("build fcm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.ServerKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send fcm request: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fcm error: %s", resp.Status)
	}

	// token 直推会带 failure 计数，失败也是 200 返回
	var result fcmResponse
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read fcm response: %w", err)
	}
	if err := json.Unmarshal(body, &result); err == nil && result.Failure > 0 {
		return fmt.Errorf("fcm delivery failed for %s", target)
	}
	return nil
}
