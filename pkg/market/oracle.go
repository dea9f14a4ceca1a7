package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cast"
)

// HTTPOracle 自然语言选股服务的 HTTP 适配器
// 服务端限流，调用方负责并发控制
type HTTPOracle struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPOracle 创建选股服务客户端
func NewHTTPOracle(endpoint, token string) *HTTPOracle {
	return &HTTPOracle{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

var _ Oracle = (*HTTPOracle)(nil)

// Query 执行一条自然语言选股查询
func (o *HTTPOracle) Query(ctx context.Context, query string) ([]ScreenRow, error) {
	body, err := json.Marshal(map[string]string{"question": query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("screen query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screen query returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("screen query decode failed: %w", err)
	}

	rows := make([]ScreenRow, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		code := cast.ToString(row["code"])
		if code == "" {
			continue
		}
		rows = append(rows, ScreenRow{
			Code: code,
			Name: cast.ToString(row["name"]),
		})
	}
	return rows, nil
}
