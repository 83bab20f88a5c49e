package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"recall-watch/internal/recall_watch/model"
)

// 召回源不可用（网络错误或非 2xx）或返回内容无法解析时的终态错误。
// 本层不做重试，失败对当次 sweep 是终止性的。
var (
	ErrFeedUnavailable = errors.New("recall feed unavailable")
	ErrFeedParse       = errors.New("recall feed payload malformed")
)

// 标题缺失时的兜底文案
const fallbackTitle = "Produit rappelé"

// Client 召回源客户端，查询 RappelConso 数据集并归一化为 model.Recall
type Client struct {
	BaseURL    string
	Dataset    string
	Rows       int
	HTTPClient *http.Client
}

// feedResponse 源端返回结构：records 数组，字段嵌套在 fields 下
type feedResponse struct {
	Records []feedRecord `json:"records"`
}

type feedRecord struct {
	RecordID string     `json:"recordid"`
	Fields   feedFields `json:"fields"`
}

type feedFields struct {
	ModelNames     string `json:"noms_des_modeles_ou_references"`
	Label          string `json:"libelle"`
	Reason         string `json:"motif_du_rappel"`
	Brand          string `json:"nom_de_la_marque_du_produit"`
	Identification string `json:"identification_des_produits"`
	PublishedAt    string `json:"date_de_publication"`
	Link           string `json:"lien_vers_la_fiche_rappel"`
}

// FetchRecalls 拉取当前召回记录（按发布时间倒序，条数由 Rows 限制）
func (c *Client) FetchRecalls(ctx context.Context) ([]model.Recall, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %v", ErrFeedUnavailable, err)
	}
	q := u.Query()
	q.Set("dataset", c.Dataset)
	q.Set("rows", strconv.Itoa(c.Rows))
	q.Set("sort", "-date_de_publication")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFeedUnavailable, err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %s", ErrFeedUnavailable, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFeedUnavailable, err)
	}

	var payload feedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedParse, err)
	}

	recalls := make([]model.Recall, 0, len(payload.Records))
	for _, rec := range payload.Records {
		recalls = append(recalls, normalizeRecord(rec))
	}
	return recalls, nil
}

// normalizeRecord 把一条源端记录映射为规范的 Recall
func normalizeRecord(rec feedRecord) model.Recall {
	// 标题按优先级回退：型号/参考 -> 通用名称 -> 兜底文案
	title := rec.Fields.ModelNames
	if title == "" {
		title = rec.Fields.Label
	}
	if title == "" {
		title = fallbackTitle
	}

	return model.Recall{
		ID:          rec.RecordID,
		Title:       title,
		Description: rec.Fields.Reason,
		Brand:       rec.Fields.Brand,
		LotNumbers:  splitLotNumbers(rec.Fields.Identification),
		PublishedAt: rec.Fields.PublishedAt,
		Link:        rec.Fields.Link,
	}
}

// splitLotNumbers 从自由文本派生批号候选：原始文本 + 按换行/逗号/分号切出的非空段。
// 保持插入顺序，不去重。
func splitLotNumbers(raw string) []string {
	if raw == "" {
		return nil
	}
	lots := []string{raw}
	for _, seg := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ',' || r == ';'
	}) {
		if seg = strings.TrimSpace(seg); seg != "" {
			lots = append(lots, seg)
		}
	}
	return lots
}
