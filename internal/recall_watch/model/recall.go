package model

// Recall 一次 sweep 内的临时对象，由召回源数据归一化得到，不落库
type Recall struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`  // 召回原因
	Brand       string   `json:"brand,omitempty"`        // 品牌，自由文本
	LotNumbers  []string `json:"lot_numbers,omitempty"`  // 批号候选集合（含原始文本）
	PublishedAt string   `json:"published_at,omitempty"` // 源端发布时间，原样保留不解析
	Link        string   `json:"link,omitempty"`         // 官方召回公告链接
}
