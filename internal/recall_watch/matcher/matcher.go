// Package matcher 判定一条召回记录是否命中一件已扫描商品。
// 纯函数，无 I/O，无副作用。
package matcher

import (
	"strings"

	"recall-watch/internal/recall_watch/model"
)

// Matches 品牌粗筛 + 批号细配：
//  1. 双方品牌归一化后都非空且互不为子串 -> 直接否决；
//  2. 任一方缺批号 -> 不匹配，品牌相符本身不足以判定召回；
//  3. 商品批号与任一召回批号候选互为子串（命中即停）-> 匹配。
func Matches(p model.ScannedProduct, r model.Recall) bool {
	productBrand := normalize(p.Brand)
	recallBrand := normalize(r.Brand)
	if productBrand != "" && recallBrand != "" &&
		!strings.Contains(productBrand, recallBrand) &&
		!strings.Contains(recallBrand, productBrand) {
		return false
	}

	lot := normalize(p.LotNumber)
	if lot == "" || len(r.LotNumbers) == 0 {
		return false
	}

	for _, candidate := range r.LotNumbers {
		c := normalize(candidate)
		if c == "" {
			continue
		}
		if strings.Contains(c, lot) || strings.Contains(lot, c) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
