// Package cart 实现购物车状态机：数据模型、状态转换（reducer）与持有状态的 Store。
//
// 状态只通过 Reduce 转换，Total 在每次转换后由 Items 重新计算，从不单独维护。
package cart

import (
	"github.com/shopspring/decimal"
)

// Item 购物车中的一个商品行，按 ID 唯一
type Item struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
}

// Subtotal 单行小计 price × quantity
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemInput 不含数量的商品描述，AddItem 的入参
type ItemInput struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// State 购物车聚合根
type State struct {
	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// EmptyState 初始空状态
func EmptyState() State {
	return State{Items: []Item{}, Total: decimal.Zero}
}

// Clone 返回不共享 Items 底层数组的副本
func (s State) Clone() State {
	return State{Items: cloneItems(s.Items), Total: s.Total}
}

// Find 按 ID 查找商品
func (s State) Find(id string) (Item, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// ItemCount 商品件数总和（购物车角标）
func (s State) ItemCount() int {
	count := 0
	for _, item := range s.Items {
		count += item.Quantity
	}
	return count
}

// IsEmpty 是否为空购物车
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// CalculateTotal 计算 Σ price × quantity
func CalculateTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
