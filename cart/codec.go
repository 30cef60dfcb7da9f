package cart

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"gocart/errors"
)

// itemRecord 持久化格式中的单个商品，price 以 JSON 数字存储
type itemRecord struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Image    string      `json:"image"`
	Quantity int         `json:"quantity"`
}

// EncodeItems 将商品列表序列化为 JSON 数组；total 不参与序列化
func EncodeItems(items []Item) ([]byte, error) {
	records := make([]itemRecord, len(items))
	for i, item := range items {
		records[i] = itemRecord{
			ID:       item.ID,
			Name:     item.Name,
			Price:    json.Number(item.Price.String()),
			Image:    item.Image,
			Quantity: item.Quantity,
		}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInternal, "序列化购物车失败")
	}
	return data, nil
}

// DecodeItems 解析持久化的商品列表；JSON null 视为空列表
func DecodeItems(data []byte) ([]Item, error) {
	var records []itemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "购物车数据格式错误")
	}

	items := make([]Item, 0, len(records))
	for i, rec := range records {
		price, err := decimal.NewFromString(rec.Price.String())
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeInvalidInput,
				fmt.Sprintf("第%d个商品价格无效", i))
		}
		items = append(items, Item{
			ID:       rec.ID,
			Name:     rec.Name,
			Price:    price,
			Image:    rec.Image,
			Quantity: rec.Quantity,
		})
	}
	return items, nil
}
