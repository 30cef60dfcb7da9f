package cart

// Reduce 纯函数状态转换：(state, action) → state
//
// 不修改入参 state；返回值的 Total 总是由 Items 重新计算。
// 未知的 action 原样返回 state。
func Reduce(state State, action Action) State {
	var items []Item

	switch a := action.(type) {
	case AddItem:
		items = addItem(state.Items, a.Item)
	case *AddItem:
		items = addItem(state.Items, a.Item)
	case RemoveItem:
		items = removeItem(state.Items, a.ID)
	case *RemoveItem:
		items = removeItem(state.Items, a.ID)
	case UpdateQuantity:
		items = updateQuantity(state.Items, a.ID, a.Quantity)
	case *UpdateQuantity:
		items = updateQuantity(state.Items, a.ID, a.Quantity)
	case ClearCart, *ClearCart:
		return EmptyState()
	case LoadCart:
		items = sanitizeItems(a.Items)
	case *LoadCart:
		items = sanitizeItems(a.Items)
	default:
		return state
	}

	return State{Items: items, Total: CalculateTotal(items)}
}

func addItem(current []Item, input ItemInput) []Item {
	items := cloneItems(current)
	for i := range items {
		if items[i].ID == input.ID {
			items[i].Quantity++
			return items
		}
	}
	return append(items, Item{
		ID:       input.ID,
		Name:     input.Name,
		Price:    input.Price,
		Image:    input.Image,
		Quantity: 1,
	})
}

func removeItem(current []Item, id string) []Item {
	items := make([]Item, 0, len(current))
	for _, item := range current {
		if item.ID != id {
			items = append(items, item)
		}
	}
	return items
}

func updateQuantity(current []Item, id string, quantity int) []Item {
	items := make([]Item, 0, len(current))
	for _, item := range current {
		if item.ID == id {
			item.Quantity = quantity
		}
		if item.Quantity > 0 {
			items = append(items, item)
		}
	}
	return items
}

// sanitizeItems 丢弃数量 <= 0 或价格为负的商品，合并重复 ID（保留首次出现的位置与字段，数量相加）
func sanitizeItems(loaded []Item) []Item {
	items := make([]Item, 0, len(loaded))
	index := make(map[string]int, len(loaded))
	for _, item := range loaded {
		if item.Quantity <= 0 || item.Price.IsNegative() {
			continue
		}
		if i, ok := index[item.ID]; ok {
			items[i].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(items)
		items = append(items, item)
	}
	return items
}
