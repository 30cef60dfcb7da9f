package cart

// ActionType 状态转换类型
type ActionType string

const (
	ActionAddItem        ActionType = "ADD_ITEM"
	ActionRemoveItem     ActionType = "REMOVE_ITEM"
	ActionUpdateQuantity ActionType = "UPDATE_QUANTITY"
	ActionClearCart      ActionType = "CLEAR_CART"
	ActionLoadCart       ActionType = "LOAD_CART"
)

// Action 状态转换
type Action interface {
	Type() ActionType
}

// AddItem 同 ID 已存在时数量 +1，否则以数量 1 追加到末尾
type AddItem struct {
	Item ItemInput
}

// RemoveItem 按 ID 删除，不存在时无操作
type RemoveItem struct {
	ID string
}

// UpdateQuantity 设置数量，随后过滤掉数量 <= 0 的商品
type UpdateQuantity struct {
	ID       string
	Quantity int
}

// ClearCart 重置为空状态
type ClearCart struct{}

// LoadCart 整体替换 Items（启动加载路径）
type LoadCart struct {
	Items []Item
}

func (AddItem) Type() ActionType        { return ActionAddItem }
func (RemoveItem) Type() ActionType     { return ActionRemoveItem }
func (UpdateQuantity) Type() ActionType { return ActionUpdateQuantity }
func (ClearCart) Type() ActionType      { return ActionClearCart }
func (LoadCart) Type() ActionType       { return ActionLoadCart }
