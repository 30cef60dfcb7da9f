package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"gocart/errors"
	"gocart/logging"
	"gocart/messaging"
	"gocart/validation"
)

const (
	// DefaultStorageKey 持久化使用的默认键
	DefaultStorageKey = "cart"

	// ChangedMessageType 每次状态转换提交后发布的消息类型
	ChangedMessageType = "cart.changed"
)

// Snapshot cart.changed 消息的载荷：转换后的完整商品列表（全量替换，不是增量）
type Snapshot struct {
	Key      string     `json:"key"`
	Items    []Item     `json:"items"`
	Action   ActionType `json:"action"`
	Sequence uint64     `json:"sequence"`
}

// SnapshotLoader 启动时读取已持久化商品列表的组件
//
// found=false 表示没有历史快照。
type SnapshotLoader interface {
	Load(ctx context.Context, key string) (items []Item, found bool, err error)
}

// Observer 状态提交后的同步回调
type Observer func(state State)

// Store 持有唯一权威的购物车状态
//
// 所有变更在调用方 goroutine 内同步完成；持久化通过 transport 异步进行，
// 其结果不影响变更调用。
type Store struct {
	mu        sync.RWMutex
	state     State
	sequence  uint64
	key       string
	transport messaging.Transport
	validator validation.IValidator
	logger    logging.Logger
	observers []Observer

	hydrateStarted bool
	hydrating      bool
	pending        []Action
	loaded         chan struct{}
}

// Option Store 配置函数
type Option func(*Store)

// WithTransport 设置发布 cart.changed 消息的传输层；为空时不持久化
func WithTransport(transport messaging.Transport) Option {
	return func(s *Store) {
		s.transport = transport
	}
}

// WithLogger 设置日志实现
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithValidator 替换 AddItem 的入参校验
func WithValidator(v validation.IValidator) Option {
	return func(s *Store) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithStorageKey 设置持久化键
func WithStorageKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// NewStore 创建空购物车 Store
func NewStore(opts ...Option) *Store {
	s := &Store{
		state:     EmptyState(),
		key:       DefaultStorageKey,
		validator: validation.ValidatorFunc(validateItemInput),
		logger:    logging.ComponentLogger("cart.store"),
		loaded:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key 返回持久化键
func (s *Store) Key() string {
	return s.key
}

// State 返回当前状态的副本
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Items 返回当前商品列表副本
func (s *Store) Items() []Item {
	return s.State().Items
}

// Total 返回当前总价
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Total
}

// ItemCount 返回商品件数总和
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ItemCount()
}

// Subscribe 注册状态观察者，每次提交后以新状态副本同步调用
func (s *Store) Subscribe(observer Observer) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, observer)
	s.mu.Unlock()
}

// AddItem 添加商品；入参非法时返回 ErrCodeValidation 错误且状态不变
func (s *Store) AddItem(input ItemInput) error {
	if err := s.validator.Validate(input); err != nil {
		return err
	}
	s.Dispatch(AddItem{Item: input})
	return nil
}

// RemoveItem 删除商品
func (s *Store) RemoveItem(id string) {
	s.Dispatch(RemoveItem{ID: id})
}

// UpdateQuantity 设置数量，<= 0 时删除
func (s *Store) UpdateQuantity(id string, quantity int) {
	s.Dispatch(UpdateQuantity{ID: id, Quantity: quantity})
}

// ClearCart 清空购物车
func (s *Store) ClearCart() {
	s.Dispatch(ClearCart{})
}

// LoadCart 用给定商品列表整体替换当前状态
func (s *Store) LoadCart(items []Item) {
	s.Dispatch(LoadCart{Items: cloneItems(items)})
}

// Dispatch 应用一次状态转换并触发持久化与观察者
func (s *Store) Dispatch(action Action) {
	if action == nil {
		return
	}
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	s.sequence++
	if s.hydrating {
		// 加载结束前不写存储，否则加载可能读到这次变更而不是已保存的购物车
		s.pending = append(s.pending, action)
	} else {
		s.publishLocked(action.Type())
	}
	state, observers := s.state.Clone(), s.observersLocked()
	s.mu.Unlock()

	notify(observers, state)
}

// publishLocked 发布当前快照；失败只记录日志
func (s *Store) publishLocked(actionType ActionType) {
	if s.transport == nil {
		return
	}
	snapshot := Snapshot{
		Key:      s.key,
		Items:    cloneItems(s.state.Items),
		Action:   actionType,
		Sequence: s.sequence,
	}
	msg := messaging.NewMessage(ChangedMessageType, snapshot)
	ctx := context.Background()
	if err := s.transport.Publish(ctx, msg); err != nil {
		s.logger.Warn(ctx, "购物车快照发布失败，本次变更未持久化",
			logging.String("action", string(actionType)),
			logging.Uint64("sequence", s.sequence),
			logging.Error(err))
	}
}

func (s *Store) observersLocked() []Observer {
	if len(s.observers) == 0 {
		return nil
	}
	out := make([]Observer, len(s.observers))
	copy(out, s.observers)
	return out
}

func notify(observers []Observer, state State) {
	for _, observer := range observers {
		observer(state.Clone())
	}
}

func validateItemInput(value any) error {
	var input ItemInput
	switch v := value.(type) {
	case ItemInput:
		input = v
	case *ItemInput:
		if v == nil {
			return errors.NewValidationError("商品不能为空")
		}
		input = *v
	default:
		return errors.NewValidationError("不支持的商品类型")
	}
	if err := validation.ValidateRequired(input.ID, "商品ID"); err != nil {
		return err
	}
	return validation.ValidateNonNegative(input.Price, "商品价格")
}
