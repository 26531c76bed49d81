package holdemtable

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/weedbox/holdemtable/buyin_window"
	"github.com/weedbox/holdemtable/escrow"
	"github.com/weedbox/holdemtable/seat_manager"
	"github.com/weedbox/holdemtable/store"
	"github.com/weedbox/timebank"
	"go.uber.org/zap"
)

var (
	ErrTableNotYourTurn          = errors.New("table: not your turn")
	ErrTableInvalidAction        = errors.New("table: invalid action")
	ErrTableFull                 = errors.New("table: table full")
	ErrTableInsufficientBuyIn    = errors.New("table: insufficient buy-in")
	ErrTableSeatEmpty            = errors.New("table: seat empty")
	ErrTableFrozen               = errors.New("table: frozen")
	ErrTableClosed               = errors.New("table: closed")
	ErrTableSeatTaken            = errors.New("table: seat taken")
	ErrTablePlayerAlreadySeated  = errors.New("table: player already seated")
	ErrTableBuyInTooLarge        = errors.New("table: buy-in too large")
	ErrTableInvalidSeat          = errors.New("table: invalid seat")
	ErrTableInvalidSetting       = errors.New("table: invalid setting")
	ErrTableNotStarted           = errors.New("table: not started")
	ErrTableAlreadyStarted       = errors.New("table: already started")
	ErrTableBuyInExpired         = errors.New("table: buy-in not confirmed in time")
	ErrTableBuyInRefused         = errors.New("table: buy-in refused by ledger")
	ErrTableSettlementStuck      = errors.New("table: settlement stuck in escrow")
	ErrTableInvariantViolated    = errors.New("table: invariant violated")
	ErrTableEscrowAdapterMissing = errors.New("table: escrow adapter missing")
)

type TableEngineOpt func(*tableEngine)

type TableEngine interface {
	// Events
	OnTableUpdated(fn func(*TableView))              // 桌次更新事件監聽器
	OnTableErrorUpdated(fn func(*TableView, error))  // 錯誤更新事件監聽器
	OnTableStateUpdated(fn func(string, *TableView)) // 桌次狀態監聽器
	OnTableFatal(fn func(*TableView, error))         // 帳務異常監聽器

	// Table Actions
	GetTableID() string                                   // 取得桌次 ID
	CreateTable(setting TableSetting) (*TableView, error) // 建立桌
	Start() error                                         // 開始處理訊息
	Close() error                                         // 關閉桌 (進行中的一手結束後)
	Done() <-chan struct{}                                // 訊息迴圈結束

	// Player Actions
	Submit(seatID int, intent Intent) error  // 玩家請求
	Snapshot(seatID int) (*TableView, error) // 玩家視角的桌況
}

type tableEngine struct {
	options  *TableEngineOptions
	logger   *zap.Logger
	escrow   *escrow.Adapter
	store    store.Store
	table    *table
	sm       seat_manager.SeatManager
	windows  buyin_window.WindowManager
	actionTB *timebank.TimeBank
	handTB   *timebank.TimeBank
	inflight map[string]escrow.Intent
	resumed  map[string]bool

	cmdCh     chan loopCommand
	persistCh chan persistJob
	done      chan struct{}
	started   atomic.Bool

	onTableUpdated      func(*TableView)
	onTableErrorUpdated func(*TableView, error)
	onTableStateUpdated func(string, *TableView)
	onTableFatal        func(*TableView, error)
}

func NewTableEngine(options *TableEngineOptions, opts ...TableEngineOpt) TableEngine {
	if options == nil {
		options = NewTableEngineOptions()
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if options.InboxSize <= 0 {
		options.InboxSize = NewTableEngineOptions().InboxSize
	}

	callbacks := NewTableEngineCallbacks()
	te := &tableEngine{
		options:             options,
		logger:              zap.NewNop(),
		actionTB:            timebank.NewTimeBank(),
		handTB:              timebank.NewTimeBank(),
		inflight:            make(map[string]escrow.Intent),
		resumed:             make(map[string]bool),
		cmdCh:               make(chan loopCommand, options.InboxSize),
		persistCh:           make(chan persistJob, options.InboxSize),
		done:                make(chan struct{}),
		onTableUpdated:      callbacks.OnTableUpdated,
		onTableErrorUpdated: callbacks.OnTableErrorUpdated,
		onTableStateUpdated: callbacks.OnTableStateUpdated,
		onTableFatal:        callbacks.OnTableFatal,
	}

	for _, opt := range opts {
		opt(te)
	}

	if te.store == nil {
		if te.escrow != nil {
			te.store = te.escrow.Store()
		} else {
			te.store = store.NewMemory()
		}
	}

	te.windows = buyin_window.NewWindowManager(buyin_window.WindowOption{
		OnExpired: func(key string) {
			te.post(loopCommand{kind: cmdBuyInExpired, key: key})
		},
	})

	return te
}

func WithLogger(logger *zap.Logger) TableEngineOpt {
	return func(te *tableEngine) {
		if logger != nil {
			te.logger = logger
		}
	}
}

func WithEscrow(adapter *escrow.Adapter) TableEngineOpt {
	return func(te *tableEngine) {
		te.escrow = adapter
	}
}

func WithStore(s store.Store) TableEngineOpt {
	return func(te *tableEngine) {
		te.store = s
	}
}

func (te *tableEngine) OnTableUpdated(fn func(*TableView)) {
	te.onTableUpdated = fn
}

func (te *tableEngine) OnTableErrorUpdated(fn func(*TableView, error)) {
	te.onTableErrorUpdated = fn
}

func (te *tableEngine) OnTableStateUpdated(fn func(string, *TableView)) {
	te.onTableStateUpdated = fn
}

func (te *tableEngine) OnTableFatal(fn func(*TableView, error)) {
	te.onTableFatal = fn
}

func (te *tableEngine) GetTableID() string {
	if te.table == nil {
		return ""
	}
	return te.table.ID
}

func (te *tableEngine) CreateTable(setting TableSetting) (*TableView, error) {
	if te.table != nil {
		return nil, ErrTableAlreadyStarted
	}

	if te.escrow == nil {
		return nil, ErrTableEscrowAdapterMissing
	}

	if setting.TableID == "" {
		return nil, ErrTableInvalidSetting
	}

	if err := setting.Validate(); err != nil {
		return nil, err
	}

	t := &table{
		ID:      setting.TableID,
		Setting: setting,
		Status:  TableStateStatus_WaitingForPlayers,
		Seats:   make([]*seat, setting.MaxSeats),
	}
	for i := range t.Seats {
		t.Seats[i] = &seat{ID: i, Status: SeatStatus_Empty}
	}

	te.table = t
	te.sm = seat_manager.NewSeatManager(setting.MaxSeats)
	te.logger = te.logger.With(zap.String("table_id", t.ID))

	return te.view(UnsetValue), nil
}

// Start restores the dealer button, resumes unsettled intents and begins
// processing messages.
func (te *tableEngine) Start() error {
	if te.table == nil {
		return ErrTableNotStarted
	}
	if !te.started.CompareAndSwap(false, true) {
		return ErrTableAlreadyStarted
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if dealer, ok, err := te.store.LoadButton(ctx, te.table.ID); err != nil {
		te.logger.Warn("unable to load dealer button", zap.Error(err))
	} else if ok {
		if err := te.sm.RestorePositions(dealer); err != nil {
			te.logger.Warn("unable to restore dealer button", zap.Int("seat", dealer), zap.Error(err))
		}
	}

	resumed, err := te.escrow.Unsettled(ctx, te.table.ID)
	if err != nil {
		te.logger.Error("unable to list unsettled intents", zap.Error(err))
	}
	for _, intent := range resumed {
		te.inflight[intent.Key] = intent
		te.resumed[intent.Key] = true
	}

	go te.persistLoop()
	go te.run()

	for _, intent := range resumed {
		te.logger.Info("resuming settlement intent",
			zap.String("key", intent.Key),
			zap.String("kind", string(intent.Kind)),
			zap.Int("seat", intent.SeatID),
		)
		te.escrow.Dispatch(intent, te.postOutcome)
	}

	return nil
}

func (te *tableEngine) Close() error {
	return te.request(loopCommand{kind: cmdClose})
}

func (te *tableEngine) Done() <-chan struct{} {
	return te.done
}

func (te *tableEngine) Submit(seatID int, intent Intent) error {
	if intent == nil {
		return ErrTableInvalidAction
	}
	return te.request(loopCommand{kind: cmdSubmit, seatID: seatID, intent: intent})
}

func (te *tableEngine) Snapshot(seatID int) (*TableView, error) {
	viewCh := make(chan *TableView, 1)
	if err := te.request(loopCommand{kind: cmdSnapshot, seatID: seatID, viewCh: viewCh}); err != nil {
		return nil, err
	}
	return <-viewCh, nil
}

func (te *tableEngine) request(cmd loopCommand) error {
	if !te.started.Load() {
		return ErrTableNotStarted
	}

	cmd.resp = make(chan error, 1)
	if !te.post(cmd) {
		return ErrTableClosed
	}

	select {
	case err := <-cmd.resp:
		return err
	case <-te.done:
		select {
		case err := <-cmd.resp:
			return err
		default:
			return ErrTableClosed
		}
	}
}
