package holdemtable

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/weedbox/holdemtable/escrow"
	"github.com/weedbox/holdemtable/ledger"
	"github.com/weedbox/holdemtable/store"
	"go.uber.org/zap"
)

var (
	ErrManagerTableNotFound = errors.New("manager: table not found")
	ErrManagerTableExists   = errors.New("manager: table already exists")
)

type Manager interface {
	Reset()
	Escrow() *escrow.Adapter

	// TableEngine Actions
	GetTableEngine(tableID string) (TableEngine, error)
	CreateTable(options *TableEngineOptions, callbacks *TableEngineCallbacks, setting TableSetting) (TableEngine, error)
	CloseTable(tableID string) error

	// Player Actions
	Submit(tableID string, seatID int, intent Intent) error
	Snapshot(tableID string, seatID int) (*TableView, error)
}

type ManagerOpt func(*manager)

type manager struct {
	logger        *zap.Logger
	store         store.Store
	escrowOptions *escrow.Options
	onAlert       func(escrow.Outcome)
	adapter       *escrow.Adapter
	tableEngines  sync.Map
}

// NewManager builds a manager whose tables settle through one shared escrow
// adapter over l.
func NewManager(l ledger.Ledger, opts ...ManagerOpt) Manager {
	m := &manager{
		logger:        zap.NewNop(),
		store:         store.NewMemory(),
		escrowOptions: escrow.NewOptions(),
	}

	for _, opt := range opts {
		opt(m)
	}

	adapterOpts := []escrow.AdapterOpt{
		escrow.WithLogger(m.logger),
		escrow.WithStore(m.store),
		escrow.WithOptions(m.escrowOptions),
	}
	if m.onAlert != nil {
		adapterOpts = append(adapterOpts, escrow.WithAlertHandler(m.onAlert))
	}
	m.adapter = escrow.NewAdapter(l, adapterOpts...)

	return m
}

func WithManagerLogger(logger *zap.Logger) ManagerOpt {
	return func(m *manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithManagerStore(s store.Store) ManagerOpt {
	return func(m *manager) {
		if s != nil {
			m.store = s
		}
	}
}

func WithEscrowOptions(opts *escrow.Options) ManagerOpt {
	return func(m *manager) {
		if opts != nil {
			m.escrowOptions = opts
		}
	}
}

func WithAlertHandler(fn func(escrow.Outcome)) ManagerOpt {
	return func(m *manager) {
		m.onAlert = fn
	}
}

func (m *manager) Reset() {
	m.tableEngines.Range(func(key, value interface{}) bool {
		if err := value.(TableEngine).Close(); err != nil {
			m.logger.Warn("close table", zap.String("table_id", key.(string)), zap.Error(err))
		}
		return true
	})
	m.tableEngines = sync.Map{}
}

func (m *manager) Escrow() *escrow.Adapter {
	return m.adapter
}

func (m *manager) GetTableEngine(tableID string) (TableEngine, error) {
	tableEngine, exist := m.tableEngines.Load(tableID)
	if !exist {
		return nil, ErrManagerTableNotFound
	}
	return tableEngine.(TableEngine), nil
}

func (m *manager) CreateTable(options *TableEngineOptions, callbacks *TableEngineCallbacks, setting TableSetting) (TableEngine, error) {
	var engineOptions *TableEngineOptions
	if options != nil {
		engineOptions = options
	} else {
		engineOptions = NewTableEngineOptions()
	}

	var engineCallbacks *TableEngineCallbacks
	if callbacks != nil {
		engineCallbacks = callbacks
	} else {
		engineCallbacks = NewTableEngineCallbacks()
	}

	if setting.TableID == "" {
		setting.TableID = uuid.New().String()
	}

	if _, exist := m.tableEngines.Load(setting.TableID); exist {
		return nil, ErrManagerTableExists
	}

	tableEngine := NewTableEngine(engineOptions,
		WithLogger(m.logger),
		WithEscrow(m.adapter),
		WithStore(m.store),
	)
	if engineCallbacks.OnTableUpdated != nil {
		tableEngine.OnTableUpdated(engineCallbacks.OnTableUpdated)
	}
	if engineCallbacks.OnTableErrorUpdated != nil {
		tableEngine.OnTableErrorUpdated(engineCallbacks.OnTableErrorUpdated)
	}
	if engineCallbacks.OnTableStateUpdated != nil {
		tableEngine.OnTableStateUpdated(engineCallbacks.OnTableStateUpdated)
	}
	if engineCallbacks.OnTableFatal != nil {
		tableEngine.OnTableFatal(engineCallbacks.OnTableFatal)
	}

	if _, err := tableEngine.CreateTable(setting); err != nil {
		return nil, err
	}

	if _, loaded := m.tableEngines.LoadOrStore(setting.TableID, tableEngine); loaded {
		return nil, ErrManagerTableExists
	}

	if err := tableEngine.Start(); err != nil {
		m.tableEngines.Delete(setting.TableID)
		return nil, err
	}

	return tableEngine, nil
}

func (m *manager) CloseTable(tableID string) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	if err := tableEngine.Close(); err != nil {
		return err
	}

	// a running hand is played out before the table closes
	go func() {
		<-tableEngine.Done()
		m.tableEngines.CompareAndDelete(tableID, tableEngine)
	}()

	return nil
}

func (m *manager) Submit(tableID string, seatID int, intent Intent) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	return tableEngine.Submit(seatID, intent)
}

func (m *manager) Snapshot(tableID string, seatID int) (*TableView, error) {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return nil, ErrManagerTableNotFound
	}

	return tableEngine.Snapshot(seatID)
}
