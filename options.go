package holdemtable

import "time"

type TableEngineCallbacks struct {
	OnTableUpdated      func(v *TableView)
	OnTableErrorUpdated func(v *TableView, err error)
	OnTableStateUpdated func(string, *TableView)
	OnTableFatal        func(v *TableView, err error)
}

func NewTableEngineCallbacks() *TableEngineCallbacks {
	return &TableEngineCallbacks{
		OnTableUpdated:      func(*TableView) {},
		OnTableErrorUpdated: func(*TableView, error) {},
		OnTableStateUpdated: func(string, *TableView) {},
		OnTableFatal:        func(*TableView, error) {},
	}
}

type TableEngineOptions struct {
	DeckSeed     int64 // 0 shuffles from crypto/rand
	InboxSize    int
	RandomButton bool
	Clock        func() time.Time
}

func NewTableEngineOptions() *TableEngineOptions {
	return &TableEngineOptions{
		DeckSeed:     0,
		InboxSize:    256,
		RandomButton: false,
		Clock:        time.Now,
	}
}
