package holdemtable

import (
	"fmt"
	"time"
)

type TableSetting struct {
	TableID       string        `json:"table_id"`
	MaxSeats      int           `json:"max_seats"`      // 座位數
	MinPlayers    int           `json:"min_players"`    // 開局最少人數
	SmallBlind    int64         `json:"small_blind"`    // 小盲籌碼量
	BigBlind      int64         `json:"big_blind"`      // 大盲籌碼量
	MinBuyIn      int64         `json:"min_buy_in"`     // 最小買入
	MaxBuyIn      int64         `json:"max_buy_in"`     // 最大買入
	ActionTimeout time.Duration `json:"action_timeout"` // 玩家動作思考時間
	BuyInWindow   time.Duration `json:"buy_in_window"`  // 買入確認有效時間
	Interval      time.Duration `json:"interval"`       // 兩手牌之間的間隔
}

func NewDefaultTableSetting() TableSetting {
	return TableSetting{
		MaxSeats:      9,
		MinPlayers:    2,
		SmallBlind:    10,
		BigBlind:      20,
		MinBuyIn:      400,
		MaxBuyIn:      4000,
		ActionTimeout: 30 * time.Second,
		BuyInWindow:   10 * time.Second,
		Interval:      0,
	}
}

func (s TableSetting) Validate() error {
	switch {
	case s.MaxSeats < 2:
		return fmt.Errorf("%w: max seats %d", ErrTableInvalidSetting, s.MaxSeats)
	case s.MinPlayers < 2 || s.MinPlayers > s.MaxSeats:
		return fmt.Errorf("%w: min players %d", ErrTableInvalidSetting, s.MinPlayers)
	case s.SmallBlind <= 0 || s.BigBlind < s.SmallBlind:
		return fmt.Errorf("%w: blinds %d/%d", ErrTableInvalidSetting, s.SmallBlind, s.BigBlind)
	case s.MinBuyIn <= 0 || s.MaxBuyIn < s.MinBuyIn:
		return fmt.Errorf("%w: buy-in range %d..%d", ErrTableInvalidSetting, s.MinBuyIn, s.MaxBuyIn)
	case s.ActionTimeout <= 0:
		return fmt.Errorf("%w: action timeout %s", ErrTableInvalidSetting, s.ActionTimeout)
	case s.BuyInWindow <= 0:
		return fmt.Errorf("%w: buy-in window %s", ErrTableInvalidSetting, s.BuyInWindow)
	case s.Interval < 0:
		return fmt.Errorf("%w: interval %s", ErrTableInvalidSetting, s.Interval)
	}
	return nil
}
