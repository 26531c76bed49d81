package holdemtable

import (
	"go.uber.org/zap"
)

const (
	TableStateEvent_Created = "Created"
)

func (te *tableEngine) emitEvent(eventName string, seatID int) {
	// refresh table
	te.table.UpdateAt = te.now().Unix()
	te.table.UpdateSerial++

	te.logger.Debug("emit event",
		zap.String("event", eventName),
		zap.Int64("serial", te.table.UpdateSerial),
		zap.Uint64("hand", te.table.HandCount),
		zap.Int("seat", seatID),
	)
	te.onTableUpdated(te.view(UnsetValue))
}

func (te *tableEngine) emitErrorEvent(eventName string, seatID int, err error) {
	te.logger.Warn("emit error event",
		zap.String("event", eventName),
		zap.Int64("serial", te.table.UpdateSerial),
		zap.Uint64("hand", te.table.HandCount),
		zap.Int("seat", seatID),
		zap.Error(err),
	)
	te.onTableErrorUpdated(te.view(UnsetValue), err)
}

func (te *tableEngine) emitTableStateEvent(eventName string) {
	te.logger.Debug("emit state event", zap.String("status", eventName))
	te.onTableStateUpdated(eventName, te.view(UnsetValue))
}
