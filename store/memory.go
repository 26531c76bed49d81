package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu      sync.RWMutex
	buyIns  map[string][]BuyInRecord
	intents map[string]IntentRecord
	order   []string
	buttons map[string]int
}

func NewMemory() Store {
	return &memoryStore{
		buyIns:  make(map[string][]BuyInRecord),
		intents: make(map[string]IntentRecord),
		buttons: make(map[string]int),
	}
}

func (s *memoryStore) RecordBuyIn(_ context.Context, record BuyInRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.buyIns[record.TableID] {
		if existing.Key == record.Key {
			return nil
		}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	s.buyIns[record.TableID] = append(s.buyIns[record.TableID], record)
	return nil
}

func (s *memoryStore) ListBuyIns(_ context.Context, tableID string) ([]BuyInRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]BuyInRecord(nil), s.buyIns[tableID]...), nil
}

func (s *memoryStore) SaveIntent(_ context.Context, record IntentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.intents[record.Key]; ok {
		record.CreatedAt = existing.CreatedAt
	} else {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		s.order = append(s.order, record.Key)
	}
	record.UpdatedAt = now
	s.intents[record.Key] = record
	return nil
}

func (s *memoryStore) GetIntent(_ context.Context, key string) (IntentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.intents[key]
	if !ok {
		return IntentRecord{}, ErrIntentNotFound
	}
	return record, nil
}

func (s *memoryStore) ListIntents(_ context.Context, tableID string) ([]IntentRecord, error) {
	return s.listIntents(tableID, func(IntentRecord) bool { return true }), nil
}

func (s *memoryStore) ListUnsettledIntents(_ context.Context, tableID string) ([]IntentRecord, error) {
	return s.listIntents(tableID, func(r IntentRecord) bool { return !r.Terminal }), nil
}

func (s *memoryStore) listIntents(tableID string, match func(IntentRecord) bool) []IntentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]IntentRecord, 0)
	for _, key := range s.order {
		record := s.intents[key]
		if record.TableID == tableID && match(record) {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *memoryStore) SaveButton(_ context.Context, tableID string, seatID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons[tableID] = seatID
	return nil
}

func (s *memoryStore) LoadButton(_ context.Context, tableID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seatID, ok := s.buttons[tableID]
	return seatID, ok, nil
}
