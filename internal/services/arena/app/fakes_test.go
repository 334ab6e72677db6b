package app

import (
	"context"
	"sync"
	"time"

	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/invite"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

type fakeStore struct {
	mu           sync.Mutex
	definitions  map[string]storage.DefinitionRecord
	sessions     map[string]storage.SessionRecord
	participants map[string]storage.ParticipantRecord
	invites      map[string]storage.InviteRecord
	actions      []storage.ActionRecord
	settlements  map[string]storage.SettlementRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		definitions:  make(map[string]storage.DefinitionRecord),
		sessions:     make(map[string]storage.SessionRecord),
		participants: make(map[string]storage.ParticipantRecord),
		invites:      make(map[string]storage.InviteRecord),
		settlements:  make(map[string]storage.SettlementRecord),
	}
}

func (f *fakeStore) stores() storage.Stores {
	return storage.Stores{
		Definitions:  f,
		Sessions:     f,
		Participants: f,
		Invites:      f,
		Audit:        f,
		Settlements:  f,
	}
}

func (f *fakeStore) PutDefinition(_ context.Context, record storage.DefinitionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.definitions[record.ID] = record
	return nil
}

func (f *fakeStore) GetDefinition(_ context.Context, id string) (storage.DefinitionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.definitions[id]
	if !ok {
		return storage.DefinitionRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) ListDefinitions(context.Context) ([]storage.DefinitionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []storage.DefinitionRecord
	for _, record := range f.definitions {
		records = append(records, record)
	}
	return records, nil
}

func (f *fakeStore) DeleteDefinition(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.definitions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.definitions, id)
	return nil
}

func (f *fakeStore) PutSession(_ context.Context, record storage.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[record.ID] = record
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (storage.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.sessions[id]
	if !ok {
		return storage.SessionRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) ListSessionsByStatus(_ context.Context, status session.Status) ([]storage.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []storage.SessionRecord
	for _, record := range f.sessions {
		if record.Status == status {
			records = append(records, record)
		}
	}
	return records, nil
}

func (f *fakeStore) PutParticipant(_ context.Context, record storage.ParticipantRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.participants[record.SessionID+"/"+record.ID] = record
	return nil
}

func (f *fakeStore) GetParticipant(_ context.Context, sessionID, participantID string) (storage.ParticipantRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.participants[sessionID+"/"+participantID]
	if !ok {
		return storage.ParticipantRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) ListParticipantsBySession(_ context.Context, sessionID string) ([]storage.ParticipantRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []storage.ParticipantRecord
	for _, record := range f.participants {
		if record.SessionID == sessionID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (f *fakeStore) DeleteParticipant(_ context.Context, sessionID, participantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := sessionID + "/" + participantID
	if _, ok := f.participants[key]; !ok {
		return storage.ErrNotFound
	}
	delete(f.participants, key)
	return nil
}

func (f *fakeStore) PutInvite(_ context.Context, record storage.InviteRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites[record.ID] = record
	return nil
}

func (f *fakeStore) GetInvite(_ context.Context, inviteID string) (storage.InviteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.invites[inviteID]
	if !ok {
		return storage.InviteRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) ListPendingInvites(_ context.Context, sessionID string) ([]storage.InviteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []storage.InviteRecord
	for _, record := range f.invites {
		if record.SessionID == sessionID && record.Status == invite.StatusPending {
			records = append(records, record)
		}
	}
	return records, nil
}

func (f *fakeStore) UpdateInviteStatus(_ context.Context, inviteID string, status invite.Status, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.invites[inviteID]
	if !ok {
		return storage.ErrNotFound
	}
	record.Status = status
	record.UpdatedAt = updatedAt
	f.invites[inviteID] = record
	return nil
}

func (f *fakeStore) AppendAction(_ context.Context, record storage.ActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, record)
	return nil
}

func (f *fakeStore) ListActions(_ context.Context, sessionID string) ([]storage.ActionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []storage.ActionRecord
	for _, record := range f.actions {
		if record.SessionID == sessionID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (f *fakeStore) PutSettlement(_ context.Context, record storage.SettlementRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settlements[record.SessionID] = record
	return nil
}

func (f *fakeStore) GetSettlement(_ context.Context, sessionID string) (storage.SettlementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.settlements[sessionID]
	if !ok {
		return storage.SettlementRecord{}, storage.ErrNotFound
	}
	return record, nil
}
