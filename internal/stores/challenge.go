package stores

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrChallengeNotFound = errors.New("mfa challenge not found")
	ErrChallengeExpired  = errors.New("mfa challenge expired")
	ErrChallengeExceeded = errors.New("mfa challenge attempts exceeded")
	ErrChallengeBackend  = errors.New("mfa challenge backend unavailable")
)

// ChallengeRecord is the transient state of one pending MFA challenge.
// ExpiresAt is a Unix timestamp in seconds.
type ChallengeRecord struct {
	FactorID  string
	Subject   string
	ExpiresAt int64
	Attempts  uint16
}

// ChallengeStore persists pending MFA challenges keyed by the
// provider-issued challenge ID.
type ChallengeStore interface {
	Save(ctx context.Context, challengeID string, record *ChallengeRecord, ttl time.Duration) error
	Get(ctx context.Context, challengeID string) (*ChallengeRecord, error)
	Delete(ctx context.Context, challengeID string) (bool, error)
	// RecordFailure increments the attempt counter and reports whether
	// the limit was reached. When it was, the record is deleted so the
	// challenge cannot be retried.
	RecordFailure(ctx context.Context, challengeID string, maxAttempts int) (bool, error)
}

// MemoryChallengeStore is a process-local ChallengeStore for embedders
// that run a single instance.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	records map[string]*ChallengeRecord
	nowFn   func() time.Time
}

// NewMemoryChallengeStore creates an empty in-memory store. nowFn may
// be nil, in which case time.Now is used.
func NewMemoryChallengeStore(nowFn func() time.Time) *MemoryChallengeStore {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &MemoryChallengeStore{
		records: make(map[string]*ChallengeRecord),
		nowFn:   nowFn,
	}
}

func (s *MemoryChallengeStore) Save(
	_ context.Context,
	challengeID string,
	record *ChallengeRecord,
	_ time.Duration,
) error {
	clone := *record

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[challengeID] = &clone
	return nil
}

func (s *MemoryChallengeStore) Get(_ context.Context, challengeID string) (*ChallengeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[challengeID]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	if s.nowFn().Unix() > record.ExpiresAt {
		delete(s.records, challengeID)
		return nil, ErrChallengeExpired
	}
	clone := *record
	return &clone, nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, challengeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[challengeID]
	delete(s.records, challengeID)
	return ok, nil
}

func (s *MemoryChallengeStore) RecordFailure(
	_ context.Context,
	challengeID string,
	maxAttempts int,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[challengeID]
	if !ok {
		return false, ErrChallengeNotFound
	}
	if s.nowFn().Unix() > record.ExpiresAt {
		delete(s.records, challengeID)
		return false, ErrChallengeExpired
	}

	record.Attempts++
	if int(record.Attempts) >= maxAttempts {
		delete(s.records, challengeID)
		return true, nil
	}
	return false, nil
}
