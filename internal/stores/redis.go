package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersion1 = 1
)

// RedisChallengeStore persists challenges in Redis so that the login
// flow survives process restarts and works across replicas.
type RedisChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisChallengeStore creates a Redis-backed ChallengeStore. An
// empty prefix defaults to "mfc".
func NewRedisChallengeStore(redisClient redis.UniversalClient, prefix string) *RedisChallengeStore {
	if prefix == "" {
		prefix = "mfc"
	}
	return &RedisChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisChallengeStore) key(challengeID string) string {
	return s.prefix + ":" + challengeID
}

func (s *RedisChallengeStore) Save(
	ctx context.Context,
	challengeID string,
	record *ChallengeRecord,
	ttl time.Duration,
) error {
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(challengeID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

func (s *RedisChallengeStore) Get(ctx context.Context, challengeID string) (*ChallengeRecord, error) {
	data, err := s.redis.Get(ctx, s.key(challengeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	record, err := decodeChallengeRecord(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(challengeID)).Result()
		return nil, ErrChallengeExpired
	}
	return record, nil
}

func (s *RedisChallengeStore) Delete(ctx context.Context, challengeID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(challengeID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return n > 0, nil
}

func (s *RedisChallengeStore) RecordFailure(
	ctx context.Context,
	challengeID string,
	maxAttempts int,
) (bool, error) {
	const maxRetries = 4
	key := s.key(challengeID)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallengeRecord(data)
			if err != nil {
				return err
			}
			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return nil
			}

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			updated, err := encodeChallengeRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, ErrChallengeNotFound
			}
			if errors.Is(err, ErrChallengeExpired) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return exceeded, nil
	}

	return false, ErrChallengeNotFound
}

func encodeChallengeRecord(record *ChallengeRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.FactorID) > 65535 || len(record.Subject) > 65535 {
		return nil, errors.New("mfa challenge field length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.FactorID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.FactorID)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Subject))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Subject)

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*ChallengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersion1 {
		return nil, errors.New("invalid mfa challenge record version")
	}

	record := &ChallengeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var factorLen uint16
	if err := binary.Read(reader, binary.BigEndian, &factorLen); err != nil {
		return nil, err
	}
	factor := make([]byte, factorLen)
	if _, err := io.ReadFull(reader, factor); err != nil {
		return nil, err
	}
	record.FactorID = string(factor)

	var subjectLen uint16
	if err := binary.Read(reader, binary.BigEndian, &subjectLen); err != nil {
		return nil, err
	}
	subject := make([]byte, subjectLen)
	if _, err := io.ReadFull(reader, subject); err != nil {
		return nil, err
	}
	record.Subject = string(subject)

	return record, nil
}
