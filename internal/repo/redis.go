package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simorq_queue/pkg/lock"
)

// Key layout:
//
//	<prefix>:clinics             set of clinic ids
//	<prefix>:clinic:<id>         clinic JSON
//	<prefix>:entries:<id>        hash entry id -> entry JSON
//	<prefix>:patient:<ref>       patient JSON
//	<prefix>:lock:<id>           clinic lock
type redisStore struct {
	rdb    redis.UniversalClient
	locks  *lock.Redis
	prefix string
}

type RedisOptions struct {
	Prefix      string
	LockTTL     time.Duration
	LockTimeout time.Duration
}

// NewRedis returns a Store backed by Redis. Clinic exclusion is a
// distributed lock, so several instances may share one Redis.
func NewRedis(rdb redis.UniversalClient, opts RedisOptions) Store {
	if opts.Prefix == "" {
		opts.Prefix = "simorq:queue"
	}
	return &redisStore{
		rdb:    rdb,
		prefix: opts.Prefix,
		locks: lock.NewRedis(rdb, lock.RedisConfig{
			Prefix: opts.Prefix + ":lock",
			TTL:    opts.LockTTL,
			Wait:   opts.LockTimeout,
		}),
	}
}

func (s *redisStore) clinicsKey() string           { return s.prefix + ":clinics" }
func (s *redisStore) clinicKey(id string) string   { return s.prefix + ":clinic:" + id }
func (s *redisStore) entriesKey(id string) string  { return s.prefix + ":entries:" + id }
func (s *redisStore) patientKey(ref string) string { return s.prefix + ":patient:" + ref }

func (s *redisStore) FindClinic(ctx context.Context, id string) (Clinic, error) {
	raw, err := s.rdb.Get(ctx, s.clinicKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Clinic{}, ErrNotFound
	}
	if err != nil {
		return Clinic{}, fmt.Errorf("redis: get clinic: %w", err)
	}
	var c Clinic
	if err := json.Unmarshal(raw, &c); err != nil {
		return Clinic{}, fmt.Errorf("redis: decode clinic: %w", err)
	}
	return c, nil
}

func (s *redisStore) CreateClinic(ctx context.Context, c Clinic) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.clinicKey(c.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("redis: create clinic: %w", err)
	}
	if !ok {
		return ErrClinicExists
	}
	return s.rdb.SAdd(ctx, s.clinicsKey(), c.ID).Err()
}

func (s *redisStore) ListClinics(ctx context.Context) ([]Clinic, error) {
	ids, err := s.rdb.SMembers(ctx, s.clinicsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list clinics: %w", err)
	}
	sort.Strings(ids)

	out := make([]Clinic, 0, len(ids))
	for _, id := range ids {
		c, err := s.FindClinic(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *redisStore) FindPatient(ctx context.Context, refID string) (Patient, error) {
	raw, err := s.rdb.Get(ctx, s.patientKey(refID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Patient{}, ErrNotFound
	}
	if err != nil {
		return Patient{}, fmt.Errorf("redis: get patient: %w", err)
	}
	var p Patient
	if err := json.Unmarshal(raw, &p); err != nil {
		return Patient{}, fmt.Errorf("redis: decode patient: %w", err)
	}
	return p, nil
}

func (s *redisStore) SavePatient(ctx context.Context, p Patient) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.patientKey(p.RefID), raw, 0).Err()
}

func (s *redisStore) Atomic(ctx context.Context, clinicID string, fn func(Tx) error) error {
	lease, err := s.locks.Lease(ctx, clinicID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return fmt.Errorf("%w: %v", ErrLockTimeout, err)
		}
		return err
	}
	defer lease.Release()

	snap, err := s.Read(ctx, clinicID)
	if err != nil {
		return err
	}

	tx := newStagedTx(snap)
	if err := fn(tx); err != nil {
		return err
	}

	cs := tx.changes()
	if cs.Empty() {
		return nil
	}
	return s.apply(ctx, lease, clinicID, cs)
}

// apply commits cs in one MULTI/EXEC while WATCHing the lock key. If the
// lease expired and another writer took the key, nothing is written.
func (s *redisStore) apply(ctx context.Context, lease *lock.Lease, clinicID string, cs ChangeSet) error {
	var clinicRaw []byte
	if cs.Clinic != nil {
		raw, err := json.Marshal(cs.Clinic)
		if err != nil {
			return err
		}
		clinicRaw = raw
	}

	values := make([]any, 0, len(cs.Upserts)*2)
	for _, e := range cs.Upserts {
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}
		values = append(values, e.ID.String(), raw)
	}

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		holder, err := tx.Get(ctx, lease.Key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if holder != lease.Token {
			return fmt.Errorf("%w: %s", ErrLockLost, clinicID)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if clinicRaw != nil {
				p.Set(ctx, s.clinicKey(clinicID), clinicRaw, 0)
			}
			if len(cs.Deletes) > 0 {
				p.HDel(ctx, s.entriesKey(clinicID), lo.Map(cs.Deletes, func(id uuid.UUID, _ int) string {
					return id.String()
				})...)
			}
			if len(values) > 0 {
				p.HSet(ctx, s.entriesKey(clinicID), values...)
			}
			return nil
		})
		return err
	}, lease.Key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: %s", ErrLockLost, clinicID)
	case errors.Is(err, ErrLockLost):
		return err
	case err != nil:
		return fmt.Errorf("redis: commit clinic %s: %w", clinicID, err)
	}
	return nil
}

func (s *redisStore) Read(ctx context.Context, clinicID string) (Snapshot, error) {
	var (
		clinicCmd  *redis.StringCmd
		entriesCmd *redis.MapStringStringCmd
	)
	// MULTI/EXEC so the clinic and its entries come from the same instant.
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		clinicCmd = p.Get(ctx, s.clinicKey(clinicID))
		entriesCmd = p.HGetAll(ctx, s.entriesKey(clinicID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("redis: read clinic %s: %w", clinicID, err)
	}

	raw, err := clinicCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis: read clinic %s: %w", clinicID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap.Clinic); err != nil {
		return Snapshot{}, fmt.Errorf("redis: decode clinic: %w", err)
	}

	rows, err := entriesCmd.Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis: read entries %s: %w", clinicID, err)
	}
	snap.Entries = make([]Entry, 0, len(rows))
	for _, v := range rows {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return Snapshot{}, fmt.Errorf("redis: decode entry: %w", err)
		}
		snap.Entries = append(snap.Entries, e)
	}
	snap.Entries = sortEntries(snap.Entries)
	return snap, nil
}

func (s *redisStore) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *redisStore) Close() error { return nil }
