// Package store keeps document and user records as Redis hashes with
// set-based secondary indices.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/audioreader/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrStaleRun  = errors.New("processing run superseded")
	ErrDuplicate = errors.New("record already exists")
)

// updateIfRun applies HSET only while the stored runId still matches ARGV[1].
var updateIfRun = redis.NewScript(`
if redis.call("HGET", KEYS[1], "runId") ~= ARGV[1] then
	return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
return 1
`)

// startRunIfOwned clears ARGV[3..2+n] and applies the remaining field pairs
// only when the record exists and belongs to ARGV[1]. ARGV[2] is n.
var startRunIfOwned = redis.NewScript(`
if redis.call("HGET", KEYS[1], "userId") ~= ARGV[1] then
	return 0
end
local n = tonumber(ARGV[2])
if n > 0 then
	redis.call("HDEL", KEYS[1], unpack(ARGV, 3, 2 + n))
end
redis.call("HSET", KEYS[1], unpack(ARGV, 3 + n))
return 1
`)

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func documentKey(id string) string        { return "document:" + id }
func userDocumentsKey(userID string) string { return "user:" + userID + ":documents" }
func userKey(email string) string          { return "user:" + email }
func userIDKey(id string) string           { return "userid:" + id }

const usersKey = "users"

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, documentKey(doc.ID), doc.Fields())
		pipe.SAdd(ctx, userDocumentsKey(doc.UserID), doc.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	fields, err := s.client.HGetAll(ctx, documentKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	doc, err := models.DocumentFromFields(fields)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

// UpdateFields merges fields into an existing document record.
func (s *Store) UpdateFields(ctx context.Context, id string, fields map[string]string) error {
	if err := s.client.HSet(ctx, documentKey(id), fields).Err(); err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	return nil
}

// StartRun marks the document as processing under a new run token and clears
// the outcome of any previous run. It returns ErrNotFound, writing nothing,
// when the record is gone or not owned by ownerID.
func (s *Store) StartRun(ctx context.Context, id, ownerID, runID string, fields map[string]string) error {
	args := make([]interface{}, 0, 2+len(models.OutcomeFields)+2*(len(fields)+1))
	args = append(args, ownerID, len(models.OutcomeFields))
	for _, f := range models.OutcomeFields {
		args = append(args, f)
	}
	for k, v := range fields {
		if k == models.FieldRunID {
			continue
		}
		args = append(args, k, v)
	}
	args = append(args, models.FieldRunID, runID)

	applied, err := startRunIfOwned.Run(ctx, s.client, []string{documentKey(id)}, args...).Int()
	if err != nil {
		return fmt.Errorf("start run for document %s: %w", id, err)
	}
	if applied == 0 {
		return fmt.Errorf("start run for document %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateRun merges fields only if runID is still the document's current run.
// It returns ErrStaleRun when a newer run took over or the record is gone.
func (s *Store) UpdateRun(ctx context.Context, id, runID string, fields map[string]string) error {
	args := make([]interface{}, 0, 1+2*len(fields))
	args = append(args, runID)
	for k, v := range fields {
		args = append(args, k, v)
	}

	applied, err := updateIfRun.Run(ctx, s.client, []string{documentKey(id)}, args...).Int()
	if err != nil {
		return fmt.Errorf("update run %s for document %s: %w", runID, id, err)
	}
	if applied == 0 {
		return ErrStaleRun
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, userDocumentsKey(doc.UserID), doc.ID)
		pipe.Del(ctx, documentKey(doc.ID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	added, err := s.client.SAdd(ctx, usersKey, u.Email).Result()
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	if added == 0 {
		return ErrDuplicate
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, userKey(u.Email), u.Fields())
		pipe.Set(ctx, userIDKey(u.ID), u.Email, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	fields, err := s.client.HGetAll(ctx, userKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", email, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return models.UserFromFields(email, fields), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	email, err := s.client.Get(ctx, userIDKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return s.GetUserByEmail(ctx, email)
}
