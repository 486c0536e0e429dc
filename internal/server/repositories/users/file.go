package users

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/filex"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

var errIncompleteRecord = errors.New("user record lacks id or username")

// document is the on-disk layout: {"users": [...]}.
type document struct {
	Users []any `json:"users"`
}

// rawDocument is read first so that every record is decoded on its own.
type rawDocument struct {
	Users []json.RawMessage `json:"users"`
}

// storedRecord accepts both the current camelCase keys and the snake_case
// keys of documents written by the previous service.
type storedRecord struct {
	ID              string  `json:"id"`
	UserName        string  `json:"username"`
	PasswordHash    string  `json:"passwordHash"`
	HashedPassword  string  `json:"hashed_password"`
	FullName        *string `json:"fullName"`
	LegacyFullName  *string `json:"full_name"`
	CreatedAt       string  `json:"createdAt"`
	LegacyCreatedAt string  `json:"created_at"`
}

// snapshot is the decoded document. Records that could not be decoded are
// kept in opaque and written back unchanged; their usernames stay reserved.
type snapshot struct {
	users  []*models.User
	opaque []json.RawMessage
}

// FileRepository keeps all users in a single JSON document. Every call holds
// mu for its whole read-modify-write cycle and every mutation rewrites the
// file in full.
type FileRepository struct {
	mu   sync.Mutex
	path string
}

// NewFileRepository prepares path for use, creating its directory and an
// empty document when the file does not exist yet.
func NewFileRepository(path string) (*FileRepository, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}

	r := &FileRepository{path: path}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := r.write(nil, nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return r, nil
}

func (r *FileRepository) List(ctx context.Context) ([]*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read().users, nil
}

func (r *FileRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.UserName == userName })
}

func (r *FileRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.ID == id })
}

// Create appends user unless its username is already present.
func (r *FileRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.read()
	for _, u := range snap.users {
		if u.UserName == user.UserName {
			return nil, common.ErrUserAlreadyExists
		}
	}
	for _, raw := range snap.opaque {
		if opaqueUserName(raw) == user.UserName {
			return nil, common.ErrUserAlreadyExists
		}
	}

	if err := r.write(append(snap.users, user), snap.opaque); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *FileRepository) ReplaceAll(ctx context.Context, users []*models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(users, nil)
}

// DeleteByUsername removes every record with userName. Deleting an absent
// user is not an error.
func (r *FileRepository) DeleteByUsername(ctx context.Context, userName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.read()
	kept := snap.users[:0]
	for _, u := range snap.users {
		if u.UserName != userName {
			kept = append(kept, u)
		}
	}
	return r.write(kept, snap.opaque)
}

func (r *FileRepository) find(ctx context.Context, match func(*models.User) bool) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.read().users {
		if match(u) {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

// read loads the document. A missing, empty or unparseable file reads as
// no users. Individual records that do not decode are set aside in
// snapshot.opaque instead of failing the whole read. Caller must hold mu.
func (r *FileRepository) read() snapshot {
	raw, err := os.ReadFile(r.path)
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return snapshot{users: []*models.User{}}
	}

	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return snapshot{users: []*models.User{}}
	}

	snap := snapshot{users: make([]*models.User, 0, len(doc.Users))}
	for _, rec := range doc.Users {
		if isJSONNull(rec) {
			continue
		}
		u, err := decodeRecord(rec)
		if err != nil {
			snap.opaque = append(snap.opaque, rec)
			continue
		}
		snap.users = append(snap.users, u)
	}
	return snap
}

// write replaces the document with users followed by the opaque records.
// Caller must hold mu.
func (r *FileRepository) write(users []*models.User, opaque []json.RawMessage) error {
	doc := document{Users: make([]any, 0, len(users)+len(opaque))}
	for _, u := range users {
		doc.Users = append(doc.Users, u)
	}
	for _, rec := range opaque {
		doc.Users = append(doc.Users, rec)
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	if err := filex.WriteFileAtomic(r.path, b, 0o600); err != nil {
		return fmt.Errorf("write users: %w", err)
	}
	return nil
}

func decodeRecord(raw json.RawMessage) (*models.User, error) {
	var rec storedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	if rec.ID == "" || rec.UserName == "" {
		return nil, errIncompleteRecord
	}

	u := &models.User{
		ID:           rec.ID,
		UserName:     rec.UserName,
		PasswordHash: firstNonEmpty(rec.PasswordHash, rec.HashedPassword),
		FullName:     rec.FullName,
	}
	if u.FullName == nil {
		u.FullName = rec.LegacyFullName
	}

	if ts := firstNonEmpty(rec.CreatedAt, rec.LegacyCreatedAt); ts != "" {
		created, err := parseTimestamp(ts)
		if err != nil {
			return nil, err
		}
		u.CreatedAt = created
	}
	return u, nil
}

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// opaqueUserName extracts the username of an undecodable record, if it has
// a string one.
func opaqueUserName(raw json.RawMessage) string {
	var rec struct {
		UserName string `json:"username"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ""
	}
	return rec.UserName
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
