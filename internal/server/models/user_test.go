package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_PublicDropsHash(t *testing.T) {
	name := "Alice Liddell"
	u := &User{
		ID:           "u-1",
		UserName:     "alice",
		PasswordHash: "$argon2id$...",
		FullName:     &name,
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	b, err := json.Marshal(u.Public())
	require.NoError(t, err)

	assert.NotContains(t, string(b), "argon2id")
	assert.JSONEq(t, `{
		"id": "u-1",
		"username": "alice",
		"full_name": "Alice Liddell",
		"created_at": "2024-01-02T03:04:05Z"
	}`, string(b))
}

func TestUser_StoredLayout(t *testing.T) {
	u := &User{ID: "u-1", UserName: "bob", PasswordHash: "h", CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u-1","username":"bob","passwordHash":"h","createdAt":"2024-01-02T00:00:00Z"}`, string(b))
}
