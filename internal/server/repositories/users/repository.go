// Package users is the record store for user accounts. Two implementations
// share the Repository contract: a JSON document on disk and PostgreSQL.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository is the durable collection of user records.
//
// Lookups return common.ErrorNotFound when nothing matches. Create fails with
// common.ErrUserAlreadyExists when the username is taken; the check and the
// insert are atomic with respect to other calls on the same repository.
type Repository interface {
	List(ctx context.Context) ([]*models.User, error)
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	ReplaceAll(ctx context.Context, users []*models.User) error
	DeleteByUsername(ctx context.Context, userName string) error
}
