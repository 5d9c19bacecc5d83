package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-bff-auth/internal/domain"
	"github.com/go-bff-auth/internal/infrastructure/dynamo"
	"github.com/go-bff-auth/internal/pkg/apperr"
)

type UpdateInput struct {
	Name     *string
	Username *string
	Avatar   *domain.FileUpload
}

type Service interface {
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
	UpdateDetails(ctx context.Context, u *domain.User, in UpdateInput) (*domain.User, error)
	Profile(ctx context.Context, u *domain.User) (*domain.User, error)
}

type userStore interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, userID string, updates map[string]any) error
	UpdateWithUsername(ctx context.Context, userID, oldUsername, newUsername string, updates map[string]any) error
}

type avatarStore interface {
	Upload(ctx context.Context, localPath, contentType string) (domain.Avatar, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	users   userStore
	avatars avatarStore
}

func NewService(users userStore, avatars avatarStore) Service {
	return &service{users: users, avatars: avatars}
}

func (s *service) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// UpdateDetails applies the given changes and returns the updated user. The
// previous avatar is deleted only after the new one is persisted.
func (s *service) UpdateDetails(ctx context.Context, u *domain.User, in UpdateInput) (*domain.User, error) {
	if in.Name == nil && in.Username == nil && in.Avatar == nil {
		return nil, apperr.BadRequest("Nothing to update")
	}
	next := *u
	updates := map[string]any{}

	usernameChanged := in.Username != nil && *in.Username != u.Username
	if usernameChanged && !strings.EqualFold(*in.Username, u.Username) {
		taken, err := s.users.UsernameTaken(ctx, *in.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("Username is already taken")
		}
	}
	if in.Name != nil {
		next.Name = strings.TrimSpace(*in.Name)
		updates[dynamo.FieldName] = next.Name
	}
	if usernameChanged {
		next.Username = *in.Username
	}
	if in.Avatar != nil {
		a, err := s.avatars.Upload(ctx, in.Avatar.Path, in.Avatar.ContentType)
		if err != nil {
			return nil, apperr.Wrap(domain.ErrUpload, "Failed to upload avatar", err)
		}
		next.Avatar = &a
		updates[dynamo.FieldAvatar] = next.Avatar
	}
	next.SyncProfileComplete()
	updates[dynamo.FieldProfileComplete] = next.IsProfileComplete

	var err error
	if usernameChanged {
		err = s.users.UpdateWithUsername(ctx, u.UserID, u.Username, next.Username, updates)
	} else {
		err = s.users.Update(ctx, u.UserID, updates)
	}
	if err != nil {
		if in.Avatar != nil {
			s.deleteAvatar(ctx, next.Avatar)
		}
		switch {
		case errors.Is(err, domain.ErrConflict):
			return nil, apperr.Conflict("Username is already taken")
		case errors.Is(err, domain.ErrNotFound):
			return nil, apperr.Wrap(domain.ErrGone, "User doesn't exist anymore", err)
		}
		return nil, err
	}
	if in.Avatar != nil {
		s.deleteAvatar(ctx, u.Avatar)
	}
	return &next, nil
}

func (s *service) Profile(_ context.Context, u *domain.User) (*domain.User, error) {
	return u, nil
}

// deleteAvatar removes a stored avatar. Failures are logged and otherwise ignored.
func (s *service) deleteAvatar(ctx context.Context, a *domain.Avatar) {
	if a == nil || a.ID == "" {
		return
	}
	if err := s.avatars.Delete(ctx, a.ID); err != nil {
		slog.Warn("could not delete avatar", "avatar_id", a.ID, "err", err)
	}
}
