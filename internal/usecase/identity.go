package usecase

//go:generate mockgen -source=identity.go -destination=../../tests/mock/usecase/identity.go -package=usecasemock

import (
	"strings"

	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/pkg/jwt"

	"github.com/google/uuid"
)

var ErrAnonymous = errs.New("authentication required")

type User struct {
	ID          uuid.UUID
	DisplayName string
}

// Identity resolves the caller behind a bearer token.
type Identity interface {
	CurrentUser(token string) (User, error)
}

type jwtIdentity struct {
	jwtService *jwt.Service
}

func NewIdentity(jwtService *jwt.Service) Identity {
	return &jwtIdentity{jwtService: jwtService}
}

func (i *jwtIdentity) CurrentUser(token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, ErrAnonymous
	}

	claims, err := i.jwtService.ValidateToken(token)
	if err != nil {
		return User{}, errs.Mark(err, ErrAnonymous)
	}

	return User{ID: claims.UserID, DisplayName: claims.Name}, nil
}
