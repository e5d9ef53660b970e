package users

import (
	"context"
	"errors"
	"io"

	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/security"
	"github.com/angelviera/shoplane-backend/pkg/storage/local"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes profile, credential and address book operations.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, dto UpdateProfileDTO) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
	UploadPhoto(ctx context.Context, userID uuid.UUID, file io.Reader, filename string) (*UserDTO, error)
	DeletePhoto(ctx context.Context, userID uuid.UUID) error

	CreateAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*AddressDTO, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error)
	UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, input AddressInput) (*AddressDTO, error)
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error
	SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) error
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, dto UpdateProfileDTO) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdatePhotoURL(ctx context.Context, id uuid.UUID, url *string) error
}

type addressRepository interface {
	Create(ctx context.Context, address *models.Address) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Update(ctx context.Context, address *models.Address) error
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
	WithTx(tx *gorm.DB) *AddressRepository
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type fileStore interface {
	Save(ctx context.Context, r io.Reader, originalName string) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	UserRepo       userRepository
	AddressRepo    addressRepository
	TxRunner       txRunner
	Files          fileStore
	PasswordConfig config.PasswordConfig
}

type service struct {
	users       userRepository
	addresses   addressRepository
	tx          txRunner
	files       fileStore
	passwordCfg config.PasswordConfig
}

// NewService constructs a users service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository is required")
	}
	if params.AddressRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "address repository is required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner is required")
	}
	return &service{
		users:       params.UserRepo,
		addresses:   params.AddressRepo,
		tx:          params.TxRunner,
		files:       params.Files,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, dto UpdateProfileDTO) (*UserDTO, error) {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, userID, dto); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return s.Me(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store password")
	}
	return nil
}

// UploadPhoto stores the new file first, commits the URL swap, then removes
// the previous file. Cleanup runs only after the DB write succeeds so a
// failed commit never orphans the record's current photo.
func (s *service) UploadPhoto(ctx context.Context, userID uuid.UUID, file io.Reader, filename string) (*UserDTO, error) {
	if s.files == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "file storage not configured")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.files.Save(ctx, file, filename)
	if err != nil {
		if errors.Is(err, local.ErrUnsupportedType) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store photo")
	}

	previous := user.PhotoURL
	if err := s.users.UpdatePhotoURL(ctx, userID, &url); err != nil {
		_ = s.files.Delete(ctx, url)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update photo url")
	}

	if previous != nil {
		_ = s.files.Delete(ctx, *previous)
	}
	return s.Me(ctx, userID)
}

func (s *service) DeletePhoto(ctx context.Context, userID uuid.UUID) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.PhotoURL == nil {
		return nil
	}

	previous := *user.PhotoURL
	if err := s.users.UpdatePhotoURL(ctx, userID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear photo url")
	}
	if s.files != nil {
		_ = s.files.Delete(ctx, previous)
	}
	return nil
}

func (s *service) CreateAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*AddressDTO, error) {
	address := input.toModel(userID)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.addresses.WithTx(tx)
		if input.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, address)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
	}
	return AddressFromModel(address), nil
}

func (s *service) ListAddresses(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error) {
	rows, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *AddressFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, input AddressInput) (*AddressDTO, error) {
	address, err := s.addresses.FindByID(ctx, userID, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
	}

	address.Label = input.Label
	address.Line1 = input.Line1
	address.Line2 = input.Line2
	address.City = input.City
	address.State = input.State
	address.PostalCode = input.PostalCode
	address.Country = input.Country

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.addresses.WithTx(tx)
		if input.IsDefault && !address.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
			address.IsDefault = true
		}
		return repo.Update(ctx, address)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update address")
	}
	return AddressFromModel(address), nil
}

func (s *service) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	deleted, err := s.addresses.Delete(ctx, userID, addressID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete address")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

// SetDefaultAddress clears the previous default and flags the new one in a
// single transaction so at most one default survives.
func (s *service) SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.addresses.WithTx(tx)
		if err := repo.ClearDefault(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear default address")
		}
		updated, err := repo.SetDefault(ctx, userID, addressID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set default address")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil
	})
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}
