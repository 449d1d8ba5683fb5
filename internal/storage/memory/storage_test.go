package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/worldgate/internal/dependencies/mocks"
	"github.com/mcoot/worldgate/internal/model"
)

type StorageSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.storage = New(s.clock)
	s.ctx = context.Background()
}

func (s *StorageSuite) newAccount(username string) *model.Account {
	return &model.Account{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: "hash",
		CreatedAt:    s.clock.Now(),
		UpdatedAt:    s.clock.Now(),
	}
}

// Account tests

func (s *StorageSuite) TestSaveAndGetAccount() {
	account := s.newAccount("alice")
	s.Require().NoError(s.storage.SaveAccount(s.ctx, account))

	got, err := s.storage.GetAccount(s.ctx, account.UUID)
	s.Require().NoError(err)
	s.Equal(account.Username, got.Username)
	s.Equal(account.UUID, got.UUID)
}

func (s *StorageSuite) TestGetAccountReturnsCopy() {
	account := s.newAccount("alice")
	_ = s.storage.SaveAccount(s.ctx, account)

	got, _ := s.storage.GetAccount(s.ctx, account.UUID)
	got.Username = "mallory"

	again, _ := s.storage.GetAccount(s.ctx, account.UUID)
	s.Equal("alice", again.Username)
}

func (s *StorageSuite) TestGetAccountNotFound() {
	_, err := s.storage.GetAccount(s.ctx, uuid.New())
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *StorageSuite) TestGetAccountByUsername() {
	account := s.newAccount("alice")
	_ = s.storage.SaveAccount(s.ctx, account)

	got, err := s.storage.GetAccountByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(account.UUID, got.UUID)

	_, err = s.storage.GetAccountByUsername(s.ctx, "bob")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

// Token tests

func (s *StorageSuite) TestSaveAndResolveToken() {
	id := uuid.New()
	s.Require().NoError(s.storage.SaveToken(s.ctx, "tok", id, time.Hour))

	got, err := s.storage.ResolveToken(s.ctx, "tok")
	s.Require().NoError(err)
	s.Equal(id, got)
}

func (s *StorageSuite) TestResolveTokenExpires() {
	_ = s.storage.SaveToken(s.ctx, "tok", uuid.New(), time.Hour)

	s.clock.Advance(2 * time.Hour)

	_, err := s.storage.ResolveToken(s.ctx, "tok")
	s.ErrorIs(err, model.ErrTokenNotFound)
}

func (s *StorageSuite) TestTokenWithoutTTLNeverExpires() {
	_ = s.storage.SaveToken(s.ctx, "tok", uuid.New(), 0)

	s.clock.Advance(1000 * time.Hour)

	_, err := s.storage.ResolveToken(s.ctx, "tok")
	s.NoError(err)
}

func (s *StorageSuite) TestDeleteToken() {
	_ = s.storage.SaveToken(s.ctx, "tok", uuid.New(), time.Hour)
	s.Require().NoError(s.storage.DeleteToken(s.ctx, "tok"))

	_, err := s.storage.ResolveToken(s.ctx, "tok")
	s.ErrorIs(err, model.ErrTokenNotFound)
	s.ErrorIs(s.storage.DeleteToken(s.ctx, "tok"), model.ErrTokenNotFound)
}
