package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/worldgate/internal/dependencies/mocks"
	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/storage/memory"
	"github.com/mcoot/worldgate/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.storage = memory.New(s.clock)
	s.random = mocks.NewMockRandom()
	s.service = New(s.storage, s.clock, s.random, DefaultConfig(), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) waitFor(p *PendingLogin) (LoginState, model.Identity, error) {
	ctx, cancel := context.WithTimeout(s.ctx, time.Second)
	defer cancel()
	s.Require().NoError(p.Wait(ctx))
	return p.Poll()
}

// RegisterAccount tests

func (s *ServiceSuite) TestRegisterAccountSucceeds() {
	account, err := s.service.RegisterAccount(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	s.Equal("alice", account.Username)
	s.NotEqual(uuid.Nil, account.UUID)
	s.NotEqual("password123", account.PasswordHash)
}

func (s *ServiceSuite) TestRegisterAccountPersists() {
	account, _ := s.service.RegisterAccount(s.ctx, "alice", "password123")

	stored, err := s.storage.GetAccountByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(account.UUID, stored.UUID)
}

func (s *ServiceSuite) TestRegisterAccountFailsIfUsernameExists() {
	_, _ = s.service.RegisterAccount(s.ctx, "alice", "password123")

	_, err := s.service.RegisterAccount(s.ctx, "alice", "different1")
	s.ErrorIs(err, ErrUsernameExists)
}

func (s *ServiceSuite) TestRegisterAccountRejectsInvalidUsername() {
	_, err := s.service.RegisterAccount(s.ctx, "not valid!", "password123")
	s.ErrorIs(err, ErrInvalidUsername)
}

func (s *ServiceSuite) TestRegisterAccountRejectsShortPassword() {
	_, err := s.service.RegisterAccount(s.ctx, "alice", "short")
	s.ErrorIs(err, ErrPasswordTooShort)
}

// IssueToken tests

func (s *ServiceSuite) TestIssueTokenSucceeds() {
	account, _ := s.service.RegisterAccount(s.ctx, "alice", "password123")
	s.random.QueueString("TOKEN1")

	token, err := s.service.IssueToken(s.ctx, "alice", "password123")
	s.Require().NoError(err)
	s.Equal("TOKEN1", token)

	id, err := s.storage.ResolveToken(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(account.UUID, id)
}

func (s *ServiceSuite) TestIssueTokenFailsWithWrongPassword() {
	_, _ = s.service.RegisterAccount(s.ctx, "alice", "password123")

	_, err := s.service.IssueToken(s.ctx, "alice", "wrongpassword")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestIssueTokenFailsWithUnknownUser() {
	_, err := s.service.IssueToken(s.ctx, "nobody", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

// BeginVerification tests

func (s *ServiceSuite) TestVerifyTokenSucceeds() {
	account, _ := s.service.RegisterAccount(s.ctx, "alice", "password123")
	s.random.QueueString("TOKEN1")
	token, _ := s.service.IssueToken(s.ctx, "alice", "password123")

	state, identity, err := s.waitFor(s.service.BeginVerification(token))
	s.Require().NoError(err)
	s.Equal(LoginSucceeded, state)
	s.Equal(account.UUID, identity.UUID)
	s.Equal("alice", identity.Username)
}

func (s *ServiceSuite) TestVerifyUnknownTokenFails() {
	state, _, err := s.waitFor(s.service.BeginVerification("bogus"))
	s.Equal(LoginFailed, state)
	s.ErrorIs(err, model.ErrAuth)
}

func (s *ServiceSuite) TestVerifyExpiredTokenFails() {
	_, _ = s.service.RegisterAccount(s.ctx, "alice", "password123")
	s.random.QueueString("TOKEN1")
	token, _ := s.service.IssueToken(s.ctx, "alice", "password123")

	s.clock.Advance(25 * time.Hour)

	state, _, err := s.waitFor(s.service.BeginVerification(token))
	s.Equal(LoginFailed, state)
	s.ErrorIs(err, model.ErrAuth)
}

func (s *ServiceSuite) TestVerifyEmptyTokenFailsImmediately() {
	state, _, err := s.service.BeginVerification("").Poll()
	s.Equal(LoginFailed, state)
	s.ErrorIs(err, model.ErrAuth)
}

func (s *ServiceSuite) TestRevokedTokenFails() {
	_, _ = s.service.RegisterAccount(s.ctx, "alice", "password123")
	s.random.QueueString("TOKEN1")
	token, _ := s.service.IssueToken(s.ctx, "alice", "password123")
	s.Require().NoError(s.service.RevokeToken(s.ctx, token))

	state, _, _ := s.waitFor(s.service.BeginVerification(token))
	s.Equal(LoginFailed, state)
}

func (s *ServiceSuite) TestInsecureModeDerivesStableUUID() {
	cfg := DefaultConfig()
	cfg.Mode = ModeInsecure
	svc := New(s.storage, s.clock, s.random, cfg, testutil.NopLogger())

	state, first, err := svc.BeginVerification("alice").Poll()
	s.Require().NoError(err)
	s.Equal(LoginSucceeded, state)
	s.Equal("alice", first.Username)

	_, second, _ := svc.BeginVerification("alice").Poll()
	s.Equal(first.UUID, second.UUID)

	_, other, _ := svc.BeginVerification("bob").Poll()
	s.NotEqual(first.UUID, other.UUID)
}

// PendingLogin tests

func (s *ServiceSuite) TestPendingLoginStartsUnresolved() {
	p := newPendingLogin()
	state, _, err := p.Poll()
	s.Equal(LoginUnresolved, state)
	s.NoError(err)

	p.resolve(model.Identity{Username: "alice"}, nil)
	p.resolve(model.Identity{Username: "ignored"}, nil)

	state, identity, _ := p.Poll()
	s.Equal(LoginSucceeded, state)
	s.Equal("alice", identity.Username)
}
