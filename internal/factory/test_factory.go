package factory

import (
	"time"

	"github.com/mcoot/worldgate/internal/dependencies/mocks"
	"github.com/mcoot/worldgate/internal/server"
	"github.com/mcoot/worldgate/internal/services/auth"
	"github.com/mcoot/worldgate/internal/services/ledger"
	"github.com/mcoot/worldgate/internal/services/world"
	"github.com/mcoot/worldgate/internal/storage/memory"
	"github.com/mcoot/worldgate/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Admission runs on a single worker so uids are admitted in order.
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	store := memory.New(mockClock)
	logger := testutil.NopLogger()

	serverCfg := server.DefaultConfig()
	serverCfg.Admission.Workers = 1

	app := newWithDependencies(
		store,
		mockClock,
		mockRandom,
		ledger.New("", mockClock, logger),
		auth.DefaultConfig(),
		serverCfg,
		world.DefaultSettings(),
		logger,
	)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
