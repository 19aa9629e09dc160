package factory

import (
	"time"

	"github.com/mcoot/blitzarena/internal/dependencies/mocks"
	"github.com/mcoot/blitzarena/internal/services/lobby"
	"github.com/mcoot/blitzarena/internal/services/stats"
	"github.com/mcoot/blitzarena/internal/storage/memory"
	"github.com/mcoot/blitzarena/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockRandom    *mocks.MockRandom
	Transport     *mocks.Recorder
	MockPublisher *mocks.Publisher
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(lobby.DefaultConfig())
}

// NewTestAppWithConfig creates a test App with custom session timing
func NewTestAppWithConfig(cfg lobby.Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	transport := mocks.NewRecorder()
	publisher := mocks.NewPublisher()

	app := newWithDependencies(dependencies{
		store:     memory.New(),
		publisher: publisher,
		clock:     mockClock,
		random:    mockRandom,
		transport: transport,
		lobby:     cfg,
		stats:     stats.DefaultConfig(),
		logger:    testutil.NopLogger(),
	})

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		Transport:     transport,
		MockPublisher: publisher,
	}
}
