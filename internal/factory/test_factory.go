package factory

import (
	"time"

	"github.com/akumm2k/reversi/internal/dependencies/mocks"
	"github.com/akumm2k/reversi/internal/push"
	"github.com/akumm2k/reversi/internal/storage"
	"github.com/akumm2k/reversi/internal/storage/memory"
	"github.com/akumm2k/reversi/internal/testutil"
)

// TestBotSearchDepth keeps bot games fast in tests
const TestBotSearchDepth = 2

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, Config{
		Retention:      storage.DefaultRetention(),
		BotSearchDepth: TestBotSearchDepth,
	}, testutil.NopLogger())
	app.Publisher = push.NewLocalPublisher(app.HubManager)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
