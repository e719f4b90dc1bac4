package loadgen_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/coordinator"
	"github.com/AntonStoeckl/library-loans/loadgen"
	"github.com/AntonStoeckl/library-loans/testutil/observability/testdoubles"
	"github.com/AntonStoeckl/library-loans/testutil/storewrapper"
)

func Test_Generator_RunsScenariosWithoutFailures(t *testing.T) {
	// arrange
	ctx := context.Background()
	loans, err := coordinator.NewLoanCoordinator(storewrapper.CreateWrapperWithTestConfig(t).Store())
	require.NoError(t, err)

	logSpy := testdoubles.NewLogHandlerSpy(false)
	config := loadgen.DefaultConfig()
	config.Rate = 400
	config.Readers = 5
	config.Copies = 5
	config.StatsInterval = 0

	generator, err := loadgen.NewGenerator(loans, config, slog.New(logSpy))
	require.NoError(t, err)
	require.NoError(t, generator.Seed(ctx))

	// act
	startErr := make(chan error, 1)
	go func() { startErr <- generator.Start(ctx) }()

	time.Sleep(150 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, generator.Stop(stopCtx))

	// assert
	require.NoError(t, <-startErr)
	stats := generator.Stats()
	assert.Positive(t, stats.Requests)
	assert.Zero(t, stats.Errors)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelInfo, "load generator seeded"))
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelInfo, "load generator final stats"))
}

func Test_Generator_StartRequiresSeed(t *testing.T) {
	loans, err := coordinator.NewLoanCoordinator(storewrapper.CreateWrapperWithTestConfig(t).Store())
	require.NoError(t, err)

	generator, err := loadgen.NewGenerator(loans, loadgen.DefaultConfig(), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, generator.Start(context.Background()), loadgen.ErrInvalidConfig)
}

func Test_Generator_StartEndsWithContext(t *testing.T) {
	loans, err := coordinator.NewLoanCoordinator(storewrapper.CreateWrapperWithTestConfig(t).Store())
	require.NoError(t, err)

	config := loadgen.DefaultConfig()
	config.Readers = 2
	config.Copies = 2
	config.StatsInterval = 0

	generator, err := loadgen.NewGenerator(loans, config, nil)
	require.NoError(t, err)
	require.NoError(t, generator.Seed(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, generator.Start(ctx), context.DeadlineExceeded)
	assert.Zero(t, generator.Stats().Errors)
}

func Test_NewGenerator_RejectsInvalidConfig(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*loadgen.Config)
	}{
		{name: "zero rate", mutate: func(c *loadgen.Config) { c.Rate = 0 }},
		{name: "no readers", mutate: func(c *loadgen.Config) { c.Readers = 0 }},
		{name: "no copies", mutate: func(c *loadgen.Config) { c.Copies = 0 }},
		{name: "weight above 100", mutate: func(c *loadgen.Config) { c.LendingWeight = 101 }},
		{name: "no operation timeout", mutate: func(c *loadgen.Config) { c.OperationTimeout = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := loadgen.DefaultConfig()
			tc.mutate(&config)

			_, err := loadgen.NewGenerator(nil, config, nil)

			assert.ErrorIs(t, err, loadgen.ErrInvalidConfig)
		})
	}
}
