package testfixtures

import (
	"io"
	"log/slog"
	"time"

	"github.com/example/prayer-debt/internal/application"
	"github.com/example/prayer-debt/internal/persistence/memory"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Settings    application.Settings
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Settings:    application.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithSettings overrides the service settings.
func WithSettings(settings application.Settings) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Settings = settings
	}
}

// NewPrayerDebtService builds a service from deps, filling the id generator,
// clock and logger from the factory when unset.
func (f *ServiceFactory) NewPrayerDebtService(deps application.PrayerDebtDeps) *application.PrayerDebtService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return application.NewPrayerDebtService(deps, f.Settings)
}

// NewMemoryPrayerDebtService builds a service over a fresh in-memory store.
func (f *ServiceFactory) NewMemoryPrayerDebtService() (*application.PrayerDebtService, *memory.Store) {
	store := memory.New()
	return f.NewPrayerDebtService(application.PrayerDebtDeps{
		Snapshots: store,
		History:   store,
		Jobs:      store,
		Audit:     store,
	}), store
}
