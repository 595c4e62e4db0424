package stimgen

import (
	"context"
	"fmt"

	"github.com/stimgen/stimgen/pkg/logger"
	"go.uber.org/zap"
)

type CancelFunc func(ctx context.Context) error

// Stimgen is the top-level generator: it owns the logger, the optional
// metrics endpoint, and the cleanup chain. One Stimgen runs one session.
type Stimgen struct {
	Logger        *zap.Logger
	Metrics       *Metrics
	cleanupFnList []CancelFunc

	cfg Config
}

func New(cfg Config) (*Stimgen, error) {
	var cleanupFnList []CancelFunc
	lg, cleanup, err := logger.NewLogger(cfg.LoggerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed init logger: %w", err)
	}
	cleanupFnList = append(cleanupFnList, cleanup)

	cfg.Profile.ApplyDefaults()
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}

	var metrics *Metrics
	if cfg.MetricsAddr != "" {
		metrics = NewMetrics(lg)
		metrics.Start(cfg.MetricsAddr)
		cleanupFnList = append(cleanupFnList, metrics.Close)
	}

	return &Stimgen{
		Logger:        lg,
		Metrics:       metrics,
		cleanupFnList: cleanupFnList,
		cfg:           cfg,
	}, nil
}

// Run builds the factory and transport for the profile and drives one
// session to a terminal state. Configuration and privilege problems
// surface here, before any traffic is sent.
func (s *Stimgen) Run(ctx context.Context) error {
	profile := s.cfg.Profile

	factory, err := NewPacketFactory(profile)
	if err != nil {
		return fmt.Errorf("failed init packet factory: %w", err)
	}
	transport, err := NewTransport(profile, s.Logger)
	if err != nil {
		return fmt.Errorf("failed init transport: %w", err)
	}

	sess := NewSession(profile, factory, transport, s.Metrics, s.Logger)
	if _, err := sess.Run(ctx); err != nil {
		return fmt.Errorf("session failed: %w", err)
	}
	return nil
}

func (s *Stimgen) Close() {
	for _, fn := range s.cleanupFnList {
		if err := fn(context.Background()); err != nil {
			s.Logger.Error("failed to cleanup", zap.Error(err))
		}
	}
}
