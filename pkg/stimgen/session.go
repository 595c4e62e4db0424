package stimgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// State tracks the session lifecycle: Idle -> Running -> {Completed,
// Cancelled}. Terminal states are final; a new Session is constructed
// per invocation.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Session owns one profile, one transport, and one stats collector, and
// drives the send/pace/record loop. Mutated only by Run.
type Session struct {
	ID        ulid.ULID
	profile   Profile
	factory   PacketFactory
	transport Transport
	stats     *Collector
	log       *zap.Logger
	state     State
}

func NewSession(p Profile, f PacketFactory, t Transport, metrics *Metrics, log *zap.Logger) *Session {
	id := ulid.Make()
	return &Session{
		ID:        id,
		profile:   p,
		factory:   f,
		transport: t,
		stats:     NewCollector(log, p.Protocol, id.String(), metrics),
		log:       log.With(zap.String("session", id.String())),
	}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Run drives the loop until the duration elapses or ctx is cancelled.
// Exactly one final snapshot is emitted on every exit path, and the
// session-scoped transport resources are released before returning.
func (s *Session) Run(ctx context.Context) (Snapshot, error) {
	if s.state != StateIdle {
		return Snapshot{}, fmt.Errorf("session already ran (state %s)", s.state)
	}
	s.state = StateRunning
	s.log.Info("session started",
		zap.String("protocol", string(s.profile.Protocol)),
		zap.String("mode", s.profile.Mode().String()),
		zap.Int("rate_pps", s.profile.Rate),
		zap.Int("duration_s", s.profile.Duration),
		zap.Int("payload_size", s.profile.PayloadSize),
	)
	defer func() {
		if err := s.transport.Close(); err != nil {
			s.log.Warn("failed to close transport", zap.Error(err))
		}
	}()

	pacer := NewPacer(s.profile.Rate, time.Duration(s.profile.Duration)*time.Second)
	for pacer.Wait(ctx) {
		pkt, err := s.factory.Next()
		if err != nil {
			s.state = StateCancelled
			s.stats.Final()
			return Snapshot{}, fmt.Errorf("failed to build packet: %w", err)
		}

		n, err := s.transport.Send(pkt)
		if err != nil {
			var be *BestEffortError
			if errors.As(err, &be) {
				// Expected against an unresponsive or filtering target;
				// the attempt still counts as offered load.
				s.log.Debug("best-effort send", zap.String("op", be.Op), zap.Error(be.Err))
			} else {
				s.log.Warn("send failed", zap.Error(err))
			}
		}
		s.stats.Record(pkt.Proto, n)
	}

	if ctx.Err() != nil {
		s.state = StateCancelled
	} else {
		s.state = StateCompleted
	}
	snap := s.stats.Final()
	s.log.Info("session finished",
		zap.String("state", s.state.String()),
		zap.Uint64("packets_sent", snap.Packets),
		zap.Uint64("bytes_sent", snap.Bytes),
	)
	return snap, nil
}
