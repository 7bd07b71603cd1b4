package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mcstatusbot/internal/mcserver"
	"mcstatusbot/internal/storage"
	logx "mcstatusbot/pkg/logx"
)

// AddressStore persists the server address. *config.ConfigManager implements it.
type AddressStore interface {
	SetServerAddress(addr string) error
}

// Actor identifies who triggered a command, for the audit trail.
type Actor struct {
	ID       int64
	Username string
	ChatID   int64
}

// PlayerList is the reply to a players command.
type PlayerList struct {
	Address string
	Names   []string
}

// Service exposes the on-demand operations of the monitor to commands and
// chat events. It reuses the same pipeline as the scheduler.
type Service struct {
	mon       *Monitor
	addresses AddressStore
	joins     *JoinTracker
	audit     storage.Store
	log       logx.Logger
}

func NewService(mon *Monitor, addresses AddressStore, joins *JoinTracker, audit storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{mon: mon, addresses: addresses, joins: joins, audit: audit, log: log}
}

// Address returns the current server address.
func (s *Service) Address() string { return s.mon.Target().Address() }

// Players queries the player list. Failures are *UnreachableError.
func (s *Service) Players(ctx context.Context) (PlayerList, error) {
	addr, ep, _ := s.mon.Target().Current()
	names, err := s.mon.Fetcher().Query(ctx, ep)
	if err != nil {
		return PlayerList{Address: addr}, err
	}
	return PlayerList{Address: addr, Names: names}, nil
}

// Refresh runs a forced update.
func (s *Service) Refresh(ctx context.Context) (Outcome, error) {
	out, err := s.mon.Update(ctx, true)
	if errors.Is(err, ErrStale) {
		// the address changed mid-flight; run again against the new one
		return s.mon.Update(ctx, true)
	}
	return out, err
}

// SetAddress resolves address and, only if it resolves and can be saved,
// swaps the target, then runs a forced update. On any error before the swap
// the current address and endpoint are left untouched.
func (s *Service) SetAddress(ctx context.Context, actor Actor, address string) (Outcome, error) {
	start := time.Now()
	address = strings.TrimSpace(address)

	out, err := s.setAddress(ctx, address)
	s.appendAudit(ctx, storage.AuditEntry{
		At:            start,
		ActorID:       actor.ID,
		ActorUsername: actor.Username,
		ChatID:        actor.ChatID,
		Action:        "server.set",
		Target:        address,
		OK:            err == nil,
		Error:         errString(err),
		TookMS:        time.Since(start).Milliseconds(),
	})
	return out, err
}

func (s *Service) setAddress(ctx context.Context, address string) (Outcome, error) {
	ep, err := s.mon.Fetcher().Resolve(ctx, address)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		if errors.Is(err, mcserver.ErrAddressNotFound) {
			return Outcome{}, err
		}
		return Outcome{}, fmt.Errorf("%w: %q: %v", mcserver.ErrAddressNotFound, address, err)
	}
	if s.addresses != nil {
		if err := s.addresses.SetServerAddress(address); err != nil {
			return Outcome{}, fmt.Errorf("save server address: %w", err)
		}
	}

	old := s.mon.Target().Address()
	s.mon.Target().Set(address, ep)
	s.log.Info("server address changed", logx.String("from", old), logx.String("to", address), logx.String("endpoint", ep.String()))

	out, err := s.mon.Update(ctx, true)
	if err != nil {
		return out, fmt.Errorf("address saved, presence update failed: %w", err)
	}
	return out, nil
}

// Joined handles the bot being added to a group. Only the first group the
// bot ever joins triggers an immediate unforced update.
func (s *Service) Joined(ctx context.Context, chatID int64, title string) {
	if s.joins == nil {
		return
	}
	first, err := s.joins.Join(ctx, chatID, title)
	if err != nil {
		s.log.Warn("group not persisted", logx.Int64("chat_id", chatID), logx.Err(err))
	}
	s.log.Info("joined group", logx.Int64("chat_id", chatID), logx.String("title", title), logx.Bool("first", first))
	if !first {
		return
	}
	if _, err := s.mon.Update(ctx, false); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("first-join update failed", logx.Err(err))
	}
}

// SeenGroup notes a group the bot received a message in, so that joining
// another group later is not mistaken for the first one.
func (s *Service) SeenGroup(ctx context.Context, chatID int64) {
	if s.joins != nil {
		s.joins.Seen(ctx, chatID)
	}
}

func (s *Service) appendAudit(ctx context.Context, e storage.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AppendAudit(context.WithoutCancel(ctx), e); err != nil {
		s.log.Debug("audit append failed", logx.Err(err))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
