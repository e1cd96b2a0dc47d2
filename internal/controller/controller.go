// Package controller sequences fetches against the mail service and
// dispatches their outcomes into the state store. It owns the
// loading-flag contract: a flag set before a fetch is cleared exactly
// once when that fetch completes, and a completion belonging to a
// superseded operation dispatches nothing at all.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mailpane/mailpane/internal/state"
)

// Service is the data-fetch collaborator. Implementations perform the
// network I/O; the controller translates outcomes into store dispatches.
// Retries, if any, are the service's responsibility.
type Service interface {
	Connect(ctx context.Context) error
	ListEmails(ctx context.Context) ([]state.Email, error)
	GetEmail(ctx context.Context, id string) (state.Email, error)
	TrashEmail(ctx context.Context, id string) error
	MarkRead(ctx context.Context, id string) error
	Close() error
}

// Option is a functional option for Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// Controller layers the loading/selection contract over a store. Each
// operation class (list, detail) carries a generation token; starting a
// newer operation, signing out, or closing the controller invalidates
// older tokens, and a completion holding a stale token is dropped before
// it can dispatch into the store. This is the guard against delayed
// completions landing in state that has moved on.
type Controller struct {
	store  *state.Store
	svc    Service
	logger *slog.Logger

	// flight collapses concurrent list fetches (for example a manual
	// refresh racing a scheduled one) into a single IMAP round trip.
	flight singleflight.Group

	mu          sync.Mutex
	listToken   uint64
	detailToken uint64
	closed      bool
}

// New creates a controller over the given store and service.
func New(store *state.Store, svc Service, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		svc:    svc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nextListToken invalidates any in-flight list fetch and returns the
// token for a new one.
func (c *Controller) nextListToken() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listToken++
	return c.listToken
}

// nextDetailToken invalidates any in-flight detail fetch and returns the
// token for a new one.
func (c *Controller) nextDetailToken() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detailToken++
	return c.detailToken
}

func (c *Controller) listTokenValid(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && token == c.listToken
}

func (c *Controller) detailTokenValid(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && token == c.detailToken
}

// invalidate cancels all outstanding operation tokens.
func (c *Controller) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listToken++
	c.detailToken++
}

// dispatch applies an action, surfacing dispatch failures loudly. The
// actions the controller dispatches are all recognized, so a failure here
// is a programming error, not a condition to recover from.
func (c *Controller) dispatch(a state.Action) {
	if err := c.store.Dispatch(a); err != nil {
		c.logger.Error("store dispatch failed", "action", a.Name(), "error", err)
	}
}

// SignIn connects and authenticates, then records the session presence.
func (c *Controller) SignIn(ctx context.Context) error {
	if err := c.svc.Connect(ctx); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	c.dispatch(state.SetLoggedIn{LoggedIn: true})
	return nil
}

// SignOut invalidates in-flight operations, disconnects, and dispatches
// SetLoggedOut. It deliberately does not clear the email list or the
// selection; a caller wanting a wipe dispatches ClearEmails and
// SetSelectedEmail{nil} itself.
func (c *Controller) SignOut() error {
	c.invalidate()
	err := c.svc.Close()
	c.dispatch(state.SetLoggedOut{})
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// LoadInbox fetches the email list. The list-loading flag is set before
// the fetch and cleared exactly once on completion, success or failure;
// SetEmails is dispatched only on success. Concurrent calls share one
// fetch.
func (c *Controller) LoadInbox(ctx context.Context) error {
	_, err, shared := c.flight.Do("inbox", func() (interface{}, error) {
		token := c.nextListToken()
		c.dispatch(state.SetLoadingEmails{Loading: true})

		emails, err := c.svc.ListEmails(ctx)

		if !c.listTokenValid(token) {
			// A newer list operation (or sign-out) owns the loading flag
			// now; this completion must not touch the store at all.
			c.logger.Debug("dropping stale list completion", "token", token)
			return nil, nil
		}

		c.dispatch(state.SetLoadingEmails{Loading: false})
		if err != nil {
			return nil, fmt.Errorf("load inbox: %w", err)
		}
		c.dispatch(state.SetEmails{Emails: emails})
		return nil, nil
	})
	if shared {
		c.logger.Debug("inbox load shared with concurrent caller")
	}
	return err
}

// OpenEmail fetches one email's full detail and selects it. The
// detail-loading flag follows the same set-then-clear-once contract as
// LoadInbox; a completion superseded by a newer OpenEmail dispatches
// nothing.
func (c *Controller) OpenEmail(ctx context.Context, id string) error {
	token := c.nextDetailToken()
	c.dispatch(state.SetLoadingEmail{Loading: true})

	email, err := c.svc.GetEmail(ctx, id)

	if !c.detailTokenValid(token) {
		c.logger.Debug("dropping stale detail completion", "id", id, "token", token)
		return nil
	}

	c.dispatch(state.SetLoadingEmail{Loading: false})
	if err != nil {
		return fmt.Errorf("open email %s: %w", id, err)
	}
	c.dispatch(state.SetSelectedEmail{Email: &email})
	return nil
}

// CloseEmail clears the selection. Purely local, no network.
func (c *Controller) CloseEmail() {
	c.dispatch(state.SetSelectedEmail{Email: nil})
}

// DeleteEmail trashes the email on the server, then removes it from the
// list. The optimistic removal happens only after the server confirms; a
// failure leaves the list untouched. The selection is never cleared here,
// even when the deleted email is the selected one.
func (c *Controller) DeleteEmail(ctx context.Context, id string) error {
	if err := c.svc.TrashEmail(ctx, id); err != nil {
		return fmt.Errorf("delete email %s: %w", id, err)
	}
	c.dispatch(state.RemoveEmail{ID: id})
	return nil
}

// MarkRead sets the \Seen flag on the server, then merges it into the
// list entry. A missing entry is a silent no-op at the store level.
func (c *Controller) MarkRead(ctx context.Context, id string) error {
	if err := c.svc.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("mark read %s: %w", id, err)
	}
	seen := true
	c.dispatch(state.UpdateEmail{ID: id, Patch: state.EmailPatch{Seen: &seen}})
	return nil
}

// Close invalidates all tokens and disconnects the service. Completions
// arriving after Close dispatch nothing.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	c.listToken++
	c.detailToken++
	c.mu.Unlock()
	return c.svc.Close()
}
