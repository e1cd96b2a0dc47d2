package imap

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	imap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"golang.org/x/time/rate"

	"github.com/mailpane/mailpane/internal/mail"
	"github.com/mailpane/mailpane/internal/state"
)

// defaultFetchLimit bounds how many of the most recent messages a list
// fetch pulls from the source mailbox.
const defaultFetchLimit = 200

// Option is a functional option for Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit caps server commands at qps operations per second.
// Zero or negative qps disables the limiter.
func WithRateLimit(qps int) Option {
	return func(c *Client) {
		if qps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(qps), qps)
		}
	}
}

// WithFetchLimit bounds how many recent messages ListEmails returns.
func WithFetchLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.fetchLimit = n
		}
	}
}

// Client is the data-fetch collaborator: it lists, fetches, flags and
// trashes messages on an IMAP server and returns them as state.Email
// values. It never touches the store; completions are dispatched by the
// controller.
type Client struct {
	config     *Config
	password   string
	logger     *slog.Logger
	limiter    *rate.Limiter
	fetchLimit int

	mu              sync.Mutex
	conn            *imapclient.Client
	selectedMailbox string
	mailboxCache    []string // cached selectable mailboxes
	trashMailbox    string   // cached trash mailbox name
}

// NewClient creates a new IMAP client. No connection is made until the
// first operation (or an explicit Connect).
func NewClient(cfg *Config, password string, opts ...Option) *Client {
	c := &Client{
		config:     cfg,
		password:   password,
		logger:     slog.Default(),
		fetchLimit: defaultFetchLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes and authenticates the connection. Operations connect
// lazily, so this is only needed to verify credentials up front.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect(ctx)
}

// connect establishes and authenticates the connection. Caller must hold mu.
// The rate limiter is paid per wire operation in withConn, not here, so a
// lazy connect does not charge the first operation twice.
func (c *Client) connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	addr := c.config.Addr()
	c.logger.Debug("connecting to IMAP server", "addr", addr, "tls", c.config.TLS, "starttls", c.config.STARTTLS)

	imapOpts := &imapclient.Options{}
	var (
		conn *imapclient.Client
		err  error
	)
	switch {
	case c.config.TLS:
		conn, err = imapclient.DialTLS(addr, imapOpts)
	case c.config.STARTTLS:
		conn, err = imapclient.DialStartTLS(addr, imapOpts)
	default:
		conn, err = imapclient.DialInsecure(addr, imapOpts)
	}
	if err != nil {
		return fmt.Errorf("dial IMAP %s: %w", addr, err)
	}

	if err := conn.Login(c.config.Username, c.password).Wait(); err != nil {
		_ = conn.Close()
		return fmt.Errorf("IMAP login: %w", err)
	}

	c.conn = conn
	c.selectedMailbox = ""
	c.logger.Debug("connected and authenticated", "user", c.config.Username)
	return nil
}

// wait blocks on the rate limiter, if one is configured.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// withConn runs fn with the active connection, connecting if necessary.
// The mutex is held for the duration of fn, so operations never interleave
// on the wire.
func (c *Client) withConn(ctx context.Context, fn func(*imapclient.Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(ctx); err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	return fn(c.conn)
}

// selectMailbox selects a mailbox if not already selected. Caller must hold mu.
func (c *Client) selectMailbox(mailbox string) error {
	if c.selectedMailbox == mailbox {
		return nil
	}
	if _, err := c.conn.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("SELECT %q: %w", mailbox, err)
	}
	c.selectedMailbox = mailbox
	return nil
}

// findTrashMailbox returns the server's trash mailbox, caching the LIST
// result. Caller must hold mu.
func (c *Client) findTrashMailbox() (string, error) {
	if c.trashMailbox != "" {
		return c.trashMailbox, nil
	}

	if c.mailboxCache == nil {
		items, err := c.conn.List("", "*", nil).Collect()
		if err != nil {
			return "", fmt.Errorf("LIST: %w", err)
		}
		for _, item := range items {
			if hasAttr(item.Attrs, imap.MailboxAttrNoSelect) {
				continue
			}
			c.mailboxCache = append(c.mailboxCache, item.Mailbox)
			if c.trashMailbox == "" && hasAttr(item.Attrs, imap.MailboxAttrTrash) {
				c.trashMailbox = item.Mailbox
			}
		}
	}

	// Fallback: common trash folder names.
	if c.trashMailbox == "" {
		for _, candidate := range []string{"Trash", "[Gmail]/Trash", "Deleted Items", "Deleted Messages"} {
			for _, mb := range c.mailboxCache {
				if strings.EqualFold(mb, candidate) {
					c.trashMailbox = mb
					break
				}
			}
			if c.trashMailbox != "" {
				break
			}
		}
	}
	if c.trashMailbox == "" {
		c.trashMailbox = "Trash"
	}
	return c.trashMailbox, nil
}

// hasAttr checks whether attr is in the attrs list.
func hasAttr(attrs []imap.MailboxAttr, attr imap.MailboxAttr) bool {
	for _, a := range attrs {
		if a == attr {
			return true
		}
	}
	return false
}

// CompositeID builds an email identifier as "mailbox|uid". These are the
// IDs carried in state.Email and guaranteed unique within one list fetch.
func CompositeID(mailbox string, uid imap.UID) string {
	return mailbox + "|" + strconv.FormatUint(uint64(uid), 10)
}

// ParseCompositeID splits a composite email ID into mailbox and UID.
func ParseCompositeID(id string) (mailbox string, uid imap.UID, err error) {
	idx := strings.LastIndexByte(id, '|')
	if idx < 0 {
		return "", 0, fmt.Errorf("invalid email ID %q (expected mailbox|uid)", id)
	}
	n, parseErr := strconv.ParseUint(id[idx+1:], 10, 32)
	if parseErr != nil {
		return "", 0, fmt.Errorf("invalid UID in email ID %q: %w", id, parseErr)
	}
	return id[:idx], imap.UID(n), nil
}

// MessageCount returns the number of messages in the source mailbox.
func (c *Client) MessageCount(ctx context.Context) (int64, error) {
	var count int64
	err := c.withConn(ctx, func(conn *imapclient.Client) error {
		statusData, err := conn.Status(c.config.SourceMailbox(), &imap.StatusOptions{NumMessages: true}).Wait()
		if err != nil {
			return fmt.Errorf("STATUS %s: %w", c.config.SourceMailbox(), err)
		}
		if statusData.NumMessages != nil {
			count = int64(*statusData.NumMessages)
		}
		return nil
	})
	return count, err
}

// fetchOpts requests everything needed to build a state.Email.
var fetchOpts = &imap.FetchOptions{
	UID:          true,
	Flags:        true,
	InternalDate: true,
	RFC822Size:   true,
	BodySection:  []*imap.FetchItemBodySection{{}}, // empty section = entire message
}

// ListEmails fetches the most recent messages from the source mailbox,
// newest first. Individual messages that fail to fetch or parse are logged
// and skipped rather than failing the whole list.
func (c *Client) ListEmails(ctx context.Context) ([]state.Email, error) {
	mailbox := c.config.SourceMailbox()
	var emails []state.Email

	err := c.withConn(ctx, func(conn *imapclient.Client) error {
		if err := c.selectMailbox(mailbox); err != nil {
			return err
		}

		searchData, err := conn.UIDSearch(&imap.SearchCriteria{}, &imap.SearchOptions{ReturnAll: true}).Wait()
		if err != nil {
			return fmt.Errorf("UID SEARCH: %w", err)
		}
		uidSet, ok := searchData.All.(imap.UIDSet)
		if !ok {
			return nil
		}
		uids, _ := uidSet.Nums()
		if len(uids) == 0 {
			return nil
		}

		// Higher UIDs are newer; fetch only the most recent window.
		sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
		if len(uids) > c.fetchLimit {
			uids = uids[len(uids)-c.fetchLimit:]
		}

		var fetchSet imap.UIDSet
		for _, uid := range uids {
			fetchSet.AddNum(uid)
		}

		msgs, err := conn.Fetch(fetchSet, fetchOpts).Collect()
		if err != nil {
			return fmt.Errorf("UID FETCH: %w", err)
		}

		emails = make([]state.Email, 0, len(msgs))
		for _, buf := range msgs {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e, err := c.emailFromFetch(mailbox, buf)
			if err != nil {
				c.logger.Warn("skipping unparseable message", "mailbox", mailbox, "uid", buf.UID, "error", err)
				continue
			}
			emails = append(emails, e)
		}

		// Newest first for display.
		sort.Slice(emails, func(i, j int) bool { return emails[i].Date.After(emails[j].Date) })
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("listed emails", "mailbox", mailbox, "count", len(emails))
	return emails, nil
}

// GetEmail fetches one message by composite ID, with its full body.
func (c *Client) GetEmail(ctx context.Context, id string) (state.Email, error) {
	mailbox, uid, err := ParseCompositeID(id)
	if err != nil {
		return state.Email{}, err
	}

	var email state.Email
	err = c.withConn(ctx, func(conn *imapclient.Client) error {
		if err := c.selectMailbox(mailbox); err != nil {
			return err
		}

		var uidSet imap.UIDSet
		uidSet.AddNum(uid)
		msgs, err := conn.Fetch(uidSet, fetchOpts).Collect()
		if err != nil {
			return fmt.Errorf("UID FETCH %d: %w", uid, err)
		}
		if len(msgs) == 0 {
			return fmt.Errorf("email %s not found", id)
		}

		email, err = c.emailFromFetch(mailbox, msgs[0])
		return err
	})
	if err != nil {
		return state.Email{}, err
	}
	return email, nil
}

// emailFromFetch converts one fetched message buffer into a state.Email.
func (c *Client) emailFromFetch(mailbox string, buf *imapclient.FetchMessageBuffer) (state.Email, error) {
	var raw []byte
	if len(buf.BodySection) > 0 {
		raw = buf.BodySection[0].Bytes
	}
	if len(raw) == 0 {
		return state.Email{}, fmt.Errorf("empty body section for UID %d", buf.UID)
	}

	msg, err := mail.Parse(raw)
	if err != nil {
		return state.Email{}, fmt.Errorf("parse message: %w", err)
	}

	seen := false
	for _, f := range buf.Flags {
		if f == imap.FlagSeen {
			seen = true
			break
		}
	}

	return msg.ToEmail(CompositeID(mailbox, buf.UID), mailbox, buf.InternalDate, buf.RFC822Size, seen), nil
}

// TrashEmail moves a message to the server's trash mailbox.
func (c *Client) TrashEmail(ctx context.Context, id string) error {
	mailbox, uid, err := ParseCompositeID(id)
	if err != nil {
		return err
	}
	return c.withConn(ctx, func(conn *imapclient.Client) error {
		if err := c.selectMailbox(mailbox); err != nil {
			return err
		}
		trash, err := c.findTrashMailbox()
		if err != nil {
			return err
		}
		var uidSet imap.UIDSet
		uidSet.AddNum(uid)
		if _, err := conn.Move(uidSet, trash).Wait(); err != nil {
			return fmt.Errorf("MOVE to %q: %w", trash, err)
		}
		return nil
	})
}

// MarkRead adds the \Seen flag to a message.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	mailbox, uid, err := ParseCompositeID(id)
	if err != nil {
		return err
	}
	return c.withConn(ctx, func(conn *imapclient.Client) error {
		if err := c.selectMailbox(mailbox); err != nil {
			return err
		}
		var uidSet imap.UIDSet
		uidSet.AddNum(uid)
		if err := conn.Store(uidSet, &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{imap.FlagSeen},
		}, nil).Close(); err != nil {
			return fmt.Errorf("UID STORE \\Seen: %w", err)
		}
		return nil
	})
}

// Close logs out and disconnects.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil
	c.selectedMailbox = ""
	return conn.Logout().Wait()
}
