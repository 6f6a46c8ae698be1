// Package live follows the server push channel of a quiz session: time
// corrections and forced finishes.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	ws "github.com/SijoOrganization/sijo-qcm-front/internal/websocket"
)

// Handler receives decoded live events.
type Handler interface {
	SyncRemaining(seconds int)
	ForceFinish()
}

// Subscriber keeps a WebSocket open to the session stream, redialling with
// backoff until its context ends.
type Subscriber struct {
	url     string
	handler Handler
	dialer  *websocket.Dialer
	log     zerolog.Logger

	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// StreamURL builds the stream address for sessionID under base, which may
// use http(s) or ws(s).
func StreamURL(base, sessionID, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse live url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported live url scheme %q", u.Scheme)
	}
	escaped := u.EscapedPath() + "/ws/candidate/session/" + url.PathEscape(sessionID) + "/stream"
	if u.Path, err = url.PathUnescape(escaped); err != nil {
		return "", fmt.Errorf("build live path: %w", err)
	}
	u.RawPath = escaped
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func NewSubscriber(streamURL string, h Handler, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		url:        streamURL,
		handler:    h,
		dialer:     &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		log:        log.With().Str("component", "live").Logger(),
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// Run blocks until ctx is done. Connection failures are logged and retried;
// the quiz keeps working without the channel.
func (s *Subscriber) Run(ctx context.Context) {
	backoff := s.MinBackoff
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			s.log.Debug().Msg("Live channel stopped")
			return
		}
		if errors.Is(err, errRejected) {
			s.log.Warn().Err(err).Msg("Live channel refused, giving up")
			return
		}
		if errors.Is(err, errSessionOver) {
			s.log.Info().Err(err).Msg("Live channel done")
			return
		}
		s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("Live channel dropped")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.MaxBackoff {
			backoff = s.MaxBackoff
		}
	}
}

var (
	errRejected    = errors.New("stream rejected")
	errSessionOver = errors.New("session over")
)

// session runs one connection until it breaks or ctx ends.
func (s *Subscriber) session(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: %s", errRejected, resp.Status)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	s.log.Info().Msg("Live channel connected")

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		event, raw, err := ws.ReadRaw(conn)
		if err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				s.log.Warn().Err(err).Msg("Ignoring malformed live event")
				continue
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure && closeErr.Text == ws.CloseReasonCompleted {
				return fmt.Errorf("%w: %s", errSessionOver, closeErr.Text)
			}
			return err
		}
		if s.dispatch(event, raw) {
			return fmt.Errorf("%w: %s", errSessionOver, event)
		}
	}
}

// dispatch hands one event to the handler. It returns true when the stream
// has nothing more to say.
func (s *Subscriber) dispatch(event ws.Event, raw []byte) bool {
	switch event {
	case ws.EventTimeSync:
		var ev ws.TimeSyncEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			s.log.Warn().Err(err).Msg("Bad time_sync event")
			return false
		}
		s.handler.SyncRemaining(ev.RemainingSeconds)
	case ws.EventForceFinish:
		var ev ws.ForceFinishEvent
		_ = json.Unmarshal(raw, &ev)
		s.log.Info().Str("reason", ev.Reason).Msg("Server forced finish")
		s.handler.ForceFinish()
		return true
	case ws.EventPong:
	case ws.EventError:
		var ev ws.ErrorResponse
		_ = json.Unmarshal(raw, &ev)
		s.log.Warn().Str("error", ev.Error).Msg("Live channel error")
	default:
		s.log.Debug().Str("event", string(event)).Msg("Unknown live event")
	}
	return false
}
