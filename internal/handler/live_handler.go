package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/SijoOrganization/sijo-qcm-front/internal/middleware"
	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
	"github.com/SijoOrganization/sijo-qcm-front/internal/response"
	"github.com/SijoOrganization/sijo-qcm-front/internal/service"
	ws "github.com/SijoOrganization/sijo-qcm-front/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// LiveHandler streams server time corrections to a session's client.
type LiveHandler struct {
	sessions *service.QuizSessionService
	interval time.Duration
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewLiveHandler(sessions *service.QuizSessionService, interval time.Duration, log zerolog.Logger, allowedOrigins []string) *LiveHandler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &LiveHandler{
		sessions: sessions,
		interval: interval,
		log:      log.With().Str("component", "live_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/candidate/session/:id/stream
// Pushes time_sync every interval and force_finish once the session expires.
func (h *LiveHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID := c.Param("id")

	// Refuse before upgrading so the client sees a plain HTTP status.
	if _, _, err := h.sessions.Remaining(claims.CandidateID, sessionID); err != nil {
		failSession(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("candidate_id", claims.CandidateID).
		Str("session_id", sessionID).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	// gorilla allows a single writer, so the read loop only signals pings.
	pings := make(chan struct{}, 1)
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			var req ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			if req.Action != ws.ActionPing {
				wsLog.Warn().Str("action", string(req.Action)).Msg("Unknown action")
				continue
			}
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if !h.push(conn, wsLog, claims.CandidateID, sessionID) {
		return
	}
	for {
		select {
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case <-ticker.C:
			if !h.push(conn, wsLog, claims.CandidateID, sessionID) {
				return
			}
		}
	}
}

// push sends the current remaining time. It returns false once the stream
// has nothing more to say.
func (h *LiveHandler) push(conn *websocket.Conn, log zerolog.Logger, candidateID, sessionID string) bool {
	remaining, status, err := h.sessions.Remaining(candidateID, sessionID)
	if err != nil {
		ws.WriteError(conn, "session unavailable")
		return false
	}

	switch status {
	case model.SessionStatusExpired:
		log.Info().Msg("Forcing finish")
		ws.WriteTyped(conn, ws.ForceFinishEvent{Event: ws.EventForceFinish, Reason: string(status)})
		return false
	case model.SessionStatusCompleted:
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ws.CloseReasonCompleted), time.Now().Add(time.Second))
		return false
	}

	if err := ws.WriteTyped(conn, ws.TimeSyncEvent{Event: ws.EventTimeSync, RemainingSeconds: remaining}); err != nil {
		log.Debug().Err(err).Msg("time_sync write failed")
		return false
	}
	return true
}
