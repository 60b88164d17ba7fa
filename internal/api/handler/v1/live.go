package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/regaloya/regaloya-api/internal/api/handler/v1/response"
	"github.com/regaloya/regaloya-api/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 16
	broadcastSize  = 64
)

type ProjectViewer interface {
	CanView(ctx context.Context, id uint, user domain.User) error
}

type liveClient struct {
	conn      *websocket.Conn
	send      chan []byte
	projectID uint
	userID    uint
}

type liveMessage struct {
	projectID uint
	payload   []byte
}

// LiveHandler streams committed contributions of a project to websocket
// subscribers. Run owns the subscriber map; everything else talks to it
// through channels.
type LiveHandler struct {
	svc      ProjectViewer
	uSvc     UserService
	upgrader websocket.Upgrader

	clients    map[uint]map[*liveClient]struct{}
	broadcast  chan liveMessage
	register   chan *liveClient
	unregister chan *liveClient
	done       chan struct{}
}

func NewLiveHandler(svc ProjectViewer, uSvc UserService, allowedOrigins []string) *LiveHandler {
	return &LiveHandler{
		svc:  svc,
		uSvc: uSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		clients:    make(map[uint]map[*liveClient]struct{}),
		broadcast:  make(chan liveMessage, broadcastSize),
		register:   make(chan *liveClient),
		unregister: make(chan *liveClient),
		done:       make(chan struct{}),
	}
}

// Run dispatches messages until ctx is cancelled, then disconnects every
// subscriber.
func (h *LiveHandler) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, subscribers := range h.clients {
				for client := range subscribers {
					close(client.send)
				}
			}
			h.clients = make(map[uint]map[*liveClient]struct{})
			return
		case client := <-h.register:
			subscribers, ok := h.clients[client.projectID]
			if !ok {
				subscribers = make(map[*liveClient]struct{})
				h.clients[client.projectID] = subscribers
			}
			subscribers[client] = struct{}{}
			client.send <- mustMarshal(response.LiveEvent{
				Type:      response.LiveEventSubscribed,
				ProjectID: client.projectID,
			})
		case client := <-h.unregister:
			h.remove(client)
		case message := <-h.broadcast:
			for client := range h.clients[message.projectID] {
				select {
				case client.send <- message.payload:
				default:
					zap.L().Warn("dropping slow live feed subscriber",
						zap.Uint("project_id", client.projectID),
						zap.Uint("user_id", client.userID),
					)
					h.remove(client)
				}
			}
		}
	}
}

// PublishContribution queues a contribution for the project's subscribers.
// It never blocks the caller; when the queue is full the event is dropped.
func (h *LiveHandler) PublishContribution(project domain.Project, contribution domain.Contribution) {
	current := project.CurrentAmount
	payload := mustMarshal(response.LiveEvent{
		Type:          response.LiveEventContribution,
		ProjectID:     project.ID,
		CurrentAmount: &current,
		Contribution:  &contribution,
	})

	select {
	case h.broadcast <- liveMessage{projectID: project.ID, payload: payload}:
	default:
		zap.L().Warn("live feed queue is full, dropping event", zap.Uint("project_id", project.ID))
	}
}

// HandleLive godoc
// @Summary      Live contribution feed
// @Description  Upgrades to a websocket that receives every new contribution of the project as JSON.
// @Tags         projects
// @Param        projectID  path  int  true  "Project ID"
// @Success      101  {string}  string  "Switching Protocols"
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /projects/{projectID}/live [get]
// @Security     SessionCookie
func (h *LiveHandler) HandleLive(ctx *gin.Context) {
	projectID, respErr := parseProjectID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.CanView(ctx.Request.Context(), projectID, user); err != nil {
		response.RenderErr(ctx, projectErr(err, projectID, "v1.HandleLive -> h.svc.CanView"))
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// The upgrader has already written the error response.
		zap.L().Debug("websocket upgrade failed", zap.Uint("project_id", projectID), zap.Error(err))
		return
	}

	client := &liveClient{
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		projectID: projectID,
		userID:    user.ID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

func (h *LiveHandler) remove(client *liveClient) {
	subscribers, ok := h.clients[client.projectID]
	if !ok {
		return
	}
	if _, ok = subscribers[client]; !ok {
		return
	}

	delete(subscribers, client)
	close(client.send)
	if len(subscribers) == 0 {
		delete(h.clients, client.projectID)
	}
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only serves control frames; subscribers have nothing to say.
func (c *liveClient) readPump(h *LiveHandler) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("live feed connection closed", zap.Uint("project_id", c.projectID), zap.Error(err))
			}
			return
		}
	}
}

// originChecker accepts requests without an Origin header and those from an
// allowed origin. "*" allows every origin.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed["*"]; ok {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

func mustMarshal(event response.LiveEvent) []byte {
	payload, err := json.Marshal(event)
	if err != nil {
		panic(err)
	}

	return payload
}
