package ws_poll

import (
	"log/slog"
	"net/http"

	infra_redis_pubsub "github.com/gatherhub/polls/core/internal/infra/redis/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan Event
	topic string
}

type Controller struct {
	hub    *Hub
	logger *slog.Logger

	upgrader websocket.Upgrader
}

func NewController(hub *Hub) *Controller {
	return &Controller{
		hub:    hub,
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks belong to the surrounding application's
			// reverse proxy setup.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	ws := router.Group("/ws")
	ws.GET("/polls/:poll_id", c.watchPoll)
	ws.GET("/events/:event_id", c.watchEvent)
}

// watchPoll subscribes a viewer session to one poll's change signals.
func (c *Controller) watchPoll(ctx *gin.Context) {
	pollID, err := uuid.Parse(ctx.Param("poll_id"))
	if err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}
	c.serve(ctx, infra_redis_pubsub.PollChannel(pollID))
}

// watchEvent subscribes a viewer session to every poll of an event.
func (c *Controller) watchEvent(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("event_id"))
	if err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}
	c.serve(ctx, infra_redis_pubsub.EventChannel(eventID))
}

func (c *Controller) serve(ctx *gin.Context, topic string) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &Client{
		hub:   c.hub,
		conn:  conn,
		send:  make(chan Event, 8),
		topic: topic,
	}
	c.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (cl *Client) readPump() {
	defer func() {
		cl.hub.unregister <- cl
		cl.conn.Close()
	}()

	// Viewers never send anything meaningful; reading only detects
	// disconnects.
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (cl *Client) writePump() {
	defer cl.conn.Close()

	for event := range cl.send {
		if err := cl.conn.WriteJSON(event); err != nil {
			break
		}
	}
}
