package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"jangteo-auction-engine/internal/config"
	"jangteo-auction-engine/internal/ports/outbound"

	"github.com/alitto/pond"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Server is a read-only websocket fan-out of engine events, the local
// stand-in for the notification collaborator. Clients connect to /feed
// (optionally ?auction_id=N) and receive the JSON event envelopes published
// to Redis. No commands are accepted over the socket; bidding and admin
// transitions have their own surfaces.
type Server struct {
	httpServer *http.Server
	redis      *redis.Client
	upgrader   websocket.Upgrader
	pool       *pond.WorkerPool
	clients    map[*client]bool
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	logger     zerolog.Logger
}

type ServerParams struct {
	Config      *config.Config
	RedisClient *redis.Client
	// API is mounted under /api/ when set
	API    http.Handler
	Logger zerolog.Logger
}

type client struct {
	conn      *websocket.Conn
	auctionID int64 // 0 means the full firehose
	send      chan []byte
}

// NewServer creates a new event feed server
func NewServer(params ServerParams) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		redis: params.RedisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pool:    pond.New(config.FeedWorkers, config.FeedCapacity, pond.Context(ctx), pond.Strategy(pond.Balanced())),
		clients: make(map[*client]bool),
		ctx:     ctx,
		cancel:  cancel,
		logger:  params.Logger.With().Str("component", "event_feed").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/feed", server.handleFeed)
	mux.HandleFunc("/health", handleHealth)
	if params.API != nil {
		mux.Handle("/api/", params.API)
	}

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", params.Config.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Minute,
	}

	return server
}

// Start subscribes to the event channel and serves websocket clients
func (s *Server) Start() error {
	go s.relay()

	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting event feed server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start event feed server: %w", err)
	}
	return nil
}

// Stop gracefully stops the feed server
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	s.pool.StopAndWait()

	s.mu.Lock()
	for c := range s.clients {
		close(c.send)
		c.conn.Close()
		delete(s.clients, c)
	}
	s.mu.Unlock()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown event feed server: %w", err)
	}
	s.logger.Info().Msg("Event feed server stopped")
	return nil
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	var auctionID int64
	if raw := r.URL.Query().Get("auction_id"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &auctionID); err != nil {
			http.Error(w, "invalid auction_id", http.StatusBadRequest)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	c := &client{conn: conn, auctionID: auctionID, send: make(chan []byte, 64)}

	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()

	s.logger.Info().Int64("auction_id", auctionID).Msg("Feed client connected")

	go s.writeLoop(c)
	go s.readLoop(c)
}

// relay forwards every published engine event to matching clients
func (s *Server) relay() {
	pubsub := s.redis.Subscribe(s.ctx, outbound.EventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Error().Err(err).Msg("Failed to unmarshal event payload")
				continue
			}
			payload := []byte(msg.Payload)
			s.pool.Submit(func() {
				s.broadcast(event, payload)
			})
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) broadcast(event outbound.Event, payload []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		if c.auctionID != 0 && c.auctionID != event.AuctionID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			s.logger.Warn().Int64("auction_id", c.auctionID).Msg("Feed client buffer full, dropping event")
		}
	}
}

// writeLoop is the sole writer for its connection
func (s *Server) writeLoop(c *client) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Debug().Err(err).Msg("Feed write failed")
			s.drop(c)
			return
		}
	}
}

// readLoop only exists to notice the client going away
func (s *Server) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			s.drop(c)
			return
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
		c.conn.Close()
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok", "service": "auction-engine-feed"}`))
}
