package speech

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	chathandler "github.com/zhouzirui/telesales-sim/backend/internal/handler/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/service/evaluation"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
	maxFrameSize = 1 << 20

	// 单连接同时处理的请求帧上限
	maxInflight = 4
)

// WebSocketHandler 在一条连接上承载多轮对话与评估，历史仍由客户端提供
type WebSocketHandler struct {
	deps     chathandler.Deps
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(deps chathandler.Deps) *WebSocketHandler {
	return &WebSocketHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Message string          `json:"message,omitempty"`
	Level   string          `json:"lvl,omitempty"`
	History chat.Transcript `json:"history,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	ID        string      `json:"id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn 串行化写操作，gorilla 的连接只允许一个并发写者
type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msgType, id string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteJSON(outgoingMessage{
		Type:      msgType,
		ID:        id,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		slog.Warn("websocket write failed", slog.String("conn", c.id), slog.Any("error", err))
	}
}

func (c *wsConn) sendError(id, message string) {
	c.send("error", id, map[string]string{"error": message})
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.deps.Replier == nil {
		http.Error(w, "ai service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	c := &wsConn{id: uuid.NewString(), conn: conn}
	logger := slog.With(slog.String("conn", c.id))
	logger.Info("websocket connected")
	defer logger.Info("websocket closed")

	// 先取消再等待仍在处理的帧
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	inflight := make(chan struct{}, maxInflight)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go pingLoop(ctx, conn)

	c.send("connected", "", map[string]string{"connectionId": c.id})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", slog.Any("error", err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("", "invalid frame")
			continue
		}
		if msg.Type == "ping" {
			h.handleMessage(ctx, c, &msg)
			continue
		}

		// 生成和合成可能超过 pongWait，放到后台处理，读循环继续响应 pong
		select {
		case inflight <- struct{}{}:
		default:
			c.sendError(msg.ID, "too many requests in flight")
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-inflight }()
			h.handleMessage(ctx, c, &msg)
		}()
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, c *wsConn, msg *inboundMessage) {
	switch msg.Type {
	case "chat":
		h.handleChat(ctx, c, msg)
	case "evaluate":
		h.handleEvaluate(ctx, c, msg)
	case "ping":
		c.send("pong", msg.ID, nil)
	default:
		c.sendError(msg.ID, "unknown message type")
	}
}

func (h *WebSocketHandler) handleChat(ctx context.Context, c *wsConn, msg *inboundMessage) {
	message := strings.TrimSpace(msg.Message)
	if message == "" {
		c.sendError(msg.ID, "message is required")
		return
	}

	p, err := h.deps.ResolvePersona(msg.Level)
	if err != nil {
		c.sendError(msg.ID, "unknown lvl")
		return
	}

	reply, err := h.deps.Replier.Reply(ctx, p, msg.History, message)
	if err != nil {
		slog.ErrorContext(ctx, "websocket chat failed", slog.String("conn", c.id), slog.Any("error", err))
		c.send("error", msg.ID, chat.ChatResponse{Reply: chathandler.Apology(p), Error: "generation failed"})
		return
	}

	c.send("reply", msg.ID, chat.ChatResponse{
		Reply: reply,
		Audio: h.deps.Speak(ctx, reply, p),
	})
}

func (h *WebSocketHandler) handleEvaluate(ctx context.Context, c *wsConn, msg *inboundMessage) {
	if h.deps.Evaluator == nil {
		c.sendError(msg.ID, "ai service unavailable")
		return
	}

	p, _ := h.deps.ResolvePersona(msg.Level)
	if strings.TrimSpace(msg.Level) == "" {
		p = nil
	}

	result, err := h.deps.Evaluator.Evaluate(ctx, p, msg.History)
	if err != nil {
		if errors.Is(err, evaluation.ErrEmptyTranscript) {
			c.sendError(msg.ID, "history is required")
			return
		}
		slog.ErrorContext(ctx, "websocket evaluate failed", slog.String("conn", c.id), slog.Any("error", err))
		c.sendError(msg.ID, "evaluation failed")
		return
	}

	c.send("evaluation", msg.ID, chat.EvaluateResponse{
		Evaluation: result.Text,
		IsClosed:   result.IsClosed,
		Scores:     result.Scores,
	})
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
