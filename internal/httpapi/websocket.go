package httpapi

import (
	"net/http"
	"path/filepath"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dshills/contextrank/internal/engine"
	"github.com/dshills/contextrank/pkg/types"
)

// Stream message types
const (
	MessageProgress   = "progress"
	MessageAnalysis   = "analysis"
	MessageEmbeddings = "embeddings"
	MessageError      = "error"
)

// StreamMessage is one JSON frame sent on /ws/analyze
type StreamMessage struct {
	Type       string                 `json:"type"`
	Progress   *types.Progress        `json:"progress,omitempty"`
	Analysis   *engine.Analysis       `json:"analysis,omitempty"`
	Embeddings *engine.EmbeddingStats `json:"embeddings,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origins := s.cfg.AllowedOrigins
			if len(origins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range origins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// wsWriter serialises frames; progress arrives from worker goroutines
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
	err  error
}

func (w *wsWriter) send(msg StreamMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	w.err = w.conn.WriteJSON(msg)
}

// handleAnalyzeStream analyzes the project given by ?path= and streams
// progress frames, then the analysis. With ?embed=true embeddings are
// generated afterwards and streamed the same way. The socket is closed
// when the work is done.
func (s *Server) handleAnalyzeStream(c *gin.Context) {
	root, files, err := s.load(c.Query("path"))
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	w := &wsWriter{conn: conn}
	progress := engine.ProgressFunc(func(p types.Progress) {
		w.send(StreamMessage{Type: MessageProgress, Progress: &p})
	})

	ctx := c.Request.Context()
	eng := s.sessions.Get(root)

	analysis, err := eng.AnalyzeProject(ctx, filepath.Base(root), files, progress)
	if err != nil {
		w.send(StreamMessage{Type: MessageError, Error: err.Error()})
		return
	}
	w.send(StreamMessage{Type: MessageAnalysis, Analysis: analysis})

	if c.Query("embed") == "true" {
		stats, err := eng.GenerateEmbeddings(ctx, files, progress)
		if err != nil {
			w.send(StreamMessage{Type: MessageError, Error: err.Error()})
			return
		}
		w.send(StreamMessage{Type: MessageEmbeddings, Embeddings: stats})
	}

	w.mu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	w.mu.Unlock()
}
