package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sqlutil/internal/config"
	"sqlutil/internal/connstore"
	"sqlutil/internal/logging"
	"sqlutil/internal/renderer"
	"sqlutil/internal/storage"
	"sqlutil/internal/transfer"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// pushInterval WebSocket 推送任务状态的间隔
const pushInterval = 500 * time.Millisecond

// Server HTTP 接口
type Server struct {
	svc   *transfer.Service
	tasks *TaskManager
	log   zerolog.Logger
}

// NewServer 创建服务
func NewServer(ctx context.Context, svc *transfer.Service) *Server {
	return &Server{svc: svc, tasks: NewTaskManager(ctx, svc), log: svc.Log}
}

// Routes 注册路由
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/test-connection", s.handleTestConnection)
	mux.HandleFunc("/api/order", s.handleOrder)
	mux.HandleFunc("/api/tasks", s.handleSubmit)
	mux.HandleFunc("/api/task/", s.handleTaskStatus)
	mux.HandleFunc("/api/ws", s.handleWebSocket)
	return mux
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v, err := config.New(nil, os.Getenv("SQLUTIL_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	store, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load connections")
	}
	defer closeStore()

	svc, err := newService(cfg, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	srv := NewServer(ctx, svc)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	httpServer := &http.Server{Addr: ":" + port, Handler: srv.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", "http://localhost:"+port).Msg("sqlutil server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	srv.tasks.Wait()
}

// newService 按配置创建传输服务
func newService(cfg *config.Config, store *connstore.Store, log zerolog.Logger) (*transfer.Service, error) {
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}
	svc := transfer.NewService(store, storage.New(cfg.CompressLevel), log)
	svc.DefaultType = cfg.Type
	svc.Schema = cfg.Schema
	svc.Delimiter = delim
	return svc, nil
}

// dbRequest 只需要一个连接的请求
type dbRequest struct {
	DB     string `json:"db"`
	Format string `json:"format"` // order: json/text/markdown/mermaid
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// handleTestConnection 测试数据库连接
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req dbRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.svc.TestConnection(r.Context(), req.DB); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": fmt.Sprintf("连接失败: %v", err),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "连接成功！",
	})
}

// handleOrder 返回表的依赖顺序
func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req dbRequest
	if !decode(w, r, &req) {
		return
	}

	o, err := s.svc.Order(r.Context(), req.DB)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	switch req.Format {
	case "", "json":
		writeJSON(w, http.StatusOK, o)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, renderer.NewTextRenderer().Render(o))
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, renderer.NewMarkdownRenderer().Render(o))
	case "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, renderer.NewMermaidRenderer().Render(o))
	default:
		http.Error(w, "unknown format: "+req.Format, http.StatusBadRequest)
	}
}

// handleSubmit 提交异步任务
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := s.tasks.Submit(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": task.ID,
		"status":  StatusPending,
	})
}

// handleTaskStatus 查询任务状态
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := s.tasks.Get(path.Base(r.URL.Path))
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleWebSocket 持续推送任务状态，任务结束后关闭
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		return
	}

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		task, exists := s.tasks.Get(taskID)
		if !exists {
			return
		}
		if err := conn.WriteJSON(task); err != nil {
			return
		}
		if task.Done() {
			return
		}

		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}
	}
}
