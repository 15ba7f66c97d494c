package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sqlutil/internal/transfer"
)

// 任务状态
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// maxEvents 每个任务保留的日志条数
const maxEvents = 200

// TaskRequest 任务请求
type TaskRequest struct {
	Operation string `json:"operation"` // export/import/wipe/copy/upload
	DB        string `json:"db"`        // 命名连接或连接串
	Target    string `json:"target"`    // copy 的目标库
	File      string `json:"file"`      // 快照或装载文件，本地路径或 s3://
}

// Validate 检查操作所需的参数
func (r TaskRequest) Validate() error {
	switch r.Operation {
	case "export", "import", "upload":
		if r.DB == "" || r.File == "" {
			return fmt.Errorf("%s requires db and file", r.Operation)
		}
	case "copy":
		if r.DB == "" || r.Target == "" {
			return fmt.Errorf("copy requires db and target")
		}
	case "wipe":
		if r.DB == "" {
			return fmt.Errorf("wipe requires db")
		}
	default:
		return fmt.Errorf("unknown operation: %q", r.Operation)
	}
	return nil
}

// Task 异步执行的任务
type Task struct {
	ID        string      `json:"id"`
	Request   TaskRequest `json:"request"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Events    []string    `json:"events,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Done 任务已结束
func (t *Task) Done() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// TaskManager 保存所有任务，任务只在内存中
type TaskManager struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	base  *transfer.Service
	ctx   context.Context
	wg    sync.WaitGroup
}

// NewTaskManager 创建任务管理器；ctx 取消时正在执行的任务也会停止
func NewTaskManager(ctx context.Context, base *transfer.Service) *TaskManager {
	return &TaskManager{tasks: make(map[string]*Task), base: base, ctx: ctx}
}

// Submit 创建任务并异步执行
func (m *TaskManager) Submit(req TaskRequest) (*Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	task := &Task{
		ID:        fmt.Sprintf("task_%d", now.UnixNano()),
		Request:   req,
		Status:    StatusPending,
		Message:   "任务已创建，等待执行...",
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(task)
	}()
	return task, nil
}

// Get 返回任务快照
func (m *TaskManager) Get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	snapshot := *task
	snapshot.Events = append([]string(nil), task.Events...)
	return snapshot, true
}

// Wait 等待所有任务结束
func (m *TaskManager) Wait() {
	m.wg.Wait()
}

func (m *TaskManager) update(task *Task, fn func(t *Task)) {
	m.mu.Lock()
	fn(task)
	task.UpdatedAt = time.Now()
	m.mu.Unlock()
}

// run 执行任务；服务的日志写入任务事件，用于推送进度
func (m *TaskManager) run(task *Task) {
	svc := *m.base
	svc.Log = zerolog.New(&taskWriter{m: m, task: task}).With().Timestamp().Logger()
	m.base.Log.Info().Str("task", task.ID).Str("operation", task.Request.Operation).Msg("task started")
	m.update(task, func(t *Task) { t.Status = StatusRunning })

	result, err := execute(m.ctx, &svc, task.Request)

	m.update(task, func(t *Task) {
		if err != nil {
			t.Status = StatusFailed
			t.Error = err.Error()
			t.Message = "任务失败"
			return
		}
		t.Status = StatusCompleted
		t.Result = result
		t.Message = "任务完成"
	})
	if err != nil {
		m.base.Log.Error().Err(err).Str("task", task.ID).Msg("task failed")
	} else {
		m.base.Log.Info().Str("task", task.ID).Msg("task completed")
	}
}

func execute(ctx context.Context, svc *transfer.Service, req TaskRequest) (interface{}, error) {
	switch req.Operation {
	case "export":
		return svc.Export(ctx, req.DB, req.File)
	case "import":
		return svc.Import(ctx, req.File, req.DB)
	case "wipe":
		return svc.Wipe(ctx, req.DB)
	case "copy":
		return svc.Copy(ctx, req.DB, req.Target)
	case "upload":
		return svc.Upload(ctx, req.File, req.DB)
	}
	return nil, fmt.Errorf("unknown operation: %q", req.Operation)
}

// taskWriter 接收 zerolog 的 JSON 行，转成任务事件
type taskWriter struct {
	m    *TaskManager
	task *Task
}

func (w *taskWriter) Write(p []byte) (int, error) {
	var entry map[string]interface{}
	line := string(bytes.TrimSpace(p))
	if err := json.Unmarshal(p, &entry); err == nil {
		if msg, ok := entry["message"].(string); ok {
			line = formatEvent(msg, entry)
		}
	}
	w.m.update(w.task, func(t *Task) {
		t.Message = line
		t.Events = append(t.Events, line)
		if len(t.Events) > maxEvents {
			t.Events = t.Events[len(t.Events)-maxEvents:]
		}
	})
	return len(p), nil
}

// formatEvent "message table=... rows=..."
func formatEvent(msg string, entry map[string]interface{}) string {
	var buf bytes.Buffer
	buf.WriteString(msg)
	for _, key := range []string{"table", "rows", "batch", "error"} {
		if v, ok := entry[key]; ok {
			fmt.Fprintf(&buf, " %s=%v", key, v)
		}
	}
	return buf.String()
}
