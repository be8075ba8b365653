package service

import (
	"errors"
	"net/http"
	"sync"
	"time"
	"unigest_backend/internal/model"
	"unigest_backend/internal/repository"
	"unigest_backend/internal/util"
	"unigest_backend/pkg/logger"
	"unigest_backend/pkg/monitoring"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	tickInterval = time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TickMessage 每秒推给作答端的倒计时
type TickMessage struct {
	Type             string `json:"type"` // tick | submitted
	AttemptID        string `json:"attemptId"`
	RemainingSeconds int    `json:"remainingSeconds"`
	Reason           string `json:"reason,omitempty"`
}

// attemptSession 一名学生一次限时作答的内存态。
// 答案只在内存里缓冲，提交落库前不写数据库。
type attemptSession struct {
	attemptID string
	quizID    string
	studentID uint
	deadline  time.Time

	mu        sync.Mutex
	answers   map[string]AnswerInput
	submitted bool // 提交闸门，置位后任何写入都被拒

	clients map[*websocket.Conn]bool
	done    chan struct{}
	once    sync.Once
}

func (s *attemptSession) remaining(now time.Time) int {
	r := int(s.deadline.Sub(now).Seconds())
	if r < 0 {
		return 0
	}
	return r
}

func (s *attemptSession) answerSlice() []AnswerInput {
	inputs := make([]AnswerInput, 0, len(s.answers))
	for _, in := range s.answers {
		inputs = append(inputs, in)
	}
	return inputs
}

func (s *attemptSession) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// AttemptState 下发给前端的会话状态
type AttemptState struct {
	AttemptID        string     `json:"attemptId"`
	Quiz             QuizView   `json:"quiz"`
	StartedAt        time.Time  `json:"startedAt"`
	RemainingSeconds int        `json:"remainingSeconds"`
	Submitted        bool       `json:"submitted"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
}

// AttemptSessionManager 所有进行中作答会话的注册表。
// 每个会话一个秒级定时器，到点自动提交；另有一个后台清扫循环，
// 兜底处理服务重启后失去会话的过期尝试。
type AttemptSessionManager struct {
	AttemptRepo *repository.AttemptRepository
	QuizRepo    *repository.QuizRepository
	Grading     *GradingService

	mu       sync.RWMutex
	sessions map[string]*attemptSession // attemptID -> session

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

func NewAttemptSessionManager(
	attemptRepo *repository.AttemptRepository,
	quizRepo *repository.QuizRepository,
	grading *GradingService,
	sweepIntervalSeconds int,
) *AttemptSessionManager {
	return &AttemptSessionManager{
		AttemptRepo:   attemptRepo,
		QuizRepo:      quizRepo,
		Grading:       grading,
		sessions:      make(map[string]*attemptSession),
		sweepInterval: time.Duration(sweepIntervalSeconds) * time.Second,
		stop:          make(chan struct{}),
	}
}

// Run 启动清扫循环，随 app 生命周期运行
func (m *AttemptSessionManager) Run() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweepExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *AttemptSessionManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// StartAttempt 开始作答。每人每份测验只此一次，进行中可重连取回状态。
func (m *AttemptSessionManager) StartAttempt(student *model.User, quizID string) (*AttemptState, error) {
	quiz, err := m.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if student.AuditoriumID == nil || quiz.AuditoriumID != *student.AuditoriumID {
		return nil, util.ErrPermissionDenied
	}

	existing, err := m.AttemptRepo.FindByStudentAndQuiz(student.ID, quizID)
	if err == nil {
		if existing.SubmittedAt != nil {
			return nil, util.ErrAlreadySubmitted
		}
		// 进行中：重连取回，会话丢了就重建
		return m.resumeSession(existing, quiz), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	attempt := &model.Attempt{
		QuizID:    quizID,
		StudentID: student.ID,
		StartedAt: time.Now(),
	}
	if err := m.AttemptRepo.Create(attempt); err != nil {
		// 并发开考撞唯一索引
		if again, findErr := m.AttemptRepo.FindByStudentAndQuiz(student.ID, quizID); findErr == nil {
			if again.SubmittedAt != nil {
				return nil, util.ErrAlreadySubmitted
			}
			return m.resumeSession(again, quiz), nil
		}
		return nil, err
	}

	session := m.registerSession(attempt, quiz)
	logger.Log.Info("attempt started",
		zap.String("attemptId", attempt.ID),
		zap.String("quizId", quizID),
		zap.Uint("studentId", student.ID),
		zap.Int("durationMinutes", quiz.Duration))

	return m.stateOf(session, quiz), nil
}

func (m *AttemptSessionManager) resumeSession(attempt *model.Attempt, quiz *model.Quiz) *AttemptState {
	m.mu.RLock()
	session, ok := m.sessions[attempt.ID]
	m.mu.RUnlock()
	if !ok {
		session = m.registerSession(attempt, quiz)
	}
	return m.stateOf(session, quiz)
}

func (m *AttemptSessionManager) registerSession(attempt *model.Attempt, quiz *model.Quiz) *attemptSession {
	session := &attemptSession{
		attemptID: attempt.ID,
		quizID:    attempt.QuizID,
		studentID: attempt.StudentID,
		deadline:  attempt.StartedAt.Add(time.Duration(quiz.Duration) * time.Minute),
		answers:   make(map[string]AnswerInput),
		clients:   make(map[*websocket.Conn]bool),
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	if existing, ok := m.sessions[attempt.ID]; ok {
		m.mu.Unlock()
		return existing
	}
	m.sessions[attempt.ID] = session
	m.mu.Unlock()

	monitoring.ActiveAttemptSessions.Inc()
	go m.runClock(session)
	return session
}

func (m *AttemptSessionManager) stateOf(session *attemptSession, quiz *model.Quiz) *AttemptState {
	return &AttemptState{
		AttemptID:        session.attemptID,
		Quiz:             buildQuizView(quiz, true),
		StartedAt:        session.deadline.Add(-time.Duration(quiz.Duration) * time.Minute),
		RemainingSeconds: session.remaining(time.Now()),
		Submitted:        false,
	}
}

// runClock 会话时钟：每秒广播剩余时间，到点自动提交
func (m *AttemptSessionManager) runClock(session *attemptSession) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			remaining := session.remaining(now)
			m.broadcastTick(session, TickMessage{
				Type:             "tick",
				AttemptID:        session.attemptID,
				RemainingSeconds: remaining,
			})
			if now.After(session.deadline) {
				if _, err := m.Submit(session.studentID, session.attemptID, model.SubmitTimeout); err != nil &&
					!errors.Is(err, util.ErrAlreadySubmitted) {
					logger.Log.Error("auto submit failed",
						zap.String("attemptId", session.attemptID),
						zap.Error(err))
				}
				return
			}
		case <-session.done:
			return
		}
	}
}

// RecordAnswer 只改内存缓冲，不落库。同题覆盖旧答案。
func (m *AttemptSessionManager) RecordAnswer(studentID uint, attemptID string, in AnswerInput) error {
	m.mu.RLock()
	session, ok := m.sessions[attemptID]
	m.mu.RUnlock()
	if !ok {
		return util.ErrAttemptNotFound
	}
	if session.studentID != studentID {
		return util.ErrPermissionDenied
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.submitted {
		return util.ErrAlreadySubmitted
	}
	session.answers[in.QuestionID] = in
	return nil
}

// Submit 提交一次作答。闸门先置位再落库，落库失败回滚闸门放行重试；
// 闸门或落库层报“已提交”说明计时器或清扫先到，按成功收尾返回已落库的尝试。
func (m *AttemptSessionManager) Submit(studentID uint, attemptID string, reason model.SubmitReason) (*model.Attempt, error) {
	m.mu.RLock()
	session, ok := m.sessions[attemptID]
	m.mu.RUnlock()
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	if session.studentID != studentID {
		return nil, util.ErrPermissionDenied
	}

	session.mu.Lock()
	if session.submitted {
		session.mu.Unlock()
		// 赢家负责销毁会话，这里只取回落库状态
		return m.finalizedAttempt(attemptID)
	}
	session.submitted = true
	inputs := session.answerSlice()
	session.mu.Unlock()

	attempt, err := m.Grading.FinalizeAttempt(attemptID, inputs, reason)
	if err != nil {
		if errors.Is(err, util.ErrAlreadySubmitted) {
			m.teardown(session, reason)
			return m.finalizedAttempt(attemptID)
		}
		session.mu.Lock()
		session.submitted = false
		session.mu.Unlock()
		return nil, err
	}

	m.teardown(session, reason)
	return attempt, nil
}

// finalizedAttempt 输掉收卷竞争的一方按成功返回当前落库状态
func (m *AttemptSessionManager) finalizedAttempt(attemptID string) (*model.Attempt, error) {
	attempt, err := m.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return attempt, nil
}

// Close 学生离开但不提交，会话销毁，尝试保持进行中，交给清扫兜底
func (m *AttemptSessionManager) Close(studentID uint, attemptID string) error {
	m.mu.RLock()
	session, ok := m.sessions[attemptID]
	m.mu.RUnlock()
	if !ok {
		return util.ErrAttemptNotFound
	}
	if session.studentID != studentID {
		return util.ErrPermissionDenied
	}
	m.remove(session)
	return nil
}

func (m *AttemptSessionManager) teardown(session *attemptSession, reason model.SubmitReason) {
	m.broadcastTick(session, TickMessage{
		Type:      "submitted",
		AttemptID: session.attemptID,
		Reason:    string(reason),
	})
	m.remove(session)
}

func (m *AttemptSessionManager) remove(session *attemptSession) {
	m.mu.Lock()
	if _, ok := m.sessions[session.attemptID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, session.attemptID)
	m.mu.Unlock()

	session.close()
	session.mu.Lock()
	for conn := range session.clients {
		conn.Close()
	}
	session.clients = make(map[*websocket.Conn]bool)
	session.mu.Unlock()
	monitoring.ActiveAttemptSessions.Dec()
}

func (m *AttemptSessionManager) broadcastTick(session *attemptSession, msg TickMessage) {
	session.mu.Lock()
	defer session.mu.Unlock()
	for conn := range session.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(session.clients, conn)
		}
	}
}

// AttachSocket 升级 WebSocket 推送倒计时。读方向只消费 pong 和心跳，限流丢弃多余帧。
func (m *AttemptSessionManager) AttachSocket(w http.ResponseWriter, r *http.Request, studentID uint, attemptID string) error {
	m.mu.RLock()
	session, ok := m.sessions[attemptID]
	m.mu.RUnlock()
	if !ok {
		return util.ErrAttemptNotFound
	}
	if session.studentID != studentID {
		return util.ErrPermissionDenied
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	session.mu.Lock()
	session.clients[conn] = true
	session.mu.Unlock()

	go m.readPump(session, conn)
	go m.pingLoop(session, conn)
	return nil
}

func (m *AttemptSessionManager) readPump(session *attemptSession, conn *websocket.Conn) {
	defer func() {
		session.mu.Lock()
		delete(session.clients, conn)
		session.mu.Unlock()
		conn.Close()
	}()
	limiter := rate.NewLimiter(rate.Limit(5), 10)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		if !limiter.Allow() {
			continue
		}
	}
}

func (m *AttemptSessionManager) pingLoop(session *attemptSession, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-session.done:
			return
		}
	}
}

// sweepExpired 兜底提交所有已超时却仍在进行中的尝试。
// 会话还在就带上缓冲答案，会话丢了（如服务重启）就按空卷收。
func (m *AttemptSessionManager) sweepExpired() {
	rows, err := m.AttemptRepo.ListInProgress()
	if err != nil {
		logger.Log.Error("sweep query failed", zap.Error(err))
		return
	}

	now := time.Now()
	for _, row := range rows {
		deadline := row.StartedAt.Add(time.Duration(row.Duration) * time.Minute)
		if now.Before(deadline) {
			continue
		}

		m.mu.RLock()
		session, ok := m.sessions[row.ID]
		m.mu.RUnlock()

		if ok {
			if _, err := m.Submit(session.studentID, row.ID, model.SubmitSweep); err != nil &&
				!errors.Is(err, util.ErrAlreadySubmitted) {
				logger.Log.Error("sweep submit failed", zap.String("attemptId", row.ID), zap.Error(err))
			}
			continue
		}

		if _, err := m.Grading.FinalizeAttempt(row.ID, nil, model.SubmitSweep); err != nil &&
			!errors.Is(err, util.ErrAlreadySubmitted) {
			logger.Log.Error("sweep finalize failed", zap.String("attemptId", row.ID), zap.Error(err))
		} else {
			logger.Log.Warn("expired attempt force submitted",
				zap.String("attemptId", row.ID),
				zap.Uint("studentId", row.StudentID))
		}
	}
}

// Remaining 轮询用的剩余秒数，给没开 WebSocket 的客户端
func (m *AttemptSessionManager) Remaining(studentID uint, attemptID string) (int, error) {
	m.mu.RLock()
	session, ok := m.sessions[attemptID]
	m.mu.RUnlock()
	if !ok {
		return 0, util.ErrAttemptNotFound
	}
	if session.studentID != studentID {
		return 0, util.ErrPermissionDenied
	}
	return session.remaining(time.Now()), nil
}
