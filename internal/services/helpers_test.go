package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/testutil"
	"github.com/thereayou/flasker/pkg/auth"
	"go.uber.org/zap"
)

type fakeJob struct {
	name     string
	userID   uint
	payload  any
	progress int
	started  bool
}

// fakeQueue is an in-memory jobs.Queue. Deleting a job from jobs simulates
// its bookkeeping expiring.
type fakeQueue struct {
	mu   sync.Mutex
	jobs map[string]*fakeJob
	err  error
}

func newFakeQueue() *fakeQueue { return &fakeQueue{jobs: make(map[string]*fakeJob)} }

func (q *fakeQueue) Enqueue(_ context.Context, name string, userID uint, payload any) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	id := uuid.NewString()
	q.jobs[id] = &fakeJob{name: name, userID: userID, payload: payload}
	return id, nil
}

func (q *fakeQueue) Progress(_ context.Context, id string) (int, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, false, q.err
	}
	j, ok := q.jobs[id]
	if !ok {
		return 0, false, nil
	}
	return j.progress, true, nil
}

func (q *fakeQueue) byName(name string) []*fakeJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*fakeJob
	for _, j := range q.jobs {
		if j.name == name {
			out = append(out, j)
		}
	}
	return out
}

type env struct {
	db    *database.Database
	fx    *testutil.Fixtures
	queue *fakeQueue
	jwt   *auth.JWTManager

	tokens        *TokenService
	users         *UserService
	follows       *FollowService
	notifications *NotificationService
	tasks         *TaskService
	accounts      *AccountService
	content       *ContentService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := zap.NewNop()
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)

	e := &env{
		db:    db,
		fx:    testutil.NewFixtures(t, db),
		queue: newFakeQueue(),
		jwt:   auth.NewJWTManager("test-secret"),
	}
	e.tokens = NewTokenService(db, 7*24*time.Hour, log)
	e.users = NewUserService(db, []string{"Boss@Example.com"}, []string{"admin", "flasker"}, log)
	e.notifications = NewNotificationService(db, rdb, "flasker:notifications", log)
	e.follows = NewFollowService(db, e.notifications, log)
	e.tasks = NewTaskService(db, e.queue, e.notifications, log)
	e.accounts = NewAccountService(db, e.jwt, e.tasks, e.tokens, log)
	e.content = NewContentService(db, log)
	return e
}

func strPtr(s string) *string { return &s }
