package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/auth"
	"github.com/sakif/studyhub/internal/model"
	"github.com/sakif/studyhub/internal/repository"
	"github.com/sakif/studyhub/internal/upload"
	"github.com/sakif/studyhub/internal/validation"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// In-memory implementations of the repository interfaces. They store copies
// so a test can't reach into the fake's state through a returned pointer.
// The SQLite implementations are tested against a real database in
// repository/sqlite.

type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64
	// failWith, when set, is returned by every call.
	failWith error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User)}
}

func (m *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperror.Conflict("username already taken")
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now().UTC()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *fakeUserRepo) SetLoggedIn(_ context.Context, id int64, loggedIn bool) error {
	if m.failWith != nil {
		return m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.IsLoggedIn = loggedIn
	return nil
}

func (m *fakeUserRepo) ListLoggedIn(_ context.Context) ([]model.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var result []model.User
	for _, u := range m.users {
		if u.IsLoggedIn {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (m *fakeUserRepo) Count(_ context.Context) (int, error) {
	return len(m.users), m.failWith
}

type fakeQuestionRepo struct {
	questions map[int64]*model.Question
	nextID    int64
	// createErr, when set, is returned by Create.
	createErr error
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{questions: make(map[int64]*model.Question)}
}

func (m *fakeQuestionRepo) Create(_ context.Context, q *model.Question) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	q.ID = m.nextID
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	stored := *q
	m.questions[q.ID] = &stored
	return nil
}

func (m *fakeQuestionRepo) GetByID(_ context.Context, id int64) (*model.Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return nil, apperror.NotFound("question", id)
	}
	result := *q
	return &result, nil
}

func (m *fakeQuestionRepo) List(_ context.Context) ([]model.Question, error) {
	result := make([]model.Question, 0, len(m.questions))
	for _, q := range m.questions {
		result = append(result, *q)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// fakeAnswerRepo moves points on the fakeUserRepo it shares with the test,
// the same way the SQLite transaction does.
type fakeAnswerRepo struct {
	answers map[int64]*model.Answer
	users   *fakeUserRepo
	nextID  int64
	// acceptCalls counts calls that reached Accept.
	acceptCalls int
}

func newFakeAnswerRepo(users *fakeUserRepo) *fakeAnswerRepo {
	return &fakeAnswerRepo{answers: make(map[int64]*model.Answer), users: users}
}

func (m *fakeAnswerRepo) Create(_ context.Context, a *model.Answer) error {
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now().UTC()
	stored := *a
	m.answers[a.ID] = &stored
	return nil
}

func (m *fakeAnswerRepo) GetByID(_ context.Context, id int64) (*model.Answer, error) {
	a, ok := m.answers[id]
	if !ok {
		return nil, apperror.NotFound("answer", id)
	}
	result := *a
	return &result, nil
}

func (m *fakeAnswerRepo) ListByQuestion(_ context.Context, questionID int64) ([]model.Answer, error) {
	var result []model.Answer
	for _, a := range m.answers {
		if a.QuestionID == questionID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *fakeAnswerRepo) Accept(_ context.Context, answerID int64, award, penalty int) (*repository.AcceptResult, error) {
	m.acceptCalls++
	target, ok := m.answers[answerID]
	if !ok {
		return nil, apperror.NotFound("answer", answerID)
	}
	res := &repository.AcceptResult{}
	for _, a := range m.answers {
		if a.QuestionID == target.QuestionID && a.IsAccepted {
			a.IsAccepted = false
			res.PreviousAnswerID = a.ID
			if u, ok := m.users.users[a.AuthorID]; ok {
				u.Points = max(u.Points-penalty, 0)
			}
		}
	}
	target.IsAccepted = true
	if u, ok := m.users.users[target.AuthorID]; ok {
		u.Points += award
	}

	copied := *target
	res.Answer = &copied
	return res, nil
}

type fakeTaskRepo struct {
	tasks  map[int64]*model.Task
	nextID int64
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[int64]*model.Task)}
}

func (m *fakeTaskRepo) Create(_ context.Context, t *model.Task) error {
	m.nextID++
	t.ID = m.nextID
	stored := *t
	m.tasks[t.ID] = &stored
	return nil
}

func (m *fakeTaskRepo) GetByID(_ context.Context, id int64) (*model.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, apperror.NotFound("task", id)
	}
	result := *t
	return &result, nil
}

func (m *fakeTaskRepo) ListByUser(_ context.Context, userID int64) ([]model.Task, error) {
	var result []model.Task
	for _, t := range m.tasks {
		if t.OwnerID == userID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *fakeTaskRepo) Toggle(_ context.Context, id int64) (*model.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, apperror.NotFound("task", id)
	}
	t.IsDone = !t.IsDone
	result := *t
	return &result, nil
}

// fakeImageStore applies the real upload name rules without touching disk.
type fakeImageStore struct {
	saved map[string][]byte
	err   error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{saved: make(map[string][]byte)}
}

func (m *fakeImageStore) Save(filename string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	name := upload.SanitizeFilename(filename)
	if name == "" || !upload.IsAllowedImage(name) {
		return "", fmt.Errorf("%w: %q", upload.ErrRejected, filename)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.saved[name] = data
	return name, nil
}

func (m *fakeImageStore) Remove(name string) error {
	if _, ok := m.saved[name]; !ok {
		return upload.ErrNotFound
	}
	delete(m.saved, name)
	return nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

var errDatabaseDown = errors.New("database is down")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func identityOf(u *model.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Username: u.Username}
}

// seedUser inserts a user straight into the fake, bypassing bcrypt.
func seedUser(t *testing.T, users *fakeUserRepo, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "unused"}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user %q: %v", username, err)
	}
	return u
}

var testValidator = validation.MustNew()
