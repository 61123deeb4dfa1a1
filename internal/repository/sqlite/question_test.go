package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/model"
)

// timeZero leaves CreatedAt unset so Create stamps the current time.
var timeZero time.Time

func createTestQuestion(t *testing.T, db *DB, author *model.User, title string, at time.Time) *model.Question {
	t.Helper()
	q := &model.Question{AuthorID: author.ID, Title: title, Content: "body of " + title, CreatedAt: at}
	if err := db.Questions().Create(context.Background(), q); err != nil {
		t.Fatalf("failed to create test question: %v", err)
	}
	return q
}

func TestQuestionCreate(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "asker")

	q := &model.Question{AuthorID: author.ID, Title: "How do goroutines work?", Content: "..."}
	if err := db.Questions().Create(context.Background(), q); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if q.ID == 0 {
		t.Error("Create() did not set question.ID")
	}
	if q.CreatedAt.IsZero() {
		t.Error("Create() did not set question.CreatedAt")
	}
}

func TestQuestionCreate_UnknownAuthor(t *testing.T) {
	db := newTestDB(t)

	// Foreign keys are on, so a question can't point at a missing user.
	q := &model.Question{AuthorID: 999, Title: "orphan", Content: "x"}
	if err := db.Questions().Create(context.Background(), q); err == nil {
		t.Fatal("Create() should fail for an unknown author")
	}
}

func TestQuestionGetByID(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "asker")
	created := &model.Question{AuthorID: author.ID, Title: "with image", Content: "see pic", Image: "diagram.png"}
	if err := db.Questions().Create(context.Background(), created); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := db.Questions().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Title != "with image" || found.Image != "diagram.png" {
		t.Errorf("GetByID() = %+v", found)
	}
	if found.AuthorName != "asker" {
		t.Errorf("AuthorName = %q, want %q", found.AuthorName, "asker")
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, created.CreatedAt)
	}
}

func TestQuestionGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Questions().GetByID(context.Background(), 12345)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestQuestionList_Empty(t *testing.T) {
	db := newTestDB(t)

	questions, err := db.Questions().List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(questions) != 0 {
		t.Errorf("List() returned %d questions, want 0", len(questions))
	}
}

// TestQuestionList_NewestFirst inserts questions out of chronological order
// and checks the listing is still sorted by creation time, newest first.
func TestQuestionList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "asker")
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	offsets := []time.Duration{
		2 * time.Hour,
		-30 * time.Minute,
		5 * time.Hour,
		1500 * time.Millisecond,
		0,
		48 * time.Hour,
	}
	for i, off := range offsets {
		createTestQuestion(t, db, author, "q"+string(rune('a'+i)), base.Add(off))
	}

	questions, err := db.Questions().List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(questions) != len(offsets) {
		t.Fatalf("List() returned %d questions, want %d", len(questions), len(offsets))
	}
	for i := 1; i < len(questions); i++ {
		if questions[i].CreatedAt.After(questions[i-1].CreatedAt) {
			t.Errorf("questions[%d] (%v) is newer than questions[%d] (%v)",
				i, questions[i].CreatedAt, i-1, questions[i-1].CreatedAt)
		}
	}
	if questions[0].Title != "qf" {
		t.Errorf("newest question = %q, want %q", questions[0].Title, "qf")
	}
	if questions[0].AuthorName != "asker" {
		t.Errorf("AuthorName = %q, want %q", questions[0].AuthorName, "asker")
	}
}

func TestQuestionList_SameInstantUsesID(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "asker")
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	first := createTestQuestion(t, db, author, "first", at)
	second := createTestQuestion(t, db, author, "second", at)

	questions, err := db.Questions().List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if questions[0].ID != second.ID || questions[1].ID != first.ID {
		t.Errorf("List() order = [%d %d], want [%d %d]", questions[0].ID, questions[1].ID, second.ID, first.ID)
	}
}
