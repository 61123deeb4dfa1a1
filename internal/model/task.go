package model

// Task is a personal to-do item. DueDate is kept exactly as the user typed it.
type Task struct {
	ID      int64  `json:"id"      db:"id"`
	OwnerID int64  `json:"ownerId" db:"user_id"`
	Subject string `json:"subject" db:"subject"`
	Title   string `json:"title"   db:"title"`
	DueDate string `json:"dueDate" db:"due_date"`
	IsDone  bool   `json:"isDone"  db:"is_done"`
}
