package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/studyhub/internal/auth"
	"github.com/sakif/studyhub/internal/model"
	"github.com/sakif/studyhub/internal/service"
)

const (
	// maxMultipartMemory is how much of an upload is held in memory; the
	// rest spills to temporary files.
	maxMultipartMemory = 32 << 20

	msgQuestionPosted = "Your question has been posted."
	msgAnswerPosted   = "Answer posted."
	msgAnswerAccepted = "Answer accepted."
)

// QuestionHandler serves the home page and the question, answer and accept
// routes.
type QuestionHandler struct {
	questions *service.QuestionService
	users     *service.AuthService
	views     *Renderer
	logger    *slog.Logger
}

// NewQuestionHandler returns a QuestionHandler. users feeds the online list
// on the home page.
func NewQuestionHandler(questions *service.QuestionService, users *service.AuthService, views *Renderer, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, users: users, views: views, logger: logger}
}

type indexPage struct {
	Questions   []model.Question
	OnlineUsers []model.User
}

// HTTP: GET /
func (h *QuestionHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	questions, err := h.questions.ListQuestions(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	online, err := h.users.LoggedInUsers(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.views.render(w, r, http.StatusOK, pageIndex, "Questions", indexPage{
		Questions:   questions,
		OnlineUsers: online,
	})
}

// HTTP: GET /ask
func (h *QuestionHandler) HandleAskForm(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, r, http.StatusOK, pageAsk, "Ask a question", nil)
}

// HTTP: POST /ask
//
// Accepts multipart (with an optional "image" file) or a plain urlencoded
// form without an image.
func (h *QuestionHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		redirectWithError(w, r, h.logger, "/ask", fmt.Errorf("parsing ask form: %w", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	var image *service.ImageUpload
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		image = &service.ImageUpload{Filename: header.Filename, Body: file}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		redirectWithError(w, r, h.logger, "/ask", fmt.Errorf("reading image: %w", err))
		return
	}

	_, err = h.questions.Ask(r.Context(), id, r.FormValue("title"), r.FormValue("content"), image)
	if err != nil {
		redirectWithError(w, r, h.logger, "/ask", err)
		return
	}
	redirect(w, r, "/", msgQuestionPosted)
}

type questionPage struct {
	Question *model.Question
	Answers  []model.Answer
	IsAsker  bool
}

// HTTP: GET /question/{id}
func (h *QuestionHandler) HandleQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, err := pathID(r, "id", "question")
	if err != nil {
		redirectWithError(w, r, h.logger, "/", err)
		return
	}

	question, err := h.questions.GetQuestion(r.Context(), questionID)
	if err != nil {
		redirectWithError(w, r, h.logger, "/", err)
		return
	}
	answers, err := h.questions.AnswersForQuestion(r.Context(), questionID)
	if err != nil {
		redirectWithError(w, r, h.logger, "/", err)
		return
	}

	id, ok := auth.IdentityFromContext(r.Context())
	h.views.render(w, r, http.StatusOK, pageQuestion, question.Title, questionPage{
		Question: question,
		Answers:  answers,
		IsAsker:  ok && id.UserID == question.AuthorID,
	})
}

// HTTP: POST /question/{id}
//
// No login is required; an answer without a session is stored as anonymous.
func (h *QuestionHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	questionID, err := pathID(r, "id", "question")
	if err != nil {
		redirectWithError(w, r, h.logger, "/", err)
		return
	}
	back := fmt.Sprintf("/question/%d", questionID)

	if err := r.ParseForm(); err != nil {
		redirect(w, r, back, msgSomethingWrong)
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	_, err = h.questions.PostAnswer(r.Context(), questionID, id, r.PostForm.Get("content"))
	if err != nil {
		if isNotFound(err) {
			back = "/"
		}
		redirectWithError(w, r, h.logger, back, err)
		return
	}
	redirect(w, r, back, msgAnswerPosted)
}

// HTTP: GET /accept_answer/{answerID}
func (h *QuestionHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	answerID, err := pathID(r, "answerID", "answer")
	if err != nil {
		redirectWithError(w, r, h.logger, "/", err)
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	questionID, err := h.questions.AcceptAnswer(r.Context(), id, answerID)

	back := "/"
	if questionID > 0 {
		back = fmt.Sprintf("/question/%d", questionID)
	}
	if err != nil {
		redirectWithError(w, r, h.logger, back, err)
		return
	}
	redirect(w, r, back, msgAnswerAccepted)
}

// serverError handles failures on pages that have nowhere sensible to
// redirect to, such as the home page itself.
func (h *QuestionHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	http.Error(w, msgSomethingWrong, http.StatusInternalServerError)
}
