package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/auth"
	"github.com/sakif/studyhub/internal/model"
	"github.com/sakif/studyhub/internal/repository"
	"github.com/sakif/studyhub/internal/upload"
	"github.com/sakif/studyhub/internal/validation"
)

// Points moved by AcceptAnswer.
const (
	AcceptAward   = 10
	AcceptPenalty = 5
)

// MsgOnlyAskerCanAccept is shown when someone other than the asker tries to
// accept an answer.
const MsgOnlyAskerCanAccept = "Only the asker can accept an answer."

// ImageStore persists an uploaded image and returns the name it was stored
// under. It returns an error wrapping upload.ErrRejected for names it won't
// store. Remove discards a stored image. *upload.Store implements it.
type ImageStore interface {
	Save(filename string, r io.Reader) (string, error)
	Remove(name string) error
}

// ImageUpload is an optional file attached to a question.
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

type askForm struct {
	Title   string `form:"title" validate:"required,notblank_,max=200"`
	Content string `form:"content" validate:"required,notblank_"`
}

type answerForm struct {
	Content string `form:"content" validate:"required,notblank_"`
}

// QuestionService runs the Q&A board: questions, answers and the accept
// point transfer.
type QuestionService struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	images    ImageStore
	validate  *validation.Validator
	logger    *slog.Logger
}

// NewQuestionService returns a QuestionService saving images to images.
func NewQuestionService(
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	images ImageStore,
	validate *validation.Validator,
	logger *slog.Logger,
) *QuestionService {
	return &QuestionService{
		questions: questions,
		answers:   answers,
		images:    images,
		validate:  validate,
		logger:    logger,
	}
}

// Ask creates a question owned by id. An image with a disallowed name is
// dropped and the question is created without it.
func (s *QuestionService) Ask(ctx context.Context, id auth.Identity, title, content string, image *ImageUpload) (*model.Question, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	form := askForm{Title: strings.TrimSpace(title), Content: content}
	if err := s.validate.Struct(form); err != nil {
		return nil, err
	}

	question := &model.Question{
		AuthorID: id.UserID,
		Title:    form.Title,
		Content:  form.Content,
	}

	if image != nil && image.Filename != "" {
		stored, err := s.images.Save(image.Filename, image.Body)
		switch {
		case errors.Is(err, upload.ErrRejected):
			s.logger.Info("dropping rejected image",
				slog.Int64("user_id", id.UserID),
				slog.String("filename", image.Filename),
			)
		case err != nil:
			return nil, fmt.Errorf("saving image: %w", err)
		default:
			question.Image = stored
		}
	}

	if err := s.questions.Create(ctx, question); err != nil {
		s.logger.Error("failed to create question",
			slog.Int64("user_id", id.UserID),
			slog.String("error", err.Error()),
		)
		if question.HasImage() {
			if rmErr := s.images.Remove(question.Image); rmErr != nil {
				s.logger.Warn("failed to remove orphaned image",
					slog.String("image", question.Image),
					slog.String("error", rmErr.Error()),
				)
			}
		}
		return nil, fmt.Errorf("creating question: %w", err)
	}

	s.logger.Info("question created",
		slog.Int64("question_id", question.ID),
		slog.Int64("user_id", id.UserID),
		slog.String("image", question.Image),
	)
	return question, nil
}

// ListQuestions returns every question, newest first.
func (s *QuestionService) ListQuestions(ctx context.Context) ([]model.Question, error) {
	questions, err := s.questions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	return questions, nil
}

// GetQuestion returns one question or a NotFound error.
func (s *QuestionService) GetQuestion(ctx context.Context, questionID int64) (*model.Question, error) {
	return s.questions.GetByID(ctx, questionID)
}

// AnswersForQuestion returns a question's answers, oldest first.
func (s *QuestionService) AnswersForQuestion(ctx context.Context, questionID int64) ([]model.Answer, error) {
	answers, err := s.answers.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("listing answers: %w", err)
	}
	return answers, nil
}

// PostAnswer adds an answer to a question. id may be the zero Identity: the
// answer is then stored under model.AnonymousUserID rather than rejected.
func (s *QuestionService) PostAnswer(ctx context.Context, questionID int64, id auth.Identity, content string) (*model.Answer, error) {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	form := answerForm{Content: content}
	if err := s.validate.Struct(form); err != nil {
		return nil, err
	}

	answer := &model.Answer{
		QuestionID: question.ID,
		AuthorID:   model.AnonymousUserID,
		Content:    form.Content,
	}
	if id.UserID > 0 {
		answer.AuthorID = id.UserID
	} else {
		s.logger.Warn("answer posted without a session, storing as anonymous",
			slog.Int64("question_id", question.ID),
		)
	}

	if err := s.answers.Create(ctx, answer); err != nil {
		s.logger.Error("failed to create answer",
			slog.Int64("question_id", question.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating answer: %w", err)
	}

	s.logger.Info("answer posted",
		slog.Int64("answer_id", answer.ID),
		slog.Int64("question_id", question.ID),
		slog.Int64("user_id", answer.AuthorID),
	)
	return answer, nil
}

// AcceptAnswer marks an answer as the accepted one for its question and moves
// points: AcceptPenalty off the previously accepted author (never below zero)
// and AcceptAward to the new one. Only the asker may accept.
//
// The returned question id is set whenever the answer exists, including on a
// Forbidden error, so the caller can send the user back to the question.
func (s *QuestionService) AcceptAnswer(ctx context.Context, id auth.Identity, answerID int64) (int64, error) {
	if err := requireIdentity(id); err != nil {
		return 0, err
	}

	answer, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		return 0, err
	}

	question, err := s.questions.GetByID(ctx, answer.QuestionID)
	if err != nil {
		return 0, err
	}
	if question.AuthorID != id.UserID {
		s.logger.Info("accept refused, not the asker",
			slog.Int64("answer_id", answerID),
			slog.Int64("user_id", id.UserID),
		)
		return question.ID, apperror.Forbidden(MsgOnlyAskerCanAccept)
	}

	res, err := s.answers.Accept(ctx, answerID, AcceptAward, AcceptPenalty)
	if err != nil {
		s.logger.Error("failed to accept answer",
			slog.Int64("answer_id", answerID),
			slog.String("error", err.Error()),
		)
		return question.ID, fmt.Errorf("accepting answer: %w", err)
	}

	s.logger.Info("answer accepted",
		slog.Int64("answer_id", answerID),
		slog.Int64("question_id", question.ID),
		slog.Int64("previous_answer_id", res.PreviousAnswerID),
		slog.Int64("awarded_user_id", res.Answer.AuthorID),
	)
	return question.ID, nil
}
