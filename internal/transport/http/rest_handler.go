package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
	"github.com/Rohan-80800/PositLearn-sub001/internal/logging"
)

const maxBodyBytes = 1 << 20

// RESTHandler exposes a Backend over the progress REST API.
type RESTHandler struct {
	backend app.Backend
}

func NewRESTHandler(backend app.Backend) *RESTHandler {
	return &RESTHandler{backend: backend}
}

// Routes registers the API below the router it is mounted on.
func (h *RESTHandler) Routes(r chi.Router) {
	r.Get("/video/modules/{learnerId}/{projectId}", h.learningPath)
	r.Get("/quizzes/progress/{learnerId}/{quizId}", h.quizProgress)
	r.Get("/quizzes/eligibility/{learnerId}/{quizId}", h.quizEligibility)
	r.Post("/quizzes/submit/{learnerId}", h.submitQuiz)
	r.Put("/video/progress/{learnerId}", h.videoProgress)
	r.Post("/video/completed/{learnerId}", h.videoCompleted)
	r.Put("/video/notebook/{learnerId}", h.notebook)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (h *RESTHandler) learningPath(w http.ResponseWriter, r *http.Request) {
	view, err := h.backend.LearningPath(r.Context(), chi.URLParam(r, "learnerId"), chi.URLParam(r, "projectId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (h *RESTHandler) quizProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.backend.QuizProgress(r.Context(), chi.URLParam(r, "learnerId"), chi.URLParam(r, "quizId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *RESTHandler) quizEligibility(w http.ResponseWriter, r *http.Request) {
	eligible, err := h.backend.QuizEligibility(r.Context(), chi.URLParam(r, "learnerId"), chi.URLParam(r, "quizId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, domain.EligibilityResponse{Eligible: eligible})
}

func (h *RESTHandler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitQuizRequest
	if !decodeFor(w, r, &req, &req.LearnerID) {
		return
	}
	ack, err := h.backend.SubmitQuizAttempt(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, ack)
}

func (h *RESTHandler) videoProgress(w http.ResponseWriter, r *http.Request) {
	var update domain.VideoProgressUpdate
	if !decodeFor(w, r, &update, &update.LearnerID) {
		return
	}
	if err := h.backend.UpdateVideoProgress(r.Context(), update); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) videoCompleted(w http.ResponseWriter, r *http.Request) {
	var completion domain.VideoCompletion
	if !decodeFor(w, r, &completion, &completion.LearnerID) {
		return
	}
	ack, err := h.backend.CompleteVideo(r.Context(), completion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, ack)
}

func (h *RESTHandler) notebook(w http.ResponseWriter, r *http.Request) {
	var update domain.NotebookUpdate
	if !decodeFor(w, r, &update, &update.LearnerID) {
		return
	}
	if err := h.backend.SaveNotebookEntries(r.Context(), update); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeFor reads a JSON body into dst and binds its learner id to the
// path. A body naming another learner is rejected.
func decodeFor(w http.ResponseWriter, r *http.Request, dst any, learnerID *string) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, fmt.Errorf("%w: decode body: %v", domain.ErrInvalidRequest, err))
		return false
	}
	pathID := chi.URLParam(r, "learnerId")
	switch *learnerID {
	case "":
		*learnerID = pathID
	case pathID:
	default:
		writeError(w, r, fmt.Errorf("%w: learnerId does not match path", domain.ErrInvalidRequest))
		return false
	}
	return true
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, struct {
		Data any `json:"data"`
	}{Data: data})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: domain.ErrorCode(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyMastered), errors.Is(err, domain.ErrSessionActive),
		errors.Is(err, domain.ErrAttemptConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotEligible), errors.Is(err, domain.ErrIncompleteAnswers):
		return http.StatusUnprocessableEntity
	}
	var te *domain.TransportError
	if errors.As(err, &te) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
