package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/JuniperAnswers/core/contexts"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/core/passage"
	"github.com/FocuswithJustin/JuniperAnswers/core/rank"
	"github.com/FocuswithJustin/JuniperAnswers/internal/cache"
	"github.com/FocuswithJustin/JuniperAnswers/internal/dataset"
	"github.com/FocuswithJustin/JuniperAnswers/internal/logging"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status    string      `json:"status"`
	Version   string      `json:"version"`
	Uptime    string      `json:"uptime"`
	Passages  int         `json:"passages"`
	Questions int         `json:"questions"`
	Filters   []string    `json:"filters"`
	Text      bool        `json:"text"`
	Clients   int         `json:"websocket_clients"`
	Cache     cache.Stats `json:"cache"`
}

// RankRequest asks for a ranking. Question takes precedence; otherwise Index
// selects a dataset question, -1 picking one at random.
type RankRequest struct {
	Question *contexts.Question `json:"question,omitempty"`
	Index    *int               `json:"index,omitempty"`

	// Top limits the entries returned. Zero uses the server default, capped
	// at the corpus size; an explicit value larger than the corpus fails.
	Top int `json:"top,omitempty"`

	// Text requests the wording of the best passage.
	Text bool `json:"text,omitempty"`
}

// RankResponse is a ranking as returned to clients.
type RankResponse struct {
	RunID    string       `json:"run_id"`
	Question string       `json:"question"`
	Total    int          `json:"total"`
	Entries  []rank.Entry `json:"entries"`
	Cached   bool         `json:"cached"`
	Answer   *AnswerInfo  `json:"answer,omitempty"`
}

// AnswerInfo is the best passage together with its text.
type AnswerInfo struct {
	Passage passage.Reference `json:"passage"`
	Score   int               `json:"score"`
	Text    passage.Text      `json:"text"`
}

// PassageInfo describes a single reference.
type PassageInfo struct {
	Input   string            `json:"input"`
	Passage passage.Reference `json:"passage"`
	Section string            `json:"scripture-section"`
	Text    *passage.Text     `json:"text,omitempty"`
}

// QuestionInfo is a dataset question with its position.
type QuestionInfo struct {
	Index    int               `json:"index"`
	Question contexts.Question `json:"question"`
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "Juniper Answers API",
		"version": s.version,
		"endpoints": []string{
			"GET /health",
			"GET /filters",
			"POST /rank",
			"GET /passages/:ref",
			"GET /questions",
			"GET /questions/:index",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, HealthInfo{
		Status:    "healthy",
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Passages:  s.template.Len(),
		Questions: len(s.data.Questions),
		Filters:   s.filterNames,
		Text:      s.text != nil,
		Clients:   s.hub.ClientCount(),
		Cache:     s.rankings.Stats(),
	})
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string][]string{
		"configured": s.filterNames,
		"available":  rank.FilterNames(),
	})
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body: "+err.Error())
		return
	}

	resp, err := s.rankCached(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondWithMeta(w, http.StatusOK, resp, resp.Total)
}

func (s *Server) handlePassage(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("ref")
	ref, err := passage.Parse(raw)
	if err != nil {
		human, herr := passage.ParseHuman(raw)
		if herr != nil {
			respondErr(w, err)
			return
		}
		ref = human
	}
	if err := ref.Validate(); err != nil {
		respondErr(w, err)
		return
	}

	info := PassageInfo{Input: ref.Raw(), Passage: ref}
	if t, ok := ref.Section(); ok {
		info.Section = string(t)
	}

	if want, _ := strconv.ParseBool(r.URL.Query().Get("text")); want {
		text, err := ref.Text(r.Context(), s.text)
		if err != nil {
			respondErr(w, err)
			return
		}
		info.Text = &text
	}
	respond(w, http.StatusOK, info)
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	questions := make([]QuestionInfo, len(s.data.Questions))
	for i, q := range s.data.Questions {
		questions[i] = QuestionInfo{Index: i, Question: q}
	}
	respondWithMeta(w, http.StatusOK, questions, len(questions))
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		respondErr(w, errors.NewValidation("index", raw, "must be an integer"))
		return
	}
	if index < 0 || index >= len(s.data.Questions) {
		respondErr(w, errors.NewNotFound("question", raw))
		return
	}
	respond(w, http.StatusOK, QuestionInfo{Index: index, Question: s.data.Questions[index]})
}

// question resolves the question a request refers to.
func (s *Server) question(req RankRequest) (*contexts.Question, error) {
	if req.Question != nil {
		return req.Question, nil
	}
	if req.Index == nil {
		return nil, errors.NewValidation("question", "", "question or index is required")
	}
	index := *req.Index
	if index != dataset.RandomIndex && (index < 0 || index >= len(s.data.Questions)) {
		return nil, errors.NewNotFound("question", strconv.Itoa(index))
	}
	q := dataset.SelectQuestion(s.data.Questions, index, nil)
	if q == nil {
		return nil, errors.NewNotFound("question", strconv.Itoa(index))
	}
	return q, nil
}

// cacheKey identifies a ranking by question content, corpus and filters.
func (s *Server) cacheKey(q *contexts.Question) (string, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", errors.Wrap(err, "encoding question")
	}
	return cache.Key(data, []byte(s.data.Fingerprint), []byte(strings.Join(s.filterNames, ","))), nil
}

// rankCached ranks with the shared pipeline, reusing cached rankings.
func (s *Server) rankCached(ctx context.Context, req RankRequest) (*RankResponse, error) {
	q, err := s.question(req)
	if err != nil {
		return nil, err
	}
	key, err := s.cacheKey(q)
	if err != nil {
		return nil, err
	}
	ranking, cached, err := s.rankings.GetOrCompute(key, func() (rank.Ranking, error) {
		return s.pipeline.Run(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	if cached {
		logging.DebugContext(ctx, "ranking served from cache", "run_id", ranking.RunID)
	}
	return s.respondRanking(ctx, ranking, req, cached)
}

// rankStreaming ranks on a private pipeline that reports every stage to
// observer. The result is cached for later HTTP requests.
func (s *Server) rankStreaming(ctx context.Context, req RankRequest, observer func(rank.StageEvent)) (*RankResponse, error) {
	q, err := s.question(req)
	if err != nil {
		return nil, err
	}
	p := rank.NewPipeline(s.template.Clone(), s.filters...).
		WithConcurrency(s.cfg.Concurrency).
		WithObserver(observer)
	ranking, err := p.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	if key, err := s.cacheKey(q); err == nil {
		s.rankings.Set(key, ranking)
	}
	return s.respondRanking(ctx, ranking, req, false)
}

func (s *Server) respondRanking(ctx context.Context, ranking rank.Ranking, req RankRequest, cached bool) (*RankResponse, error) {
	top := req.Top
	if top == 0 {
		top = min(s.cfg.Top, ranking.Len())
	}
	entries, err := ranking.TopN(top)
	if err != nil {
		return nil, err
	}

	resp := &RankResponse{
		RunID:    ranking.RunID,
		Question: ranking.Question,
		Total:    ranking.Len(),
		Entries:  entries,
		Cached:   cached,
	}
	if req.Text {
		best, text, err := rank.Answer(ctx, ranking, s.text)
		if err != nil {
			return nil, err
		}
		resp.Answer = &AnswerInfo{Passage: best.Ref, Score: best.Score, Text: text}
	}
	return resp, nil
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	respondWithMeta(w, status, data, 0)
}

func respondWithMeta(w http.ResponseWriter, status int, data interface{}, total int) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// respondErr maps err onto a status code through its sentinel.
func respondErr(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error("request failed", "error", err.Error(), "status", status)
	}
	respondError(w, status, code, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELED"
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, errors.ErrMalformedContext):
		return http.StatusUnprocessableEntity, "MALFORMED_CONTEXT"
	case errors.Is(err, errors.ErrInsufficientResults):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_RESULTS"
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, errors.ErrUnsupported):
		return http.StatusNotImplemented, "UNSUPPORTED"
	case errors.Is(err, errors.ErrRetrieval):
		return http.StatusBadGateway, "RETRIEVAL_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
