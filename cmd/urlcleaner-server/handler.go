package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/urlcleaner-go/engine/internal/cache"
	"github.com/urlcleaner-go/engine/internal/cleaner"
	"github.com/urlcleaner-go/engine/internal/glue"
	"github.com/urlcleaner-go/engine/internal/infra/handler"
	"github.com/urlcleaner-go/engine/internal/job"
	"github.com/urlcleaner-go/engine/internal/unthreader"
)

// cleanRequestBody is this server's wire form of a batch-clean request:
// an optional named profile plus the ordered tasks to run against it.
type cleanRequestBody struct {
	Profile string               `json:"profile"`
	Tasks   []job.LazyTaskConfig `json:"tasks"`
}

// cleanHandler answers POST /clean by building one job.Job per request
// over the shared cleaner program, cache, fetcher, and unthreader this
// server wires once at startup (spec.md §5) and running every task in
// the batch to completion.
type cleanHandler struct {
	program         *cleaner.Cleaner
	defaultProfile  string
	subjectProfiles map[string]string
	fetcher         glue.Fetcher
	cache           *cache.Cache
	unthreader      *unthreader.Unthreader
	validator       *requestValidator
}

// resolveProfile picks the profile a request runs with: an explicit
// request body always wins; otherwise the authenticated caller's subject
// (set by the auth middleware) may carry its own default, falling back to
// the server-wide default profile.
func (h *cleanHandler) resolveProfile(c echo.Context, requested string) string {
	if requested != "" {
		return requested
	}
	if subject, ok := c.Get("token_subject").(string); ok && subject != "" {
		if profile, ok := h.subjectProfiles[subject]; ok {
			return profile
		}
	}
	return h.defaultProfile
}

// PostClean is the echo.HandlerFunc for POST /clean.
func (h *cleanHandler) PostClean(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, handler.NewBadRequestError("could not read request body", nil))
	}

	if err := h.validator.ValidateCleanRequest(body); err != nil {
		msg := err.Error()
		return c.JSON(http.StatusBadRequest, handler.NewBadRequestError("request failed schema validation", &msg))
	}

	var reqBody cleanRequestBody
	if err := json.Unmarshal(body, &reqBody); err != nil {
		msg := err.Error()
		return c.JSON(http.StatusBadRequest, handler.NewBadRequestError("invalid request body", &msg))
	}

	profile := h.resolveProfile(c, reqBody.Profile)

	j, err := job.New(job.Config{
		Cleaner:    h.program,
		Profile:    profile,
		Fetcher:    h.fetcher,
		Cache:      h.cache,
		Unthreader: h.unthreader,
	}, reqBody.Tasks)
	if err != nil {
		msg := err.Error()
		return c.JSON(http.StatusBadRequest, handler.NewBadRequestError("could not start job", &msg))
	}

	ctx := c.Request().Context()
	results := make([]job.CleanResult, 0, j.Len())
	it := j.Tasks()
	for {
		task, taskErr, ok := it.Next()
		if !ok {
			break
		}
		if taskErr != nil {
			results = append(results, job.CleanResult{Error: &job.CleanError{Kind: "ParseError", Message: taskErr.Error()}})
			continue
		}
		results = append(results, task.Do(ctx))
	}

	return c.JSON(http.StatusOK, results)
}
