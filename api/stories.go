package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/errors"
)

// storiesHandler returns a page of the stories feed.
//
//	@Summary		List stories
//	@Tags			stories
//	@Produce		json
//	@Security		BearerAuth
//	@Param			cursor	query		string	false	"Cursor of the page"
//	@Param			limit	query		int		false	"Page size"
//	@Success		200		{object}	backend.StoryPage
//	@Router			/stories [get]
func (a *API) storiesHandler(w http.ResponseWriter, r *http.Request) {
	q := backend.StoriesQuery{Cursor: r.URL.Query().Get("cursor")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			errors.ErrMalformedURLParam.With("invalid limit").Write(w)
			return
		}
		q.Limit = min(limit, storiesMaxLimit)
	}
	page, err := a.backend.Stories(r.Context(), bearerToken(r.Context()), q)
	if err != nil {
		writeBackendError(w, err, errors.ErrNotFound)
		return
	}
	if page.Stories == nil {
		page.Stories = []backend.Story{}
	}
	httpWriteJSON(w, page)
}

// storyHandler returns a single story.
func (a *API) storyHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.validator.Var(id, "required,max=64"); err != nil {
		errors.ErrMalformedURLParam.With("invalid story id").Write(w)
		return
	}
	story, err := a.backend.Story(r.Context(), bearerToken(r.Context()), id)
	if err != nil {
		writeBackendError(w, err, errors.ErrStoryNotFound)
		return
	}
	httpWriteJSON(w, story)
}
