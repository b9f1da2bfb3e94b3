package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/m-mizutani/goerr/v2"

	"github.com/epi-watch/malkb/pkg/domain/model"
	"github.com/epi-watch/malkb/pkg/domain/types"
	"github.com/epi-watch/malkb/pkg/service/retrieval"
	"github.com/epi-watch/malkb/pkg/usecase"
	"github.com/epi-watch/malkb/pkg/utils/errutil"
	"github.com/epi-watch/malkb/pkg/utils/safe"
)

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	safe.Write(r.Context(), w, data)
}

// parseLimit reads the "n" query parameter, falling back to the default
// result count when absent.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return retrieval.DefaultResults, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid result count", goerr.V("n", raw))
	}
	return n, nil
}

func searchHandler(uc *usecase.UseCases) http.HandlerFunc {
	type response struct {
		Query   string                `json:"query"`
		Results []*model.SearchResult `json:"results"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.New("query parameter 'q' is required"), http.StatusBadRequest)
			return
		}

		limit, err := parseLimit(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		results, err := uc.Retrieval().Search(r.Context(), query, limit, r.URL.Query().Get("category"))
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		writeJSON(w, r, response{Query: query, Results: results})
	}
}

func contextHandler(uc *usecase.UseCases) http.HandlerFunc {
	type response struct {
		Query   string `json:"query"`
		Context string `json:"context"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.New("query parameter 'q' is required"), http.StatusBadRequest)
			return
		}

		limit, err := parseLimit(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		text, err := uc.Retrieval().GetContext(r.Context(), query, limit)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		writeJSON(w, r, response{Query: query, Context: text})
	}
}

func statsHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := uc.Retrieval().GetStats(r.Context())
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, types.ErrEmptyIndex) {
				status = http.StatusNotFound
			}
			errutil.HandleHTTP(r.Context(), w, err, status)
			return
		}

		writeJSON(w, r, stats)
	}
}

func categoriesHandler(uc *usecase.UseCases) http.HandlerFunc {
	type response struct {
		Categories []string `json:"categories"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := uc.Retrieval().GetCategories(r.Context())
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		writeJSON(w, r, response{Categories: categories})
	}
}

func assistHandler(uc *usecase.UseCases) http.HandlerFunc {
	type request struct {
		Question string `json:"question"`
		Results  int    `json:"results"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}
		if req.Question == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.New("question is required"), http.StatusBadRequest)
			return
		}

		out, err := uc.Assist(r.Context(), usecase.AssistInput{
			Question: req.Question,
			Results:  req.Results,
		})
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		writeJSON(w, r, out)
	}
}
