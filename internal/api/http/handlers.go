package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/ClementLG/UrlShortener/internal/database"
	"github.com/ClementLG/UrlShortener/internal/models"
	"github.com/ClementLG/UrlShortener/internal/service"
	"github.com/ClementLG/UrlShortener/pkg/response"
)

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>URL Shortener</title>
</head>
<body>
	<h1>URL Shortener</h1>
	<form method="post" action="/api/urls">
		<label>Long URL <input type="text" name="long_url" placeholder="https://example.com/a/very/long/path" required></label>
		<label>Validity
			<select name="duration">
				<option value="24h">24 hours</option>
				<option value="48h">48 hours</option>
				<option value="1w">1 week</option>
			</select>
		</label>
		<label>Uses limit <input type="number" name="uses_limit" min="1" placeholder="unlimited"></label>
		<button type="submit">Shorten</button>
	</form>
</body>
</html>
`

// handleIndex serves the URL creation form.
func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, indexPage)
}

// shortenRequest represents the payload for creating a shortened URL. The
// same field names are accepted as JSON and as HTML form values.
type shortenRequest struct {
	LongURL   string `json:"long_url" validate:"required"`
	Duration  string `json:"duration"`
	UsesLimit string `json:"uses_limit"`
}

// shortenResponse represents the payload returned after a URL was shortened.
type shortenResponse struct {
	ShortURL  string    `json:"short_url"`
	ShortCode string    `json:"short_code"`
	LongURL   string    `json:"long_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// statsResponse represents the statistics payload of a shortened URL.
type statsResponse struct {
	ShortCode     string    `json:"short_code"`
	LongURL       string    `json:"long_url"`
	Clicks        int64     `json:"clicks"`
	RemainingUses any       `json:"remaining_uses"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func toStatsResponse(url *models.URL) statsResponse {
	resp := statsResponse{
		ShortCode:     url.ShortCode,
		LongURL:       url.OriginalURL,
		Clicks:        url.Clicks,
		RemainingUses: "unlimited",
		CreatedAt:     url.CreatedAt,
		ExpiresAt:     url.ExpiresAt,
	}

	if left, ok := url.RemainingUses(); ok {
		resp.RemainingUses = left
	}

	return resp
}

// decodeShortenRequest reads the creation payload from a JSON body or, for
// the HTML form, from urlencoded form values.
func decodeShortenRequest(r *http.Request, req *shortenRequest) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return render.DecodeJSON(r.Body, req)
	}

	if err := r.ParseForm(); err != nil {
		return err
	}
	if len(r.PostForm) == 0 {
		return io.EOF
	}

	req.LongURL = r.PostFormValue("long_url")
	req.Duration = r.PostFormValue("duration")
	req.UsesLimit = r.PostFormValue("uses_limit")

	return nil
}

// shortURLBase reconstructs the externally visible base URL of the request so
// the composed short URL points back at this deployment.
func shortURLBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// handleShortenURL handles POST requests to shorten a URL.
//
// The request must contain a long URL and may carry a validity duration tag
// and a uses limit. The handler validates the input shape, calls the URL
// shortening service, and returns the composed short URL.
func handleShortenURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := decodeShortenRequest(r, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.ShortenURL(r.Context(), req.LongURL, req.Duration, req.UsesLimit)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse("The provided URL is invalid."))
			case errors.Is(err, service.ErrInvalidUsesLimit):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse("The uses limit must be a positive integer."))
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		data := shortenResponse{
			ShortURL:  fmt.Sprintf("%s/%s", shortURLBase(r), url.ShortCode),
			ShortCode: url.ShortCode,
			LongURL:   url.OriginalURL,
			ExpiresAt: url.ExpiresAt,
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// handleRedirect handles GET requests on a short code and redirects to the
// original URL.
//
// Expired and exhausted codes answer 404 with a distinguishing message; the
// service deletes such records as a side effect of the failed resolution.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrURLExpired):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ErrorResponse("This link has expired."))
			case errors.Is(err, database.ErrURLExhausted):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ErrorResponse("This link has reached its usage limit."))
			case errors.Is(err, database.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		http.Redirect(w, r, url.OriginalURL, http.StatusFound)
	}
}

// handleGetURLStats handles GET requests to retrieve usage statistics for a
// shortened URL.
//
// The handler returns the click count and the remaining uses for the given
// short code, or a 404 error if the code doesn't exist.
func handleGetURLStats(svc URLService) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"
	const successMsg = "The URL statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.GetURLStats(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toStatsResponse(url)))
	}
}
