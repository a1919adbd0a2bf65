package server

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/joacominatel/minaweb/internal/app"
	"github.com/joacominatel/minaweb/internal/database"
	"github.com/joacominatel/minaweb/internal/logging"
	"github.com/joacominatel/minaweb/internal/render"
)

// ParsePath splits a request path into its non-empty, percent-decoded
// segments. Segments made only of whitespace are dropped.
func ParsePath(u *url.URL) []string {
	var segments []string
	for _, raw := range strings.Split(u.EscapedPath(), "/") {
		seg, err := url.PathUnescape(raw)
		if err != nil {
			seg = raw
		}
		if strings.TrimSpace(seg) == "" {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

// browse dispatches on the number of path segments: schemas, tables of a
// schema, rows of a table. Anything deeper is not found.
func (s *Server) browse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	segments := ParsePath(r.URL)

	var (
		fragment string
		err      error
	)
	switch len(segments) {
	case 0:
		var schemas []string
		if schemas, err = s.catalog.ListSchemas(ctx); err == nil {
			fragment = render.SchemaList(schemas)
		}
	case 1:
		var tables []database.TableSummary
		if tables, err = s.catalog.TableSummaries(ctx, segments[0]); err == nil {
			fragment = render.TableList(segments[0], tables)
		}
	case 2:
		fragment, err = s.rows(r, segments[0], segments[1])
	default:
		err = &app.ErrNotFound{Path: r.URL.Path}
	}

	if err != nil {
		s.fail(w, r, err)
		return
	}
	write(w, http.StatusOK, fragment)
}

func (s *Server) rows(r *http.Request, schema, table string) (string, error) {
	it, err := s.catalog.StreamRows(r.Context(), schema, table)
	if err != nil {
		return "", err
	}
	defer it.Close()
	return render.Rows(table, it)
}

// fail logs the full cause and answers with a short message in the page shell.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := logging.FromContext(r.Context())

	if status == http.StatusNotFound {
		logger.Debug("not found", slog.String("path", r.URL.Path))
		write(w, status, render.NotFound())
		return
	}

	logger.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Any("error", err),
	)
	write(w, status, render.Message("error", publicMessage(err)))
}

// statusFor maps an application error to its HTTP status.
func statusFor(err error) int {
	var (
		notFound *app.ErrNotFound
		connErr  *app.ErrConnection
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &connErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the client-facing text for err. Causes stay in the log.
func publicMessage(err error) string {
	var (
		connErr   *app.ErrConnection
		renderErr *app.ErrRender
		queryErr  *app.ErrQuery
	)
	switch {
	case errors.As(err, &connErr):
		return "database unavailable"
	case errors.As(err, &renderErr):
		return "could not render table"
	case errors.Is(err, app.ErrUnknownRelation):
		return "unknown schema or table"
	case errors.As(err, &queryErr):
		return "query failed"
	default:
		return http.StatusText(http.StatusInternalServerError)
	}
}

func write(w http.ResponseWriter, status int, fragment string) {
	w.Header().Set("Content-Type", render.ContentType)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(render.Document(fragment)))
}
