package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	appai "github.com/lintai-dev/lintai-server/internal/application/ai"
	appruns "github.com/lintai-dev/lintai-server/internal/application/runs"
	domai "github.com/lintai-dev/lintai-server/internal/domain/ai"
	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
	"github.com/lintai-dev/lintai-server/internal/middleware"
	"github.com/lintai-dev/lintai-server/internal/workspace"
)

// maxUploadBytes bounds one multipart scan submission.
const maxUploadBytes = 64 << 20

type Router struct {
	runsSvc *appruns.Service
	aiSvc   *appai.Service
}

func NewRouter(runsSvc *appruns.Service, aiSvc *appai.Service) http.Handler {
	r := &Router{runsSvc: runsSvc, aiSvc: aiSvc}
	mux := chi.NewRouter()

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/fs", r.wrap(r.handleListDir))

		rt.Get("/config", r.wrap(r.handleGetConfig))
		rt.Post("/config", r.wrap(r.handleSetConfig))
		rt.Get("/env", r.wrap(r.handleGetEnv))
		rt.Post("/env", r.wrap(r.handleSetEnv))
		rt.Post("/secrets", r.wrap(r.handleSetSecrets))

		rt.Post("/scan", r.wrap(r.handleScan))
		rt.Post("/inventory", r.wrap(r.handleInventory))

		rt.Get("/runs", r.wrap(r.handleRuns))
		rt.Get("/results/{id}", r.wrap(r.handleResult))
		rt.Get("/results/{id}/filter", r.wrap(r.handleFilter))
		rt.Get("/inventory/{id}/subgraph", r.wrap(r.handleSubgraph))
		rt.Get("/last-result", r.wrap(r.handleLastResult))
		rt.Get("/last-result/{type}", r.wrap(r.handleLastResult))
		rt.Get("/history", r.wrap(r.handleHistory))

		if r.aiSvc != nil {
			rt.Post("/results/{id}/analyze", r.wrap(r.handleAnalyze))
			rt.Get("/results/{id}/analyze", r.wrap(r.handleGetAnalysis))
		}
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequestError marks validation failures from the handlers themselves.
type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return badRequestError{msg: fmt.Sprintf(format, args...)}
}

// wrap maps domain errors onto HTTP classes.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var br badRequestError
		switch {
		case errors.Is(err, workspace.ErrPathEscape):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, domain.ErrRunNotFound):
			http.Error(w, "run not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrWrongRunType), errors.As(err, &br):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domai.ErrQuotaExceeded):
			http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// pendingBody is the sentinel returned while a report does not exist yet.
var pendingBody = map[string]string{"status": "pending"}

// GET /api/fs?path=
func (r *Router) handleListDir(w http.ResponseWriter, req *http.Request) error {
	cwd, entries, err := r.runsSvc.Guard.ListDir(req.URL.Query().Get("path"))
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"cwd": cwd, "items": entries})
}

// GET /api/config
func (r *Router) handleGetConfig(w http.ResponseWriter, req *http.Request) error {
	pref, err := r.runsSvc.Prefs.Load()
	if err != nil {
		return err
	}
	return writeJSON(w, pref)
}

// POST /api/config
func (r *Router) handleSetConfig(w http.ResponseWriter, req *http.Request) error {
	var pref domain.Preferences
	if err := json.NewDecoder(req.Body).Decode(&pref); err != nil {
		return badRequest("invalid config payload: %v", err)
	}
	if err := middleware.ValidateLogLevel(pref.LogLevel); err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateCallDepth(pref.Depth); err != nil {
		return badRequest("%v", err)
	}
	if err := r.runsSvc.Prefs.Save(pref); err != nil {
		return err
	}
	return writeJSON(w, pref)
}

// GET /api/env
func (r *Router) handleGetEnv(w http.ResponseWriter, req *http.Request) error {
	values, err := r.runsSvc.Prefs.ReadEnv()
	if err != nil {
		return err
	}
	return writeJSON(w, values)
}

// POST /api/env
func (r *Router) handleSetEnv(w http.ResponseWriter, req *http.Request) error {
	var values map[string]string
	if err := json.NewDecoder(req.Body).Decode(&values); err != nil {
		return badRequest("invalid env payload: %v", err)
	}
	if err := r.runsSvc.Prefs.WriteEnv(values); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /api/secrets (write-only)
func (r *Router) handleSetSecrets(w http.ResponseWriter, req *http.Request) error {
	var values map[string]string
	if err := json.NewDecoder(req.Body).Decode(&values); err != nil {
		return badRequest("invalid secrets payload: %v", err)
	}
	if err := r.runsSvc.Prefs.WriteSecrets(values); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type triggerBody struct {
	Path     string `json:"path"`
	Depth    int    `json:"depth"`
	LogLevel string `json:"log_level"`
	EnvFile  string `json:"env_file"`
}

// POST /api/scan
// Accepts either a JSON body or a multipart form with uploaded files.
func (r *Router) handleScan(w http.ResponseWriter, req *http.Request) error {
	cmd := appruns.TriggerCommand{Type: domain.TypeScan}

	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/") {
		if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
			return badRequest("invalid multipart form: %v", err)
		}
		cmd.Path = req.URL.Query().Get("path")
		cmd.LogLevel = req.FormValue("log_level")
		if v := req.FormValue("depth"); v != "" {
			d, err := strconv.Atoi(v)
			if err != nil {
				return badRequest("invalid depth: %s", v)
			}
			cmd.Depth = d
		}
		for _, headers := range req.MultipartForm.File {
			for _, fh := range headers {
				up, err := readUpload(fh)
				if err != nil {
					return err
				}
				cmd.Files = append(cmd.Files, up)
			}
		}
	} else if req.ContentLength > 0 {
		var body triggerBody
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return badRequest("invalid scan payload: %v", err)
		}
		cmd.Path = body.Path
		cmd.Depth = body.Depth
		cmd.LogLevel = body.LogLevel
		cmd.EnvFile = body.EnvFile
	}

	return r.trigger(w, req, cmd)
}

// POST /api/inventory
func (r *Router) handleInventory(w http.ResponseWriter, req *http.Request) error {
	cmd := appruns.TriggerCommand{Type: domain.TypeInventory}
	if req.ContentLength > 0 {
		var body triggerBody
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return badRequest("invalid inventory payload: %v", err)
		}
		cmd.Path = body.Path
		cmd.Depth = body.Depth
		cmd.LogLevel = body.LogLevel
		cmd.EnvFile = body.EnvFile
	}
	return r.trigger(w, req, cmd)
}

func (r *Router) trigger(w http.ResponseWriter, req *http.Request, cmd appruns.TriggerCommand) error {
	if err := middleware.ValidateLogLevel(cmd.LogLevel); err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateCallDepth(cmd.Depth); err != nil {
		return badRequest("%v", err)
	}
	cmd.Path = middleware.SanitizeString(cmd.Path)

	run, err := r.runsSvc.Trigger(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, run)
}

func readUpload(fh *multipart.FileHeader) (appruns.UploadedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return appruns.UploadedFile{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return appruns.UploadedFile{}, err
	}
	return appruns.UploadedFile{Name: fh.Filename, Data: data}, nil
}

// GET /api/runs
func (r *Router) handleRuns(w http.ResponseWriter, req *http.Request) error {
	list, err := r.runsSvc.List(req.Context())
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Run{}
	}
	return writeJSON(w, list)
}

// GET /api/results/{id}
func (r *Router) handleResult(w http.ResponseWriter, req *http.Request) error {
	id := domain.RunID(chi.URLParam(req, "id"))
	run, rep, pending, err := r.runsSvc.Result(req.Context(), id)
	if err != nil {
		return err
	}
	if pending {
		return writeJSON(w, pendingBody)
	}
	return writeJSON(w, map[string]any{"run": run, "report": rep})
}

// GET /api/results/{id}/filter?severity=&owasp_id=&component=
func (r *Router) handleFilter(w http.ResponseWriter, req *http.Request) error {
	id := domain.RunID(chi.URLParam(req, "id"))
	q := req.URL.Query()
	criteria := appruns.Criteria{
		Severity:  q.Get("severity"),
		OwaspID:   q.Get("owasp_id"),
		Component: q.Get("component"),
	}

	rep, findings, pending, err := r.runsSvc.FilterFindings(req.Context(), id, criteria)
	if err != nil {
		return err
	}
	if pending {
		return writeJSON(w, pendingBody)
	}
	if findings == nil {
		findings = []domain.Finding{}
	}
	return writeJSON(w, map[string]any{
		"findings":     findings,
		"scanned_path": rep.ScannedPath,
	})
}

// GET /api/inventory/{id}/subgraph?node=&depth=
func (r *Router) handleSubgraph(w http.ResponseWriter, req *http.Request) error {
	id := domain.RunID(chi.URLParam(req, "id"))
	q := req.URL.Query()

	node := q.Get("node")
	if node == "" {
		return badRequest("node is required")
	}
	depth := 1
	if v := q.Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return badRequest("invalid depth: %s", v)
		}
		depth = d
	}
	if err := middleware.ValidateSubgraphDepth(depth); err != nil {
		return badRequest("%v", err)
	}

	sub, pending, err := r.runsSvc.Subgraph(req.Context(), id, node, depth)
	if err != nil {
		return err
	}
	if pending {
		return writeJSON(w, pendingBody)
	}
	if sub.Nodes == nil {
		sub.Nodes = []domain.Node{}
	}
	if sub.Edges == nil {
		sub.Edges = []domain.Edge{}
	}
	return writeJSON(w, sub)
}

// GET /api/last-result and /api/last-result/{type}
func (r *Router) handleLastResult(w http.ResponseWriter, req *http.Request) error {
	typeFilter := domain.RunType("")
	if t := chi.URLParam(req, "type"); t != "" {
		if err := middleware.ValidateRunType(t); err != nil {
			return badRequest("%v", err)
		}
		typeFilter = domain.RunType(t)
	}

	run, rep, err := r.runsSvc.LastResult(req.Context(), typeFilter)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"run": run, "report": rep})
}

// GET /api/history
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	entries, err := r.runsSvc.History(req.Context())
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []appruns.HistoryEntry{}
	}
	return writeJSON(w, entries)
}

// POST /api/results/{id}/analyze
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	id := domain.RunID(chi.URLParam(req, "id"))
	result, pending, err := r.aiSvc.AnalyzeRun(req.Context(), id)
	if err != nil {
		return err
	}
	if pending {
		return writeJSON(w, pendingBody)
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(result)
	return err
}

// GET /api/results/{id}/analyze
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	id := domain.RunID(chi.URLParam(req, "id"))
	result, pending, err := r.aiSvc.Analysis(req.Context(), id)
	if err != nil {
		return err
	}
	if pending {
		return writeJSON(w, pendingBody)
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(result)
	return err
}
