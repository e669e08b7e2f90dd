package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rpattn/candh/internal/domain"
	"github.com/rpattn/candh/internal/historyloader"
	"github.com/rpattn/candh/internal/middleware"
	"github.com/rpattn/candh/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	repo   repository.HistoryRepository
	logger *zap.Logger
}

// NewHTTPHandler serves history queries:
//
//	GET /history?entityType=User&entityId=42        JSON list of masters
//	GET /history/diff?entityType=User&entityId=42   unified diffs, text
//	GET /history/export?entityType=User&entityId=42 XLSX workbook
//
// entityId may be repeated or comma separated.
func NewHTTPHandler(repo repository.HistoryRepository, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case strings.HasSuffix(path, "/export"):
		h.handleExport(w, r)
	case strings.HasSuffix(path, "/diff"):
		h.handleDiff(w, r)
	default:
		h.handleList(w, r)
	}
}

type historyQuery struct {
	entityType string
	entityIDs  []string
}

func parseQuery(r *http.Request) (historyQuery, error) {
	values := r.URL.Query()
	q := historyQuery{entityType: strings.TrimSpace(values.Get("entityType"))}
	if q.entityType == "" {
		return q, fmt.Errorf("entityType is required")
	}
	seen := make(map[string]struct{})
	for _, raw := range values["entityId"] {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			q.entityIDs = append(q.entityIDs, id)
		}
	}
	if len(q.entityIDs) == 0 {
		return q, fmt.Errorf("at least one entityId is required")
	}
	return q, nil
}

// load returns the masters of every requested entity, grouped in request
// order and oldest first within an entity.
func (h *Handler) load(r *http.Request, q historyQuery) ([]domain.HistoryMaster, error) {
	var (
		byID map[string][]domain.HistoryMaster
		err  error
	)
	if loader := middleware.HistoryLoaderFromContext(r.Context()); loader != nil {
		byID, err = historyloader.LoadMany(r.Context(), loader, q.entityType, q.entityIDs)
	} else {
		byID, err = h.repo.ListByEntities(r.Context(), q.entityType, q.entityIDs)
	}
	if err != nil {
		return nil, err
	}

	masters := []domain.HistoryMaster{}
	for _, id := range q.entityIDs {
		masters = append(masters, byID[id]...)
	}
	return masters, nil
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) (historyQuery, []domain.HistoryMaster, bool) {
	q, err := parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return q, nil, false
	}
	masters, err := h.load(r, q)
	if err != nil {
		h.logger.Error("failed to load history",
			zap.String("entity_type", q.entityType),
			zap.Strings("entity_ids", q.entityIDs),
			zap.Error(err),
		)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return q, nil, false
	}
	if len(masters) == 0 {
		http.Error(w, fmt.Sprintf("no history for %s %s", q.entityType, strings.Join(q.entityIDs, ",")), http.StatusNotFound)
		return q, nil, false
	}
	return q, masters, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	_, masters, ok := h.query(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, masters)
}

func (h *Handler) handleDiff(w http.ResponseWriter, r *http.Request) {
	_, masters, ok := h.query(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	for _, m := range masters {
		fmt.Fprintf(&buf, "# %s %s by %s\n", m.Operation, m.ID, m.ModifiedBy)
		buf.WriteString(m.UnifiedDiff())
		buf.WriteString("\n")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	q, masters, ok := h.query(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, masters); err != nil {
		h.logger.Error("failed to render history workbook", zap.Error(err))
		http.Error(w, "failed to render workbook", http.StatusInternalServerError)
		return
	}

	name := sanitizeFileComponent(q.entityType)
	if len(q.entityIDs) == 1 {
		name += "-" + sanitizeFileComponent(q.entityIDs[0])
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"history-%s.xlsx\"", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
