// Package imports serves the spreadsheet import workflow: upload, header
// mapping, preview with inline edits, approval and summaries.
package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"AdvisorDesk/api"
	"AdvisorDesk/api/constants"
	"AdvisorDesk/api/utils"
	"AdvisorDesk/internal/checksum"
	"AdvisorDesk/internal/config"
	"AdvisorDesk/internal/directory"
	"AdvisorDesk/internal/logger"
	"AdvisorDesk/internal/narrative"
	"AdvisorDesk/internal/pipeline"
	"AdvisorDesk/internal/report"
	"AdvisorDesk/internal/repository"
	"AdvisorDesk/internal/session"
	"AdvisorDesk/internal/workbook"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Deps are the collaborators of the import handlers. Directory, Store and
// Narrator may be nil.
type Deps struct {
	Reference        *config.Reference
	Sessions         *session.Manager
	Directory        directory.Loader
	Store            repository.Store
	Narrator         narrative.Narrator
	Location         *time.Location
	Now              func() time.Time
	DirectoryTimeout time.Duration
}

type Handler struct {
	ref              *config.Reference
	mapper           *pipeline.HeaderMapper
	enricher         *pipeline.Enricher
	sessions         *session.Manager
	directory        directory.Loader
	store            repository.Store
	narrator         narrative.Narrator
	directoryTimeout time.Duration
}

func NewHandler(d Deps) *Handler {
	ref := d.Reference
	if ref == nil {
		ref = config.DefaultReference()
	}
	narrator := d.Narrator
	if narrator == nil {
		narrator = narrative.Disabled{}
	}
	timeout := d.DirectoryTimeout
	if timeout <= 0 {
		timeout, _ = time.ParseDuration(config.DirectoryFetchTimeout)
	}
	return &Handler{
		ref:              ref,
		mapper:           pipeline.NewHeaderMapper(ref),
		enricher:         pipeline.NewEnricher(ref, d.Location, d.Now),
		sessions:         d.Sessions,
		directory:        d.Directory,
		store:            d.Store,
		narrator:         narrator,
		directoryTimeout: timeout,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	api.RespondWithPayload(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	api.RespondWithPayload(w, http.StatusOK, map[string]interface{}{
		"version":          h.ref.Version,
		"fields":           h.mapper.Fields(),
		"productTypes":     h.ref.ProductTypes,
		"fundTypes":        h.ref.FundTypes,
		"investmentLinked": h.ref.InvestmentLinked,
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)
	file, fh, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.RespondWithError(w, http.StatusRequestEntityTooLarge, constants.ErrUploadTooLarge)
			return
		}
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrMissingFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrUnreadableWorkbook)
		return
	}

	sum := checksum.Sum(data)
	if existing, ok := h.sessions.FindByChecksum(sum); ok {
		logger.L().Info("duplicate upload", zap.String("session_id", existing.ID), zap.String("file", fh.Filename))
		api.RespondWithPayload(w, http.StatusOK, h.sessionPayload(existing, true))
		return
	}

	sheet, err := workbook.Read(fh.Filename, data)
	switch {
	case errors.Is(err, workbook.ErrUnsupportedFormat):
		api.RespondWithError(w, http.StatusUnsupportedMediaType, constants.ErrUnsupportedFormat)
		return
	case errors.Is(err, workbook.ErrNoHeader):
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrNoHeaderRow)
		return
	case err != nil:
		logger.L().Warn("workbook read failed", zap.String("file", fh.Filename), zap.Error(err))
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrUnreadableWorkbook)
		return
	}

	mapping := h.mapper.Map(sheet.Headers)
	sess := h.sessions.CreateSession(fh.Filename, sum, sheet.Headers, sheet.Rows, mapping)
	logger.L().Info("import session created",
		zap.String("session_id", sess.ID),
		zap.String("file", fh.Filename),
		zap.String("sheet", sheet.Name),
		zap.Int("rows", len(sheet.Rows)))
	api.RespondWithPayload(w, http.StatusCreated, h.sessionPayload(sess, false))
}

func (h *Handler) sessionPayload(s *session.Session, duplicate bool) map[string]interface{} {
	return map[string]interface{}{
		"sessionId":   s.ID,
		"fileName":    s.FileName,
		"headers":     s.Headers,
		"mapping":     s.Mapping,
		"needsReview": nonNil(pipeline.NeedsReview(s.Headers, s.Mapping)),
		"fields":      h.mapper.Fields(),
		"rowCount":    len(s.RawRows),
		"duplicate":   duplicate,
		"expiresAt":   s.ExpiresAt,
	}
}

func (h *Handler) MapHeaders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Headers []string `json:"headers"`
	}
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}
	mapping := h.mapper.Map(req.Headers)
	api.RespondWithPayload(w, http.StatusOK, map[string]interface{}{
		"mapping":     mapping,
		"needsReview": nonNil(pipeline.NeedsReview(req.Headers, mapping)),
	})
}

// UpdateMapping applies manual overrides. Row edits made under the previous
// mapping are discarded because they were keyed by the old fields.
func (h *Handler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Overrides map[string]string `json:"overrides"`
	}
	if err := api.DecodeJSON(r, &req); err != nil || req.Overrides == nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}

	rejected := h.mapper.ApplyOverrides(sess.Mapping, req.Overrides)
	sess.Records = nil
	sess.Rows = nil
	if !h.save(w, sess) {
		return
	}
	api.RespondWithPayload(w, http.StatusOK, map[string]interface{}{
		"mapping":     sess.Mapping,
		"rejected":    nonNil(rejected),
		"needsReview": nonNil(pipeline.NeedsReview(sess.Headers, sess.Mapping)),
	})
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if sess.Records == nil {
		sess.Records = h.records(sess)
	}
	messages, _ := h.enrich(r.Context(), sess)
	if !h.save(w, sess) {
		return
	}
	api.RespondWithPayload(w, http.StatusOK, h.rowsPayload(sess, messages))
}

// ListRows pages through the rows of the last preview.
func (h *Handler) ListRows(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if sess.Rows == nil {
		api.RespondWithError(w, http.StatusConflict, constants.ErrNotPreviewed)
		return
	}
	page, err := utils.ExtractPagination(r)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end := page.Window(len(sess.Rows))
	api.RespondWithPayload(w, http.StatusOK, map[string]interface{}{
		"sessionId":  sess.ID,
		"rows":       sess.Rows[start:end],
		"blocked":    nonNil(pipeline.Blocked(sess.Rows)),
		"pagination": page,
	})
}

func (h *Handler) AddRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	fields, ok := h.rowFields(w, r)
	if !ok {
		return
	}
	if sess.Records == nil {
		sess.Records = h.records(sess)
	}
	rec := make(pipeline.Record, len(fields))
	for k, v := range fields {
		if v != "" {
			rec[k] = v
		}
	}
	sess.Records = append(sess.Records, rec)
	h.finishEdit(w, r, sess)
}

func (h *Handler) EditRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	fields, ok := h.rowFields(w, r)
	if !ok {
		return
	}
	if sess.Records == nil {
		sess.Records = h.records(sess)
	}
	idx, ok := rowIndex(w, r, len(sess.Records))
	if !ok {
		return
	}
	rec := sess.Records[idx]
	for k, v := range fields {
		if v == "" {
			delete(rec, k)
		} else {
			rec[k] = v
		}
	}
	h.finishEdit(w, r, sess)
}

func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if sess.Records == nil {
		sess.Records = h.records(sess)
	}
	idx, ok := rowIndex(w, r, len(sess.Records))
	if !ok {
		return
	}
	sess.Records = append(sess.Records[:idx], sess.Records[idx+1:]...)
	h.finishEdit(w, r, sess)
}

// finishEdit re-runs the whole batch so identifiers and client-level hints stay
// consistent with the edited rows.
func (h *Handler) finishEdit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	messages, _ := h.enrich(r.Context(), sess)
	if !h.save(w, sess) {
		return
	}
	api.RespondWithPayload(w, http.StatusOK, h.rowsPayload(sess, messages))
}

// Approve persists the batch unless a row is blocking. The rows are enriched
// again against a fresh directory first; without one the identifiers could
// collide with persisted clients, so nothing is saved.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if sess.Records == nil {
		api.RespondWithError(w, http.StatusConflict, constants.ErrNotPreviewed)
		return
	}
	messages, err := h.enrich(r.Context(), sess)
	if err != nil {
		api.RespondWithError(w, http.StatusServiceUnavailable, constants.ErrDirectoryUnavailable)
		return
	}
	if blocked := pipeline.Blocked(sess.Rows); len(blocked) > 0 {
		if !h.save(w, sess) {
			return
		}
		payload := h.rowsPayload(sess, messages)
		api.RespondWithErrorPayload(w, http.StatusUnprocessableEntity, fmt.Sprintf(constants.ErrBlockedRows, len(blocked)), payload)
		return
	}
	if h.store == nil {
		api.RespondWithError(w, http.StatusServiceUnavailable, constants.ErrStoreUnavailable)
		return
	}

	res, err := h.store.SaveBatch(r.Context(), uuid.New(), sess.Rows)
	if err != nil {
		logger.L().Error("save batch failed", zap.String("session_id", sess.ID), zap.Error(err))
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrSaveFailed)
		return
	}
	h.sessions.DeleteSession(sess.ID)
	logger.L().Info("import approved",
		zap.String("session_id", sess.ID),
		zap.String("batch_id", res.BatchID.String()),
		zap.Int("policies", res.Policies))
	api.RespondWithPayload(w, http.StatusOK, map[string]interface{}{
		"batchId":  res.BatchID,
		"clients":  res.Clients,
		"policies": res.Policies,
		"messages": nonNil(messages),
	})
}

// Summary never fails on the model's account; an unavailable model yields an
// empty summary and a message.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	question, ok := summaryQuestion(w, r)
	if !ok {
		return
	}
	messages, ok := h.ensureRows(w, r, sess)
	if !ok {
		return
	}
	payload := h.summarize(r.Context(), sess, sess.Rows, question, messages)
	api.RespondWithPayload(w, http.StatusOK, payload)
}

// ClientSummary summarizes the rows of one client in the session. A blank
// question asks for the per-client bullet summary.
func (h *Handler) ClientSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	question, ok := summaryQuestion(w, r)
	if !ok {
		return
	}
	messages, ok := h.ensureRows(w, r, sess)
	if !ok {
		return
	}
	clientID := mux.Vars(r)["clientId"]
	var rows []pipeline.EnrichedRow
	if clientID != config.NoClientID {
		for _, row := range sess.Rows {
			if row.ClientID == clientID {
				rows = append(rows, row)
			}
		}
	}
	if len(rows) == 0 {
		api.RespondWithError(w, http.StatusNotFound, fmt.Sprintf(constants.ErrClientNotInSession, clientID))
		return
	}
	if strings.TrimSpace(question) == "" {
		question = narrative.ClientQuestion
	}
	payload := h.summarize(r.Context(), sess, rows, question, messages)
	payload["clientId"] = clientID
	payload["clientName"] = rows[0].ClientName
	api.RespondWithPayload(w, http.StatusOK, payload)
}

func (h *Handler) summarize(ctx context.Context, sess *session.Session, rows []pipeline.EnrichedRow, question string, messages []string) map[string]interface{} {
	text, err := h.narrator.Summarize(ctx, rows, question)
	if err != nil {
		logger.L().Warn("narrative failed", zap.String("session_id", sess.ID), zap.Error(err))
		messages = append(messages, fmt.Sprintf(constants.MsgNarrativeFailed, err))
		text = ""
	}
	summarized := len(rows)
	if summarized > narrative.MaxRows {
		summarized = narrative.MaxRows
	}
	return map[string]interface{}{
		"summary":         text,
		"matchedCount":    len(rows),
		"summarizedCount": summarized,
		"messages":        nonNil(messages),
	}
}

// Report downloads the enriched rows and their notes as a workbook.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if _, ok := h.ensureRows(w, r, sess); !ok {
		return
	}
	data, err := report.ImportReport(sess.Rows)
	if err != nil {
		logger.L().Error("import report failed", zap.String("session_id", sess.ID), zap.Error(err))
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrReportFailed)
		return
	}
	name := strings.TrimSuffix(sess.FileName, filepath.Ext(sess.FileName))
	if name == "" {
		name = "import"
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": name + "-report.xlsx",
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.L().Warn("import report write failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

type typeShare struct {
	ProductType string `json:"productType"`
	Count       int    `json:"count"`
	Percentage  string `json:"percentage"`
}

func (h *Handler) ProductTypeInsights(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		api.RespondWithError(w, http.StatusServiceUnavailable, constants.ErrStoreUnavailable)
		return
	}
	counts, err := h.store.ProductTypeCounts(r.Context())
	if err != nil {
		logger.L().Error("product type counts failed", zap.Error(err))
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInsightsFailed)
		return
	}
	repository.SortCounts(counts)
	most, least, ok := repository.Extremes(counts)
	if !ok {
		api.RespondWithPayload(w, http.StatusOK, map[string]interface{}{
			"total":    0,
			"messages": []string{constants.MsgNoPersistedPolicies},
		})
		return
	}
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	share := func(c repository.ProductTypeCount) typeShare {
		return typeShare{
			ProductType: c.ProductType,
			Count:       c.Count,
			Percentage:  strconv.FormatFloat(float64(c.Count)*100/float64(total), 'f', 1, 64),
		}
	}
	api.RespondWithPayload(w, http.StatusOK, map[string]interface{}{
		"total":       total,
		"mostCommon":  share(most),
		"leastCommon": share(least),
		"counts":      counts,
	})
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.sessions.DeleteSession(sess.ID)
	api.RespondWithPayload(w, http.StatusOK, map[string]interface{}{"sessionId": sess.ID})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.GetSession(mux.Vars(r)["id"])
	if err != nil {
		api.RespondWithError(w, http.StatusNotFound, constants.ErrSessionNotFound)
		return nil, false
	}
	return sess, true
}

func (h *Handler) save(w http.ResponseWriter, sess *session.Session) bool {
	if err := h.sessions.Update(sess); err != nil {
		api.RespondWithError(w, http.StatusNotFound, constants.ErrSessionNotFound)
		return false
	}
	return true
}

// ensureRows enriches the session when it has not been previewed yet.
func (h *Handler) ensureRows(w http.ResponseWriter, r *http.Request, sess *session.Session) ([]string, bool) {
	if sess.Rows != nil {
		return nil, true
	}
	if sess.Records == nil {
		sess.Records = h.records(sess)
	}
	messages, _ := h.enrich(r.Context(), sess)
	return messages, h.save(w, sess)
}

func summaryQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Question string `json:"question"`
	}
	if r.ContentLength != 0 {
		if err := api.DecodeJSON(r, &req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return "", false
		}
	}
	return req.Question, true
}

func (h *Handler) records(sess *session.Session) []pipeline.Record {
	out := make([]pipeline.Record, len(sess.RawRows))
	for i, raw := range sess.RawRows {
		out[i] = pipeline.ApplyMapping(sess.Headers, raw, sess.Mapping)
	}
	return out
}

// enrich loads the directory once for the pass. A failed load degrades to an
// empty directory and a message; the load error is returned as well so that
// callers persisting the rows can refuse.
func (h *Handler) enrich(ctx context.Context, sess *session.Session) ([]string, error) {
	var messages []string
	var dir *pipeline.Directory
	var loadErr error
	if h.directory != nil {
		dctx, cancel := context.WithTimeout(ctx, h.directoryTimeout)
		dir, loadErr = h.directory.Load(dctx)
		cancel()
		if loadErr != nil {
			logger.L().Warn("client directory unavailable", zap.String("session_id", sess.ID), zap.Error(loadErr))
			messages = append(messages, constants.MsgDirectoryFailed)
			dir = nil
		}
	}
	sess.Rows = h.enricher.Enrich(sess.Records, dir, nil)
	return messages, loadErr
}

func (h *Handler) rowsPayload(sess *session.Session, messages []string) map[string]interface{} {
	return map[string]interface{}{
		"sessionId": sess.ID,
		"rows":      sess.Rows,
		"blocked":   nonNil(pipeline.Blocked(sess.Rows)),
		"messages":  nonNil(messages),
	}
}

func (h *Handler) rowFields(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	var req struct {
		Fields map[string]string `json:"fields"`
	}
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return nil, false
	}
	if len(req.Fields) == 0 {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrNoRowFields)
		return nil, false
	}
	known := make(map[string]bool)
	for _, f := range h.mapper.Fields() {
		known[f] = true
	}
	for k := range req.Fields {
		if !known[k] {
			api.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf(constants.ErrUnknownRowField, k))
			return nil, false
		}
	}
	return req.Fields, true
}

func rowIndex(w http.ResponseWriter, r *http.Request, n int) (int, bool) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || idx < 0 || idx >= n {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrRowIndex)
		return 0, false
	}
	return idx, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
