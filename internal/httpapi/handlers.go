package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/aggregate"
	"github.com/vicente3000/Sistema-de-sensores/internal/broadcast"
	"github.com/vicente3000/Sistema-de-sensores/internal/cache"
	"github.com/vicente3000/Sistema-de-sensores/internal/models"
	"github.com/vicente3000/Sistema-de-sensores/internal/repository"
	"github.com/vicente3000/Sistema-de-sensores/internal/service"
)

// Handler exposes the monitor's HTTP surface: ingest, history queries,
// alert listing/workflow, realtime latest values, health, websocket.
type Handler struct {
	ingest   *service.IngestService
	engine   *aggregate.Engine
	alerts   repository.AlertsRepository
	realtime *cache.RealtimeCache
	hub      *broadcast.Hub
	db       *sql.DB
	redis    *redis.Client
	logger   *zap.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(
	ingest *service.IngestService,
	engine *aggregate.Engine,
	alerts repository.AlertsRepository,
	realtime *cache.RealtimeCache,
	hub *broadcast.Hub,
	db *sql.DB,
	redisClient *redis.Client,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		ingest:   ingest,
		engine:   engine,
		alerts:   alerts,
		realtime: realtime,
		hub:      hub,
		db:       db,
		redis:    redisClient,
		logger:   logger,
	}
}

// PostReading handles POST /api/v1/readings.
func (h *Handler) PostReading(w http.ResponseWriter, r *http.Request) {
	var input service.ReadingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, err := h.ingest.Ingest(r.Context(), input); err != nil {
		h.writeIngestError(w, err)
		return
	}

	writeOK(w, http.StatusCreated, map[string]int{"inserted": 1})
}

// PostReadingsBatch handles POST /api/v1/readings/batch.
func (h *Handler) PostReadingsBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Readings []service.ReadingInput `json:"readings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	inserted, err := h.ingest.IngestBatch(r.Context(), body.Readings)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	writeOK(w, http.StatusCreated, map[string]int{"inserted": inserted})
}

func (h *Handler) writeIngestError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("Ingest failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "failed to store reading")
}

// GetAggregate handles GET /api/v1/history/aggregate.
func (h *Handler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	plant := q.Get("plant")
	sensor := q.Get("sensor")
	if plant == "" || sensor == "" {
		writeError(w, http.StatusBadRequest, "missing plant or sensor")
		return
	}

	step := models.Step(q.Get("step"))
	if step == "" {
		step = models.Step1m
	}
	if step.Duration() == 0 {
		writeError(w, http.StatusBadRequest, "step must be one of 1m, 5m, 1h")
		return
	}

	from, err := parseQueryTime(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseQueryTime(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	buckets, err := h.engine.Aggregate(r.Context(), plant, sensor, step, from, to)
	if err != nil {
		h.logger.Error("Aggregate query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "aggregate query failed")
		return
	}

	writeOK(w, http.StatusOK, buckets)
}

// GetDaily handles GET /api/v1/history/daily.
func (h *Handler) GetDaily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	plant := q.Get("plant")
	sensor := q.Get("sensor")
	if plant == "" || sensor == "" {
		writeError(w, http.StatusBadRequest, "missing plant or sensor")
		return
	}

	from, err := parseQueryTime(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseQueryTime(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rollups, err := h.engine.DailyAggregate(r.Context(), plant, sensor, from, to)
	if err != nil {
		h.logger.Error("Daily aggregate query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "daily aggregate query failed")
		return
	}

	writeOK(w, http.StatusOK, rollups)
}

// ListAlerts handles GET /api/v1/alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := repository.AlertFilters{
		PlantID:  q.Get("plantId"),
		SensorID: q.Get("sensorId"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		filters.Limit = limit
	}

	from, err := parseQueryTime(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseQueryTime(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters.From = from
	filters.To = to

	alerts, err := h.alerts.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("Alert listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}

	writeOK(w, http.StatusOK, alerts)
}

// UpdateAlertStatus handles PATCH /api/v1/alerts/{id}/status.
func (h *Handler) UpdateAlertStatus(w http.ResponseWriter, r *http.Request, alertID string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.alerts.UpdateStatus(r.Context(), alertID, body.Status); err != nil {
		if strings.Contains(err.Error(), "invalid alert status") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Alert status update failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update alert")
		return
	}

	writeOK(w, http.StatusOK, map[string]string{"alert_id": alertID, "status": body.Status})
}

// GetLatest handles GET /api/v1/realtime/latest.
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	plant := q.Get("plant")
	sensor := q.Get("sensor")
	if plant == "" || sensor == "" {
		writeError(w, http.StatusBadRequest, "missing plant or sensor")
		return
	}

	event, err := h.realtime.GetLatest(r.Context(), plant, sensor)
	if err != nil {
		writeError(w, http.StatusNotFound, "no recent data for channel")
		return
	}

	writeOK(w, http.StatusOK, event)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	type dep struct {
		OK bool `json:"ok"`
	}
	health := struct {
		OK       bool `json:"ok"`
		Postgres dep  `json:"postgres"`
		Redis    dep  `json:"redis"`
	}{OK: true}

	if err := h.db.PingContext(r.Context()); err == nil {
		health.Postgres.OK = true
	} else {
		health.OK = false
	}
	if h.redis != nil {
		if err := h.redis.Ping(r.Context()).Err(); err == nil {
			health.Redis.OK = true
		} else {
			health.OK = false
		}
	}

	status := http.StatusOK
	if !health.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// ServeWS handles GET /ws.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	broadcast.ServeWS(h.hub, h.logger, w, r)
}

// parseQueryTime resolves an optional from/to query parameter. Numeric
// values use the same epoch seconds-vs-milliseconds heuristic as ingest.
func parseQueryTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := service.ParseTimestamp(n, time.Now)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, errors.New("unparseable time parameter: " + s)
	}
	u := t.UTC()
	return &u, nil
}
