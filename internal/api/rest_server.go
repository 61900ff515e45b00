package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/cavein/internal/logging"
	"github.com/annel0/cavein/internal/middleware"
	"github.com/annel0/cavein/internal/world"
)

// FallingCounter — спаунер, умеющий считать ещё падающие объекты
type FallingCounter interface {
	Falling() int
}

// Settler — спаунер, умеющий приземлять падающие объекты мира
type Settler interface {
	SettleAll(grid world.Grid) int
}

// PendingCounter — планировщик, умеющий считать ожидающие задачи
type PendingCounter interface {
	Pending() int
}

// RestServer — REST API dev-хоста
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server
	dispatcher *world.Dispatcher
	spawner    interface{}
	scheduler  PendingCounter
	logger     *logging.Logger
	metrics    *ServerMetrics

	mu     sync.Mutex
	actors map[uuid.UUID]*world.Player
}

// Config содержит конфигурацию REST сервера
type Config struct {
	Port       string            // адрес для запуска, например ":8088"
	Dispatcher *world.Dispatcher // диспетчер сломов
	Spawner    interface{}       // FallingCounter и/или Settler
	Scheduler  PendingCounter    // планировщик восстановлений
	Registry   *prometheus.Registry
	Logger     *logging.Logger
}

// GenericResponse — общий формат ответа API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BreakRequest — тело POST /api/worlds/:world/break
type BreakRequest struct {
	ActorID string `json:"actor_id"`
	X       int    `json:"x"`
	Y       *int   `json:"y" binding:"required"`
	Z       int    `json:"z"`
	// Позиция игрока; по умолчанию клетка над сломанным вокселем
	ActorX *int `json:"actor_x,omitempty"`
	ActorY *int `json:"actor_y,omitempty"`
	ActorZ *int `json:"actor_z,omitempty"`
}

// BreakResponse — результат слома
type BreakResponse struct {
	ActorID   string      `json:"actor_id"`
	Pos       world.Coord `json:"pos"`
	Before    world.Voxel `json:"before"`
	Cancelled bool        `json:"cancelled"`
	Spawned   int         `json:"spawned"`
	Messages  []string    `json:"messages,omitempty"`
}

// NewRestServer создаёт REST сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Dispatcher == nil {
		return nil, errors.New("REST сервер: не задан диспетчер")
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("cavein_api"))
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	var reg prometheus.Registerer
	var gatherer prometheus.Gatherer
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	promMw, err := middleware.NewPrometheusMiddleware("cavein", reg)
	if err != nil {
		return nil, fmt.Errorf("регистрация HTTP-метрик: %w", err)
	}
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	rs := &RestServer{
		router:     router,
		dispatcher: config.Dispatcher,
		spawner:    config.Spawner,
		scheduler:  config.Scheduler,
		logger:     config.Logger,
		metrics:    NewServerMetrics(),
		actors:     make(map[uuid.UUID]*world.Player),
	}
	rs.httpServer = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs, nil
}

// Handler возвращает http.Handler (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)

		worlds := api.Group("/worlds/:world")
		worlds.GET("/voxels", rs.handleGetVoxel)
		worlds.POST("/break", rs.handleBreak)
		worlds.POST("/settle", rs.handleSettle)
	}
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats возвращает статистику сервера
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := make(map[string]interface{})

	collapse := map[string]interface{}{}
	if rs.scheduler != nil {
		collapse["pending_restorations"] = rs.scheduler.Pending()
	}
	if fc, ok := rs.spawner.(FallingCounter); ok {
		collapse["falling_entities"] = fc.Falling()
	}
	stats["collapse"] = collapse

	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	stats["server"] = map[string]interface{}{
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   fmt.Sprintf("%.2f", memoryMB),
		"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
		"server_time": time.Now().Unix(),
	}
	stats["memory_details"] = rs.metrics.GetDetailedMemoryStats()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// handleGetVoxel возвращает воксель в точке ?x&y&z
func (rs *RestServer) handleGetVoxel(c *gin.Context) {
	grid, ok := rs.grid(c)
	if !ok {
		return
	}

	var coords [3]int
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.Atoi(c.Query(name))
		if err != nil {
			rs.fail(c, http.StatusBadRequest, fmt.Sprintf("Неверный параметр %s", name))
			return
		}
		coords[i] = v
	}

	pos := world.At(grid.Name(), coords[0], coords[1], coords[2])
	v := grid.MaterialAt(pos.Vec3)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Воксель получен",
		Data: gin.H{
			"pos":      pos,
			"voxel":    v,
			"material": v.ID.String(),
		},
	})
}

// handleBreak ломает воксель от имени игрока
func (rs *RestServer) handleBreak(c *gin.Context) {
	grid, ok := rs.grid(c)
	if !ok {
		return
	}

	var req BreakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.fail(c, http.StatusBadRequest, "Неверный JSON")
		return
	}

	pos := world.At(grid.Name(), req.X, *req.Y, req.Z)
	actor, err := rs.actor(req, pos)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, "Неверный actor_id")
		return
	}

	before := len(actor.Messages())
	ev, err := rs.dispatcher.Break(c.Request.Context(), actor, pos)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, world.ErrEmptyVoxel):
			status = http.StatusConflict
		case errors.Is(err, world.ErrOutOfBounds):
			status = http.StatusBadRequest
		}
		rs.logger.Debug("Слом %s отклонён: %v", pos, err)
		rs.fail(c, status, err.Error())
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок сломан",
		Data: BreakResponse{
			ActorID:   actor.ID().String(),
			Pos:       pos,
			Before:    ev.Before,
			Cancelled: ev.Cancelled(),
			Spawned:   ev.Spawned,
			Messages:  actor.Messages()[before:],
		},
	})
}

// handleSettle приземляет все падающие объекты мира
func (rs *RestServer) handleSettle(c *gin.Context) {
	grid, ok := rs.grid(c)
	if !ok {
		return
	}
	settler, ok := rs.spawner.(Settler)
	if !ok {
		rs.fail(c, http.StatusNotImplemented, "Спаунер не поддерживает приземление")
		return
	}

	// Приземление пишет в сетку, поэтому идёт под тем же замком, что и слом
	var n int
	rs.dispatcher.Do(func() { n = settler.SettleAll(grid) })
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Объекты приземлены",
		Data:    gin.H{"settled": n},
	})
}

func (rs *RestServer) grid(c *gin.Context) (world.Grid, bool) {
	name := c.Param("world")
	grid, ok := rs.dispatcher.Grid(name)
	if !ok {
		rs.fail(c, http.StatusNotFound, fmt.Sprintf("Мир %q не найден", name))
		return nil, false
	}
	return grid, true
}

// actor возвращает игрока по actor_id (или нового) и ставит его в позицию запроса
func (rs *RestServer) actor(req BreakRequest, pos world.Coord) (*world.Player, error) {
	id := uuid.New()
	if req.ActorID != "" {
		parsed, err := uuid.Parse(req.ActorID)
		if err != nil {
			return nil, err
		}
		id = parsed
	}

	feet := pos.Offset(0, 1, 0)
	if req.ActorX != nil && req.ActorY != nil && req.ActorZ != nil {
		feet = world.At(pos.World, *req.ActorX, *req.ActorY, *req.ActorZ)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	p, ok := rs.actors[id]
	if !ok {
		p = world.NewPlayerWithID(id, "rest-"+id.String()[:8], feet)
		rs.actors[id] = p
	}
	p.MoveTo(feet)
	return p, nil
}

func (rs *RestServer) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, GenericResponse{Success: false, Message: msg})
}

// Start запускает REST сервер; блокируется до остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.httpServer.Addr)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно останавливает сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpServer.Shutdown(ctx)
}
