package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/damoang/angple-qualitygate/internal/analyzer"
	"github.com/damoang/angple-qualitygate/internal/config"
	"github.com/damoang/angple-qualitygate/internal/events"
	"github.com/damoang/angple-qualitygate/internal/handler"
	"github.com/damoang/angple-qualitygate/internal/middleware"
	"github.com/damoang/angple-qualitygate/internal/migration"
	"github.com/damoang/angple-qualitygate/internal/repository"
	"github.com/damoang/angple-qualitygate/internal/routes"
	"github.com/damoang/angple-qualitygate/internal/service"
	pkgcache "github.com/damoang/angple-qualitygate/pkg/cache"
	"github.com/damoang/angple-qualitygate/pkg/jwt"
	pkglogger "github.com/damoang/angple-qualitygate/pkg/logger"
	pkgredis "github.com/damoang/angple-qualitygate/pkg/redis"
)

// @title           Angple Quality Gate API
// @version         1.0
// @description     Quality gate and approval orchestrator for scheduled social posts
//
// @host            localhost:8085
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles, dotenvErr := config.LoadDotEnv(".")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)
	if dotenvErr != nil {
		pkglogger.Warn("%v", dotenvErr)
	}

	// 설정 로드
	configPath := getConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	// MySQL 연결; the gate cannot decide anything without its store
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to MySQL")
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Redis 연결 (optional: rate limiting and event fan-out)
	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		pkglogger.Warn("Failed to connect to Redis: %v (continuing without Redis)", err)
		redisClient = nil
	} else {
		pkglogger.Info("Connected to Redis")
	}

	// Lifecycle event bus
	bus := events.NewBus()
	bus.Subscribe("metrics", events.Wildcard, events.MetricsSink())
	bus.Subscribe("log", events.Wildcard, events.LogSink())
	if redisClient != nil {
		bus.Subscribe("redis", events.Wildcard, events.RedisSink(redisClient, cfg.Redis.EventChannel))
	}

	// Analyzers
	analyzers := analyzer.NewDefaultSet(cfg.Quality.Thresholds.BrandMin, cfg.Quality.BlockedTerms)
	if cfg.Quality.LLM.Enabled {
		rules := analyzer.NewSafetyAnalyzer(cfg.Quality.BlockedTerms)
		analyzers.Safety = analyzer.NewLLMSafetyAnalyzer(rules, cfg.Quality.LLM.BaseURL, cfg.Quality.LLM.APIKey, cfg.Quality.LLM.Model, cfg.Quality.LLM.Timeout)
		pkglogger.Info("LLM safety review enabled (model=%s)", cfg.Quality.LLM.Model)
	}
	if err := analyzers.Validate(); err != nil {
		log.Fatalf("Invalid analyzer set: %v", err)
	}

	policyCfg, err := cfg.Quality.Policy()
	if err != nil {
		log.Fatalf("Invalid quality policy: %v", err)
	}
	policy, err := service.NewDecisionPolicy(policyCfg)
	if err != nil {
		log.Fatalf("Invalid quality policy: %v", err)
	}

	// Repositories
	postRepo := repository.NewPostRepository(db)
	resultRepo := repository.NewQualityResultRepository(db)
	queueRepo := repository.NewApprovalQueueRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	brandKitRepo := repository.NewBrandKitRepository(db)

	// Services
	brandKitService := service.NewBrandKitService(brandKitRepo, pkgcache.NewService(redisClient))
	gateService := service.NewQualityGateService(db, postRepo, resultRepo, queueRepo, auditRepo, brandKitService, analyzers, policy, bus, service.GateOptions{
		AnalyzerTimeout: cfg.Quality.AnalyzerTimeout,
		ReviewWindow:    cfg.Quality.ReviewWindow,
		PersistRetries:  cfg.Quality.PersistRetries,
	})
	approvalService := service.NewApprovalService(db, postRepo, queueRepo, auditRepo, bus)
	auditService := service.NewAuditService(postRepo, auditRepo)
	schedulerGate := service.NewSchedulerGate(postRepo, resultRepo, auditRepo, bus)
	scheduleService := service.NewScheduleService(db, postRepo, auditRepo, gateService, bus)

	sweeper := service.NewExpirySweeper(queueRepo, approvalService, cfg.Quality.ExpirySweepInterval)
	sweeper.Start()

	// Handlers
	qualityHandler := handler.NewQualityHandler(gateService, approvalService, auditService, schedulerGate, brandKitService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn, cfg.JWT.RefreshIn)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     splitAndTrim(cfg.CORS.AllowOrigins, ","),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Tenant-ID", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "unavailable"
		}
		c.JSON(status, gin.H{
			"status":  dbStatus,
			"service": "angple-qualitygate",
			"time":    time.Now().Unix(),
		})
	})

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.Setup(router, qualityHandler, scheduleHandler, jwtManager, redisClient, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		pkglogger.Info("Starting quality gate on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	pkglogger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		pkglogger.Error("Server shutdown: %v", err)
	}
	sweeper.Stop()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// initDB MySQL 연결 초기화
func initDB(cfg *config.Config) (*gorm.DB, error) {
	mysqlCfg, err := mysqldriver.ParseDSN(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("DSN 파싱 실패: %w", err)
	}
	if mysqlCfg.Params == nil {
		mysqlCfg.Params = map[string]string{}
	}
	mysqlCfg.Params["time_zone"] = "'+00:00'"

	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(mysql.Open(mysqlCfg.FormatDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	return db, nil
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
