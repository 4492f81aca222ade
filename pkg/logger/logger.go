package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hcf-itd/asset-registry-api/pkg/config"
	"github.com/hcf-itd/asset-registry-api/pkg/middleware/requestid"
)

// New builds the application logger from config: production JSON encoding by
// default, console output for local development.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if strings.EqualFold(cfg.Log.Format, "console") {
		zapCfg.Encoding = "console"
	} else {
		zapCfg.Encoding = "json"
	}

	zapCfg.Level = parseLevel(cfg.Log.Level)
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}

// parseLevel falls back to info on unknown level strings.
func parseLevel(level string) zap.AtomicLevel {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if level == "" {
		return lvl
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return lvl
}

// GinMiddleware logs one structured entry per request. Server errors log at
// error level, client errors at warn, everything else at info.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("http_request", fields...)
		default:
			l.Info("http_request", fields...)
		}
	}
}
