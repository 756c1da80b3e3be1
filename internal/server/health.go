package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
)

const readinessTimeout = 5 * time.Second

// ReadinessCheck checks one backing service.
type ReadinessCheck struct {
	Component string
	Check     func(ctx context.Context) error
}

// PostgresCheck pings the pool.
func PostgresCheck(pool *pgxpool.Pool) ReadinessCheck {
	return ReadinessCheck{Component: "postgres", Check: pool.Ping}
}

// MinIOCheck verifies the object bucket is reachable.
func MinIOCheck(client *minio.Client, bucket string) ReadinessCheck {
	return ReadinessCheck{Component: "minio", Check: func(ctx context.Context) error {
		_, err := client.BucketExists(ctx, bucket)
		return err
	}}
}

func registerHealthRoutes(router *gin.Engine, checks []ReadinessCheck) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "degraded",
					"component": check.Component,
					"error":     err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
