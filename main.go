package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "busticket/internal/config"
	router "busticket/internal/http"
	"busticket/internal/migrations"
	"busticket/internal/repositories"

	"github.com/gin-gonic/gin"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db, err := intconfig.ConnectDB(env)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer intconfig.CloseDB()

	if env.RunMigrations {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := migrations.Up(ctx, db)
		cancel()
		if err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}

	r := router.NewRouter(env, db)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	go purgeExpiredSessions(bgCtx, repositories.SessionRepository{DB: db}, time.Hour)

	go func() {
		log.Printf("server listening on %s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	log.Println("server stopped.")
}

// purgeExpiredSessions deletes stale session rows every interval until ctx
// is done.
func purgeExpiredSessions(ctx context.Context, sessions repositories.SessionRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx, time.Now())
			if err != nil {
				log.Printf("[SESSION] purge failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[SESSION] purged %d expired session(s)", n)
			}
		}
	}
}
