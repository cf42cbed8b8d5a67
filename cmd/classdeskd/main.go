// Command classdeskd serves the class and section API from SQLite for local
// development and tests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanderheijden86/classdesk/pkg/devserver"
	"github.com/vanderheijden86/classdesk/pkg/version"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "", "SQLite database path (default: in-memory)")
	prefix := flag.String("prefix", "/api", "Path prefix for the API routes")
	seed := flag.Bool("seed", false, "Load demo classes and sections into an empty database")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("classdeskd %s\n", version.Version)
		os.Exit(0)
	}

	store, err := devserver.Open(*dbPath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	if *seed {
		if err := devserver.Seed(context.Background(), store); err != nil {
			log.Fatalf("seeding store: %v", err)
		}
	}

	e := devserver.NewServer(store, *prefix)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("classdeskd listening on %s%s", *addr, *prefix)
		if err := e.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
