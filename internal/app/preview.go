package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	logx "assetflow/pkg/logx"
)

// previewServer serves the rendered delivery plan over HTTP so an operator
// can see, per request, exactly what the engine would hand the host.
// Each page request runs the full lifecycle against the current manifest.
type previewServer struct {
	app  *App
	addr string

	ln  net.Listener
	srv *http.Server
}

func newPreviewServer(a *App, addr string) *previewServer {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = "127.0.0.1:8731"
	}
	return &previewServer{app: a, addr: addr}
}

func (p *previewServer) start() error {
	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return err
	}
	p.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", p.handlePage)
	mux.HandleFunc("/deliveries", p.handleDeliveries)

	p.srv = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		err := p.srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.app.log.Error("preview server exited", logx.Err(err))
		}
	}()

	p.app.log.Info("preview started",
		logx.String("addr", ln.Addr().String()),
		logx.String("hint", fmt.Sprintf("http://%s/", ln.Addr().String())))
	return nil
}

func (p *previewServer) stop(ctx context.Context) {
	if p.srv == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = p.srv.Shutdown(sctx)
	_ = p.srv.Close()
}

func (p *previewServer) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	page, err := p.app.RunLifecycle(p.app.cfgm.Get())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html>\n<html>\n<head>\n%s</head>\n<body>\n<!-- %d assets declared; %d inline pending -->\n%s</body>\n</html>\n",
		page.Head, page.Registered, page.Pending, page.Footer)
}

func (p *previewServer) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	if p.app.store == nil {
		http.Error(w, "storage disabled", http.StatusNotFound)
		return
	}
	entries, err := p.app.store.RecentDeliveries(r.Context(), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}
