package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/spf13/cobra"

	wlf "github.com/dangdungcntt/go-wlf"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Purge compiled templates whenever a view changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, a.engine(nil))
		},
	}
}

func (a *app) watch(ctx context.Context, e *wlf.Engine) error {
	w, err := wlf.NewWatcher(e, a.cfg.Views.Dir, a.cfg.Server.Delay)
	if err != nil {
		return err
	}
	defer w.Close()
	a.log.Info("watching views", "dir", a.cfg.Views.Dir)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the views over HTTP, one template per path",
		Long: `serve renders the template named by the request path, "index" for /.
Query and form values are passed as the template data. Form posts must carry
the token written by @csrf.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("watch", false, "purge compiled templates when views change")
	cmd.Flags().String("csrf", "cookie", "csrf protection (cookie, gorilla)")
	bindFlags(a.v, cmd.Flags(), map[string]string{
		"server.addr":  "addr",
		"server.watch": "watch",
		"csrf.mode":    "csrf",
	})
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	e := a.engine(nil)
	handler := a.router(e)

	if a.cfg.Server.Watch {
		go func() {
			if err := a.watch(ctx, e); err != nil {
				a.log.Error("watcher stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info("serving views", "addr", srv.Addr, "csrf", a.cfg.CSRF.Mode)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// router builds the view handler, wrapped by gorilla/csrf in gorilla mode.
func (a *app) router(e *wlf.Engine) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.log))
	views := wlf.NewHTMLRender(e, a.cfg.Cache.Enabled).WithTokenMaxAge(a.cfg.CSRF.MaxAge)
	r.HTMLRender = views

	gorilla := a.cfg.CSRF.Mode == "gorilla"
	handle := func(c *gin.Context) {
		if gorilla {
			c.Request = c.Request.WithContext(wlf.WithTokens(c.Request.Context(), wlf.RequestTokens(c.Request)))
		} else if c.Request.Method == http.MethodPost {
			tokens := wlf.NewCookieTokens(c, a.cfg.CSRF.Field, a.cfg.CSRF.MaxAge)
			if !tokens.Valid(c.PostForm(a.cfg.CSRF.Field)) {
				c.String(http.StatusForbidden, "invalid csrf token")
				return
			}
			c.Request = c.Request.WithContext(wlf.WithTokens(c.Request.Context(), tokens))
		}
		name := viewName(c.Request.URL.Path)
		if !e.Exists(name) {
			c.String(http.StatusNotFound, "404 page not found")
			return
		}
		views.View(c, wlf.NewView(name, requestData(c)))
	}
	r.GET("/*path", handle)
	r.POST("/*path", handle)

	if !gorilla {
		return r
	}
	protect := csrf.Protect([]byte(a.cfg.CSRF.Key),
		csrf.FieldName(a.cfg.CSRF.Field),
		csrf.CookieName("_"+a.cfg.CSRF.Field),
		csrf.MaxAge(a.cfg.CSRF.MaxAge),
		csrf.Path("/"),
		csrf.Secure(false),
	)(r)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.TLS == nil {
			req = csrf.PlaintextHTTPRequest(req)
		}
		protect.ServeHTTP(w, req)
	})
}

// viewName maps a request path to a template identifier.
func viewName(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "index"
	}
	return p
}

func requestData(c *gin.Context) map[string]any {
	data := map[string]any{}
	_ = c.Request.ParseForm()
	for k, v := range c.Request.Form {
		if len(v) == 1 {
			data[k] = v[0]
		} else {
			data[k] = v
		}
	}
	return data
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
