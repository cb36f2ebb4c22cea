// Package server implements the identy avatar HTTP service.
//
// The service renders identicons on demand, the way software forges
// serve default avatars: GET /avatar/{name} returns a PNG derived from
// the name. Rendering options (size, variant, radius, border, black,
// invert) are query parameters; a ".txt" suffix returns the terminal
// glyph rendering instead of PNG bytes.
//
// Names that pin no variant get a random one on first request; the
// chosen variant is persisted in the icon store so the avatar stays
// stable across requests and restarts. Encoded bytes are cached per
// (name, options) so popular avatars are not recompressed per request.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/onerbs/identy/pkg/cache"
	identyerrors "github.com/onerbs/identy/pkg/errors"
	"github.com/onerbs/identy/pkg/icon"
	"github.com/onerbs/identy/pkg/observability"
	"github.com/onerbs/identy/pkg/store"
)

// shutdownTimeout bounds graceful shutdown on context cancellation.
const shutdownTimeout = 10 * time.Second

// Config holds server settings and generation defaults.
type Config struct {
	Addr     string
	CacheTTL time.Duration

	// Generation defaults applied when query parameters are absent.
	Radius  int
	Border  int
	Black   bool
	Variant int

	// Rand overrides the randomness source for variant selection.
	// Nil uses the process-local generator.
	Rand icon.Source
}

// Server serves identicons over HTTP.
type Server struct {
	cfg    Config
	logger *log.Logger
	cache  cache.Cache
	store  store.Store
	router chi.Router
}

// New assembles a server. A nil cache disables caching and a nil store
// keeps records in memory.
func New(cfg Config, logger *log.Logger, c cache.Cache, s store.Store) *Server {
	if cfg.Radius == 0 {
		cfg.Radius = icon.DefaultRadius
	}
	if logger == nil {
		logger = log.Default()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if s == nil {
		s = store.NewMemoryStore()
	}

	srv := &Server{cfg: cfg, logger: logger, cache: c, store: s}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logRequests(logger))
	r.Get("/healthz", srv.handleHealth)
	r.Get("/avatar/{name}", srv.handleAvatar)
	srv.router = r

	return srv
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Serving avatars on %s", s.cfg.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// avatarRequest is a parsed avatar request.
type avatarRequest struct {
	name   string
	text   bool // .txt suffix: glyph rendering instead of PNG
	size   int
	invert bool
	opts   icon.Options
}

// handleAvatar renders an identicon for the named avatar.
func (s *Server) handleAvatar(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseAvatarRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.text {
		opts, pinned := s.pinVariant(r.Context(), req.name, req.opts)
		ic, err := icon.FromString(req.name, opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if req.invert {
			ic = ic.Invert()
		}

		// Text renders persist the variant too, without encoded bytes,
		// so a later PNG request draws the same icon.
		if !pinned {
			rec := store.NewRecord(req.name, opts.Radius, opts.Border, opts.Variant, opts.Black, nil)
			if err := s.store.Put(r.Context(), rec); err != nil {
				s.logger.Warnf("store icon %q: %v", req.name, err)
			}
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, ic.String())
		return
	}

	data, err := s.renderPNG(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.cfg.CacheTTL.Seconds())))
	_, _ = w.Write(data)
}

// renderPNG produces the encoded avatar, consulting the cache and the
// icon store before generating.
func (s *Server) renderPNG(ctx context.Context, req *avatarRequest) ([]byte, error) {
	key := cache.IconKey(req.name, cache.KeyOpts{
		Radius:  req.opts.Radius,
		Border:  req.opts.Border,
		Black:   req.opts.Black,
		Variant: req.opts.Variant,
		Size:    req.size,
		Invert:  req.invert,
	})

	if data, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "icon")
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, "icon")

	opts, pinned := s.pinVariant(ctx, req.name, req.opts)

	ic, err := icon.FromString(req.name, opts)
	if err != nil {
		return nil, err
	}
	if req.invert {
		ic = ic.Invert()
	}

	img, err := ic.Image(req.size, 1)
	if err != nil {
		return nil, err
	}
	data := img.Bytes()

	if !pinned {
		rec := store.NewRecord(req.name, opts.Radius, opts.Border, opts.Variant, opts.Black, data)
		if err := s.store.Put(ctx, rec); err != nil {
			s.logger.Warnf("store icon %q: %v", req.name, err)
		}
	}

	if err := s.cache.Set(ctx, key, data, s.cfg.CacheTTL); err != nil {
		s.logger.Warnf("cache icon %q: %v", req.name, err)
	} else {
		observability.Cache().OnCacheSet(ctx, "icon", len(data))
	}

	return data, nil
}

// pinVariant resolves the variant for a name so avatars stay stable.
// Explicitly requested variants pass through; otherwise the stored
// variant is reused when the shape parameters still match, and failing
// that a fresh one is drawn. The second return reports whether the
// variant was already pinned (by the request or the store).
func (s *Server) pinVariant(ctx context.Context, name string, opts icon.Options) (icon.Options, bool) {
	if opts.Variant >= 1 && opts.Variant <= icon.MaxVariant {
		return opts, true
	}

	if rec, err := s.store.Get(ctx, name); err == nil &&
		rec.Radius == opts.Radius && rec.Border == opts.Border && rec.Black == opts.Black {
		opts.Variant = rec.Variant
		return opts, true
	}

	src := s.cfg.Rand
	if src == nil {
		src = icon.DefaultSource()
	}
	opts.Variant = src.Intn(icon.MaxVariant) + 1
	return opts, false
}

// parseAvatarRequest extracts and validates the name and options.
func (s *Server) parseAvatarRequest(r *http.Request) (*avatarRequest, error) {
	name := chi.URLParam(r, "name")

	text := false
	switch {
	case strings.HasSuffix(name, ".png"):
		name = strings.TrimSuffix(name, ".png")
	case strings.HasSuffix(name, ".txt"):
		name = strings.TrimSuffix(name, ".txt")
		text = true
	}

	if err := identyerrors.ValidateName(name); err != nil {
		return nil, err
	}

	q := r.URL.Query()
	req := &avatarRequest{
		name: name,
		text: text,
		opts: icon.Options{
			Radius:  s.cfg.Radius,
			Border:  s.cfg.Border,
			Black:   s.cfg.Black,
			Variant: s.cfg.Variant,
			Rand:    s.cfg.Rand,
		},
	}

	var err error
	if req.size, err = intParam(q.Get("size"), 0); err != nil {
		return nil, err
	}
	if req.opts.Radius, err = intParam(q.Get("radius"), req.opts.Radius); err != nil {
		return nil, err
	}
	if req.opts.Border, err = intParam(q.Get("border"), req.opts.Border); err != nil {
		return nil, err
	}
	if req.opts.Variant, err = intParam(q.Get("variant"), req.opts.Variant); err != nil {
		return nil, err
	}
	if req.opts.Black, err = boolParam(q.Get("black"), req.opts.Black); err != nil {
		return nil, err
	}
	if req.invert, err = boolParam(q.Get("invert"), false); err != nil {
		return nil, err
	}

	return req, nil
}

// intParam parses an optional integer query parameter.
func intParam(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, identyerrors.New(identyerrors.ErrCodeInvalidFormat, "not an integer: %q", value)
	}
	return n, nil
}

// boolParam parses an optional boolean query parameter.
func boolParam(value string, fallback bool) (bool, error) {
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, identyerrors.New(identyerrors.ErrCodeInvalidFormat, "not a boolean: %q", value)
	}
	return b, nil
}

// writeError maps structured errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var structured *identyerrors.Error
	if errors.As(err, &structured) {
		switch {
		case strings.HasPrefix(string(structured.Code), "INVALID_"):
			status = http.StatusBadRequest
		case structured.Code == identyerrors.ErrCodeNotFound:
			status = http.StatusNotFound
		}
	}

	if status == http.StatusInternalServerError {
		s.logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	http.Error(w, identyerrors.UserMessage(err), status)
}
