package devserver

import (
	"cmp"
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/daeyeon-lee/cinemoa/internal/api"
	"github.com/daeyeon-lee/cinemoa/internal/filter"
)

const defaultPageSize = 5

// Options configures a Server.
type Options struct {
	// Latency delays every API response.
	Latency time.Duration
	// PageSize applies when a request does not send size.
	PageSize int
	Epoch    time.Time
	Logger   zerolog.Logger
}

// Server is an in-memory fake of the Cinemoa API.
type Server struct {
	Router chi.Router
	log    zerolog.Logger

	latency  time.Duration
	pageSize int

	mu       sync.Mutex
	fixtures []*fixture
	likes    map[int64]map[int64]struct{}
	failLike map[int64]bool
}

// New builds a server with the standard fixtures.
func New(opts Options) *Server {
	epoch := opts.Epoch
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	s := &Server{
		log:      opts.Logger.With().Str("component", "devserver").Logger(),
		latency:  opts.Latency,
		pageSize: pageSize,
		fixtures: buildFixtures(epoch),
		likes:    make(map[int64]map[int64]struct{}),
		failLike: make(map[int64]bool),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.delay)
		r.Get("/fundings/search", s.handleList("nextCursor"))
		r.Get("/fundings", s.handleList("cursor"))
		r.Get("/fundings/{id}", s.handleDetail)
		r.Post("/fundings/{id}/like", s.handleLike(true))
		r.Delete("/fundings/{id}/like", s.handleLike(false))
		r.Get("/home/{section}", s.handleHome)
		r.Get("/users/{userID}/{section}", s.handleProfile)
	})
	s.Router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// SetLikeFailure makes like and unlike calls for itemID fail with an ERROR
// envelope while fail is true.
func (s *Server) SetLikeFailure(itemID int64, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fail {
		s.failLike[itemID] = true
	} else {
		delete(s.failLike, itemID)
	}
}

// Liked reports whether viewerID currently likes itemID.
func (s *Server) Liked(itemID, viewerID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.likes[itemID][viewerID]
	return ok
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("dev api listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			timer := time.NewTimer(s.latency)
			select {
			case <-timer.C:
			case <-r.Context().Done():
				timer.Stop()
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type query struct {
	set      filter.FilterSet
	viewer   int64
	offset   int
	pageSize int
}

func (s *Server) parseQuery(r *http.Request, cursorKey string) (query, error) {
	values := r.URL.Query()
	q := query{pageSize: s.pageSize}

	sort, err := filter.ParseSort(values.Get("sort"))
	if err != nil {
		return q, err
	}
	q.set = filter.FilterSet{
		Query:         values.Get("q"),
		Sort:          sort,
		Regions:       values["region"],
		VenueTypes:    values["venueType"],
		IncludeClosed: values.Get("includeClosed") == "true",
	}
	if v := values.Get("category"); v != "" {
		if q.set.Category.TopLevel, err = strconv.ParseInt(v, 10, 64); err != nil {
			return q, err
		}
	}
	for _, v := range values["subCategory"] {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, err
		}
		q.set.Category.Leaves = append(q.set.Category.Leaves, id)
	}
	if v := values.Get("userId"); v != "" {
		if q.viewer, err = strconv.ParseInt(v, 10, 64); err != nil {
			return q, err
		}
	}
	if v := values.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			return q, errBadParam("size")
		}
		q.pageSize = size
	}
	if v := values.Get(cursorKey); v != "" {
		if q.offset, err = strconv.Atoi(v); err != nil || q.offset < 0 {
			return q, errBadParam(cursorKey)
		}
	}
	q.set = q.set.Normalize()
	return q, nil
}

type errBadParam string

func (e errBadParam) Error() string { return "invalid parameter " + string(e) }

func (s *Server) handleList(cursorKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := s.parseQuery(r, cursorKey)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		s.mu.Lock()
		matched := s.match(q.set, nil)
		s.sortFixtures(matched, q.set.Sort)
		data := s.page(matched, q)
		s.mu.Unlock()
		writeOK(w, data)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, "cursor")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	section := chi.URLParam(r, "section")

	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.match(filter.FilterSet{}.Normalize(), nil)
	switch section {
	case "popular":
		s.sortFixtures(matched, filter.SortPopular)
	case "closing":
		s.sortFixtures(matched, filter.SortDeadline)
	case "recommended":
		s.sortFixtures(matched, filter.SortFundingRate)
	default:
		writeFail(w, http.StatusNotFound, "UNKNOWN_SECTION", "unknown home section "+section)
		return
	}
	writeOK(w, s.page(matched, q))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, "cursor")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		writeFail(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id")
		return
	}
	q.viewer = userID

	s.mu.Lock()
	defer s.mu.Unlock()
	var keep func(*fixture) bool
	switch chi.URLParam(r, "section") {
	case "liked":
		keep = func(f *fixture) bool { _, ok := s.likes[f.item.ID][userID]; return ok }
	case "funded":
		keep = func(f *fixture) bool { return slices.Contains(f.funders, userID) }
	case "created":
		keep = func(f *fixture) bool { return f.createdBy == userID }
	default:
		writeFail(w, http.StatusNotFound, "UNKNOWN_SECTION", "unknown profile list")
		return
	}
	set := filter.FilterSet{IncludeClosed: true}.Normalize()
	matched := s.match(set, keep)
	s.sortFixtures(matched, filter.SortLatest)
	writeOK(w, s.page(matched, q))
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id")
		return
	}
	viewer, _ := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.find(id)
	if f == nil {
		writeFail(w, http.StatusNotFound, "NOT_FOUND", "no such funding")
		return
	}
	_, liked := s.likes[id][viewer]
	writeOK(w, api.LikeStatusData{ID: id, IsLiked: liked})
}

func (s *Server) handleLike(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id")
			return
		}
		viewer, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
		if err != nil || viewer <= 0 {
			writeFail(w, http.StatusBadRequest, "BAD_REQUEST", "userId required")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.find(id) == nil {
			writeFail(w, http.StatusNotFound, "NOT_FOUND", "no such funding")
			return
		}
		if s.failLike[id] {
			writeEnvelope(w, http.StatusOK, api.Envelope{State: api.StateError, Code: "LIKE_UNAVAILABLE", Message: "like service unavailable"})
			return
		}
		viewers := s.likes[id]
		if viewers == nil {
			viewers = make(map[int64]struct{})
			s.likes[id] = viewers
		}
		if add {
			viewers[viewer] = struct{}{}
		} else {
			delete(viewers, viewer)
		}
		writeOK(w, nil)
	}
}

func (s *Server) find(id int64) *fixture {
	for _, f := range s.fixtures {
		if f.item.ID == id {
			return f
		}
	}
	return nil
}

func (s *Server) likeCount(f *fixture) int {
	return f.baseLikes + len(s.likes[f.item.ID])
}

func (s *Server) match(set filter.FilterSet, keep func(*fixture) bool) []*fixture {
	needle := strings.ToLower(set.Query)
	var out []*fixture
	for _, f := range s.fixtures {
		switch {
		case f.closed && !set.IncludeClosed:
		case needle != "" && !strings.Contains(strings.ToLower(f.item.Title), needle):
		case set.Category.TopLevel != 0 && f.category != set.Category.TopLevel:
		case len(set.Category.Leaves) > 0 && !slices.Contains(set.Category.Leaves, f.leaf):
		case len(set.Regions) > 0 && !slices.Contains(set.Regions, f.region):
		case len(set.VenueTypes) > 0 && !slices.Contains(set.VenueTypes, f.venue):
		case keep != nil && !keep(f):
		default:
			out = append(out, f)
		}
	}
	return out
}

func (s *Server) sortFixtures(list []*fixture, sort filter.Sort) {
	slices.SortStableFunc(list, func(a, b *fixture) int {
		var c int
		switch sort {
		case filter.SortPopular:
			c = cmp.Compare(s.likeCount(b), s.likeCount(a))
		case filter.SortDeadline:
			c = a.endsAt().Compare(b.endsAt())
		case filter.SortFundingRate:
			c = cmp.Compare(b.fundingRate(), a.fundingRate())
		default:
			c = b.createdAt.Compare(a.createdAt)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.item.ID, b.item.ID)
	})
}

func (s *Server) page(list []*fixture, q query) api.PageData {
	start := min(q.offset, len(list))
	end := min(start+q.pageSize, len(list))
	data := api.PageData{Content: make([]api.ItemData, 0, end-start)}
	for _, f := range list[start:end] {
		d := api.ItemDataFrom(f.item)
		d.LikeCount = s.likeCount(f)
		_, d.IsLiked = s.likes[f.item.ID][q.viewer]
		data.Content = append(data.Content, d)
	}
	if end < len(list) {
		data.HasNextPage = true
		data.NextCursor = strconv.Itoa(end)
	}
	return data
}

func writeOK(w http.ResponseWriter, data any) {
	env := api.Envelope{State: api.StateOK}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			writeFail(w, http.StatusInternalServerError, "ENCODE", err.Error())
			return
		}
		env.Data = raw
	}
	writeEnvelope(w, http.StatusOK, env)
}

func writeFail(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, api.Envelope{State: api.StateFail, Code: code, Message: message})
}

func writeEnvelope(w http.ResponseWriter, status int, env api.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
