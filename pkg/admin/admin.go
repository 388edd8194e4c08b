// Package admin exposes a read-only HTTP surface over the engine's live
// page store, buffer pool, and catalog: a JSON stats endpoint, a
// streaming websocket variant, and a single-field GraphQL query. It
// never writes — there is no mutation route anywhere in this package.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
	"golang.org/x/crypto/bcrypt"

	"github.com/lunaire/sgbd/pkg/query"
	"github.com/lunaire/sgbd/pkg/relation"
	"github.com/lunaire/sgbd/pkg/storage"
)

// Server wires chi's router over a PageStore, BufferPool, and Catalog.
type Server struct {
	store   *storage.PageStore
	pool    *storage.BufferPool
	catalog *relation.Catalog
	router  *chi.Mux
	schema  graphql.Schema
}

// New builds the admin router. If ADMIN_TOKEN_HASH is set in the
// environment, every request must carry a matching bearer token.
func New(store *storage.PageStore, pool *storage.BufferPool, catalog *relation.Catalog) *Server {
	s := &Server{store: store, pool: pool, catalog: catalog, router: chi.NewRouter()}

	schema, err := buildSchema(s)
	if err != nil {
		// A schema construction failure here means a programming error in
		// this package, not a runtime condition — the GraphQL route simply
		// won't be registered.
		schema = graphql.Schema{}
	}
	s.schema = schema

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Logger)

	if hash := os.Getenv("ADMIN_TOKEN_HASH"); hash != "" {
		s.router.Use(bearerTokenMiddleware(hash))
	}

	s.router.Get("/stats", s.handleStats)
	s.router.Get("/ws/stats", s.handleStatsStream)
	if err == nil {
		s.router.Post("/graphql", s.handleGraphQL)
	}

	return s
}

// ListenAndServe starts the admin HTTP server on addr, blocking until it
// fails or is closed.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) snapshot() map[string]any {
	return map[string]any{
		"page_store":  s.store.Stats(),
		"buffer_pool": s.pool.Stats(),
		"tables":      s.catalog.List(),
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.snapshot())
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStatsStream upgrades to a websocket and pushes a stats snapshot
// once per second until the client disconnects.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteJSON(s.snapshot()); err != nil {
			return
		}
	}
}

func bearerTokenMiddleware(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := parseBearer(r.Header.Get("Authorization"))
			if err != nil || bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseBearer(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("admin: invalid authorization header")
	}
	return parts[1], nil
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := graphql.Do(graphql.Params{Schema: s.schema, RequestString: body.Query})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// buildSchema constructs a single read-only GraphQL field:
// table(name, where) { values }, resolved through a Scan -> Filter
// pipeline over the named relation.
func buildSchema(s *Server) (graphql.Schema, error) {
	rowType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Row",
		Fields: graphql.Fields{
			"values": &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	tableField := &graphql.Field{
		Type: graphql.NewList(rowType),
		Args: graphql.FieldConfigArgument{
			"name":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			"where": &graphql.ArgumentConfig{Type: graphql.String},
		},
		Resolve: s.resolveTable,
	}

	rootQuery := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"table": tableField,
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: rootQuery})
}

// resolveTable scans the named table, optionally applying a single
// "col=value" equality filter (the admin surface never parses the full
// WHERE dialect — it is read-only JSON over HTTP, not a SQL client).
func (s *Server) resolveTable(p graphql.ResolveParams) (any, error) {
	name, _ := p.Args["name"].(string)
	rel, err := s.catalog.Get(name)
	if err != nil {
		return nil, err
	}

	var it query.Iterator = query.NewScan(rel)
	if where, ok := p.Args["where"].(string); ok && where != "" {
		idx := strings.IndexByte(where, '=')
		if idx < 0 {
			return nil, errors.New("admin: where must be \"col=value\"")
		}
		colIdx := rel.Schema.IndexOf(strings.TrimSpace(where[:idx]))
		if colIdx < 0 {
			return nil, errors.New("admin: unknown column in where")
		}
		lit, err := query.ParseLiteral(strings.TrimSpace(where[idx+1:]), rel.Schema[colIdx].Kind)
		if err != nil {
			return nil, err
		}
		it = query.NewFilter(it, []query.Condition{{LeftIndex: colIdx, Op: query.OpEq, Right: lit}})
	}
	defer it.Close()

	var rows []map[string]any
	for {
		rec, err := it.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}
		values := make([]string, len(rec.Values))
		for i, v := range rec.Values {
			values[i] = toString(v)
		}
		rows = append(rows, map[string]any{"values": values})
	}
	return rows, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
