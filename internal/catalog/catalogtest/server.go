// Package catalogtest provides an in-process CKAN-style catalog for tests.
package catalogtest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Resource is a resource entry attached to a fake dataset. When Body is set the
// server hosts it under /files/{dataset}/{index} and URL is filled in.
type Resource struct {
	Format string
	URL    string
	Body   string
	Status int
}

// Dataset is a fake catalog package.
type Dataset struct {
	ID        string
	Title     string
	Resources []Resource
	// Status overrides the package_show status when non-zero.
	Status int
}

// Server is a fake catalog backed by httptest.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	order      []string
	datasets   map[string]Dataset
	hits       map[string]int
	SearchCode int
	SearchBody string
}

// New starts a fake catalog with the given datasets in search order.
func New(datasets ...Dataset) *Server {
	s := &Server{
		datasets: make(map[string]Dataset),
		hits:     make(map[string]int),
	}
	r := chi.NewRouter()
	r.Get("/api/3/action/package_search", s.search)
	r.Get("/api/3/action/package_show", s.show)
	r.Get("/files/{dataset}/{index}", s.file)
	s.Server = httptest.NewServer(r)
	for _, d := range datasets {
		s.Add(d)
	}
	return s
}

// Add registers a dataset, appending it to the search order.
func (s *Server) Add(d Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range d.Resources {
		if d.Resources[i].Body != "" || d.Resources[i].Status != 0 {
			d.Resources[i].URL = s.URL + "/files/" + d.ID + "/" + strconv.Itoa(i)
		}
	}
	if _, ok := s.datasets[d.ID]; !ok {
		s.order = append(s.order, d.ID)
	}
	s.datasets[d.ID] = d
}

// Hits returns how many times a path was requested.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// FileHits returns how many times a dataset's resource files were requested.
func (s *Server) FileHits(dataset string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for i := range s.datasets[dataset].Resources {
		total += s.hits["/files/"+dataset+"/"+strconv.Itoa(i)]
	}
	return total
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	code, body := s.SearchCode, s.SearchBody
	rows, err := strconv.Atoi(r.URL.Query().Get("rows"))
	if err != nil || rows < 0 {
		rows = 10
	}
	results := make([]map[string]string, 0, len(s.order))
	for _, id := range s.order {
		if len(results) == rows {
			break
		}
		results = append(results, map[string]string{"id": id, "name": id})
	}
	total := len(s.order)
	s.mu.Unlock()

	if code != 0 {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
		return
	}
	if body != "" {
		_, _ = w.Write([]byte(body))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  map[string]any{"count": total, "results": results},
	})
}

func (s *Server) show(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	s.mu.Lock()
	s.hits[r.URL.Path]++
	d, ok := s.datasets[id]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   map[string]string{"__type": "Not Found Error", "message": "Not found"},
		})
		return
	}
	if d.Status != 0 {
		w.WriteHeader(d.Status)
		return
	}
	resources := make([]map[string]string, 0, len(d.Resources))
	for _, res := range d.Resources {
		resources = append(resources, map[string]string{"format": res.Format, "url": res.URL})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  map[string]any{"id": d.ID, "name": d.ID, "title": d.Title, "resources": resources},
	})
}

func (s *Server) file(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	s.mu.Lock()
	s.hits[r.URL.Path]++
	d, ok := s.datasets[dataset]
	s.mu.Unlock()

	if err != nil || !ok || index < 0 || index >= len(d.Resources) {
		http.NotFound(w, r)
		return
	}
	res := d.Resources[index]
	if res.Status != 0 {
		w.WriteHeader(res.Status)
		return
	}
	body := []byte(res.Body)
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit >= 0 {
		body = limitRows(body, limit)
	}
	w.Header().Set("Content-Type", "text/csv")
	_, _ = w.Write(body)
}

// limitRows keeps the header plus the first n data rows, like a server honoring ?limit=n.
func limitRows(body []byte, n int) []byte {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil || len(records) <= n+1 {
		return body
	}
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.WriteAll(records[:n+1])
	return buf.Bytes()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// CSV builds a CSV body with a header and n generated rows.
func CSV(header []string, n int, row func(i int) []string) string {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write(header)
	for i := 0; i < n; i++ {
		_ = writer.Write(row(i))
	}
	writer.Flush()
	return buf.String()
}
