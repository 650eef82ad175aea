// Package monitoring serves the binds of a running or recorded session
// over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/bindtrace/tracing"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// A BindSource provides the binds to show. tracing.BindRecorder is one.
type BindSource interface {
	Records() []tracing.BindRecord
}

// StaticSource is a BindSource over a fixed set of binds, such as binds
// read back from a trace file.
type StaticSource []tracing.BindRecord

// Records returns a copy of the binds.
func (s StaticSource) Records() []tracing.BindRecord {
	out := make([]tracing.BindRecord, len(s))
	copy(out, s)

	return out
}

// Monitor turns a bind tracing session into a web server.
type Monitor struct {
	portNumber  int
	openBrowser bool

	source     BindSource
	tracer     *tracing.Tracer
	timeTracer *tracing.BindTimeTracer

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000
// select a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		if portNumber > 0 {
			fmt.Fprintf(os.Stderr,
				"Port number %d is assigned to the monitoring server, "+
					"which is not allowed. Using a random port instead.\n", portNumber)
		}

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor in a browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterBindSource sets where the binds come from.
func (m *Monitor) RegisterBindSource(source BindSource) {
	m.source = source
}

// RegisterTracer sets the tracer whose counters are reported.
func (m *Monitor) RegisterTracer(t *tracing.Tracer) {
	m.tracer = t
}

// RegisterTimeTracer sets the tracer that reports bind latency. Without
// one, latency is computed from the bind source.
func (m *Monitor) RegisterTimeTracer(t *tracing.BindTimeTracer) {
	m.timeTracer = t
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP handler of the monitor.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/binds", m.listBinds).Methods(http.MethodGet)
	r.HandleFunc("/api/binds/{id}", m.bindDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/inflight", m.listInFlight).Methods(http.MethodGet)
	r.HandleFunc("/api/forest", m.forest).Methods(http.MethodGet)
	r.HandleFunc("/api/latency", m.latency).Methods(http.MethodGet)
	r.HandleFunc("/api/tracer", m.tracerStats).Methods(http.MethodGet)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.HandleFunc("/", m.index).Methods(http.MethodGet)

	return r
}

// StartServer starts the monitor as a web server. It returns the URL the
// monitor listens on.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", "localhost:"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("starting monitor: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring binds with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("monitor stopped: %v", err)
		}
	}()

	if m.openBrowser {
		err = browser.OpenURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}

	return url, nil
}

// Shutdown stops the server started by StartServer.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) records() []tracing.BindRecord {
	if m.source == nil {
		return nil
	}

	return m.source.Records()
}

func (m *Monitor) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string][]string{
		"endpoints": {
			"/api/binds",
			"/api/binds/{id}",
			"/api/inflight",
			"/api/forest",
			"/api/latency",
			"/api/tracer",
			"/api/progress",
			"/api/resource",
			"/api/profile",
		},
	})
}

func (m *Monitor) listBinds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")

	onlyFailed, err := parseBoolParam(q.Get("failed"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit, offset, err := parsePaging(q.Get("limit"), q.Get("offset"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	selected := make([]tracing.BindRecord, 0)

	for _, rec := range m.records() {
		if name != "" && rec.SimpleName() != name {
			continue
		}

		if onlyFailed && (!rec.Completed || rec.Success) {
			continue
		}

		selected = append(selected, rec)
	}

	writeJSON(w, page(selected, limit, offset))
}

func (m *Monitor) bindDetails(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	for _, rec := range m.records() {
		if rec.ActivityID.String() == id {
			writeJSON(w, rec)
			return
		}
	}

	http.Error(w, "Bind not found", http.StatusNotFound)
}

func (m *Monitor) listInFlight(w http.ResponseWriter, _ *http.Request) {
	inflight := make([]tracing.BindRecord, 0)

	for _, rec := range m.records() {
		if !rec.Completed {
			inflight = append(inflight, rec)
		}
	}

	writeJSON(w, inflight)
}

func (m *Monitor) forest(w http.ResponseWriter, _ *http.Request) {
	forest := tracing.BuildForest(m.records())
	if forest == nil {
		forest = []*tracing.BindNode{}
	}

	writeJSON(w, forest)
}

type latencyRsp struct {
	Count       uint64        `json:"count"`
	Succeeded   uint64        `json:"succeeded"`
	Failed      uint64        `json:"failed"`
	TotalTime   time.Duration `json:"total_time_ns"`
	AverageTime time.Duration `json:"average_time_ns"`
}

func (m *Monitor) latency(w http.ResponseWriter, _ *http.Request) {
	if m.timeTracer != nil {
		writeJSON(w, latencyRsp{
			Count:       m.timeTracer.Count(),
			Succeeded:   m.timeTracer.Succeeded(),
			Failed:      m.timeTracer.Failed(),
			TotalTime:   m.timeTracer.TotalTime(),
			AverageTime: m.timeTracer.AverageTime(),
		})

		return
	}

	rsp := latencyRsp{}

	for _, rec := range m.records() {
		if !rec.Completed {
			continue
		}

		rsp.Count++
		rsp.TotalTime += rec.Duration()

		if rec.Success {
			rsp.Succeeded++
		} else {
			rsp.Failed++
		}
	}

	if rsp.Count > 0 {
		rsp.AverageTime = rsp.TotalTime / time.Duration(rsp.Count)
	}

	writeJSON(w, rsp)
}

func (m *Monitor) tracerStats(w http.ResponseWriter, _ *http.Request) {
	stats := m.tracer.Stats()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&stats)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second

	if s := r.URL.Query().Get("seconds"); s != "" {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil || secs <= 0 {
			http.Error(w, "invalid seconds", http.StatusBadRequest)
			return
		}

		duration = time.Duration(secs * float64(time.Second))
	}

	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(duration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func parseBoolParam(s string) (bool, error) {
	if s == "" {
		return false, nil
	}

	return strconv.ParseBool(s)
}

func parsePaging(limitStr, offsetStr string) (limit, offset int, err error) {
	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("invalid limit %q", limitStr)
		}
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", offsetStr)
		}
	}

	return limit, offset, nil
}

func page(records []tracing.BindRecord, limit, offset int) []tracing.BindRecord {
	if offset >= len(records) {
		return []tracing.BindRecord{}
	}

	records = records[offset:]

	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	return records
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
