// Package monitoring serves the state of a running cache simulation over
// HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// A Target is the simulated cache that the monitor reports on. All the
// methods must be safe to call while the simulation runs.
type Target interface {
	Name() string
	Config() cache.Config
	Stats() cache.Statistics
	Performance() cache.Performance
	NumSets() int
	Set(setID int) []cache.BlockState
	TransferCounts() map[string]uint64
}

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation.
type Monitor struct {
	target          Target
	portNumber      int
	profileDuration time.Duration
	url             string

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterTarget registers the cache that is monitored.
func (m *Monitor) RegisterTarget(t Target) {
	m.target = t
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

// Handler returns the router that serves the monitoring API and the
// dashboard.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/config", m.reportConfig)
	r.HandleFunc("/api/stats", m.reportStats)
	r.HandleFunc("/api/set/{index}", m.reportSet)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server with a custom port if wanted.
// It returns the URL of the dashboard.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.url)

	handler := m.Handler()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return m.url
}

// OpenBrowser opens the dashboard in the default browser. The server must
// have been started.
func (m *Monitor) OpenBrowser() error {
	if m.url == "" {
		return fmt.Errorf("monitoring server is not started")
	}

	return browser.OpenURL(m.url)
}

type configRsp struct {
	Name       string       `json:"name"`
	Config     cache.Config `json:"config"`
	NumSets    int          `json:"num_sets"`
	OffsetBits int          `json:"offset_bits"`
	IndexBits  int          `json:"index_bits"`
	TagBits    int          `json:"tag_bits"`
}

func (m *Monitor) reportConfig(w http.ResponseWriter, _ *http.Request) {
	if !m.targetOr404(w) {
		return
	}

	c := m.target.Config()
	m.writeJSON(w, configRsp{
		Name:       m.target.Name(),
		Config:     c,
		NumSets:    c.NumSets(),
		OffsetBits: c.OffsetBits(),
		IndexBits:  c.IndexBits(),
		TagBits:    c.TagBits(),
	})
}

type statsRsp struct {
	Stats       cache.Statistics  `json:"stats"`
	Performance cache.Performance `json:"performance"`
	Transfers   map[string]uint64 `json:"transfers"`
}

func (m *Monitor) reportStats(w http.ResponseWriter, _ *http.Request) {
	if !m.targetOr404(w) {
		return
	}

	m.writeJSON(w, statsRsp{
		Stats:       m.target.Stats(),
		Performance: m.target.Performance(),
		Transfers:   m.target.TransferCounts(),
	})
}

type setView struct {
	Index  int
	Blocks []cache.BlockState
}

func (m *Monitor) reportSet(w http.ResponseWriter, r *http.Request) {
	if !m.targetOr404(w) {
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || index < 0 || index >= m.target.NumSets() {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: set index must be in [0, %d)",
			m.target.NumSets())

		return
	}

	view := &setView{
		Index:  index,
		Blocks: m.target.Set(index),
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(view)
	serializer.SetMaxDepth(3)
	err = serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarView, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
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

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	m.writeJSON(w, prof)
}

func (m *Monitor) targetOr404(w http.ResponseWriter) bool {
	if m.target != nil {
		return true
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("No cache registered"))
	dieOnErr(err)

	return false
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
