package simulation

import (
	"log"

	"github.com/rs/xid"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Builder can be used to build a simulation.
type Builder struct {
	name           string
	cacheBuilder   cache.Builder
	monitorOn      bool
	monitorPort    int
	recordOn       bool
	outputFileName string
	traceLogger    *log.Logger
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		name:         "L1",
		cacheBuilder: cache.MakeBuilder(),
	}
}

// WithName sets the name of the simulated cache.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithCacheConfig sets the configuration of the simulated cache.
func (b Builder) WithCacheConfig(c cache.Config) Builder {
	b.cacheBuilder = b.cacheBuilder.WithConfig(c)
	return b
}

// WithMonitoring serves the state of the simulation over HTTP.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithDataRecording records every access and transfer into a SQLite
// database.
func (b Builder) WithDataRecording() Builder {
	b.recordOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithTraceLogger prints every access and transfer to the logger.
func (b Builder) WithTraceLogger(logger *log.Logger) Builder {
	b.traceLogger = logger
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build builds the simulation. It returns a *cache.ConfigurationError if the
// cache configuration is invalid.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	engine, err := b.cacheBuilder.Build(b.name)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		id:     xid.New().String(),
		engine: engine,
	}

	s.transfers = hooking.NewTagCountTracer(classifyTransfer)
	engine.AcceptHook(s.transfers)

	if b.traceLogger != nil {
		engine.AcceptHook(trace.NewTracer(b.traceLogger))
	}

	if b.recordOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "cachesim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		engine.AcceptHook(trace.NewDBTracer(s.dataRecorder))
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterTarget(s)
		s.monitor.StartServer()
	}

	return s, nil
}

func classifyTransfer(ctx hooking.HookCtx) (string, bool) {
	if ctx.Pos != cache.HookPosTransfer {
		return "", false
	}

	t, ok := ctx.Item.(cache.Transfer)
	if !ok {
		return "", false
	}

	return t.Kind.String(), true
}
