// Command runtimed is a thin demo binary wiring the runtime core
// together: it registers a handful of illustrative subsystems, starts
// them in dependency order, and runs until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	rt "github.com/kronform/runtime"
	"github.com/kronform/runtime/internal/logging"
	"github.com/kronform/runtime/internal/registry"
	"github.com/kronform/runtime/internal/threads"
)

// waitGroupHandle adapts a *sync.WaitGroup to registry.MainThreadHandle.
type waitGroupHandle struct {
	wg *sync.WaitGroup
}

func (h waitGroupHandle) Join() { h.wg.Wait() }

// registerPassive registers a subsystem with no worker threads of its
// own: its main-thread handle and thread table are both nil, and its
// shutdown flag is the only signal its (trivial) init/shutdown callbacks
// consult.
func registerPassive(reg *registry.Registry, name string, deps ...string) (int, *registry.ShutdownFlag) {
	flag := &registry.ShutdownFlag{}
	id, err := reg.Register(registry.Registration{
		Name:         name,
		ShutdownFlag: flag,
		Init:         func() bool { return true },
		Shutdown:     func() { flag.Clear() },
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "register %s: %v\n", name, err)
		os.Exit(1)
	}
	for _, dep := range deps {
		if err := reg.AddDependency(id, dep); err != nil {
			fmt.Fprintf(os.Stderr, "add-dependency %s -> %s: %v\n", name, dep, err)
			os.Exit(1)
		}
	}
	return id, flag
}

// registerThreadMgmt registers a small pool of worker goroutines backed
// by a real internal/threads.Table, demonstrating the threaded (as
// opposed to passive) subsystem shape.
func registerThreadMgmt(reg *registry.Registry, workerCount int) int {
	var table threads.Table
	threads.Init(&table, "ThreadMgmt")
	shutdownFlag := &registry.ShutdownFlag{}
	var wg sync.WaitGroup

	id, err := reg.Register(registry.Registration{
		Name:         "ThreadMgmt",
		Threads:      rt.NewThreadTable(&table),
		MainThread:   waitGroupHandle{wg: &wg},
		ShutdownFlag: shutdownFlag,
		Init: func() bool {
			for i := 0; i < workerCount; i++ {
				wg.Add(1)
				handle := uint64(i + 1)
				go func(handle uint64, osTID int) {
					defer wg.Done()
					threads.Add(&table, handle, osTID, "sample worker")
					defer threads.Remove(&table, handle)
					for !shutdownFlag.IsSet() {
						threads.SampleMetrics(&table)
						time.Sleep(50 * time.Millisecond)
					}
				}(handle, os.Getpid())
			}
			return true
		},
		Shutdown: func() { shutdownFlag.Set() },
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "register ThreadMgmt: %v\n", err)
		os.Exit(1)
	}
	return id
}

func main() {
	verbose := flag.Bool("v", false, "enable TRACE-level startup logging")
	workers := flag.Int("workers", 2, "number of ThreadMgmt worker goroutines")
	flag.Parse()

	cfg := logging.DefaultStaticConfig()
	if *verbose {
		cfg.StartupLevel = logging.Trace
	}

	runtime, err := rt.New(rt.Options{Config: cfg, TracerName: "runtimed"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime init: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime.Start(ctx)

	reg := runtime.Registry
	loggingID, _ := registerPassive(reg, "Logging")
	dbID, _ := registerPassive(reg, "Database")
	threadMgmtID := registerThreadMgmt(reg, *workers)
	webID, _ := registerPassive(reg, "WebServer", "Logging", "Database")
	registerPassive(reg, "WebSocket", "WebServer")
	registerPassive(reg, "mDNSServer", "Logging")
	registerPassive(reg, "PrintQueue", "Database")

	startOrder := []int{loggingID, dbID, threadMgmtID, webID}
	for _, id := range startOrder {
		if err := reg.Start(id); err != nil {
			fmt.Fprintf(os.Stderr, "start: %v\n", err)
		}
	}
	// WebSocket, mDNSServer, and PrintQueue can all start once their
	// single dependency is RUNNING; order among themselves doesn't matter.
	for _, name := range []string{"WebSocket", "mDNSServer", "PrintQueue"} {
		id, _ := reg.IDByName(name)
		if err := reg.Start(id); err != nil {
			fmt.Fprintf(os.Stderr, "start %s: %v\n", name, err)
		}
	}

	fmt.Print(reg.RunningSubsystemsStatus())
	reg.StatusReport()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cancel()

	cleanupDone := make(chan struct{})
	go func() {
		runtime.Shutdown()
		close(cleanupDone)
	}()

	select {
	case <-cleanupDone:
	case <-time.After(5 * time.Second):
		fmt.Fprintln(os.Stderr, "runtimed: shutdown timeout, forcing exit")
	}
}
