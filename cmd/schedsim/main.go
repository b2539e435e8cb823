// Command schedsim runs the RISC-V preemptive task scheduler simulation: a
// sched.Scheduler driven by a simhw.Timer, with an optional interactive
// dispatcher that spawns named demo tasks from typed input. Its shape
// follows runner.go's Run(): flags parsed at package scope, a YAML config
// loaded once, a signal-driven shutdown with a grace period, and component
// teardown via defer in LIFO order.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	vmi_internal "github.com/matthonolive/riscv-scheduler/internal"
	"github.com/matthonolive/riscv-scheduler/internal/hostdiag"
	"github.com/matthonolive/riscv-scheduler/sched"
	"github.com/matthonolive/riscv-scheduler/simhw"
)

var (
	versionArg = flag.Bool(
		"version",
		false,
		vmi_internal.FormatFlagUsage(`Print the version and exit`),
	)

	configFileArg = flag.String(
		"config",
		"",
		vmi_internal.FormatFlagUsage(`YAML sched.Config file to load; flag defaults are used if omitted`),
	)

	policyArg = flag.String(
		"policy",
		"",
		vmi_internal.FormatFlagUsage(`Override the config's scheduling policy: rr, preempt, or hybrid`),
	)

	tickCyclesArg = flag.Uint(
		"tick-cycles",
		0,
		vmi_internal.FormatFlagUsage(`Override the config's tick_cycles (0 keeps the config/default value)`),
	)

	interactiveArg = flag.Bool(
		"interactive",
		false,
		vmi_internal.FormatFlagUsage(`Start the dispatcher task and accept typed task IDs on stdin`),
	)

	diagArg = flag.Bool(
		"diag",
		false,
		vmi_internal.FormatFlagUsage(`Print host diagnostics (CPU count, clock tick rate, uptime) at startup`),
	)

	baudArg = flag.Int(
		"baud",
		0,
		vmi_internal.FormatFlagUsage(`Simulated UART baud rate; 0 means unlimited (print as fast as the host can)`),
	)

	shutdownMaxWaitArg = flag.Duration(
		"shutdown-max-wait",
		5*time.Second,
		vmi_internal.FormatFlagUsage(`Grace period for a clean shutdown after SIGINT/SIGTERM before forcing exit`),
	)
)

var (
	// Version and GitInfo are normally set via -ldflags at build time, the
	// same hook runner.go exposes.
	Version string
	GitInfo string
)

var mainLog = vmi_internal.NewCompLogger("schedsim")

func run() int {
	flag.Parse()

	if *versionArg {
		fmt.Fprintf(os.Stderr, "Version: %s, GitInfo: %s\n", Version, GitInfo)
		return 0
	}

	if ran, code := maybeRunQemu(); ran {
		return code
	}

	cfg, err := sched.LoadConfig(*configFileArg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		return 1
	}
	if *policyArg != "" {
		p, err := sched.ParsePolicy(*policyArg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -policy: %v\n", err)
			return 1
		}
		cfg.Policy = p
	}
	if *tickCyclesArg != 0 {
		cfg.TickCycles = uint32(*tickCyclesArg)
	}

	if err := vmi_internal.SetLogger(vmi_internal.DefaultLoggerConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "error setting logger: %v\n", err)
		return 1
	}

	if *diagArg {
		mainLog.Infof("host: %s", hostdiag.Collect())
	}

	s, err := sched.New(cfg)
	if err != nil {
		mainLog.Errorf("sched.New: %v", err)
		return 1
	}

	idleStack, err := cfg.IdleStackWords()
	if err != nil {
		mainLog.Errorf("idle stack size: %v", err)
		return 1
	}
	if _, err := s.TaskCreate(sched.IdleTask(s), nil, cfg.MaxPrio-1, make([]uint32, idleStack), 0); err != nil {
		mainLog.Errorf("creating idle task: %v", err)
		return 1
	}

	var uart *simhw.UART
	if *baudArg > 0 {
		uart = simhw.NewUARTWithBaud(os.Stdout, *baudArg)
	} else {
		uart = simhw.NewUART(os.Stdout)
	}
	defer uart.Stop()

	timer := simhw.NewTimer(s)
	timer.Init(cfg.TickCycles)
	defer timer.Stop()

	if *interactiveArg {
		pool := simhw.NewStackPool(cfg.MaxTasks)
		sp := &simhw.Spawner{Sched: s, UART: uart, Defs: simhw.DemoTasks(), Pool: pool}
		if _, err := s.TaskCreate(simhw.NewDispatcherTask(sp), nil, 1, pool.Alloc(), 1); err != nil {
			mainLog.Errorf("creating dispatcher task: %v", err)
			return 1
		}
		go feedStdin(uart)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startErrCh := make(chan error, 1)
	go func() { startErrCh <- s.Start(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		mainLog.Warnf("%s received, shutting down", sig)
		cancel()
		select {
		case <-startErrCh:
		case <-time.After(*shutdownMaxWaitArg):
			mainLog.Errorf("shutdown timed out after %s, force exit", *shutdownMaxWaitArg)
			return 1
		}
	case err := <-startErrCh:
		if err != nil && err != context.Canceled {
			mainLog.Errorf("scheduler halted: %v", err)
			return 1
		}
	}

	mainLog.Infof("ticks=%d stats=%+v", s.Ticks(), s.Stats())
	return 0
}

// feedStdin copies stdin into uart's simulated RX FIFO a byte at a time, the
// harness-side source of input the real firmware would get from a physical
// terminal wired to UART0.
func feedStdin(uart *simhw.UART) {
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			uart.Feed(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func main() {
	os.Exit(run())
}
