// Command smartmirrord is the SmartMirror embedded daemon: it
// coordinates the TV power status line, the IR emitter, the UART
// control link, and the camera-driven motion sensor behind a minimal
// HTTP remote-control surface.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartmirror.dev/availability"
	"smartmirror.dev/camera"
	"smartmirror.dev/config"
	"smartmirror.dev/gpioline"
	"smartmirror.dev/httpremote"
	"smartmirror.dev/ir"
	"smartmirror.dev/motion"
	"smartmirror.dev/policy"
	"smartmirror.dev/power"
	"smartmirror.dev/uartlink"
	"smartmirror.dev/videomute"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "smartmirrord: %v\n", err)
		os.Exit(1)
	}
}

// lifecycle is the common start/stop shape shared by every service
// wired in run.
type lifecycle interface {
	Start() error
	Stop() error
}

func run() error {
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("smartmirrord: load config: %w", err)
	}
	log.Printf("smartmirrord: starting (uart=%s gpio=%s)", cfg.UARTPort, cfg.GPIOChipPath)

	schedule, err := cfg.ParseSchedule()
	if err != nil {
		return fmt.Errorf("smartmirrord: %w", err)
	}

	powerPin, err := gpioline.OpenInput(cfg.GPIOChipPath, cfg.GPIOPowerStatusPin)
	if err != nil {
		return fmt.Errorf("smartmirrord: open power status line: %w", err)
	}
	irPin, err := gpioline.OpenOutput(cfg.GPIOChipPath, cfg.GPIOIRInputPin, gpioline.High)
	if err != nil {
		return fmt.Errorf("smartmirrord: open IR output line: %w", err)
	}

	transport := uartlink.New(uartlink.Config{
		Port:        cfg.UARTPort,
		BaudRate:    cfg.UARTBaudRate,
		ReadTimeout: config.UARTReadTimeout,
		EOL:         "\n",
	})
	dispatcher := uartlink.NewDispatcher()
	transport.RegisterListener(dispatcher.Dispatch)
	if cfg.UARTDebug {
		transport.RegisterListener(func(line string) { log.Printf("uart: %s", line) })
	}

	debouncer := power.New(powerPin)
	emitter := ir.New(irPin)
	irService := ir.NewService(emitter, ir.DefaultCommands)
	fsm := videomute.New(transport, videomute.WithLogger(log.Default()))
	dispatcher.Register(telemetryHandler{fsm})
	avail := availability.New(irService)
	scheduler := policy.New(fsm, schedule, policy.WithRemuteDelay(cfg.RemuteDelay()))
	motionSource := motion.NewFrameDifferencer(
		camera.NewNullSource(),
		motion.WithThreshold(cfg.MotionThreshold),
		motion.WithCooldown(time.Duration(cfg.MotionCooldownSec)*time.Second),
	)
	motionSource.RegisterOnMotion(scheduler.OnMotion)

	debouncer.RegisterOnPowerOn(fsm.OnPowerOn)
	debouncer.RegisterOnPowerOn(avail.OnPowerOn)
	debouncer.RegisterOnPowerOn(scheduler.OnPowerOn)
	debouncer.RegisterOnPowerOff(fsm.OnPowerOff)
	debouncer.RegisterOnPowerOff(avail.OnPowerOff)
	debouncer.RegisterOnPowerOff(scheduler.OnPowerOff)

	server := httpremote.New(irService)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: server}

	services := []lifecycle{
		transport,
		dispatcher,
		irService,
		fsm,
		avail,
		scheduler,
		motionSource,
		debouncer,
	}

	started := 0
	for _, svc := range services {
		if err := svc.Start(); err != nil {
			stopReverse(services[:started])
			return fmt.Errorf("smartmirrord: start service: %w", err)
		}
		started++
	}

	serverErrC := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrC <- err
		}
	}()

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigC:
		log.Printf("smartmirrord: received %s, shutting down", sig)
	case err := <-serverErrC:
		log.Printf("smartmirrord: http server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	stopReverse(services)
	log.Println("smartmirrord: stopped")
	return nil
}

func stopReverse(services []lifecycle) {
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(); err != nil {
			log.Printf("smartmirrord: stop service: %v", err)
		}
	}
}

// telemetryHandler adapts videomute.FSM to uartlink.Handler, accepting
// exactly the four telemetry lines the panel reports.
type telemetryHandler struct {
	fsm *videomute.FSM
}

func (h telemetryHandler) CanHandle(line string) bool {
	switch line {
	case "Video Mute on", "Video Mute off", "PORT_SW_INVERTER on", "PORT_SW_INVERTER off":
		return true
	default:
		return false
	}
}

func (h telemetryHandler) Handle(line string) {
	h.fsm.OnTelemetryLine(line)
}
