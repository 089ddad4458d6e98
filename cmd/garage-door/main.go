// Command garage-door pulses a garage door relay on MQTT command and publishes
// the endstop sensor state after every door movement.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toblum/McGarager/internal/config"
	"github.com/toblum/McGarager/internal/controller"
	"github.com/toblum/McGarager/internal/gpio"
	"github.com/toblum/McGarager/internal/logic"
	"github.com/toblum/McGarager/internal/mqtt"
	"github.com/toblum/McGarager/internal/status"
	"github.com/toblum/McGarager/internal/web"
)

// GPIO drivers selectable with -gpio-driver.
const (
	driverCdev   = "cdev"
	driverPeriph = "periph"
)

type options struct {
	configPath string
	driver     string
	pins       gpio.Pins
	poll       time.Duration
	httpAddr   string
	mqttWait   time.Duration
	wifiIface  string
	printState bool
}

func main() {
	opts := options{pins: gpio.DefaultPins()}
	flag.StringVar(&opts.configPath, "config", "/var/lib/garage-door/config.yaml", "Path of the persisted settings file")
	flag.StringVar(&opts.driver, "gpio-driver", driverCdev, `GPIO driver ("cdev" or "periph")`)
	flag.StringVar(&opts.pins.Chip, "chip", gpio.DefaultChip, "GPIO chip for the cdev driver")
	flag.IntVar(&opts.pins.Relay, "pin-relay", gpio.DefaultPinRelay, "BCM pin number for the relay")
	flag.IntVar(&opts.pins.Opened, "pin-opened", gpio.DefaultPinOpened, "BCM pin number for the door-open sensor")
	flag.IntVar(&opts.pins.Closed, "pin-closed", gpio.DefaultPinClosed, "BCM pin number for the door-closed sensor")
	flag.IntVar(&opts.pins.LED, "pin-led", gpio.NoPin, "BCM pin number for the status LED (-1 to disable)")
	flag.DurationVar(&opts.poll, "poll", 50*time.Millisecond, "Main loop interval")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP address for status and configuration pages (empty to disable)")
	flag.DurationVar(&opts.mqttWait, "mqtt-timeout", mqtt.DefaultTimeout, "Broker connect and publish timeout")
	flag.StringVar(&opts.wifiIface, "wifi-iface", "", "Wireless interface reported as rssi (empty for the first one)")
	flag.BoolVar(&opts.printState, "print-state", false, "Print current door state and exit")

	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	log.Printf("starting up...")

	store, err := config.Open(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store.SetValidator(config.RequireBroker)
	store.OnSaved(func(config.Settings) {
		log.Printf("configuration was updated")
	})

	debouncer := logic.NewDebouncer(logic.DebounceWindow)
	board, err := openBoard(opts.driver, opts.pins, func() {
		debouncer.OnEdge(time.Now())
	})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	// Print state mode
	if opts.printState {
		opened, closed, err := board.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("door: %s (opened=%v closed=%v)\n", logic.DoorState{Opened: opened, Closed: closed}, opened, closed)
		return nil
	}

	settings := store.Get()
	client := mqtt.NewRealClient(mqtt.Config{
		Host:     settings.MQTT.Host,
		Port:     settings.MQTT.Port,
		Username: settings.MQTT.Username,
		Password: settings.MQTT.Password,
		Timeout:  opts.mqttWait,
	})
	defer client.Close()

	startTime := time.Now()
	tracker := status.NewTracker(startTime, status.Config{
		PollMs:     opts.poll.Milliseconds(),
		DebounceMs: logic.DebounceWindow.Milliseconds(),
		GPIODriver: opts.driver,
		HTTPAddr:   opts.httpAddr,
	})
	telemetry := status.NewHostTelemetry(startTime, opts.wifiIface)

	ctl := controller.New(controller.Options{
		Board:     board,
		Client:    client,
		Debouncer: debouncer,
		Telemetry: telemetry,
		Tracker:   tracker,
		Topic:     settings.MQTT.Topic,
	})

	// Start HTTP server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, store, telemetry, ctl)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http server listening on %s", opts.httpAddr)
	}

	log.Printf("started: broker=%s topic=%s driver=%s poll=%v",
		mqtt.Config{Host: settings.MQTT.Host, Port: settings.MQTT.Port}.BrokerURL(), settings.MQTT.Topic, opts.driver, opts.poll)

	ticker := time.NewTicker(opts.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctl, ticker.C, sigCh)
}

// loop is the part of the controller driven by the main loop.
type loop interface {
	Tick()
}

func runLoop(ctl loop, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			return nil
		case <-tick:
			ctl.Tick()
		}
	}
}

func openBoard(driver string, pins gpio.Pins, onEdge gpio.EdgeFunc) (gpio.Board, error) {
	switch driver {
	case driverCdev:
		b, err := gpio.NewCdevBoard(pins, onEdge)
		if err != nil {
			return nil, err
		}
		return b, nil
	case driverPeriph:
		b, err := gpio.NewPeriphBoard(pins, onEdge)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown gpio driver %q", driver)
	}
}
