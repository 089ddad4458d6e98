// Package controller joins the door sensors, relay and broker session.
//
// Everything except edge delivery runs on the caller's loop: Tick is called
// periodically, HandleMessage from the MQTT client's delivery goroutine.
// Edges reach the controller only through the shared logic.Debouncer.
package controller

import (
	"log"
	"time"

	"github.com/toblum/McGarager/internal/gpio"
	"github.com/toblum/McGarager/internal/logic"
	"github.com/toblum/McGarager/internal/mqtt"
	"github.com/toblum/McGarager/internal/relay"
	"github.com/toblum/McGarager/internal/status"
)

// Options wires a Controller. Tracker, Now and Sleep are optional.
type Options struct {
	Board     gpio.Board
	Client    mqtt.Client
	Debouncer *logic.Debouncer
	Telemetry status.Telemetry
	Tracker   *status.Tracker
	Topic     string // topic prefix; status and command topics hang off it

	Now   func() time.Time
	Sleep func(time.Duration)
}

// Controller is the garage door core.
type Controller struct {
	board      gpio.Board
	client     mqtt.Client
	debouncer  *logic.Debouncer
	telemetry  status.Telemetry
	tracker    *status.Tracker
	relay      *relay.Actuator
	supervisor *mqtt.Supervisor
	now        func() time.Time

	statusTopic  string
	commandTopic string

	ledKnown bool
	ledOn    bool
}

// New creates a Controller from opts.
func New(opts Options) *Controller {
	c := &Controller{
		board:        opts.Board,
		client:       opts.Client,
		debouncer:    opts.Debouncer,
		telemetry:    opts.Telemetry,
		tracker:      opts.Tracker,
		now:          opts.Now,
		statusTopic:  mqtt.StatusTopic(opts.Topic),
		commandTopic: mqtt.CommandTopic(opts.Topic),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.debouncer == nil {
		c.debouncer = logic.NewDebouncer(logic.DebounceWindow)
	}
	c.relay = relay.New(opts.Board)
	if opts.Sleep != nil {
		c.relay.WithSleep(opts.Sleep)
	}
	c.supervisor = mqtt.NewSupervisor(opts.Client, c.commandTopic, c.HandleMessage)
	return c
}

// Tick runs one pass of the main loop: keep the session alive, drive the
// status indicator, and publish if a debounced update is due.
func (c *Controller) Tick() {
	now := c.now()

	connected := c.supervisor.Ensure(now)
	if c.tracker != nil {
		c.tracker.SetMQTTConnected(connected)
	}
	c.setLED(!connected)

	if c.debouncer.PollDue(now) {
		c.PublishStatus()
	}
}

// Refresh reads both endstop sensors.
func (c *Controller) Refresh() (logic.DoorState, error) {
	opened, closed, err := c.board.Read()
	if err != nil {
		return logic.DoorState{}, err
	}
	door := logic.DoorState{Opened: opened, Closed: closed}
	if c.tracker != nil {
		c.tracker.SetDoor(door)
	}
	return door, nil
}

// PublishStatus reads the sensors and publishes a status report. Failures
// are logged and dropped; the next edge or status command will publish
// again.
func (c *Controller) PublishStatus() {
	door, err := c.Refresh()
	if err != nil {
		log.Printf("gpio read error: %v", err)
		return
	}

	host := c.telemetry.Sample()
	if c.tracker != nil {
		c.tracker.SetHost(host)
	}

	payload, err := mqtt.FormatStatus(mqtt.Report{
		Door:   door,
		RSSI:   host.RSSI,
		Memory: host.Memory,
		Uptime: host.Uptime,
	})
	if err != nil {
		log.Printf("format status: %v", err)
		return
	}

	if err := c.client.Publish(c.statusTopic, payload); err != nil {
		log.Printf("publish status dropped: %v", err)
		return
	}
	log.Printf("published status: door=%s", door)
	if c.tracker != nil {
		c.tracker.RecordPublish(c.now())
	}
}

// HandleMessage dispatches a message from the command topic. Unknown
// payloads are ignored.
func (c *Controller) HandleMessage(topic string, payload []byte) {
	log.Printf("message arrived [%s] %s", topic, payload)

	for _, cmd := range logic.MatchCommands(payload) {
		switch cmd {
		case logic.CommandTrigger:
			log.Printf("received trigger")
			if err := c.relay.Pulse(); err != nil {
				log.Printf("relay error: %v", err)
			}
			if c.tracker != nil {
				c.tracker.RecordPulse(c.now())
			}
		case logic.CommandStatus:
			log.Printf("received status")
			c.debouncer.ArmNow(c.now())
		}
	}
}

func (c *Controller) setLED(on bool) {
	if c.ledKnown && c.ledOn == on {
		return
	}
	if err := c.board.SetLED(on); err != nil {
		log.Printf("led error: %v", err)
		return
	}
	c.ledKnown, c.ledOn = true, on
}
