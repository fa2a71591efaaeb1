package ingest

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/icodeforyou/powerwindow/config"
)

type OnReading func(r Reading)
type OnDecodeError func(signal string, err error)

// Client subscribes to the topic of every configured signal and turns
// incoming messages into readings.
type Client struct {
	mqttClient    mqtt.Client
	logger        *slog.Logger
	signals       map[string][]config.AppConfigSignal // by topic
	lastMessage   activityClock
	maxIdle       time.Duration
	stopMonitorCh chan struct{}
	now           func() time.Time
	OnReading     OnReading
	OnDecodeError OnDecodeError
}

func New(cnfg config.AppConfigMqtt, signals []config.AppConfigSignal) *Client {
	logger := slog.Default().With("module", "ingest")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cnfg.Host, cnfg.Port))
	opts.SetClientID(cnfg.GetClientId())
	opts.SetUsername(cnfg.Username)
	opts.SetPassword(cnfg.Password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	pahoLog := slog.Default().With("module", "mqtt")
	mqtt.CRITICAL = newPahoLogger(pahoLog, slog.LevelError)
	mqtt.ERROR = newPahoLogger(pahoLog, slog.LevelError)
	mqtt.WARN = newPahoLogger(pahoLog, slog.LevelWarn)

	return newClient(mqtt.NewClient(opts), logger, cnfg, signals)
}

func newClient(mc mqtt.Client, logger *slog.Logger, cnfg config.AppConfigMqtt, signals []config.AppConfigSignal) *Client {
	byTopic := make(map[string][]config.AppConfigSignal)
	for _, s := range signals {
		byTopic[s.Topic] = append(byTopic[s.Topic], s)
	}

	return &Client{
		mqttClient: mc,
		logger:     logger,
		signals:    byTopic,
		maxIdle:    time.Duration(cnfg.GetInactivityTimeout()) * time.Second,
		now:        time.Now,
	}
}

func (c *Client) topics() map[string]byte {
	topics := make(map[string]byte, len(c.signals))
	for topic := range c.signals {
		topics[topic] = 0
	}
	return topics
}

func (c *Client) Connect() error {
	c.logger.Debug("connecting MQTT client")

	if token := c.mqttClient.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	c.inactivityWatchdog()

	token := c.mqttClient.SubscribeMultiple(c.topics(), func(client mqtt.Client, msg mqtt.Message) {
		c.handleMessage(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribing to signal topics: %w", token.Error())
	}

	return nil
}

func (c *Client) handleMessage(topic string, data []byte) {
	c.lastMessage.Touch()

	signals, ok := c.signals[topic]
	if !ok {
		c.logger.Warn("unknown topic", "topic", topic)
		return
	}

	now := c.now()
	for _, s := range signals {
		r, err := DecodeReading(s.Name, s.GetTimeUnit(), data, now)
		if err != nil {
			c.logger.Error("error when reading message", slog.String("signal", s.Name), slog.Any("error", err))
			if c.OnDecodeError != nil {
				c.OnDecodeError(s.Name, err)
			}
			continue
		}
		if c.OnReading != nil {
			c.OnReading(r)
		}
	}
}

func (c *Client) Disconnect() {
	c.logger.Info("disconnecting MQTT client")
	if c.stopMonitorCh != nil {
		close(c.stopMonitorCh)
		c.stopMonitorCh = nil
	}

	keys := make([]string, 0, len(c.signals))
	for k := range c.signals {
		keys = append(keys, k)
	}
	token := c.mqttClient.Unsubscribe(keys...)
	token.WaitTimeout(1 * time.Second)
	if token.Error() != nil {
		c.logger.Error("error unsubscribing from topics", slog.Any("error", token.Error()))
	}

	c.mqttClient.Disconnect(250)
}

func (c *Client) inactivityWatchdog() {
	trafficOk := true
	c.lastMessage.Touch()
	c.stopMonitorCh = make(chan struct{})
	stop := c.stopMonitorCh

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if c.lastMessage.Idle() >= c.maxIdle {
					if trafficOk {
						c.logger.Warn(fmt.Sprintf("no incoming mqtt traffic for the last %.0f seconds", c.maxIdle.Seconds()))
						trafficOk = false
					}
				} else if !trafficOk {
					c.logger.Info("mqtt traffic is restored")
					trafficOk = true
				}

			case <-stop:
				c.logger.Debug("stopping mqtt watchdog")
				return
			}
		}
	}()
}
