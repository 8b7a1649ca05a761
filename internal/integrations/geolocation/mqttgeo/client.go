package mqttgeo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

type pubSub interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Client reads positions that the handset publishes to the broker.
//
// Topics, relative to prefix:
//
//	devices/{id}/position          fixes and errors, last fix retained
//	devices/{id}/position/request  on-demand fix requests
//	devices/{id}/permission        retained permission state
type Client struct {
	ps       pubSub
	conn     mqtt.Client
	prefix   string
	deviceID string

	tokenTimeout      time.Duration
	permissionTimeout time.Duration
	now               func() time.Time
}

func New(brokerURL, clientID, prefix, deviceID string) (*Client, error) {
	if prefix == "" {
		prefix = "fieldtrack"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	conn := mqtt.NewClient(opts)
	tok := conn.Connect()
	if !tok.WaitTimeout(10 * time.Second) {
		return nil, errors.New("mqtt connect timeout")
	}
	if err := tok.Error(); err != nil {
		return nil, errors.Wrap(err, "mqtt connect")
	}

	c := newWithPubSub(conn, prefix, deviceID)
	c.conn = conn
	return c, nil
}

func newWithPubSub(ps pubSub, prefix, deviceID string) *Client {
	return &Client{
		ps:                ps,
		prefix:            prefix,
		deviceID:          deviceID,
		tokenTimeout:      5 * time.Second,
		permissionTimeout: 2 * time.Second,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Disconnect(250)
	}
}

type positionMsg struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	// unix ms
	Timestamp int64  `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

type requestMsg struct {
	HighAccuracy bool  `json:"highAccuracy"`
	TimeoutMs    int64 `json:"timeoutMs"`
	MaximumAgeMs int64 `json:"maximumAgeMs"`
}

type permissionMsg struct {
	State string `json:"state"`
}

func (c *Client) topic(suffix string) string {
	return fmt.Sprintf("%s/devices/%s/%s", c.prefix, c.deviceID, suffix)
}

func (c *Client) CurrentPosition(ctx context.Context, opts geolocation.Options) (geolocation.Position, error) {
	requestedAt := c.now()
	ch := make(chan geolocation.Fix, 1)
	topic := c.topic("position")

	// Live publishes answer the request; only the retained fix can be old.
	handler := func(_ mqtt.Client, m mqtt.Message) {
		fx, ok := decodeFix(m.Payload())
		if !ok {
			return
		}
		if fx.Err == nil && m.Retained() && !freshEnough(fx.Position.Timestamp, requestedAt, opts.MaximumAge) {
			return
		}
		select {
		case ch <- fx:
		default:
		}
	}
	if err := c.wait(c.ps.Subscribe(topic, 1, handler)); err != nil {
		return geolocation.Position{}, errors.Wrap(err, "subscribe position")
	}
	defer c.unsubscribe(topic)

	b, _ := json.Marshal(requestMsg{
		HighAccuracy: opts.HighAccuracy,
		TimeoutMs:    opts.Timeout.Milliseconds(),
		MaximumAgeMs: opts.MaximumAge.Milliseconds(),
	})
	if err := c.wait(c.ps.Publish(c.topic("position/request"), 1, false, b)); err != nil {
		return geolocation.Position{}, errors.Wrap(err, "publish position request")
	}

	select {
	case <-ctx.Done():
		return geolocation.Position{}, geolocation.ErrTimeout
	case fx := <-ch:
		return fx.Position, fx.Err
	}
}

func (c *Client) WatchPosition(ctx context.Context, opts geolocation.Options) (<-chan geolocation.Fix, error) {
	in := make(chan geolocation.Fix, 16)
	topic := c.topic("position")

	handler := func(_ mqtt.Client, m mqtt.Message) {
		fx, ok := decodeFix(m.Payload())
		if !ok {
			return
		}
		select {
		case in <- fx:
		default:
		}
	}
	if err := c.wait(c.ps.Subscribe(topic, 1, handler)); err != nil {
		return nil, errors.Wrap(err, "subscribe position")
	}

	out := make(chan geolocation.Fix)
	go func() {
		defer close(out)
		defer c.unsubscribe(topic)
		for {
			select {
			case <-ctx.Done():
				return
			case fx := <-in:
				select {
				case <-ctx.Done():
					return
				case out <- fx:
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) QueryPermission(ctx context.Context) (models.Permission, error) {
	ch := make(chan models.Permission, 1)
	topic := c.topic("permission")

	handler := func(_ mqtt.Client, m mqtt.Message) {
		var pm permissionMsg
		if json.Unmarshal(m.Payload(), &pm) != nil {
			return
		}
		p, ok := models.ParsePermission(pm.State)
		if !ok {
			return
		}
		select {
		case ch <- p:
		default:
		}
	}
	if err := c.wait(c.ps.Subscribe(topic, 1, handler)); err != nil {
		return "", errors.Wrap(err, "subscribe permission")
	}
	defer c.unsubscribe(topic)

	t := time.NewTimer(c.permissionTimeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "", geolocation.ErrTimeout
	case <-t.C:
		// устройство не публикует permission: считаем, что API нет
		return "", geolocation.ErrUnsupported
	case p := <-ch:
		return p, nil
	}
}

func (c *Client) wait(tok mqtt.Token) error {
	if !tok.WaitTimeout(c.tokenTimeout) {
		return geolocation.ErrTimeout
	}
	return tok.Error()
}

func (c *Client) unsubscribe(topic string) {
	if err := c.wait(c.ps.Unsubscribe(topic)); err != nil {
		slog.Warn("mqtt unsubscribe", "topic", topic, "error", err.Error())
	}
}

// Device clocks report whole milliseconds and drift a little from ours.
const clockSkew = 500 * time.Millisecond

func freshEnough(fixAt, requestedAt time.Time, maxAge time.Duration) bool {
	age := requestedAt.UnixMilli() - fixAt.UnixMilli()
	return age <= (maxAge + clockSkew).Milliseconds()
}

func decodeFix(payload []byte) (geolocation.Fix, bool) {
	var pm positionMsg
	if err := json.Unmarshal(payload, &pm); err != nil {
		slog.Warn("mqtt position payload", "error", err.Error())
		return geolocation.Fix{}, false
	}
	if pm.Error != "" {
		return geolocation.Fix{Err: geolocation.FromCode(pm.Error)}, true
	}
	return geolocation.Fix{Position: geolocation.Position{
		Latitude:  pm.Latitude,
		Longitude: pm.Longitude,
		Accuracy:  pm.Accuracy,
		Timestamp: time.UnixMilli(pm.Timestamp).UTC(),
	}}, true
}
