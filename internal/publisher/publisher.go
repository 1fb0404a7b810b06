package publisher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/CreasolTech/DomBusGateway/internal/catalog"
	"github.com/CreasolTech/DomBusGateway/internal/frame"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/config"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/logging"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/mqtt"
	"github.com/CreasolTech/DomBusGateway/internal/module"
	"github.com/CreasolTech/DomBusGateway/internal/txqueue"
)

// publishRetryDelay is how long the worker waits before retrying a publish
// after a transport error (spec.md §4.6 "on transport error, disconnect and
// re-establish; do not drop the in-flight message"). Not given a numeric
// value by spec.md; chosen to avoid a tight retry loop against a broker
// that is still reconnecting.
const publishRetryDelay = time.Second

// Broker is the subset of *mqtt.Client the Publisher needs, kept as an
// interface so tests can exercise the publish/command-translation logic
// without a live broker connection — the same decoupling the teacher's
// bridges/knx/bridge.go applies to its MQTTClient dependency.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

type publishJob struct {
	topic    string
	payload  []byte
	retained bool
}

// Publisher implements protocol.Publisher: it renders Device Catalog
// changes into discovery/state MQTT publications (spec.md §4.6) and
// translates inbound command topic messages into TX Queue entries.
type Publisher struct {
	broker   Broker
	topics   mqtt.Topics
	catalog  *catalog.Catalog
	registry *module.Registry
	txq      *txqueue.Queue
	logger   *logging.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []publishJob
	closed  bool
}

// New wires a Publisher over broker, rendering topics under topics and
// mutating cat/reg/txq as commands arrive.
func New(broker Broker, topics mqtt.Topics, cat *catalog.Catalog, reg *module.Registry, txq *txqueue.Queue, logger *logging.Logger) *Publisher {
	p := &Publisher{
		broker:   broker,
		topics:   topics,
		catalog:  cat,
		registry: reg,
		txq:      txq,
		logger:   logger,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start subscribes to the gateway's command wildcard (spec.md §4.6).
func (p *Publisher) Start() error {
	return p.broker.Subscribe(p.topics.AllCommands(), 1, p.handleCommand)
}

// Run drains the publish work list sequentially until ctx is cancelled
// (spec.md §4.6 "Queue discipline"). Intended to run in its own goroutine.
func (p *Publisher) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.cond.Broadcast()
	}()

	for {
		job, ok := p.dequeue()
		if !ok {
			return
		}
		p.publishUntilDone(ctx, job)
	}
}

func (p *Publisher) enqueue(job publishJob) {
	p.mu.Lock()
	p.queue = append(p.queue, job)
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *Publisher) dequeue() (publishJob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return publishJob{}, false
	}
	job := p.queue[0]
	p.queue = p.queue[1:]
	return job, true
}

// publishUntilDone retries a single job until it succeeds or ctx is
// cancelled, never dropping the in-flight message (spec.md §4.6).
func (p *Publisher) publishUntilDone(ctx context.Context, job publishJob) {
	for {
		if err := p.broker.Publish(job.topic, job.payload, 1, job.retained); err == nil {
			return
		} else {
			p.logger.Dump(config.LogMQTTTX, "publish failed, retrying", "topic", job.topic, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(publishRetryDelay):
		}
	}
}

// NotifyStateChanged implements protocol.Publisher: enqueues a state
// publication if the change+heartbeat policy allows it (spec.md §4.5, §8
// property 7).
func (p *Publisher) NotifyStateChanged(d *catalog.Device) {
	now := time.Now()
	if !p.catalog.ShouldPublish(d, now) {
		return
	}
	platform := string(catalog.PlatformFor(d))
	topic := p.topics.State(platform, d.ID.Name())
	p.enqueue(publishJob{topic: topic, payload: []byte(d.ValueHA), retained: true})
	p.catalog.MarkPublished(d, now)
}

// NotifyConfigChanged implements protocol.Publisher: publishes (or
// retires, if diff indicates removal) a discovery config entry (spec.md
// §4.5 "Configuration publication", §4.6).
func (p *Publisher) NotifyConfigChanged(d *catalog.Device, diff int) {
	if !catalog.ShouldRepublishConfig(diff) && d.LastPublishedConfig != "" {
		return
	}
	mod, _ := p.registry.Get(d.ID.FrameAddr())
	cfg := buildDiscoveryConfig(p.topics, d.ID.FrameAddr(), mod, d)
	payload, err := json.Marshal(cfg)
	if err != nil {
		p.logger.Error("failed to marshal discovery config", "device", d.ID.Name(), "error", err)
		return
	}
	topic := p.topics.Config(string(catalog.PlatformFor(d)), d.ID.Name())
	p.enqueue(publishJob{topic: topic, payload: payload, retained: true})
	d.LastPublishedConfig = string(payload)
}

// RetireConfig publishes an empty payload on d's discovery config topic,
// removing the entity from Home Assistant (spec.md §4.7 "rmmodule
// publishes empty payloads on config topics to retire entities").
func (p *Publisher) RetireConfig(d *catalog.Device) {
	topic := p.topics.Config(string(catalog.PlatformFor(d)), d.ID.Name())
	p.enqueue(publishJob{topic: topic, payload: nil, retained: true})
	d.LastPublishedConfig = ""
}

// handleCommand processes an inbound message on the command wildcard
// (spec.md §4.6). It ignores loopback (messages carrying the _sender tag,
// or any topic ending in "/state") and otherwise translates the payload
// into an outbound SET command on the TX Queue.
func (p *Publisher) handleCommand(topic string, payload []byte) error {
	if isLoopback(payload) {
		return nil
	}
	id, ok := parseCommandTopic(topic)
	if !ok {
		return nil
	}
	dev, ok := p.catalog.Get(id)
	if !ok {
		return nil
	}

	value, err := catalog.HAToValue(dev, string(payload))
	if err != nil {
		p.logger.Dump(config.LogMQTTRX, "unparseable command payload", "topic", topic, "error", err)
		return nil
	}

	frameAddr := id.FrameAddr()
	p.txq.Enqueue(frameAddr, txqueue.Cmd{
		Kind:        frame.KindSet,
		Ack:         false,
		Port:        uint8(id.Port()),
		Args:        []byte{byte(int64(value))},
		RetriesLeft: txqueue.TxRetry,
	})
	return nil
}

// isLoopback reports whether payload is this gateway's own echoed JSON
// publication (spec.md §4.6 "Loopback suppression").
func isLoopback(payload []byte) bool {
	var probe struct {
		Sender string `json:"_sender"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	return probe.Sender == senderTag
}
