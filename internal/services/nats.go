package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	streamName      = "document-events"
	scanSubject     = "documents.scan"
	scanConsumerDur = "document-scan-worker"
)

// ScanTask is the payload dispatched for every created document. The worker
// receives the document by id only; it may have been deleted by the time the
// task runs.
type ScanTask struct {
	DocumentID int64     `json:"document_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NATSQueue implements TaskQueue on NATS JetStream. Delivery is at least
// once; the scan worker's claim step makes duplicates harmless.
type NATSQueue struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	log  *logrus.Entry
}

// ConnectNATS connects to NATS, initializes JetStream and ensures the
// document-events stream exists.
func ConnectNATS(url string, log *logrus.Logger) (*NATSQueue, error) {
	entry := log.WithField("component", "nats")

	opts := []nats.Option{
		nats.Name("document-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			entry.Warnf("disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.Infof("reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			entry.Info("connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	q := &NATSQueue{conn: conn, js: js, log: entry}
	if err := q.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	entry.Info("connected and JetStream initialized")
	return q, nil
}

func (q *NATSQueue) ensureStream() error {
	if _, err := q.js.StreamInfo(streamName); err == nil {
		return nil
	}

	_, err := q.js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"documents.*"},
		Storage:  nats.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	})
	return err
}

// EnqueueScan publishes a scan task for the document.
func (q *NATSQueue) EnqueueScan(_ context.Context, documentID int64) error {
	data, err := json.Marshal(ScanTask{DocumentID: documentID, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	_, err = q.js.Publish(scanSubject, data, nats.MsgId(uuid.New().String()))
	if err != nil {
		q.log.Errorf("publish failed subject=%s err=%v", scanSubject, err)
		return err
	}
	return nil
}

// SubscribeScans starts a durable, manual-ack consumer for scan tasks.
// The handler's error decides ack vs redelivery.
func (q *NATSQueue) SubscribeScans(handler func(ScanTask) error) (*nats.Subscription, error) {
	sub, err := q.js.Subscribe(scanSubject, func(msg *nats.Msg) {
		var task ScanTask
		if err := json.Unmarshal(msg.Data, &task); err != nil {
			q.log.Errorf("invalid scan task payload: %v", err)
			_ = msg.Ack()
			return
		}
		if err := handler(task); err != nil {
			q.log.Errorf("scan task for document %d failed: %v", task.DocumentID, err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.Durable(scanConsumerDur), nats.ManualAck())
	if err != nil {
		return nil, err
	}

	q.log.Infof("subscribed subject=%s durable=%s", scanSubject, scanConsumerDur)
	return sub, nil
}

// Close drains the connection.
func (q *NATSQueue) Close() {
	if q.conn != nil && q.conn.IsConnected() {
		q.conn.Close()
	}
}
