// Package publish streams simulation rows to Kafka for live consumers.
package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Sample is one simulation row on the wire. Values maps channel codes to
// the generated readings for that step.
type Sample struct {
	SessionID   string             `json:"sessionId"`
	Scenario    string             `json:"scenario"`
	Step        int                `json:"step"`
	TimeMinutes float64            `json:"timeMinutes"`
	Timestamp   time.Time          `json:"timestamp"`
	Values      map[string]float64 `json:"values"`
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
}

func NewSample(sessionID, scenarioName string, step int, interval time.Duration, columns []string, row []float64, ts time.Time) Sample {
	values := make(map[string]float64, len(columns))
	for i, column := range columns {
		if i < len(row) {
			values[column] = row[i]
		}
	}
	return Sample{
		SessionID:   sessionID,
		Scenario:    scenarioName,
		Step:        step,
		TimeMinutes: float64(step) * interval.Minutes(),
		Timestamp:   ts,
		Values:      values,
	}
}

func NewMessage(sample Sample) (kafka.Message, error) {
	b, err := json.Marshal(sample)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(sample.SessionID), Value: b, Time: sample.Timestamp}, nil
}

func Publish(ctx context.Context, log *slog.Logger, w *kafka.Writer, sample Sample) error {
	msg, err := NewMessage(sample)
	if err != nil {
		log.Error("marshal failed", "err", err)
		return err
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		log.Error("kafka write failed", "err", err, "sessionId", sample.SessionID, "step", sample.Step)
		return err
	}
	log.Info("published", "sessionId", sample.SessionID, "step", sample.Step, "timeMin", sample.TimeMinutes)
	return nil
}
