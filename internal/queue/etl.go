package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"pathmind/pkg/etl"
	"pathmind/pkg/logger"
)

// EtlRunMsg is the payload on the ETL queue: one requested hierarchy
// rebuild, identified by the run id the API already handed to the caller.
type EtlRunMsg struct {
	RunID string `json:"run_id"`
	Mode  string `json:"mode"`
}

// RequestEtlRun enqueues a rebuild request.
func RequestEtlRun(ch *amqp091.Channel, runID, mode string) error {
	msg, err := json.Marshal(EtlRunMsg{RunID: runID, Mode: mode})
	if err != nil {
		return fmt.Errorf("encoding etl message: %w", err)
	}
	return PublishFIFO(ch, EtlQueue, msg)
}

// ProcessEtlMessage handles one rebuild request on the worker. Errors bubble
// up so the caller can route the message through retry and dead-letter.
func ProcessEtlMessage(ctx context.Context, runner *etl.Runner, msg string) error {
	data := new(EtlRunMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}
	if data.RunID == "" {
		return fmt.Errorf("etl message carries no run id")
	}
	if data.Mode == "" {
		data.Mode = etl.ModeFull
	}

	logger.Info("[Queue] Starting etl run", "run", data.RunID, "mode", data.Mode)
	return runner.Run(ctx, data.RunID, data.Mode)
}
