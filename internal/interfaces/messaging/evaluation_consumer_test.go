package messaging

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
	"github.com/dreschagin/evaluation-dashboard/internal/application/usecase"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

type fakeIngester struct {
	events []*dto.EvaluationEventDTO
	result *usecase.IngestResult
	err    error
}

func (f *fakeIngester) Execute(_ context.Context, event *dto.EvaluationEventDTO) (*usecase.IngestResult, error) {
	f.events = append(f.events, event)
	return f.result, f.err
}

const payload = `{"id":"evt-1","time":"2026-04-02T09:30:00Z","data":{"project":"sockshop","stage":"prod","service":"carts","evaluation":{"score":100,"result":"pass","indicatorResults":[]}}}`

func TestEvaluationConsumer_Handle(t *testing.T) {
	summary := &dto.EvaluationSummaryDTO{ID: "evt-1", Project: "sockshop", Stage: "prod", Service: "carts"}
	transient := errors.New("database is locked")

	tests := []struct {
		name      string
		payload   string
		ingester  *fakeIngester
		wantErr   bool
		wantCalls int
		wantErrIs error
	}{
		{
			name:      "ingested",
			payload:   payload,
			ingester:  &fakeIngester{result: &usecase.IngestResult{Evaluation: summary}},
			wantCalls: 1,
		},
		{
			name:      "duplicate is acknowledged",
			payload:   payload,
			ingester:  &fakeIngester{result: &usecase.IngestResult{Evaluation: summary, Duplicate: true}},
			wantCalls: 1,
		},
		{
			name:      "invalid event is dropped",
			payload:   payload,
			ingester:  &fakeIngester{err: valueobject.ErrInvalidCategory},
			wantCalls: 1,
		},
		{
			name:      "transient failure is returned",
			payload:   payload,
			ingester:  &fakeIngester{err: transient},
			wantErr:   true,
			wantErrIs: transient,
			wantCalls: 1,
		},
		{
			name:      "malformed json",
			payload:   `{"id":`,
			ingester:  &fakeIngester{},
			wantErr:   true,
			wantErrIs: usecase.ErrInvalidInput,
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			consumer := NewEvaluationConsumer(tt.ingester, logger.NewWithWriter("error", io.Discard))
			err := consumer.Handle(context.Background(), "sh.keptn.event.evaluation.finished", []byte(tt.payload))

			if (err != nil) != tt.wantErr {
				t.Fatalf("Handle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErrIs != nil && !errors.Is(err, tt.wantErrIs) {
				t.Fatalf("Handle() error = %v, want %v", err, tt.wantErrIs)
			}
			if len(tt.ingester.events) != tt.wantCalls {
				t.Fatalf("ingester calls = %d, want %d", len(tt.ingester.events), tt.wantCalls)
			}
			if tt.wantCalls > 0 && tt.ingester.events[0].Data.Service != "carts" {
				t.Fatalf("unexpected decoded event: %+v", tt.ingester.events[0])
			}
		})
	}
}
