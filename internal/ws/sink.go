package ws

import (
	"encoding/json"

	"github.com/waymarkhq/waymark/internal/pipeline"
)

// analysisEventType is the envelope type for pipeline progress events.
const analysisEventType = "analysis_event"

// AnalysisSink forwards pipeline events to the hub, scoped to the user
// the analysis belongs to. Emit never blocks: a full broadcast channel
// drops the message.
type AnalysisSink struct {
	hub *Hub
}

// NewAnalysisSink creates a sink that broadcasts through the given hub.
func NewAnalysisSink(hub *Hub) *AnalysisSink {
	return &AnalysisSink{hub: hub}
}

// Emit implements pipeline.EventSink.
func (s *AnalysisSink) Emit(evt pipeline.AnalysisEvent) {
	if evt.UserID == "" {
		return
	}

	data, err := json.Marshal(evt)
	if err != nil {
		s.hub.log.WithError(err).Error("failed to marshal analysis event")
		return
	}

	s.hub.BroadcastEvent(analysisEventType, evt.UserID, data)
}
