package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/strandcast/controlroom/internal/routing"
)

// metricsHandler exposes operational gauges in Prometheus text format.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP controlroom_uptime_seconds Seconds since the host started.\n")
	fmt.Fprintf(w, "# TYPE controlroom_uptime_seconds gauge\n")
	fmt.Fprintf(w, "controlroom_uptime_seconds %.0f\n", time.Since(s.startTime).Seconds())

	assignments := s.controller.Assignments()
	fmt.Fprintf(w, "# HELP controlroom_assigned_slots Number of slots with a source assigned.\n")
	fmt.Fprintf(w, "# TYPE controlroom_assigned_slots gauge\n")
	fmt.Fprintf(w, "controlroom_assigned_slots %d\n", len(assignments))

	fmt.Fprintf(w, "# HELP controlroom_active_sources Distinct sources currently routed.\n")
	fmt.Fprintf(w, "# TYPE controlroom_active_sources gauge\n")
	fmt.Fprintf(w, "controlroom_active_sources %d\n", len(s.controller.ActiveSources()))

	fmt.Fprintf(w, "# HELP controlroom_gate_blocked Promotion gate state per side (1 = blocked).\n")
	fmt.Fprintf(w, "# TYPE controlroom_gate_blocked gauge\n")
	for _, side := range []routing.Side{routing.SideStudio, routing.SideTV} {
		fmt.Fprintf(w, "controlroom_gate_blocked{side=%q} %d\n", string(side), boolGauge(s.controller.GateBlocked(side)))
	}

	if s.compositorUp != nil {
		fmt.Fprintf(w, "# HELP controlroom_compositor_connected Compositor connection state.\n")
		fmt.Fprintf(w, "# TYPE controlroom_compositor_connected gauge\n")
		fmt.Fprintf(w, "controlroom_compositor_connected %d\n", boolGauge(s.compositorUp()))
	}

	fmt.Fprintf(w, "# HELP controlroom_event_subscribers Connected event stream subscribers.\n")
	fmt.Fprintf(w, "# TYPE controlroom_event_subscribers gauge\n")
	fmt.Fprintf(w, "controlroom_event_subscribers %d\n", s.bus.SubscriberCount())
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
