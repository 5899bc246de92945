package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// routing
	"routing.assigned": {},
	"routing.released": {},
	"routing.rejected": {},
	"routing.conflict": {},

	// source / destination registration
	"source.registered":        {},
	"source.unregistered":      {},
	"destination.registered":   {},
	"destination.unregistered": {},

	// promotion
	"promotion.applied":      {},
	"promotion.blocked":      {},
	"promotion.empty":        {},
	"promotion.gate_timeout": {},

	// compositor
	"compositor.connected":    {},
	"compositor.disconnected": {},
	"compositor.apply_failed": {},
	"compositor.scene_synced": {},
	"compositor.relay_synced": {},

	// audio
	"audio.bus_changed":   {},
	"audio.switch_failed": {},

	// input
	"input.click":     {},
	"input.ignored":   {},
	"input.malformed": {},

	// highlight
	"highlight.applied":  {},
	"highlight.removed":  {},
	"highlight.conflict": {},
	"highlight.failed":   {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
